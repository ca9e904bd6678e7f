package middleware

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/webforge/backend/internal/infrastructure/log"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// maxTranscodeBody 参与编码修复的请求体上限，超出时原样透传
const maxTranscodeBody = 1 << 20

// EnsureUTF8Body 把 GBK 编码的 JSON/文本请求体转成 UTF-8
// Windows 终端里用 curl 提交中文提示词时常见
func EnsureUTF8Body() gin.HandlerFunc {
	logger := log.NewModuleLogger("http", "encoding")

	return func(c *gin.Context) {
		req := c.Request
		if req.Body == nil || req.ContentLength == 0 || req.ContentLength > maxTranscodeBody || !textualBody(req.Header.Get("Content-Type")) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(io.LimitReader(req.Body, maxTranscodeBody+1))
		_ = req.Body.Close()
		if err != nil || len(raw) > maxTranscodeBody {
			req.Body = io.NopCloser(bytes.NewReader(raw))
			c.Next()
			return
		}

		body := raw
		if !utf8.Valid(raw) {
			if converted, ok := decodeGBK(raw); ok {
				body = converted
				req.ContentLength = int64(len(converted))
				log.FromContext(req.Context(), logger).Debug("Request body transcoded from GBK",
					"path", c.FullPath(),
					"bytes", len(raw),
				)
			} else {
				log.FromContext(req.Context(), logger).Warn("Request body is not valid UTF-8", "path", c.FullPath())
			}
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// textualBody 无 Content-Type 或 JSON/文本时才处理，zip 等二进制体不碰
func textualBody(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasPrefix(mediaType, "text/")
}

func decodeGBK(raw []byte) ([]byte, bool) {
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
	if err != nil || !utf8.Valid(out) {
		return nil, false
	}
	return out, true
}
