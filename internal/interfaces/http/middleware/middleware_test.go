package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webforge/backend/internal/infrastructure/log"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnsureUTF8Body_ConvertsGBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`{"message":"做一个登录页"}`))
	require.NoError(t, err)

	router := gin.New()
	router.Use(EnsureUTF8Body())
	var got string
	router.POST("/echo", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		got = string(data)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(gbk))
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, `{"message":"做一个登录页"}`, got)
}

func TestEnsureUTF8Body_KeepsUTF8(t *testing.T) {
	router := gin.New()
	router.Use(EnsureUTF8Body())
	var got string
	router.POST("/echo", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		got = string(data)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte("héllo")))
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "héllo", got)
}

func TestEnsureUTF8Body_SkipsBinaryBodies(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("登录页"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(EnsureUTF8Body())
	var got []byte
	router.POST("/echo", func(c *gin.Context) {
		got, _ = io.ReadAll(c.Request.Body)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(gbk))
	req.Header.Set("Content-Type", "application/zip")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, gbk, got)
}

func TestEnsureUTF8Body_JSONContentType(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`{"message":"把背景改成蓝色"}`))
	require.NoError(t, err)

	router := gin.New()
	router.Use(EnsureUTF8Body())
	var got string
	router.POST("/echo", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		got = string(data)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(gbk))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, `{"message":"把背景改成蓝色"}`, got)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var attrs int
	router.GET("/ping", func(c *gin.Context) {
		attrs = len(log.LogCtxFromContext(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, 1, attrs)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}
