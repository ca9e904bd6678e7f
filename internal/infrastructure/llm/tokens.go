package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 基于 tiktoken 的 token 计数器
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	counterInstance *TokenCounter
	counterOnce     sync.Once
	counterErr      error
)

// GetTokenCounter 返回进程级单例，编码表只加载一次
func GetTokenCounter() (*TokenCounter, error) {
	counterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &TokenCounter{encoding: enc}
	})
	return counterInstance, counterErr
}

// Count 计算文本 token 数
func (c *TokenCounter) Count(text string) int {
	if c == nil || text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoding.Encode(text, nil, nil))
}

// countTokens 计数器不可用时按 4 字符一个 token 粗估
func countTokens(text string) int {
	counter, err := GetTokenCounter()
	if err != nil {
		return (len(text) + 3) / 4
	}
	return counter.Count(text)
}

// Truncate 截断到最多 maxTokens 个 token
func (c *TokenCounter) Truncate(text string, maxTokens int) string {
	if c == nil || maxTokens <= 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.encoding.Decode(tokens[:maxTokens])
}

// TruncateTokens 计数器不可用时按字符数近似截断
func TruncateTokens(text string, maxTokens int) string {
	counter, err := GetTokenCounter()
	if err != nil {
		runes := []rune(text)
		if len(runes) > maxTokens*4 {
			return string(runes[:maxTokens*4])
		}
		return text
	}
	return counter.Truncate(text, maxTokens)
}
