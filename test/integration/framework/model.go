//go:build integration
// +build integration

package framework

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// FakeModel OpenAI 兼容的假生成服务
// 按提示词判断目标文件，回复内容带调用序号，便于断言编辑生效
type FakeModel struct {
	server *httptest.Server
	mu     sync.Mutex
	calls  int
	fail   bool
}

// NewFakeModel 启动假生成服务
func NewFakeModel() *FakeModel {
	m := &FakeModel{}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL 服务地址
func (m *FakeModel) URL() string {
	return m.server.URL
}

// Close 关闭服务
func (m *FakeModel) Close() {
	m.server.Close()
}

// SetFailing 之后的请求返回 500
func (m *FakeModel) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Calls 已处理的生成请求数
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *FakeModel) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	fail := m.fail
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable"}}`))
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	var content string
	switch {
	case strings.Contains(prompt, "JavaScript only"):
		content = fmt.Sprintf("```javascript\nconsole.log('v%d');\n```", n)
	case strings.Contains(prompt, "CSS only"):
		content = fmt.Sprintf("body { order: %d; }", n)
	default:
		content = fmt.Sprintf("<!DOCTYPE html>\n<html><body><h1>v%d</h1></body></html>", n)
	}

	resp := map[string]any{
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
