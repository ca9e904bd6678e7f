package log

import (
	"context"
	"log/slog"
)

type ctxKey string

// 上下文键
const (
	RequestContextID ctxKey = "request_id"
	SessionContextID ctxKey = "session_id"
	RunContextID     ctxKey = "run_id"
)

var contextKeys = []ctxKey{RequestContextID, SessionContextID, RunContextID}

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithSessionID 在上下文中添加会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextID, sessionID)
}

// WithRunID 在上下文中添加工作流运行 ID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunContextID, runID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// FromContext 返回附带上下文字段的 logger
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := LogCtxFromContext(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return logger.With(args...)
}
