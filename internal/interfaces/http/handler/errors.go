package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/interfaces/http/response"
)

// 业务错误码
const (
	codeInvalidRequest    = 100001
	codeModelNotReady     = 100002
	codeGenerationTimeout = 100003
	codeGenerationFailed  = 100004
	codePersistence       = 100005
	codeInternal          = 100006
	codeNotInitialized    = 100007
	codeProjectNotFound   = 200001
	codeInvalidPath       = 200002
	codeFileNotFound      = 200003
	codeArchiveFailed     = 200004
)

// workflowError 按错误类别写出错误响应，完整原因只记日志
func workflowError(c *gin.Context, logger *slog.Logger, err error) {
	class := workflow.Classify(err)
	status, code, message := statusFor(err, class)

	attrs := []any{"class", class, "error", err}
	if stage, ok := workflow.FailedStage(err); ok {
		attrs = append(attrs, "stage", stage)
	}
	logger.Error("Workflow request failed", attrs...)

	response.ErrorWithDetail(c, status, code, message, string(class))
}

func statusFor(err error, class workflow.Class) (int, int, string) {
	switch {
	case errors.Is(err, workflow.ErrEngineNotInitialized):
		return http.StatusServiceUnavailable, codeNotInitialized, "工作流引擎尚未初始化"
	case errors.Is(err, context.Canceled):
		return 499, codeInternal, "请求已取消"
	}
	switch class {
	case workflow.ClassModelNotReady:
		return http.StatusServiceUnavailable, codeModelNotReady, "生成模型未就绪，请检查 API Key 配置"
	case workflow.ClassTimeout:
		return http.StatusGatewayTimeout, codeGenerationTimeout, "生成超时"
	case workflow.ClassGeneration:
		return http.StatusBadGateway, codeGenerationFailed, "生成失败"
	case workflow.ClassPersistence:
		return http.StatusInternalServerError, codePersistence, "保存会话或项目文件失败"
	default:
		return http.StatusInternalServerError, codeInternal, "内部错误"
	}
}
