package workflow

import (
	"errors"
	"fmt"
)

// 分类错误
var (
	// ErrModelNotReady 生成模型未初始化（通常是缺少凭证）
	ErrModelNotReady = errors.New("generation model is not loaded")
	// ErrGenerationFailed 生成调用失败
	ErrGenerationFailed = errors.New("generation failed")
	// ErrGenerationTimeout 生成调用超时
	ErrGenerationTimeout = fmt.Errorf("%w: timed out", ErrGenerationFailed)
	// ErrPersistence 状态或文件持久化失败，本次结果不可靠
	ErrPersistence = errors.New("persistence failed")
	// ErrRetrieverUnavailable 检索服务不可用
	ErrRetrieverUnavailable = errors.New("context retriever unavailable")
	// ErrEngineNotInitialized 引擎未初始化
	ErrEngineNotInitialized = errors.New("workflow engine is not initialized")
)

// StageError 阶段失败
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage 从错误链中取出失败阶段
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Class 错误分类，用于对外响应
type Class string

const (
	ClassModelNotReady Class = "model_not_ready"
	ClassTimeout       Class = "generation_timeout"
	ClassGeneration    Class = "generation_failed"
	ClassPersistence   Class = "persistence_failed"
	ClassInternal      Class = "internal_error"
)

// Classify 对错误分类
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrModelNotReady):
		return ClassModelNotReady
	case errors.Is(err, ErrGenerationTimeout):
		return ClassTimeout
	case errors.Is(err, ErrGenerationFailed):
		return ClassGeneration
	case errors.Is(err, ErrPersistence):
		return ClassPersistence
	default:
		return ClassInternal
	}
}
