package workflow

import "context"

// Generator 文本生成客户端
type Generator interface {
	// Generate 生成文本；未初始化时返回 ErrModelNotReady
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
	// Ready 是否可用
	Ready() bool
}

// ContextRetriever 相似代码检索
type ContextRetriever interface {
	// RetrieveSimilar 只在 project 的文件中检索，返回按相关度排序的片段
	// project 为空或内部错误时返回空切片
	RetrieveSimilar(ctx context.Context, project, query string, n int) []string
}

// ProjectStore 项目文件存储
type ProjectStore interface {
	// ProjectPath 项目名对应的目录
	ProjectPath(projectName string) string
	// Exists 目录是否存在
	Exists(projectPath string) bool
	// Read 读取文件；不存在时返回 MissingFileMarker，从不失败
	Read(projectPath, filename string) string
	// Write 写入文件（必要时创建目录）
	Write(projectPath, filename, content string) error
}

// StateRepository 会话状态存储
type StateRepository interface {
	// Load 读取最新快照；不存在时返回 nil, nil
	Load(ctx context.Context, sessionID string) (*State, error)
	// Save 保存一次完整快照
	Save(ctx context.Context, sessionID string, state State) error
	// Delete 删除会话的全部快照，重复删除不报错
	Delete(ctx context.Context, sessionID string) error
	// RecordStep 记录阶段完成情况
	RecordStep(ctx context.Context, step *RunStep) error
}

// ProgressNotifier 阶段进度通知
type ProgressNotifier interface {
	NotifyStage(event StageEvent)
}
