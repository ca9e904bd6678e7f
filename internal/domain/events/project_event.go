package events

import "time"

// ProjectFileEvent 生成项目文件变更事件
type ProjectFileEvent struct {
	EventType EventType
	// FilePath 文件绝对路径
	FilePath string
	// ProjectName 所属项目目录名（generated_apps 的直接子目录）
	ProjectName string
	EventTime   time.Time
}

// Type 实现 Event 接口
func (e *ProjectFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *ProjectFileEvent) Timestamp() time.Time {
	return e.EventTime
}
