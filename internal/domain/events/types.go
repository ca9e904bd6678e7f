// Package events 定义领域事件类型和接口
package events

import "time"

// EventType 事件类型标识
type EventType string

// 项目文件事件类型
const (
	// ProjectFileCreated 生成项目中的文件被创建
	ProjectFileCreated EventType = "project.file.created"
	// ProjectFileModified 生成项目中的文件被修改
	ProjectFileModified EventType = "project.file.modified"
	// ProjectFileDeleted 生成项目中的文件被删除
	ProjectFileDeleted EventType = "project.file.deleted"
)

// ProjectFileEvents 全部项目文件事件类型
var ProjectFileEvents = []EventType{ProjectFileCreated, ProjectFileModified, ProjectFileDeleted}

// Event 领域事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
