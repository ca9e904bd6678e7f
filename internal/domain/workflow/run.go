package workflow

import "time"

// StepStatus 阶段执行状态
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// RunStep 运行日志中的一条记录
type RunStep struct {
	RunID     string
	SessionID string
	Stage     Stage
	Status    StepStatus
	Detail    string
	CreatedAt time.Time
}

// StageEvent 推送给前端的阶段事件
type StageEvent struct {
	SessionID string     `json:"session_id"`
	RunID     string     `json:"run_id"`
	Stage     Stage      `json:"stage"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	At        time.Time  `json:"at"`
}

// ArtifactChange 单个文件的改动统计
type ArtifactChange struct {
	File       string `json:"file"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
}

// Result 一次运行的对外结果
type Result struct {
	Response    string           `json:"response"`
	ProjectName string           `json:"project_name,omitempty"`
	ProjectPath string           `json:"project_path,omitempty"`
	RunID       string           `json:"run_id"`
	Mode        Mode             `json:"mode"`
	Recovered   bool             `json:"recovered,omitempty"` // 编辑路径上项目目录已丢失
	Changes     []ArtifactChange `json:"changes,omitempty"`
}
