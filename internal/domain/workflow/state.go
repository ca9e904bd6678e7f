// Package workflow 定义代码生成工作流的领域模型
package workflow

// DefaultSessionID 未指定会话时使用的会话 ID
const DefaultSessionID = "default"

// Role 对话角色
type Role string

const (
	// RoleUser 用户消息
	RoleUser Role = "user"
	// RoleAssistant 助手回复
	RoleAssistant Role = "assistant"
)

// Turn 一轮对话
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State 工作流状态
// 在一次运行的各阶段之间按值传递，每个阶段返回新的 State
type State struct {
	SessionID         string `json:"session_id"`
	Turns             []Turn `json:"turns"`
	ActiveProjectPath string `json:"active_project_path,omitempty"` // 空表示尚无项目
	ProjectName       string `json:"project_name,omitempty"`
	DraftHTML         string `json:"draft_html,omitempty"`
	DraftCSS          string `json:"draft_css,omitempty"`
	DraftJS           string `json:"draft_js,omitempty"`
	RetrievedContext  string `json:"retrieved_context,omitempty"` // 仅编辑路径填充
}

// NewState 创建空状态
func NewState(sessionID string) State {
	return State{
		SessionID: sessionID,
		Turns:     []Turn{},
	}
}

// HasProject 是否指向某个项目
func (s State) HasProject() bool {
	return s.ActiveProjectPath != ""
}

// LatestUserMessage 返回最近一条用户消息
func (s State) LatestUserMessage() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleUser {
			return s.Turns[i].Content
		}
	}
	return ""
}

// LastTurn 返回最后一轮对话
func (s State) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// AppendTurns 追加对话轮次，返回新状态
// 总是复制底层切片，旧状态不受影响
func (s State) AppendTurns(turns ...Turn) State {
	merged := make([]Turn, 0, len(s.Turns)+len(turns))
	merged = append(merged, s.Turns...)
	merged = append(merged, turns...)
	s.Turns = merged
	return s
}

// Clone 深拷贝
func (s State) Clone() State {
	return s.AppendTurns()
}

// ClearDrafts 清空三个草稿
func (s State) ClearDrafts() State {
	s.DraftHTML = ""
	s.DraftCSS = ""
	s.DraftJS = ""
	return s
}

// Draft 按文件名读取草稿
func (s State) Draft(filename string) string {
	switch filename {
	case FileHTML:
		return s.DraftHTML
	case FileCSS:
		return s.DraftCSS
	case FileJS:
		return s.DraftJS
	}
	return ""
}

// WithDraft 按文件名整体替换草稿
func (s State) WithDraft(filename, content string) State {
	switch filename {
	case FileHTML:
		s.DraftHTML = content
	case FileCSS:
		s.DraftCSS = content
	case FileJS:
		s.DraftJS = content
	}
	return s
}
