package workflow

// Stage 工作流阶段
type Stage string

const (
	StageRouter          Stage = "router"
	StageCreateHTML      Stage = "create_html"
	StageCreateCSS       Stage = "create_css"
	StageCreateJS        Stage = "create_js"
	StageLoadProject     Stage = "load_project"
	StageRetrieveContext Stage = "retrieve_context"
	StageEditHTML        Stage = "edit_html"
	StageEditCSS         Stage = "edit_css"
	StageEditJS          Stage = "edit_js"
	StageAssemble        Stage = "assemble"
	StageEnd             Stage = "end"
)

// Mode 本次运行走的路径
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// 固定边（router 之外）
var fixedEdges = map[Stage]Stage{
	StageCreateHTML:      StageCreateCSS,
	StageCreateCSS:       StageCreateJS,
	StageCreateJS:        StageAssemble,
	StageLoadProject:     StageRetrieveContext,
	StageRetrieveContext: StageEditHTML,
	StageEditHTML:        StageEditCSS,
	StageEditCSS:         StageEditJS,
	StageEditJS:          StageAssemble,
	StageAssemble:        StageEnd,
}

// Route router 阶段的唯一条件分支
// projectReady 表示运行开始时 ActiveProjectPath 已设置且目录存在
func Route(projectReady bool) Mode {
	if projectReady {
		return ModeEdit
	}
	return ModeCreate
}

// Next 纯转移函数
func Next(current Stage, mode Mode) Stage {
	if current == StageRouter {
		if mode == ModeEdit {
			return StageLoadProject
		}
		return StageCreateHTML
	}
	if next, ok := fixedEdges[current]; ok {
		return next
	}
	return StageEnd
}

// Path 返回某一模式下从 router 到结束经过的全部阶段（不含 router 和 end）
func Path(mode Mode) []Stage {
	var stages []Stage
	for s := Next(StageRouter, mode); s != StageEnd; s = Next(s, mode) {
		stages = append(stages, s)
	}
	return stages
}

// IsGeneration 该阶段是否调用生成模型
func (s Stage) IsGeneration() bool {
	switch s {
	case StageCreateHTML, StageCreateCSS, StageCreateJS,
		StageEditHTML, StageEditCSS, StageEditJS:
		return true
	}
	return false
}

// Artifact 生成阶段对应的产物文件名
func (s Stage) Artifact() string {
	switch s {
	case StageCreateHTML, StageEditHTML:
		return FileHTML
	case StageCreateCSS, StageEditCSS:
		return FileCSS
	case StageCreateJS, StageEditJS:
		return FileJS
	}
	return ""
}
