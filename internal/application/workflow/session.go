package workflow

import (
	"context"
	"fmt"
	"log/slog"

	domain "github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// CodeIndexer 代码索引维护
type CodeIndexer interface {
	Available() bool
	Reset(ctx context.Context) error
	IndexDirectory(ctx context.Context, dir string) (int, error)
}

// ProjectRemover 删除生成项目目录
type ProjectRemover interface {
	Root() string
	Remove(projectName string) error
}

// ProjectSnapshot 会话当前项目的三个文件
type ProjectSnapshot struct {
	SessionID   string            `json:"session_id"`
	ProjectName string            `json:"project_name"`
	ProjectPath string            `json:"project_path"`
	Files       map[string]string `json:"files"`
}

// SessionService 会话级操作：清空、查看当前项目
type SessionService struct {
	engine   *Engine
	store    domain.ProjectStore
	projects ProjectRemover
	index    CodeIndexer
	logger   *slog.Logger
}

// NewSessionService 创建会话服务
func NewSessionService(engine *Engine, store domain.ProjectStore, projects ProjectRemover, index CodeIndexer) *SessionService {
	return &SessionService{
		engine:   engine,
		store:    store,
		projects: projects,
		index:    index,
		logger:   log.NewModuleLogger("workflow", "session"),
	}
}

// Clear 重置会话：删除状态和项目目录，重建代码索引
func (s *SessionService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	logger := log.FromContext(log.WithSessionID(ctx, sessionID), s.logger)

	err := s.engine.ClearSession(ctx, sessionID, func() error {
		if err := s.projects.Remove(domain.ProjectSlug(sessionID)); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 索引是全局的，清空后重新索引其余会话的项目
	if s.index != nil && s.index.Available() {
		if err := s.index.Reset(ctx); err != nil {
			logger.Warn("Failed to reset code index", "error", err)
		} else if _, err := s.index.IndexDirectory(ctx, s.projects.Root()); err != nil {
			logger.Warn("Failed to rebuild code index", "error", err)
		}
	}

	logger.Info("Session cleared")
	return nil
}

// ProjectFiles 会话当前项目的文件内容，没有项目时返回 nil
func (s *SessionService) ProjectFiles(ctx context.Context, sessionID string) (*ProjectSnapshot, error) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	state, err := s.engine.LoadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil || !state.HasProject() || !s.store.Exists(state.ActiveProjectPath) {
		return nil, nil
	}

	files := make(map[string]string, len(domain.ArtifactFiles))
	for _, file := range domain.ArtifactFiles {
		files[file] = s.store.Read(state.ActiveProjectPath, file)
	}
	return &ProjectSnapshot{
		SessionID:   sessionID,
		ProjectName: state.ProjectName,
		ProjectPath: state.ActiveProjectPath,
		Files:       files,
	}, nil
}
