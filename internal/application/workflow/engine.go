// Package workflow 实现对话式网站生成工作流
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	domain "github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
)

const (
	// retrieveLimit 编辑前检索的片段数
	retrieveLimit = 3
	// defaultMaxOutputTokens 单次生成的 token 上限
	defaultMaxOutputTokens   = 8192
	defaultGenerationTimeout = 2 * time.Minute
)

// 助手回复
const (
	ResponseUpdated = "I have applied the updates to the project."
	ResponseCreated = "I've created a new project. You can see it in the preview."
	// responseIdle 最后一轮不是助手回复时的兜底
	responseIdle = "I'm ready."
)

// storeOpener 关闭后可重新打开的状态存储
type storeOpener interface {
	Open(ctx context.Context) error
}

// stageFunc 阶段处理函数，接收状态值并返回新状态
type stageFunc func(ctx context.Context, r *run, state domain.State) (domain.State, error)

// run 一次运行的上下文
type run struct {
	id        string
	sessionID string
	mode      domain.Mode
	// hadProject 运行开始前是否已设置项目路径，assemble 据此选择回复
	hadProject bool
	recovered  bool
	// baseline 运行前磁盘上的文件内容，用于统计改动
	baseline map[string]string
	written  map[string]string
}

// Engine 工作流引擎
type Engine struct {
	generator domain.Generator
	store     domain.ProjectStore
	repo      domain.StateRepository
	notifier  domain.ProgressNotifier

	maxOutputTokens int
	timeout         time.Duration

	mu        sync.RWMutex
	graph     map[domain.Stage]stageFunc
	retriever domain.ContextRetriever

	locks  *sessionLocks
	logger *slog.Logger
}

// NewEngine 创建工作流引擎
func NewEngine(
	generator domain.Generator,
	store domain.ProjectStore,
	repo domain.StateRepository,
	notifier domain.ProgressNotifier,
	cfg *config.GenerationConfig,
) *Engine {
	e := &Engine{
		generator:       generator,
		store:           store,
		repo:            repo,
		notifier:        notifier,
		maxOutputTokens: cfg.MaxOutputTokens,
		timeout:         cfg.Timeout,
		locks:           newSessionLocks(),
		logger:          log.NewModuleLogger("workflow", "engine"),
	}
	if e.maxOutputTokens <= 0 {
		e.maxOutputTokens = defaultMaxOutputTokens
	}
	if e.timeout <= 0 {
		e.timeout = defaultGenerationTimeout
	}
	return e
}

// Initialize 构建阶段图，重复调用无副作用
// retriever 为 nil 时编辑阶段不带检索上下文
func (e *Engine) Initialize(ctx context.Context, retriever domain.ContextRetriever) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.graph != nil {
		return nil
	}
	if e.repo == nil {
		return fmt.Errorf("%w: state repository missing", domain.ErrEngineNotInitialized)
	}
	if opener, ok := e.repo.(storeOpener); ok {
		if err := opener.Open(ctx); err != nil {
			return fmt.Errorf("%w: open state store: %w", domain.ErrPersistence, err)
		}
	}

	graph := e.buildGraph()
	for _, mode := range []domain.Mode{domain.ModeCreate, domain.ModeEdit} {
		for _, stage := range domain.Path(mode) {
			if _, ok := graph[stage]; !ok {
				return fmt.Errorf("no handler for stage %s", stage)
			}
		}
	}

	e.graph = graph
	e.retriever = retriever
	e.logger.Info("Workflow engine initialized",
		"generator_ready", e.generator != nil && e.generator.Ready(),
		"retriever", retriever != nil,
	)
	return nil
}

// Shutdown 释放阶段图并关闭状态存储，之后需要重新 Initialize
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph != nil {
		e.graph = nil
		e.retriever = nil
		e.logger.Info("Workflow engine shut down")
	}

	var err error
	if closer, ok := e.repo.(io.Closer); ok {
		if err = closer.Close(); err != nil {
			err = fmt.Errorf("failed to close state store: %w", err)
		}
	}
	return err
}

// Initialized 是否已初始化
func (e *Engine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph != nil
}

func (e *Engine) buildGraph() map[domain.Stage]stageFunc {
	return map[domain.Stage]stageFunc{
		domain.StageCreateHTML:      e.generateStage(domain.StageCreateHTML),
		domain.StageCreateCSS:       e.generateStage(domain.StageCreateCSS),
		domain.StageCreateJS:        e.generateStage(domain.StageCreateJS),
		domain.StageLoadProject:     e.loadProject,
		domain.StageRetrieveContext: e.retrieveContext,
		domain.StageEditHTML:        e.generateStage(domain.StageEditHTML),
		domain.StageEditCSS:         e.generateStage(domain.StageEditCSS),
		domain.StageEditJS:          e.generateStage(domain.StageEditJS),
		domain.StageAssemble:        e.assemble,
	}
}

// ProcessMessage 处理一条用户消息
// 失败时不保存任何状态
func (e *Engine) ProcessMessage(ctx context.Context, message, sessionID string) (*domain.Result, error) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	e.mu.RLock()
	graph := e.graph
	e.mu.RUnlock()
	if graph == nil {
		return nil, domain.ErrEngineNotInitialized
	}

	unlock, err := e.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := &run{id: uuid.NewString(), sessionID: sessionID}
	ctx = log.WithRunID(log.WithSessionID(ctx, sessionID), r.id)
	logger := log.FromContext(ctx, e.logger)

	restored, err := e.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", domain.ErrPersistence, err)
	}
	state := domain.NewState(sessionID)
	if restored != nil {
		state = restored.Clone()
		state.SessionID = sessionID
	}
	r.hadProject = state.HasProject()
	state = state.AppendTurns(domain.Turn{Role: domain.RoleUser, Content: message})

	started := time.Now()
	final, err := e.execute(ctx, graph, r, state)
	if err != nil {
		stage, _ := domain.FailedStage(err)
		logger.Error("Workflow run failed",
			"stage", stage,
			"class", domain.Classify(err),
			"error", err,
		)
		return nil, err
	}

	if err := e.repo.Save(ctx, sessionID, final); err != nil {
		logger.Error("Failed to persist session state", "error", err)
		return nil, fmt.Errorf("%w: save session: %w", domain.ErrPersistence, err)
	}

	result := &domain.Result{
		Response:    responseIdle,
		ProjectName: final.ProjectName,
		ProjectPath: final.ActiveProjectPath,
		RunID:       r.id,
		Mode:        r.mode,
		Recovered:   r.recovered,
		Changes:     artifactChanges(r.baseline, r.written),
	}
	if last, ok := final.LastTurn(); ok && last.Role == domain.RoleAssistant {
		result.Response = last.Content
	}

	logger.Info("Workflow run completed",
		"mode", r.mode,
		"project", final.ProjectName,
		"recovered", r.recovered,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// execute 从 router 开始依次执行阶段直到结束
func (e *Engine) execute(ctx context.Context, graph map[domain.Stage]stageFunc, r *run, state domain.State) (domain.State, error) {
	ready := state.HasProject() && e.store.Exists(state.ActiveProjectPath)
	r.mode = domain.Route(ready)
	if state.HasProject() && !ready {
		r.recovered = true
		log.FromContext(ctx, e.logger).Warn("Active project directory is missing, starting over",
			"path", state.ActiveProjectPath,
		)
	}
	e.step(ctx, r, domain.StageRouter, domain.StepCompleted, string(r.mode))

	for stage := domain.Next(domain.StageRouter, r.mode); stage != domain.StageEnd; stage = domain.Next(stage, r.mode) {
		if err := ctx.Err(); err != nil {
			e.step(ctx, r, stage, domain.StepFailed, err.Error())
			return state, &domain.StageError{Stage: stage, Err: err}
		}

		e.step(ctx, r, stage, domain.StepStarted, "")
		next, err := graph[stage](ctx, r, state)
		if err != nil {
			e.step(ctx, r, stage, domain.StepFailed, err.Error())
			return state, &domain.StageError{Stage: stage, Err: err}
		}
		state = next
		e.step(ctx, r, stage, domain.StepCompleted, "")
	}
	return state, nil
}

// step 记录运行日志并推送进度，失败只记录
func (e *Engine) step(ctx context.Context, r *run, stage domain.Stage, status domain.StepStatus, detail string) {
	now := time.Now()
	if e.notifier != nil {
		event := domain.StageEvent{
			SessionID: r.sessionID,
			RunID:     r.id,
			Stage:     stage,
			Status:    status,
			At:        now,
		}
		if status == domain.StepFailed {
			event.Error = detail
		}
		e.notifier.NotifyStage(event)
	}

	if status == domain.StepStarted {
		return
	}
	err := e.repo.RecordStep(context.WithoutCancel(ctx), &domain.RunStep{
		RunID:     r.id,
		SessionID: r.sessionID,
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		CreatedAt: now,
	})
	if err != nil {
		log.FromContext(ctx, e.logger).Warn("Failed to record run step", "stage", stage, "error", err)
	}
}

// loadProject 从磁盘读取现有项目
func (e *Engine) loadProject(ctx context.Context, r *run, state domain.State) (domain.State, error) {
	path := state.ActiveProjectPath
	if path == "" || !e.store.Exists(path) {
		// 目录在 router 之后被删除：清空指针和草稿，后续阶段从空草稿重写
		r.recovered = true
		log.FromContext(ctx, e.logger).Warn("Project directory disappeared before loading", "path", path)
		state.ActiveProjectPath = ""
		return state.ClearDrafts(), nil
	}

	state.ProjectName = filepath.Base(filepath.Clean(path))
	r.baseline = make(map[string]string, len(domain.ArtifactFiles))
	for _, file := range domain.ArtifactFiles {
		content := e.store.Read(path, file)
		r.baseline[file] = content
		state = state.WithDraft(file, content)
	}
	return state, nil
}

// retrieveContext 在当前项目内检索相似代码作为编辑参考
func (e *Engine) retrieveContext(ctx context.Context, _ *run, state domain.State) (domain.State, error) {
	e.mu.RLock()
	retriever := e.retriever
	e.mu.RUnlock()

	if retriever == nil || state.ActiveProjectPath == "" {
		state.RetrievedContext = ""
		return state, nil
	}
	project := filepath.Base(filepath.Clean(state.ActiveProjectPath))
	docs := retriever.RetrieveSimilar(ctx, project, state.LatestUserMessage(), retrieveLimit)
	state.RetrievedContext = strings.Join(docs, "\n")
	return state, nil
}

// generateStage 生成或重写一个完整文件
func (e *Engine) generateStage(stage domain.Stage) stageFunc {
	file := stage.Artifact()
	return func(ctx context.Context, _ *run, state domain.State) (domain.State, error) {
		text, err := e.generate(ctx, buildPrompt(stage, state))
		if err != nil {
			return state, err
		}
		return state.WithDraft(file, stripCodeFences(text)), nil
	}
}

// generate 单次生成调用，超时单独分类
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.generator == nil || !e.generator.Ready() {
		return "", domain.ErrModelNotReady
	}

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, prompt, e.maxOutputTokens)
	if err == nil {
		return text, nil
	}
	switch {
	case errors.Is(err, domain.ErrModelNotReady), errors.Is(err, domain.ErrGenerationTimeout):
		return "", err
	case errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return "", fmt.Errorf("%w after %s: %w", domain.ErrGenerationTimeout, e.timeout, err)
	case errors.Is(err, domain.ErrGenerationFailed):
		return "", err
	default:
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
}

// assemble 写入三个文件并生成回复
func (e *Engine) assemble(ctx context.Context, r *run, state domain.State) (domain.State, error) {
	slug := domain.ProjectSlug(r.sessionID)
	path := e.store.ProjectPath(slug)

	r.written = make(map[string]string, len(domain.ArtifactFiles))
	for _, file := range domain.ArtifactFiles {
		content := state.Draft(file)
		if strings.TrimSpace(content) == "" {
			content = domain.Placeholder(file)
		}
		if err := e.store.Write(path, file, content); err != nil {
			return state, fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, file, err)
		}
		r.written[file] = content
	}

	state.ActiveProjectPath = path
	state.ProjectName = slug

	response := ResponseCreated
	if r.hadProject {
		response = ResponseUpdated
	}
	log.FromContext(ctx, e.logger).Debug("Project assembled", "path", path)
	return state.AppendTurns(domain.Turn{Role: domain.RoleAssistant, Content: response}), nil
}

// ClearSessionState 删除会话的持久化状态
func (e *Engine) ClearSessionState(ctx context.Context, sessionID string) error {
	return e.ClearSession(ctx, sessionID, nil)
}

// ClearSession 在会话锁内删除持久化状态，再执行 cleanup
// 同一会话的运行要等 cleanup 结束后才能开始
func (e *Engine) ClearSession(ctx context.Context, sessionID string, cleanup func() error) error {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	unlock, err := e.locks.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if e.Initialized() {
		if err := e.repo.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("%w: delete session: %w", domain.ErrPersistence, err)
		}
		e.logger.Info("Session state cleared", "session_id", sessionID)
	} else {
		e.logger.Warn("State store not initialized, cannot clear session state", "session_id", sessionID)
	}

	if cleanup != nil {
		return cleanup()
	}
	return nil
}

// LoadState 读取会话最新状态，不存在时返回 nil
func (e *Engine) LoadState(ctx context.Context, sessionID string) (*domain.State, error) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	state, err := e.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", domain.ErrPersistence, err)
	}
	return state, nil
}

// History 会话的对话记录
func (e *Engine) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	state, err := e.LoadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return []domain.Turn{}, nil
	}
	return state.Turns, nil
}
