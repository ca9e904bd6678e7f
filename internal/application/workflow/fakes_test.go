package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	domain "github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/project"
)

// fakeGenerator 按提示词中出现的文件名返回固定内容
type fakeGenerator struct {
	mu      sync.Mutex
	ready   bool
	prompts []string
	reply   func(prompt string) (string, error)
	block   bool
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{ready: true}
}

func (g *fakeGenerator) Ready() bool { return g.ready }

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	reply := g.reply
	block := g.block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if reply != nil {
		return reply(prompt)
	}
	switch {
	case strings.Contains(prompt, "`index.html`"), strings.Contains(prompt, "Current HTML (to modify)"):
		return "```html\n<html><body><h1>Bakery</h1></body></html>\n```", nil
	case strings.Contains(prompt, "Write the complete `styles.css`"), strings.Contains(prompt, "Current CSS (to modify)"):
		return "```css\nbody { background: white; }\n```", nil
	default:
		return "```javascript\nconsole.log('ready');\n```", nil
	}
}

func (g *fakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// memRepository 内存状态存储
type memRepository struct {
	mu      sync.Mutex
	states  map[string]domain.State
	steps   []domain.RunStep
	saves   int
	saveErr error
}

func newMemRepository() *memRepository {
	return &memRepository{states: make(map[string]domain.State)}
}

func (r *memRepository) Load(_ context.Context, sessionID string) (*domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[sessionID]
	if !ok {
		return nil, nil
	}
	clone := s.Clone()
	return &clone, nil
}

func (r *memRepository) Save(_ context.Context, sessionID string, state domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.states[sessionID] = state.Clone()
	return nil
}

func (r *memRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
	return nil
}

func (r *memRepository) RecordStep(_ context.Context, step *domain.RunStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, *step)
	return nil
}

func (r *memRepository) state(sessionID string) (domain.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[sessionID]
	return s, ok
}

// fakeRetriever 记录查询并返回固定片段
type fakeRetriever struct {
	mu       sync.Mutex
	docs     []string
	projects []string
	queries  []string
	limits   []int
}

func (f *fakeRetriever) RetrieveSimilar(_ context.Context, project, query string, n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, project)
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, n)
	if len(f.docs) > n {
		return f.docs[:n]
	}
	return f.docs
}

// recordingNotifier 记录阶段事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.StageEvent
}

func (n *recordingNotifier) NotifyStage(e domain.StageEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) completed() []domain.Stage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var stages []domain.Stage
	for _, e := range n.events {
		if e.Status == domain.StepCompleted {
			stages = append(stages, e.Stage)
		}
	}
	return stages
}

type testEnv struct {
	engine    *Engine
	gen       *fakeGenerator
	repo      *memRepository
	store     *project.FSStore
	retriever *fakeRetriever
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		gen:       newFakeGenerator(),
		repo:      newMemRepository(),
		store:     project.NewFSStore(t.TempDir()),
		retriever: &fakeRetriever{docs: []string{"body { color: red }", "<nav></nav>", "init()", "extra"}},
		notifier:  &recordingNotifier{},
	}
	env.engine = NewEngine(env.gen, env.store, env.repo, env.notifier, &config.GenerationConfig{
		MaxOutputTokens: 8192,
		Timeout:         time.Second,
	})
	require.NoError(t, env.engine.Initialize(context.Background(), env.retriever))
	return env
}

var errBoom = errors.New("boom")
