package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domain "github.com/webforge/backend/internal/domain/workflow"
)

type fakeIndexer struct {
	available bool
	resets    int
	indexed   []string
	resetErr  error
}

func (f *fakeIndexer) Available() bool { return f.available }

func (f *fakeIndexer) Reset(context.Context) error {
	f.resets++
	return f.resetErr
}

func (f *fakeIndexer) IndexDirectory(_ context.Context, dir string) (int, error) {
	f.indexed = append(f.indexed, dir)
	return 0, nil
}

func TestSessionService_Clear(t *testing.T) {
	env := newTestEnv(t)
	index := &fakeIndexer{available: true}
	svc := NewSessionService(env.engine, env.store, env.store, index)
	ctx := context.Background()

	mine, err := env.engine.ProcessMessage(ctx, "a blog", "mine")
	require.NoError(t, err)
	other, err := env.engine.ProcessMessage(ctx, "a shop", "other")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "mine"))

	assert.NoDirExists(t, mine.ProjectPath)
	assert.DirExists(t, other.ProjectPath, "other sessions keep their project")
	_, ok := env.repo.state("mine")
	assert.False(t, ok)
	_, ok = env.repo.state("other")
	assert.True(t, ok)

	assert.Equal(t, 1, index.resets)
	assert.Equal(t, []string{env.store.Root()}, index.indexed)

	// 重复清空不报错
	require.NoError(t, svc.Clear(ctx, "mine"))
}

// gatedRemover 删除目录前等待放行
type gatedRemover struct {
	ProjectRemover
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRemover) Remove(projectName string) error {
	close(g.entered)
	<-g.release
	return g.ProjectRemover.Remove(projectName)
}

func TestSessionService_ClearHoldsSessionLock(t *testing.T) {
	env := newTestEnv(t)
	remover := &gatedRemover{
		ProjectRemover: env.store,
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	svc := NewSessionService(env.engine, env.store, remover, nil)
	ctx := context.Background()

	_, err := env.engine.ProcessMessage(ctx, "a blog", "mine")
	require.NoError(t, err)

	cleared := make(chan error, 1)
	go func() { cleared <- svc.Clear(ctx, "mine") }()
	<-remover.entered

	type outcome struct {
		result *domain.Result
		err    error
	}
	processed := make(chan outcome, 1)
	go func() {
		result, err := env.engine.ProcessMessage(ctx, "a shop", "mine")
		processed <- outcome{result, err}
	}()

	select {
	case <-processed:
		t.Fatal("run finished while the project directory was being removed")
	case <-time.After(50 * time.Millisecond):
	}

	close(remover.release)
	require.NoError(t, <-cleared)
	out := <-processed
	require.NoError(t, out.err)

	assert.Equal(t, ResponseCreated, out.result.Response)
	assert.DirExists(t, out.result.ProjectPath)
	state, ok := env.repo.state("mine")
	require.True(t, ok)
	assert.Equal(t, out.result.ProjectPath, state.ActiveProjectPath)
	assert.Len(t, state.Turns, 2)
}

func TestSessionService_ClearWithoutIndex(t *testing.T) {
	env := newTestEnv(t)
	index := &fakeIndexer{available: false}
	svc := NewSessionService(env.engine, env.store, env.store, index)

	_, err := env.engine.ProcessMessage(context.Background(), "a blog", "")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), ""))
	assert.Zero(t, index.resets)
	assert.NoDirExists(t, env.store.ProjectPath("current_project"))
}

func TestSessionService_ProjectFiles(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.engine, env.store, env.store, nil)
	ctx := context.Background()

	snap, err := svc.ProjectFiles(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, err = env.engine.ProcessMessage(ctx, "a blog", "s1")
	require.NoError(t, err)

	snap, err = svc.ProjectFiles(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "session-s1", snap.ProjectName)
	assert.Len(t, snap.Files, 3)
	assert.Equal(t, "body { background: white; }", snap.Files[domain.FileCSS])
}
