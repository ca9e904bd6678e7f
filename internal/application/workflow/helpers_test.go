package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domain "github.com/webforge/backend/internal/domain/workflow"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  <p>hi</p>\n", want: "<p>hi</p>"},
		{name: "html fence", in: "```html\n<p>hi</p>\n```", want: "<p>hi</p>"},
		{name: "css fence", in: "```css\nbody{}\n```\n", want: "body{}"},
		{name: "javascript fence", in: "\n```javascript\nrun();\n```", want: "run();"},
		{name: "js fence", in: "```js\nrun();\n```", want: "run();"},
		{name: "uppercase tag", in: "```HTML\n<p></p>\n```", want: "<p></p>"},
		{name: "bare fence", in: "```\nx = 1\n```", want: "x = 1"},
		{name: "inner fences kept", in: "```html\n<pre>```code```</pre>\n```", want: "<pre>```code```</pre>"},
		{name: "other tag on its own line", in: "```jsx\n<App/>\n```", want: "<App/>"},
		{name: "empty", in: "```\n```", want: ""},
		{name: "closing fence glued to code", in: "```html\n<p>x</p>```", want: "<p>x</p>"},
		{name: "code after opening tag", in: "```html <p>x</p>\n```", want: "<p>x</p>"},
		{name: "code after bare fence", in: "```const x = 1;\n```", want: "const x = 1;"},
		{name: "trailing remark dropped", in: "```css\nbody{}\n```\nHope this helps!", want: "body{}"},
		{name: "only closing fence", in: "<p>x</p>\n```", want: "<p>x</p>"},
		{name: "unfenced text kept", in: "body{}\nHope this helps!", want: "body{}\nHope this helps!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}

func TestLineChanges(t *testing.T) {
	ins, del := lineChanges("a\nb\nc\n", "a\nB\nc\nd\n")
	assert.Equal(t, 2, ins)
	assert.Equal(t, 1, del)

	ins, del = lineChanges("same", "same")
	assert.Zero(t, ins)
	assert.Zero(t, del)

	ins, del = lineChanges("", "one\ntwo")
	assert.Equal(t, 2, ins)
	assert.Zero(t, del)
}

func TestArtifactChanges(t *testing.T) {
	changes := artifactChanges(
		map[string]string{domain.FileHTML: "<p>a</p>", domain.FileCSS: "p{}"},
		map[string]string{domain.FileHTML: "<p>b</p>", domain.FileCSS: "p{}", domain.FileJS: "x()"},
	)
	require.Len(t, changes, 3)
	assert.Equal(t, domain.ArtifactChange{File: domain.FileHTML, Insertions: 1, Deletions: 1}, changes[0])
	assert.Equal(t, domain.ArtifactChange{File: domain.FileCSS}, changes[1])
	assert.Equal(t, domain.ArtifactChange{File: domain.FileJS, Insertions: 1}, changes[2])
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	state := domain.NewState("s").AppendTurns(
		domain.Turn{Role: domain.RoleUser, Content: "first"},
		domain.Turn{Role: domain.RoleAssistant, Content: "ok"},
		domain.Turn{Role: domain.RoleUser, Content: "second"},
	)
	state.DraftHTML = "<main></main>"
	state.DraftCSS = "main{}"
	state.DraftJS = "go()"
	state.RetrievedContext = "ctx-snippet"

	for _, stage := range append(domain.Path(domain.ModeCreate), domain.Path(domain.ModeEdit)...) {
		if !stage.IsGeneration() {
			continue
		}
		p := buildPrompt(stage, state)
		assert.Equal(t, p, buildPrompt(stage, state), stage)
		assert.Contains(t, p, `"second"`, stage)
		assert.NotContains(t, p, `"first"`, stage)
	}

	assert.NotContains(t, buildPrompt(domain.StageCreateHTML, state), "<main></main>")
	assert.Contains(t, buildPrompt(domain.StageCreateCSS, state), "<main></main>")
	assert.NotContains(t, buildPrompt(domain.StageCreateCSS, state), "main{}")
	assert.Contains(t, buildPrompt(domain.StageEditHTML, state), "ctx-snippet")
	assert.NotContains(t, buildPrompt(domain.StageEditHTML, state), "main{}")
	assert.Contains(t, buildPrompt(domain.StageEditJS, state), "go()")
}

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	unlockA, err := locks.acquire(ctx, "a")
	require.NoError(t, err)

	// 其他会话不受影响
	unlockB, err := locks.acquire(ctx, "b")
	require.NoError(t, err)
	unlockB()

	// 同一会话等待超时
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(waitCtx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		unlock, err := locks.acquire(ctx, "a")
		if err == nil {
			close(acquired)
			unlock()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(30 * time.Millisecond):
	}

	unlockA()
	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 10*time.Millisecond)
}
