package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_AppendTurnsDoesNotAlias(t *testing.T) {
	base := NewState("s1").AppendTurns(Turn{Role: RoleUser, Content: "hello"})
	next := base.AppendTurns(Turn{Role: RoleAssistant, Content: "hi"})

	assert.Len(t, base.Turns, 1)
	assert.Len(t, next.Turns, 2)

	next.Turns[0].Content = "changed"
	assert.Equal(t, "hello", base.Turns[0].Content)
}

func TestState_LatestUserMessage(t *testing.T) {
	s := NewState("s1")
	assert.Equal(t, "", s.LatestUserMessage())

	s = s.AppendTurns(
		Turn{Role: RoleUser, Content: "first"},
		Turn{Role: RoleAssistant, Content: "done"},
		Turn{Role: RoleUser, Content: "second"},
	)
	assert.Equal(t, "second", s.LatestUserMessage())

	last, ok := s.LastTurn()
	assert.True(t, ok)
	assert.Equal(t, RoleUser, last.Role)
}

func TestState_WithDraftReplacesWholeDocument(t *testing.T) {
	s := NewState("s1").WithDraft(FileCSS, "body { color: red; }")
	s = s.WithDraft(FileCSS, "h1 { margin: 0; }")

	assert.Equal(t, "h1 { margin: 0; }", s.Draft(FileCSS))
	assert.Empty(t, s.Draft(FileHTML))

	cleared := s.ClearDrafts()
	assert.Empty(t, cleared.DraftCSS)
	assert.NotEmpty(t, s.DraftCSS)
}

func TestProjectSlug(t *testing.T) {
	assert.Equal(t, "current_project", ProjectSlug(""))
	assert.Equal(t, "current_project", ProjectSlug(DefaultSessionID))
	assert.Equal(t, "session-abc_123", ProjectSlug("abc_123"))

	// 清洗后相同的 ID 不应映射到同一目录
	a := ProjectSlug("a/b")
	b := ProjectSlug("a b")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "session-a-b-"))

	assert.NotContains(t, ProjectSlug("../../etc"), "..")
	assert.NotContains(t, ProjectSlug("../../etc"), "/")
	assert.Equal(t, "session-", ProjectSlug("///")[:8])
}

func TestPlaceholders(t *testing.T) {
	for _, f := range ArtifactFiles {
		assert.NotEmpty(t, Placeholder(f))
	}
	assert.Equal(t, "// styles.css not found", MissingFileMarker(FileCSS))
}
