package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/domain/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockConversation struct {
	mock.Mock
}

func (m *mockConversation) ProcessMessage(ctx context.Context, message, sessionID string) (*workflow.Result, error) {
	args := m.Called(ctx, message, sessionID)
	result, _ := args.Get(0).(*workflow.Result)
	return result, args.Error(1)
}

func (m *mockConversation) History(ctx context.Context, sessionID string) ([]workflow.Turn, error) {
	args := m.Called(ctx, sessionID)
	turns, _ := args.Get(0).([]workflow.Turn)
	return turns, args.Error(1)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Clear(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockSessions) ProjectFiles(ctx context.Context, sessionID string) (*appworkflow.ProjectSnapshot, error) {
	args := m.Called(ctx, sessionID)
	snapshot, _ := args.Get(0).(*appworkflow.ProjectSnapshot)
	return snapshot, args.Error(1)
}

// setupChatRouter 创建测试路由
func setupChatRouter(conv *mockConversation, sessions *mockSessions) *gin.Engine {
	router := gin.New()
	h := NewChatHandler(conv, sessions)

	api := router.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.POST("/clear", h.Clear)
		api.GET("/sessions/:session_id/history", h.History)
		api.GET("/sessions/:session_id/project", h.Project)
	}
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatHandler_Chat(t *testing.T) {
	conv := &mockConversation{}
	conv.On("ProcessMessage", mock.Anything, "make a landing page", "default").Return(&workflow.Result{
		Response:    appworkflow.ResponseCreated,
		ProjectName: "current_project",
		ProjectPath: "/tmp/generated_apps/current_project",
		RunID:       "run-1",
		Mode:        workflow.ModeCreate,
	}, nil)
	router := setupChatRouter(conv, &mockSessions{})

	w := postJSON(router, "/api/chat", map[string]string{"message": "make a landing page"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appworkflow.ResponseCreated, body["response"])
	assert.Equal(t, "current_project", body["project_name"])
	assert.Equal(t, "/tmp/generated_apps/current_project", body["project_path"])
	assert.Equal(t, "create", body["mode"])
	conv.AssertExpectations(t)
}

func TestChatHandler_ChatExplicitSession(t *testing.T) {
	conv := &mockConversation{}
	conv.On("ProcessMessage", mock.Anything, "hi", "s1").Return(&workflow.Result{Response: "ok"}, nil)
	router := setupChatRouter(conv, &mockSessions{})

	w := postJSON(router, "/api/chat", ChatRequest{Message: "hi", SessionID: "s1"})
	assert.Equal(t, http.StatusOK, w.Code)
	conv.AssertExpectations(t)
}

func TestChatHandler_ChatMissingMessage(t *testing.T) {
	conv := &mockConversation{}
	router := setupChatRouter(conv, &mockSessions{})

	w := postJSON(router, "/api/chat", map[string]string{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	conv.AssertNotCalled(t, "ProcessMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatHandler_ChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"model not ready", workflow.ErrModelNotReady, http.StatusServiceUnavailable, "model_not_ready"},
		{"timeout", fmt.Errorf("%w after 2m0s", workflow.ErrGenerationTimeout), http.StatusGatewayTimeout, "generation_timeout"},
		{"generation", &workflow.StageError{Stage: workflow.StageCreateHTML, Err: fmt.Errorf("%w: boom", workflow.ErrGenerationFailed)}, http.StatusBadGateway, "generation_failed"},
		{"persistence", fmt.Errorf("%w: disk full", workflow.ErrPersistence), http.StatusInternalServerError, "persistence_failed"},
		{"internal", errors.New("unexpected"), http.StatusInternalServerError, "internal_error"},
		{"not initialized", workflow.ErrEngineNotInitialized, http.StatusServiceUnavailable, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &mockConversation{}
			conv.On("ProcessMessage", mock.Anything, "x", "default").Return(nil, tt.err)
			router := setupChatRouter(conv, &mockSessions{})

			w := postJSON(router, "/api/chat", ChatRequest{Message: "x"})
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDetail, body["detail"])
			assert.NotContains(t, w.Body.String(), "disk full")
		})
	}
}

func TestChatHandler_Clear(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Clear", mock.Anything, "default").Return(nil)
	sessions.On("Clear", mock.Anything, "s2").Return(nil)
	router := setupChatRouter(&mockConversation{}, sessions)

	w := postJSON(router, "/api/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body ClearResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Session 'default' cleared and reset.", body.Message)

	w = postJSON(router, "/api/clear?session_id=s2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Session 's2' cleared and reset.")
	sessions.AssertExpectations(t)
}

func TestChatHandler_ClearFailure(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Clear", mock.Anything, "default").Return(fmt.Errorf("%w: locked", workflow.ErrPersistence))
	router := setupChatRouter(&mockConversation{}, sessions)

	w := postJSON(router, "/api/clear", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "persistence_failed")
}

func TestChatHandler_History(t *testing.T) {
	conv := &mockConversation{}
	conv.On("History", mock.Anything, "s1").Return([]workflow.Turn{
		{Role: workflow.RoleUser, Content: "hi"},
		{Role: workflow.RoleAssistant, Content: appworkflow.ResponseCreated},
	}, nil)
	router := setupChatRouter(conv, &mockSessions{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Code int        `json:"code"`
		Data HistoryDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "s1", body.Data.SessionID)
	require.Len(t, body.Data.Turns, 2)
	assert.Equal(t, workflow.RoleUser, body.Data.Turns[0].Role)
}

func TestChatHandler_Project(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("ProjectFiles", mock.Anything, "s1").Return(&appworkflow.ProjectSnapshot{
		SessionID:   "s1",
		ProjectName: "session-s1",
		Files:       map[string]string{workflow.FileHTML: "<html></html>"},
	}, nil)
	sessions.On("ProjectFiles", mock.Anything, "empty").Return(nil, nil)
	router := setupChatRouter(&mockConversation{}, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/project", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session-s1")

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/empty/project", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
