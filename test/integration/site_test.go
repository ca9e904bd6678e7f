//go:build integration
// +build integration

package integration

import (
	"archive/zip"
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/test/integration/framework"
)

func startDaemon(t *testing.T, model *framework.FakeModel, opts ...framework.DaemonOption) *framework.TestDaemon {
	t.Helper()
	framework.RequireDaemonBinary(t)
	d, err := framework.NewTestDaemon(framework.BinaryPath, t.Name(), model.URL(), opts...)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	return d
}

func TestSite_CreateEditDownloadClear(t *testing.T) {
	model := framework.NewFakeModel()
	defer model.Close()
	d := startDaemon(t, model)
	defer d.Stop()
	client := framework.NewAPIClient(d.BaseURL())

	// 创建
	created, err := client.Chat("", "a landing page for a bakery")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, created.Status)
	assert.Equal(t, appworkflow.ResponseCreated, created.Result.Response)
	assert.Equal(t, "current_project", created.Result.ProjectName)
	assert.Equal(t, workflow.ModeCreate, created.Result.Mode)

	status, body, err := client.Generated("current_project", "index.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>v1</h1>")

	status, body, err = client.Generated("current_project", "app.js")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "console.log('v3');", body)

	// 编辑
	edited, err := client.Chat("default", "make the heading bigger")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, edited.Status)
	assert.Equal(t, appworkflow.ResponseUpdated, edited.Result.Response)
	assert.Equal(t, workflow.ModeEdit, edited.Result.Mode)
	assert.NotEmpty(t, edited.Result.Changes)

	_, body, err = client.Generated("current_project", "index.html")
	require.NoError(t, err)
	assert.Contains(t, body, "<h1>v4</h1>")

	history, err := client.History("default")
	require.NoError(t, err)
	assert.Len(t, history.Data.Turns, 4)

	// 下载
	status, data, err := client.Download("current_project")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, workflow.ArtifactFiles, names)

	// 清空
	cleared, err := client.Clear("default")
	require.NoError(t, err)
	assert.Equal(t, "Session 'default' cleared and reset.", cleared.Message)

	status, _, err = client.Generated("current_project", "index.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	history, err = client.History("default")
	require.NoError(t, err)
	assert.Empty(t, history.Data.Turns)

	// 清空后重新走创建路径
	again, err := client.Chat("default", "a portfolio")
	require.NoError(t, err)
	assert.Equal(t, workflow.ModeCreate, again.Result.Mode)
}

func TestSite_SessionsAreIsolated(t *testing.T) {
	model := framework.NewFakeModel()
	defer model.Close()
	d := startDaemon(t, model)
	defer d.Stop()
	client := framework.NewAPIClient(d.BaseURL())

	a, err := client.Chat("alice", "a todo app")
	require.NoError(t, err)
	b, err := client.Chat("bob", "a weather widget")
	require.NoError(t, err)

	assert.Equal(t, workflow.ModeCreate, a.Result.Mode)
	assert.Equal(t, workflow.ModeCreate, b.Result.Mode)
	assert.NotEqual(t, a.Result.ProjectPath, b.Result.ProjectPath)

	_, err = client.Clear("alice")
	require.NoError(t, err)

	status, _, err := client.Generated(b.Result.ProjectName, "index.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestSite_StateSurvivesRestart(t *testing.T) {
	model := framework.NewFakeModel()
	defer model.Close()
	d := startDaemon(t, model)
	client := framework.NewAPIClient(d.BaseURL())

	_, err := client.Chat("default", "a blog")
	require.NoError(t, err)
	require.NoError(t, d.StopWithCleanup(false))

	restarted := startDaemon(t, model, framework.WithDirs(d.DataDir, d.Workspace))
	defer restarted.Stop()
	client = framework.NewAPIClient(restarted.BaseURL())

	res, err := client.Chat("default", "add a footer")
	require.NoError(t, err)
	assert.Equal(t, workflow.ModeEdit, res.Result.Mode)
	assert.Equal(t, appworkflow.ResponseUpdated, res.Result.Response)
}

func TestSite_GenerationFailureIsClassified(t *testing.T) {
	model := framework.NewFakeModel()
	defer model.Close()
	d := startDaemon(t, model)
	defer d.Stop()
	client := framework.NewAPIClient(d.BaseURL())

	model.SetFailing(true)
	res, err := client.Chat("default", "anything")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, "generation_failed", res.Error.Detail)
	assert.NotContains(t, res.Error.Message, "upstream unavailable")

	// 失败的运行不提交快照
	history, err := client.History("default")
	require.NoError(t, err)
	assert.Empty(t, history.Data.Turns)
}
