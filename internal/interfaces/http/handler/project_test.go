package handler

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webforge/backend/internal/infrastructure/project"
)

// setupProjectRouter 创建测试路由，generated_apps 下预置一个项目
func setupProjectRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "current_project")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Hi</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("h1{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.svg"), []byte("<svg/>"), 0o644))

	h := NewProjectHandler(project.NewFSStore(root))
	router := gin.New()
	router.GET("/api/download/:project_name", h.Download)
	router.GET("/generated/:project_name/*file_path", h.ServeGenerated)
	return router, root
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProjectHandler_ServeGenerated(t *testing.T) {
	router, _ := setupProjectRouter(t)

	w := get(router, "/generated/current_project/index.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>Hi</h1>", w.Body.String())
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	assert.Empty(t, w.Header().Get("Last-Modified"))

	w = get(router, "/generated/current_project/assets/logo.svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<svg/>", w.Body.String())

	w = get(router, "/generated/current_project/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>Hi</h1>", w.Body.String())
}

func TestProjectHandler_ServeGeneratedNotFound(t *testing.T) {
	router, _ := setupProjectRouter(t)

	for _, path := range []string{
		"/generated/current_project/app.js",
		"/generated/missing/index.html",
		"/generated/current_project/assets",
		"/generated/current_project/../../etc/passwd",
	} {
		w := get(router, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestProjectHandler_Download(t *testing.T) {
	router, _ := setupProjectRouter(t)

	w := get(router, "/api/download/current_project")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "current_project.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	assert.Equal(t, "<h1>Hi</h1>", files["index.html"])
	assert.Equal(t, "<svg/>", files["assets/logo.svg"])
}

func TestProjectHandler_DownloadMissing(t *testing.T) {
	router, _ := setupProjectRouter(t)

	w := get(router, "/api/download/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/download/..")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
