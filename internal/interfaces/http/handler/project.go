package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/interfaces/http/response"
)

// ProjectFiles 生成项目的文件访问
type ProjectFiles interface {
	Resolve(projectName, relPath string) (string, error)
	Exists(projectPath string) bool
	WriteZip(w io.Writer, projectName string) error
}

// ProjectHandler 生成项目处理器
type ProjectHandler struct {
	projects ProjectFiles
	logger   *slog.Logger
}

// NewProjectHandler 创建生成项目处理器
func NewProjectHandler(projects ProjectFiles) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   log.NewModuleLogger("http", "project"),
	}
}

// Download 打包下载项目
// @Summary 下载项目
// @Tags 项目
// @Produce application/zip
// @Param project_name path string true "项目名"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorResponse
// @Router /download/{project_name} [get]
func (h *ProjectHandler) Download(c *gin.Context) {
	name := c.Param("project_name")
	dir, err := h.projects.Resolve(name, "")
	if err != nil || !h.projects.Exists(dir) {
		response.Error(c, http.StatusNotFound, codeProjectNotFound, "项目不存在")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+name+`.zip"`)
	c.Status(http.StatusOK)
	if err := h.projects.WriteZip(c.Writer, name); err != nil {
		// 响应头已发出，只能记录
		log.FromContext(c.Request.Context(), h.logger).Error("Failed to stream project archive",
			"project", name,
			"error", err,
		)
	}
}

// ServeGenerated 预览生成的文件，不缓存
// @Summary 预览生成文件
// @Tags 项目
// @Param project_name path string true "项目名"
// @Param file_path path string true "文件路径"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorResponse
// @Router /generated/{project_name}/{file_path} [get]
func (h *ProjectHandler) ServeGenerated(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("file_path"), "/")
	if rel == "" {
		rel = "index.html"
	}
	path, err := h.projects.Resolve(c.Param("project_name"), rel)
	if err != nil {
		response.Error(c, http.StatusNotFound, codeInvalidPath, "文件不存在")
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.FromContext(c.Request.Context(), h.logger).Warn("Failed to stat generated file",
				"path", path,
				"error", err,
			)
		}
		response.Error(c, http.StatusNotFound, codeFileNotFound, "文件不存在")
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	f, err := os.Open(path)
	if err != nil {
		response.Error(c, http.StatusNotFound, codeFileNotFound, "文件不存在")
		return
	}
	defer f.Close()
	// 零值修改时间，不发 Last-Modified
	http.ServeContent(c.Writer, c.Request, info.Name(), time.Time{}, f)
}
