// Package project 管理 generated_apps 下的生成项目文件
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// ErrInvalidPath 路径越出项目目录
var ErrInvalidPath = errors.New("invalid project path")

// FSStore 基于本地文件系统的项目存储
type FSStore struct {
	root   string // generated_apps 目录
	logger *slog.Logger
}

// NewFSStore 创建项目存储
func NewFSStore(root string) *FSStore {
	return &FSStore{
		root:   root,
		logger: log.NewModuleLogger("project", "store"),
	}
}

// ProvideFSStore wire 构造器
func ProvideFSStore(cfg *config.WorkspaceConfig) *FSStore {
	return NewFSStore(cfg.GeneratedAppsDir())
}

// Root generated_apps 目录
func (s *FSStore) Root() string {
	return s.root
}

// EnsureRoot 创建 generated_apps 目录
func (s *FSStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.root, err)
	}
	return nil
}

// ProjectPath 项目名对应的目录
func (s *FSStore) ProjectPath(projectName string) string {
	return filepath.Join(s.root, projectName)
}

// Exists 目录是否存在
func (s *FSStore) Exists(projectPath string) bool {
	info, err := os.Stat(projectPath)
	return err == nil && info.IsDir()
}

// Read 读取项目文件，缺失或不可读时返回缺失标记
func (s *FSStore) Read(projectPath, filename string) string {
	data, err := os.ReadFile(filepath.Join(projectPath, filename))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read project file",
				"path", projectPath,
				"file", filename,
				"error", err,
			)
		}
		return workflow.MissingFileMarker(filename)
	}
	return string(data)
}

// Write 写入项目文件，先写临时文件再原子替换
func (s *FSStore) Write(projectPath, filename, content string) error {
	if err := os.MkdirAll(projectPath, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	target := filepath.Join(projectPath, filename)
	tmp, err := os.CreateTemp(projectPath, "."+filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}

// Remove 删除项目目录，不存在时不报错
func (s *FSStore) Remove(projectName string) error {
	dir, err := s.Resolve(projectName, "")
	if err != nil {
		return err
	}
	if dir == s.root {
		return fmt.Errorf("%w: refusing to remove workspace root", ErrInvalidPath)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove project %s: %w", projectName, err)
	}
	return nil
}

// Resolve 把项目名和相对路径解析为 generated_apps 内的绝对路径
func (s *FSStore) Resolve(projectName, relPath string) (string, error) {
	if projectName == "" || projectName == "." || projectName == ".." ||
		strings.ContainsAny(projectName, `/\`) {
		return "", fmt.Errorf("%w: project %q", ErrInvalidPath, projectName)
	}
	base := filepath.Join(s.root, projectName)
	full := filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(relPath, "/")))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return full, nil
}

// ReadArtifacts 读取项目的三个产物文件
func (s *FSStore) ReadArtifacts(projectPath string) map[string]string {
	files := make(map[string]string, len(workflow.ArtifactFiles))
	for _, name := range workflow.ArtifactFiles {
		files[name] = s.Read(projectPath, name)
	}
	return files
}

// ListProjects 列出已有项目名
func (s *FSStore) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
