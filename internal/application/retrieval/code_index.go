// Package retrieval 维护生成代码的向量索引，为编辑阶段提供相似上下文
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/embedding"
	"github.com/webforge/backend/internal/infrastructure/llm"
	"github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/infrastructure/project"
	"github.com/webforge/backend/internal/infrastructure/vector"
)

// maxDocumentTokens 单个文件参与向量化的最大 token 数
const maxDocumentTokens = 2048

// pointNamespace 文件路径到点 ID 的命名空间
var pointNamespace = uuid.MustParse("6f1c2a52-5d0e-4b8e-9a57-3f0f4d1f2c9b")

// VectorCollection 向量集合
type VectorCollection interface {
	Connected() bool
	Ensure(ctx context.Context, dimension uint64) error
	Reset(ctx context.Context, dimension uint64) error
	Upsert(ctx context.Context, id string, vector []float32, doc vector.Document) error
	Search(ctx context.Context, vector []float32, project string, limit int) ([]vector.Hit, error)
	DeleteBySource(ctx context.Context, source string) error
}

// CodeIndex 代码向量索引
type CodeIndex struct {
	embedder   embedding.Embedder
	collection VectorCollection
	logger     *slog.Logger

	mu        sync.RWMutex
	dimension uint64
	ready     bool
}

// NewCodeIndex 创建代码索引
func NewCodeIndex(embedder embedding.Embedder, collection VectorCollection) *CodeIndex {
	return &CodeIndex{
		embedder:   embedder,
		collection: collection,
		logger:     log.NewModuleLogger("retrieval", "code_index"),
	}
}

// PointID 文件路径对应的稳定点 ID
func PointID(path string) string {
	return uuid.NewSHA1(pointNamespace, []byte(filepath.Clean(path))).String()
}

// Initialize 探测向量维度并确保集合存在
func (i *CodeIndex) Initialize(ctx context.Context) error {
	if !i.collection.Connected() {
		return fmt.Errorf("%w: %w", workflow.ErrRetrieverUnavailable, vector.ErrNotConnected)
	}
	dim, err := i.probeDimension(ctx)
	if err != nil {
		return err
	}
	if err := i.collection.Ensure(ctx, dim); err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrRetrieverUnavailable, err)
	}

	i.mu.Lock()
	i.dimension = dim
	i.ready = true
	i.mu.Unlock()

	i.logger.Info("Code index initialized", "dimension", dim)
	return nil
}

func (i *CodeIndex) probeDimension(ctx context.Context) (uint64, error) {
	vectors, err := i.embedder.EmbedTexts(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", workflow.ErrRetrieverUnavailable, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("%w: empty embedding", workflow.ErrRetrieverUnavailable)
	}
	return uint64(len(vectors[0])), nil
}

// Available 索引是否可用
func (i *CodeIndex) Available() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready && i.collection.Connected()
}

// Reset 清空索引
func (i *CodeIndex) Reset(ctx context.Context) error {
	i.mu.RLock()
	dim, ready := i.dimension, i.ready
	i.mu.RUnlock()
	if !ready {
		return workflow.ErrRetrieverUnavailable
	}
	if err := i.collection.Reset(ctx, dim); err != nil {
		return fmt.Errorf("failed to reset code index: %w", err)
	}
	i.logger.Info("Code index reset")
	return nil
}

// IndexFile 向量化 projectName 下的单个文件并写入索引，空文件跳过
func (i *CodeIndex) IndexFile(ctx context.Context, projectName, path string) error {
	if !i.Available() {
		return workflow.ErrRetrieverUnavailable
	}
	if projectName == "" {
		return fmt.Errorf("no project for %s", path)
	}
	_, err := i.indexFile(ctx, projectName, path)
	return err
}

func (i *CodeIndex) indexFile(ctx context.Context, projectName, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return false, nil
	}

	vectors, err := i.embedder.EmbedTexts(ctx, []string{llm.TruncateTokens(content, maxDocumentTokens)})
	if err != nil {
		return false, fmt.Errorf("failed to embed %s: %w", path, err)
	}
	if len(vectors) == 0 {
		return false, fmt.Errorf("failed to embed %s: empty result", path)
	}
	doc := vector.Document{Content: content, Source: path, Project: projectName}
	if err := i.collection.Upsert(ctx, PointID(path), vectors[0], doc); err != nil {
		return false, err
	}
	i.logger.Debug("File indexed", "project", projectName, "path", path)
	return true, nil
}

// IndexDirectory 索引项目根目录下的全部代码文件，返回成功数量
// 文件归属于根目录下的第一级子目录，根目录下的散落文件跳过；单个文件失败只记录日志
func (i *CodeIndex) IndexDirectory(ctx context.Context, dir string) (int, error) {
	if !i.Available() {
		return 0, workflow.ErrRetrieverUnavailable
	}
	rules := project.LoadIgnoreRules(dir)

	indexed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if d.IsDir() {
			if rel != "." && rules.Ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !project.IsCodeFile(path) || rules.Ignored(rel) {
			return nil
		}
		owner := projectOf(rel)
		if owner == "" {
			return nil
		}
		stored, err := i.indexFile(ctx, owner, path)
		if err != nil {
			i.logger.Warn("Failed to index file", "path", path, "error", err)
			return nil
		}
		if stored {
			indexed++
		}
		return nil
	})
	if err != nil {
		return indexed, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	i.logger.Info("Directory indexed", "dir", dir, "files", indexed)
	return indexed, nil
}

// projectOf 相对路径的第一级目录名
func projectOf(rel string) string {
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// RemoveFile 删除文件对应的点
func (i *CodeIndex) RemoveFile(ctx context.Context, path string) error {
	if !i.Available() {
		return workflow.ErrRetrieverUnavailable
	}
	return i.collection.DeleteBySource(ctx, path)
}

// RetrieveSimilar 实现 workflow.ContextRetriever，只返回 projectName 内的文件
// 任何错误都只记录日志并返回空结果
func (i *CodeIndex) RetrieveSimilar(ctx context.Context, projectName, query string, n int) []string {
	if n <= 0 || projectName == "" || !i.Available() {
		return []string{}
	}

	vectors, err := i.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		i.logger.Warn("Failed to embed query", "error", err)
		return []string{}
	}

	hits, err := i.collection.Search(ctx, vectors[0], projectName, n)
	if err != nil {
		i.logger.Warn("Similarity search failed", "error", err)
		return []string{}
	}

	docs := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Content != "" {
			docs = append(docs, h.Content)
		}
	}
	i.logger.Debug("Retrieved context", "project", projectName, "query_len", len(query), "results", len(docs))
	return docs
}
