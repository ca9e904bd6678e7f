package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Payload 字段名
const (
	PayloadContent = "content"
	PayloadSource  = "source"
	PayloadProject = "project"
)

// ErrNotConnected Qdrant 未连接
var ErrNotConnected = errors.New("qdrant client not initialized")

// Hit 检索命中
type Hit struct {
	ID      string
	Score   float32
	Content string
	Source  string
	Project string
}

// Document 写入集合的文件内容
type Document struct {
	Content string
	Source  string
	// Project 所属项目名，检索时按它过滤
	Project string
}

// CodeCollection 代码片段集合
// 每个点对应一个文件，payload 保存文件内容、路径和所属项目
type CodeCollection struct {
	manager *QdrantManager
	name    string
}

// NewCodeCollection 创建集合访问器
func NewCodeCollection(manager *QdrantManager, name string) *CodeCollection {
	return &CodeCollection{manager: manager, name: name}
}

// Name 集合名
func (c *CodeCollection) Name() string {
	return c.name
}

// Connected 是否已连接
func (c *CodeCollection) Connected() bool {
	return c.manager.Client() != nil
}

func (c *CodeCollection) client() (*qdrant.Client, error) {
	client := c.manager.Client()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client, nil
}

// Ensure 集合不存在时创建
func (c *CodeCollection) Ensure(ctx context.Context, dimension uint64) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	exists, err := client.CollectionExists(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", c.name, err)
	}
	if exists {
		return nil
	}
	return c.create(ctx, client, dimension)
}

// Reset 删除并重建集合
func (c *CodeCollection) Reset(ctx context.Context, dimension uint64) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	exists, err := client.CollectionExists(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", c.name, err)
	}
	if exists {
		if err := client.DeleteCollection(ctx, c.name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", c.name, err)
		}
	}
	return c.create(ctx, client, dimension)
}

func (c *CodeCollection) create(ctx context.Context, client *qdrant.Client, dimension uint64) error {
	err := client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.name, err)
	}
	return nil
}

// Upsert 写入或覆盖一个点
func (c *CodeCollection) Upsert(ctx context.Context, id string, vector []float32, doc Document) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	wait := true
	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					PayloadContent: doc.Content,
					PayloadSource:  doc.Source,
					PayloadProject: doc.Project,
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Search 在 project 内按相似度返回最多 limit 个命中，按分数降序
func (c *CodeCollection) Search(ctx context.Context, vector []float32, project string, limit int) ([]Hit, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	n := uint64(limit)
	points, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(PayloadProject, project),
			},
		},
		Limit:       &n,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      p.GetId().GetUuid(),
			Score:   p.GetScore(),
			Content: p.GetPayload()[PayloadContent].GetStringValue(),
			Source:  p.GetPayload()[PayloadSource].GetStringValue(),
			Project: p.GetPayload()[PayloadProject].GetStringValue(),
		})
	}
	return hits, nil
}

// DeleteBySource 删除某个文件对应的点
func (c *CodeCollection) DeleteBySource(ctx context.Context, source string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	wait := true
	_, err = client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(PayloadSource, source),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for %s: %w", source, err)
	}
	return nil
}
