// Package vector 管理 Qdrant 连接和代码片段集合
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// QdrantManager Qdrant 连接管理
// 配置了 BinaryPath 时由本进程启动 Qdrant，否则连接已有服务
type QdrantManager struct {
	cfg    config.VectorConfig
	mu     sync.Mutex
	cmd    *exec.Cmd
	client *qdrant.Client
	logger *slog.Logger
}

// NewQdrantManager 创建 Qdrant 管理器
func NewQdrantManager(cfg *config.VectorConfig) *QdrantManager {
	return &QdrantManager{
		cfg:    *cfg,
		logger: log.NewModuleLogger("vector", "qdrant"),
	}
}

// Start 启动（可选）并连接 Qdrant，重复调用无副作用
func (q *QdrantManager) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		return nil
	}

	if q.cfg.BinaryPath != "" {
		if err := q.spawn(); err != nil {
			return err
		}
	}

	client, err := q.waitForReady(ctx, 10*time.Second)
	if err != nil {
		q.kill()
		return fmt.Errorf("qdrant failed to become ready: %w", err)
	}
	q.client = client
	q.logger.Info("Connected to qdrant",
		"host", q.cfg.Host,
		"grpc_port", q.cfg.GRPCPort,
		"managed", q.cmd != nil,
	)
	return nil
}

func (q *QdrantManager) spawn() error {
	if _, err := os.Stat(q.cfg.BinaryPath); err != nil {
		return fmt.Errorf("qdrant binary not found at %s: %w", q.cfg.BinaryPath, err)
	}
	if q.cfg.DataPath != "" {
		if err := os.MkdirAll(q.cfg.DataPath, 0o755); err != nil {
			return fmt.Errorf("failed to create qdrant data directory: %w", err)
		}
	}

	cmd := exec.Command(q.cfg.BinaryPath)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("QDRANT__SERVICE__GRPC_PORT=%d", q.cfg.GRPCPort),
		fmt.Sprintf("QDRANT__SERVICE__HTTP_PORT=%d", q.cfg.GRPCPort-1),
	)
	if q.cfg.DataPath != "" {
		cmd.Env = append(cmd.Env, "QDRANT__STORAGE__STORAGE_PATH="+q.cfg.DataPath)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start qdrant: %w", err)
	}
	q.cmd = cmd
	q.logger.Info("Spawned qdrant process", "pid", cmd.Process.Pid, "binary", q.cfg.BinaryPath)
	return nil
}

// waitForReady 轮询直到 ListCollections 成功
func (q *QdrantManager) waitForReady(ctx context.Context, timeout time.Duration) (*qdrant.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: q.cfg.Host,
			Port: q.cfg.GRPCPort,
		})
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			_, err = client.ListCollections(pingCtx)
			cancel()
			if err == nil {
				return client, nil
			}
			client.Close()
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("timeout waiting for qdrant: %w", lastErr)
}

// Client 返回客户端，未连接时为 nil
func (q *QdrantManager) Client() *qdrant.Client {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client
}

// Stop 关闭连接并停止托管进程
func (q *QdrantManager) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client != nil {
		q.client.Close()
		q.client = nil
	}
	return q.kill()
}

func (q *QdrantManager) kill() error {
	if q.cmd == nil || q.cmd.Process == nil {
		return nil
	}
	defer func() { q.cmd = nil }()
	if err := q.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill qdrant process: %w", err)
	}
	_ = q.cmd.Wait()
	return nil
}
