package wire

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/webforge/backend/internal/application/retrieval"
	appworkflow "github.com/webforge/backend/internal/application/workflow"
	"github.com/webforge/backend/internal/domain/events"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/discovery"
	applog "github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/infrastructure/project"
	"github.com/webforge/backend/internal/infrastructure/vector"
	"github.com/webforge/backend/internal/infrastructure/watcher"
	"github.com/webforge/backend/internal/infrastructure/websocket"
	"github.com/webforge/backend/internal/interfaces"
	"github.com/webforge/backend/internal/interfaces/mcp"
)

// 启动阶段外部依赖的等待时间
const (
	vectorStartTimeout = 15 * time.Second
	indexTimeout       = 2 * time.Minute
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer

	serverCfg  *config.ServerConfig
	wsHub      *websocket.Hub
	engine     *appworkflow.Engine
	codeIndex  *retrieval.CodeIndex
	qdrant     *vector.QdrantManager
	store      *project.FSStore
	advertiser *discovery.MDNSAdvertiser
	logger     *slog.Logger

	// 文件监听相关
	eventBus    events.EventBus
	fileWatcher *watcher.FileWatcher
	unsubscribe func()

	listener net.Listener
	errCh    chan error
}

// NewApp 创建应用实例
func NewApp(
	serverCfg *config.ServerConfig,
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	engine *appworkflow.Engine,
	codeIndex *retrieval.CodeIndex,
	qdrant *vector.QdrantManager,
	store *project.FSStore,
	eventBus events.EventBus,
	fileWatcher *watcher.FileWatcher,
	advertiser *discovery.MDNSAdvertiser,
) *App {
	return &App{
		HTTPServer:  httpServer,
		MCPServer:   mcpServer,
		serverCfg:   serverCfg,
		wsHub:       wsHub,
		engine:      engine,
		codeIndex:   codeIndex,
		qdrant:      qdrant,
		store:       store,
		advertiser:  advertiser,
		logger:      applog.NewModuleLogger("app", "main"),
		eventBus:    eventBus,
		fileWatcher: fileWatcher,
		errCh:       make(chan error, 1),
	}
}

// UseListener 使用单实例检测时已占用的 listener
func (a *App) UseListener(l net.Listener) {
	a.listener = l
}

// Errors HTTP 服务器异常退出时返回错误
func (a *App) Errors() <-chan error {
	return a.errCh
}

// Start 启动所有服务
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("Starting webforge backend application")

	if err := a.store.EnsureRoot(); err != nil {
		return err
	}

	// 向量库不可用时降级为无检索上下文
	var retriever *retrieval.CodeIndex
	vctx, cancel := context.WithTimeout(ctx, vectorStartTimeout)
	if err := a.qdrant.Start(vctx); err != nil {
		a.logger.Warn("Vector store unavailable, edits run without retrieved context",
			"error", err,
		)
	} else if err := a.codeIndex.Initialize(vctx); err != nil {
		a.logger.Warn("Failed to initialize code index",
			"error", err,
		)
	} else {
		retriever = a.codeIndex
	}
	cancel()

	if retriever != nil {
		if err := a.engine.Initialize(ctx, retriever); err != nil {
			return err
		}
		ictx, cancel := context.WithTimeout(ctx, indexTimeout)
		count, err := a.codeIndex.IndexDirectory(ictx, a.store.Root())
		cancel()
		if err != nil {
			a.logger.Warn("Failed to index workspace", "error", err)
		} else {
			a.logger.Info("Workspace indexed", "files", count)
		}
	} else if err := a.engine.Initialize(ctx, nil); err != nil {
		return err
	}

	// 注册事件订阅者并启动文件监听
	a.setupEventSubscribers()
	if a.fileWatcher != nil {
		if err := a.fileWatcher.Start(); err != nil {
			a.logger.Error("Failed to start file watcher",
				"error", err,
			)
		} else {
			a.logger.Info("File watcher started successfully")
		}
	}

	a.wsHub.Start()

	go func() {
		if err := a.HTTPServer.Start(a.listener); err != nil {
			a.logger.Error("HTTP server stopped unexpectedly",
				"error", err,
			)
			a.errCh <- err
		}
	}()

	if a.advertiser != nil && a.advertiser.Enabled() {
		info := discovery.BuildServiceInfo(a.serverCfg.Port, mcp.Version, a.serverCfg.MCPEnabled)
		if err := a.advertiser.Start(info); err != nil {
			a.logger.Warn("Failed to advertise service via mDNS",
				"error", err,
			)
		}
	}

	a.logger.Info("webforge backend application started successfully",
		"addr", a.HTTPServer.Addr(),
		"retrieval", retriever != nil,
	)
	return nil
}

// setupEventSubscribers 生成项目文件变化时维护代码索引
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil || a.codeIndex == nil {
		return
	}
	a.unsubscribe = a.eventBus.SubscribeMultiple(events.ProjectFileEvents, a.codeIndex)
	a.logger.Info("Code index subscribed to project file events")
}

// Stop 按启动的逆序停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping webforge backend application")

	if a.advertiser != nil {
		a.advertiser.Stop()
	}

	var firstErr error
	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		firstErr = err
	}

	a.wsHub.Stop()

	if a.fileWatcher != nil {
		a.fileWatcher.Stop()
		a.logger.Info("File watcher stopped")
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	// 引擎持有会话状态存储，关闭时一并释放数据库连接
	if err := a.engine.Shutdown(); err != nil {
		a.logger.Error("Failed to shut down workflow engine",
			"error", err,
		)
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.qdrant.Stop(); err != nil {
		a.logger.Error("Failed to stop qdrant",
			"error", err,
		)
	}

	a.logger.Info("webforge backend application stopped")
	return firstErr
}
