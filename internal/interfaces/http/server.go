package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/interfaces/http/handler"
	"github.com/webforge/backend/internal/interfaces/http/middleware"
	"github.com/webforge/backend/internal/interfaces/mcp"

	_ "github.com/webforge/backend/docs" // Swagger docs
)

// ServiceName /health 返回的服务名，单实例检测据此识别
const ServiceName = "webforge"

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.ServerConfig,
	workspace *config.WorkspaceConfig,
	chatHandler *handler.ChatHandler,
	projectHandler *handler.ProjectHandler,
	streamHandler *handler.StreamHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.RequestID())

	logger := log.NewModuleLogger("http", "server")

	api := router.Group("/api")
	api.Use(middleware.EnsureUTF8Body())
	{
		api.POST("/chat", chatHandler.Chat)
		api.POST("/clear", chatHandler.Clear)
		api.GET("/download/:project_name", projectHandler.Download)
		api.GET("/ws", streamHandler.Connect)

		sessions := api.Group("/sessions/:session_id")
		{
			sessions.GET("/history", chatHandler.History)
			sessions.GET("/project", chatHandler.Project)
		}
	}

	// 生成项目预览
	router.GET("/generated/:project_name/*file_path", projectHandler.ServeGenerated)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if cfg.MCPEnabled && mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	if workspace.FrontendDir != "" {
		router.NoRoute(spaFallback(workspace.FrontendDir))
	}

	return &HTTPServer{
		router: router,
		addr:   cfg.Addr(),
		logger: logger,
	}
}

// spaFallback 未匹配的 GET 请求返回前端静态文件，找不到时回退到 index.html
func spaFallback(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "not found"})
			return
		}
		if rel := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/"); rel != "" {
			file := filepath.Join(dir, filepath.FromSlash(rel))
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
				c.File(file)
				return
			}
		}
		if _, err := os.Stat(index); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(index)
	}
}

// Handler 路由处理器
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Start 启动服务器，阻塞直到关闭
// listener 非空时复用单实例检测时占用的端口
func (s *HTTPServer) Start(listener net.Listener) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting",
		"addr", s.addr,
	)

	var err error
	if listener != nil {
		err = s.server.Serve(listener)
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
