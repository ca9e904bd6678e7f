// @title WebForge API
// @version 0.1.0
// @description 对话式本地网站生成服务
// @host localhost:8000
// @BasePath /api
// @schemes http
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/webforge/backend/internal/infrastructure/config"
	applog "github.com/webforge/backend/internal/infrastructure/log"
	"github.com/webforge/backend/internal/infrastructure/singleton"
	"github.com/webforge/backend/internal/wire"
)

var (
	cfgFile string
	host    string
	port    int
)

var rootCmd = &cobra.Command{
	Use:   "webforge",
	Short: "Local conversational website generator",
	Long: `webforge turns chat messages into a small static website (index.html, styles.css, app.js).
The first message of a session creates a project; later messages edit it.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is <data dir>/config.yaml)")
	rootCmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// 初始化日志系统
	applog.Init(nil)
	defer applog.Close()
	logger := applog.GetLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 单例锁检查：尝试获取端口锁
	listener, err := singleton.CheckAndLock(cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("单例锁检查失败: %w", err)
	}
	if listener == nil {
		logger.Info("Another webforge instance is already running, exiting",
			"addr", cfg.Server.Addr(),
		)
		return nil
	}

	app, err := wire.InitializeAll(cfg)
	if err != nil {
		_ = listener.Close()
		logger.Error("Failed to initialize application",
			"error", err,
		)
		return err
	}
	app.UseListener(listener)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("Failed to start application",
			"error", err,
		)
		_ = app.Stop()
		return err
	}

	// 优雅关闭
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down application...")
	case runErr = <-app.Errors():
	}

	if err := app.Stop(); err != nil {
		logger.Error("Error during application shutdown",
			"error", err,
		)
	}
	logger.Info("Application stopped")
	return runErr
}
