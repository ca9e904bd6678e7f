//go:build integration
// +build integration

// TestDaemon 管理独立 webforge 进程的启动与关闭
package framework

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// TestDaemon 测试服务进程
type TestDaemon struct {
	Name      string
	HTTPPort  int
	DataDir   string // 数据目录（数据库、配置）
	Workspace string // generated_apps 的父目录

	binaryPath string
	modelURL   string
	cmd        *exec.Cmd
	baseURL    string
}

// DaemonOption 服务进程配置选项
type DaemonOption func(*TestDaemon)

// WithDirs 复用已有目录（用于重启场景）
func WithDirs(dataDir, workspace string) DaemonOption {
	return func(d *TestDaemon) {
		d.DataDir = dataDir
		d.Workspace = workspace
	}
}

// NewTestDaemon 创建测试服务进程，生成请求发往 modelURL
func NewTestDaemon(binaryPath, name, modelURL string, opts ...DaemonOption) (*TestDaemon, error) {
	httpPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate HTTP port: %w", err)
	}

	d := &TestDaemon{
		Name:       name,
		HTTPPort:   httpPort,
		binaryPath: binaryPath,
		modelURL:   modelURL,
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", httpPort),
	}
	for _, opt := range opts {
		opt(d)
	}

	// 创建隔离的目录
	if d.DataDir == "" {
		if d.DataDir, err = os.MkdirTemp("", fmt.Sprintf("webforge-test-%s-data-", name)); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	if d.Workspace == "" {
		if d.Workspace, err = os.MkdirTemp("", fmt.Sprintf("webforge-test-%s-ws-", name)); err != nil {
			return nil, fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	return d, nil
}

func (d *TestDaemon) command() (*exec.Cmd, error) {
	// Qdrant 指向无人监听的端口，检索降级为空
	vectorPort, err := getFreePort()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(d.binaryPath, "--host", "127.0.0.1", "--port", strconv.Itoa(d.HTTPPort))
	cmd.Env = append(os.Environ(),
		"WEBFORGE_DATA_DIR="+d.DataDir,
		"WEBFORGE_WORKSPACE="+d.Workspace,
		"WEBFORGE_GENERATION_PROVIDER=openai",
		"WEBFORGE_GENERATION_BASE_URL="+d.modelURL,
		"WEBFORGE_GENERATION_API_KEY=test-key",
		"WEBFORGE_QDRANT_HOST=127.0.0.1",
		"WEBFORGE_QDRANT_PORT="+strconv.Itoa(vectorPort),
		"WEBFORGE_MDNS=false",
		"GIN_MODE=test",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// Start 启动服务进程并等待就绪
func (d *TestDaemon) Start() error {
	cmd, err := d.command()
	if err != nil {
		return err
	}
	d.cmd = cmd
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon %s: %w", d.Name, err)
	}

	// 向量库连接等待会拖慢启动
	return d.waitForReady(45 * time.Second)
}

// Stop 停止服务进程并清理目录
func (d *TestDaemon) Stop() error {
	return d.StopWithCleanup(true)
}

// StopWithCleanup 停止服务进程，可选择是否清理目录
func (d *TestDaemon) StopWithCleanup(cleanup bool) error {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(os.Interrupt)

		done := make(chan error, 1)
		go func() {
			done <- d.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			_ = d.cmd.Process.Kill()
			<-done
		}
	}

	if cleanup {
		_ = os.RemoveAll(d.Workspace)
		return os.RemoveAll(d.DataDir)
	}
	return nil
}

// BaseURL 返回 HTTP 基础 URL
func (d *TestDaemon) BaseURL() string {
	return d.baseURL
}

// waitForReady 等待 health 端点就绪
func (d *TestDaemon) waitForReady(timeout time.Duration) error {
	client := NewAPIClient(d.baseURL)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := client.HealthCheck(); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon %s failed to become ready within %v", d.Name, timeout)
}

// getFreePort 获取一个空闲的 TCP 端口
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
