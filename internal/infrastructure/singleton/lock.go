// Package singleton 保证同一端口只运行一个服务实例
package singleton

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// ServiceName /health 响应中的服务标识
	ServiceName = "webforge"
	// HealthCheckTimeout 健康检查超时时间
	HealthCheckTimeout = 2 * time.Second
)

// ErrPortBusy 端口被其他程序占用
var ErrPortBusy = errors.New("port is in use by another process")

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// CheckAndLock 尝试占用监听地址
// 已有健康实例时返回 nil listener 和 nil error，调用者应退出
func CheckAndLock(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err == nil {
		return listener, nil
	}

	if !isAddrInUse(err) {
		return nil, fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	if isInstanceRunning(addr) {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s 健康检查失败", ErrPortBusy, addr)
}

// isAddrInUse 检查错误是否是地址已在使用
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// Windows: WSAEADDRINUSE
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == 10048
}

// isInstanceRunning 通过 /health 判断占用者是否为本服务
func isInstanceRunning(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	var body healthResponse
	resp, err := resty.New().
		SetTimeout(HealthCheckTimeout).
		R().
		SetResult(&body).
		Get(fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port)))
	if err != nil || !resp.IsSuccess() {
		return false
	}
	return body.Service == ServiceName
}
