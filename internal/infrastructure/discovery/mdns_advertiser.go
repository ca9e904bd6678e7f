// Package discovery 通过 mDNS 在局域网广播本机服务
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/webforge/backend/internal/infrastructure/config"
	"github.com/webforge/backend/internal/infrastructure/log"
)

// ServiceType 广播的服务类型
const ServiceType = "_webforge._tcp"

// ServiceInfo 广播的服务信息
type ServiceInfo struct {
	InstanceName string
	Port         int
	TxtRecords   map[string]string
}

// MDNSAdvertiser mDNS 服务广播器
type MDNSAdvertiser struct {
	mu      sync.Mutex
	server  *zeroconf.Server
	info    *ServiceInfo
	enabled bool
	logger  *slog.Logger
}

// NewMDNSAdvertiser 创建 mDNS 广播器
func NewMDNSAdvertiser(cfg *config.ServerConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{
		enabled: cfg.Advertise,
		logger:  log.NewModuleLogger("discovery", "mdns_advertiser"),
	}
}

// Enabled 配置是否开启广播
func (a *MDNSAdvertiser) Enabled() bool {
	return a.enabled
}

// Start 开始广播服务
func (a *MDNSAdvertiser) Start(info ServiceInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return fmt.Errorf("advertiser is already running")
	}

	txt := txtRecords(info.TxtRecords)
	server, err := zeroconf.Register(info.InstanceName, ServiceType, "local.", info.Port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	a.info = &info
	a.logger.Info("mDNS advertiser started",
		"instance", info.InstanceName,
		"port", info.Port,
		"txt_records", txt,
	)
	return nil
}

// Stop 停止广播
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.info = nil
	a.logger.Info("mDNS advertiser stopped")
}

// IsRunning 是否正在广播
func (a *MDNSAdvertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// BuildServiceInfo 构建服务信息
func BuildServiceInfo(port int, version string, mcpEnabled bool) ServiceInfo {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "webforge"
	}
	mcp := "off"
	if mcpEnabled {
		mcp = "/mcp/sse"
	}
	return ServiceInfo{
		InstanceName: "webforge-" + host,
		Port:         port,
		TxtRecords: map[string]string{
			"version": version,
			"mcp":     mcp,
			"api":     "/api",
		},
	}
}

// txtRecords 按键排序，保证广播内容稳定
func txtRecords(records map[string]string) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	txt := make([]string, 0, len(keys))
	for _, k := range keys {
		txt = append(txt, fmt.Sprintf("%s=%s", k, records[k]))
	}
	return txt
}
