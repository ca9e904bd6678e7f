package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// EnvDataDir 数据目录环境变量
	EnvDataDir = "WEBFORGE_DATA_DIR"
	// DefaultDataDirName 用户目录下的默认数据目录名
	DefaultDataDirName = ".webforge"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// GetDataDir 数据根目录，进程内只解析一次
// 数据库和配置文件都从这里派生
func GetDataDir() string {
	dataDirOnce.Do(func() {
		dataDirPath = resolveDataDir()
	})
	return dataDirPath
}

func resolveDataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDirName
	}
	return filepath.Join(home, DefaultDataDirName)
}

// EnsureDataDir 创建数据目录
func EnsureDataDir() (string, error) {
	dir := GetDataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ResetDataDir 重置缓存（测试用）
func ResetDataDir() {
	dataDirOnce = sync.Once{}
	dataDirPath = ""
}
