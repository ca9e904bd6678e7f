package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	EnvHost            = "WEBFORGE_HOST"
	EnvPort            = "WEBFORGE_PORT"
	EnvWorkspace       = "WEBFORGE_WORKSPACE"
	EnvFrontendDir     = "WEBFORGE_FRONTEND_DIR"
	EnvGenProvider     = "WEBFORGE_GENERATION_PROVIDER"
	EnvGenBaseURL      = "WEBFORGE_GENERATION_BASE_URL"
	EnvGenModel        = "WEBFORGE_GENERATION_MODEL"
	EnvGenAPIKey       = "WEBFORGE_GENERATION_API_KEY"
	EnvGenTimeout      = "WEBFORGE_GENERATION_TIMEOUT"
	EnvEmbedProvider   = "WEBFORGE_EMBEDDING_PROVIDER"
	EnvEmbedURL        = "WEBFORGE_EMBEDDING_URL"
	EnvEmbedModel      = "WEBFORGE_EMBEDDING_MODEL"
	EnvVectorHost      = "WEBFORGE_QDRANT_HOST"
	EnvVectorPort      = "WEBFORGE_QDRANT_PORT"
	EnvMDNS            = "WEBFORGE_MDNS"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	DefaultConfigName  = "config.yaml"
	defaultGeminiModel = "gemini-2.0-flash"
)

// 生成服务提供方
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultSystemInstruction 生成模型的系统指令
const DefaultSystemInstruction = "You are an expert front-end engineer working inside a local site builder. " +
	"You write or rewrite one file of a small static web project (HTML, CSS or JavaScript) per request. " +
	"Follow the request exactly and reply with the complete raw file content only, with no Markdown fences and no commentary."

// Config 应用配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Generation GenerationConfig `yaml:"generation"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MCPEnabled bool   `yaml:"mcp_enabled"`
	Advertise  bool   `yaml:"advertise"` // 是否通过 mDNS 在局域网广播
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path           string `yaml:"path"` // 空表示 <数据目录>/webforge.db
	MaxCheckpoints int    `yaml:"max_checkpoints"`
}

// WorkspaceConfig 工作区配置
type WorkspaceConfig struct {
	Root        string `yaml:"root"` // generated_apps 所在目录
	FrontendDir string `yaml:"frontend_dir"`
}

// GeneratedAppsDir 生成项目根目录
func (c WorkspaceConfig) GeneratedAppsDir() string {
	return filepath.Join(c.Root, "generated_apps")
}

// GenerationConfig 生成模型配置
type GenerationConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	SystemInstruction string        `yaml:"system_instruction"`
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// VectorConfig Qdrant 配置
type VectorConfig struct {
	Host       string `yaml:"host"`
	GRPCPort   int    `yaml:"grpc_port"`
	Collection string `yaml:"collection"`
	BinaryPath string `yaml:"binary_path"` // 非空时由本进程启动 Qdrant
	DataPath   string `yaml:"data_path"`
}

// WatcherConfig 文件监听配置
type WatcherConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// NewConfig 创建配置（默认值 + 环境变量）
func NewConfig() *Config {
	cfg := defaultConfig()
	cfg.applyEnv()
	return cfg
}

// Load 读取配置文件，再应用环境变量
// 文件不存在时只使用默认值
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigPath 默认配置文件路径
func DefaultConfigPath() string {
	return filepath.Join(GetDataDir(), DefaultConfigName)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Generation.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown generation provider: %q", c.Generation.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	if c.Generation.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8000,
			MCPEnabled: true,
		},
		Database: DatabaseConfig{
			MaxCheckpoints: 20,
		},
		Workspace: WorkspaceConfig{
			Root:        wd,
			FrontendDir: filepath.Join(wd, "frontend", "dist"),
		},
		Generation: GenerationConfig{
			Provider:          ProviderOpenAI,
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:             defaultGeminiModel,
			MaxOutputTokens:   8192,
			Timeout:           2 * time.Minute,
			SystemInstruction: DefaultSystemInstruction,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOllama,
			URL:      "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		Vector: VectorConfig{
			Host:       "localhost",
			GRPCPort:   6334,
			Collection: "code_embeddings",
		},
		Watcher: WatcherConfig{
			Debounce: 500 * time.Millisecond,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, EnvHost)
	setInt(&c.Server.Port, EnvPort)
	setBool(&c.Server.Advertise, EnvMDNS)
	if v := os.Getenv(EnvWorkspace); v != "" {
		c.Workspace.Root = v
		c.Workspace.FrontendDir = filepath.Join(v, "frontend", "dist")
	}
	setString(&c.Workspace.FrontendDir, EnvFrontendDir)

	setString(&c.Generation.Provider, EnvGenProvider)
	setString(&c.Generation.BaseURL, EnvGenBaseURL)
	setString(&c.Generation.Model, EnvGenModel)
	if v := os.Getenv(EnvGenTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Generation.Timeout = d
		}
	}
	// 密钥优先级：专用变量 > 配置文件 > GOOGLE_API_KEY > OPENAI_API_KEY
	if v := os.Getenv(EnvGenAPIKey); v != "" {
		c.Generation.APIKey = v
	} else if c.Generation.APIKey == "" {
		if v := os.Getenv(EnvGoogleAPIKey); v != "" {
			c.Generation.APIKey = v
		} else {
			c.Generation.APIKey = os.Getenv(EnvOpenAIAPIKey)
		}
	}

	setString(&c.Embedding.Provider, EnvEmbedProvider)
	setString(&c.Embedding.URL, EnvEmbedURL)
	setString(&c.Embedding.Model, EnvEmbedModel)

	setString(&c.Vector.Host, EnvVectorHost)
	setInt(&c.Vector.GRPCPort, EnvVectorPort)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// ResolvedPath 数据库文件路径，未配置时位于数据目录
func (c DatabaseConfig) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(GetDataDir(), "webforge.db")
}

// NewDatabaseConfig 数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewWorkspaceConfig 工作区配置
func NewWorkspaceConfig(cfg *Config) *WorkspaceConfig {
	return &cfg.Workspace
}

// NewGenerationConfig 生成模型配置
func NewGenerationConfig(cfg *Config) *GenerationConfig {
	return &cfg.Generation
}

// NewEmbeddingConfig 向量化配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewVectorConfig Qdrant 配置
func NewVectorConfig(cfg *Config) *VectorConfig {
	return &cfg.Vector
}

// NewWatcherConfig 文件监听配置
func NewWatcherConfig(cfg *Config) *WatcherConfig {
	return &cfg.Watcher
}

// NewWebSocketConfig WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}
