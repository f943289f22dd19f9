package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath 是未设置 UOMI_CONFIG 时读取的配置文件。
const DefaultPath = "configs/uomi.yaml"

// PathEnv 指定配置文件路径的环境变量。
const PathEnv = "UOMI_CONFIG"

// Config 描述了 UOMI Agent 在启动阶段需要加载的核心配置。
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Web3    Web3Config    `yaml:"web3"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// AgentConfig 控制单次调用的行为。
type AgentConfig struct {
	ResponseFormat string `yaml:"response_format" env:"UOMI_RESPONSE_FORMAT"`
	ModelID        int    `yaml:"model_id"`
	GuestLogLevel  string `yaml:"guest_log_level"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address             string `yaml:"address" env:"UOMI_SERVER_ADDRESS"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxBodyBytes        int64  `yaml:"max_body_bytes"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider string             `yaml:"provider" env:"UOMI_LLM_PROVIDER"`
	Models   map[int]string     `yaml:"models"`
	OpenAI   OpenAIConfig       `yaml:"openai"`
	Python   PythonBridgeConfig `yaml:"python_bridge"`
}

// OpenAIConfig 描述 OpenAI 兼容接口的访问方式。
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// PythonBridgeConfig 描述通过 Python 脚本完成推理时所需的信息。
type PythonBridgeConfig struct {
	PythonExecutable string `yaml:"python_executable"`
	ScriptPath       string `yaml:"script_path"`
	WorkingDir       string `yaml:"working_dir"`
}

// Web3Config 描述余额查询使用的链数据源。
type Web3Config struct {
	ChainConfig    string `yaml:"chain_config"`
	DefaultChain   string `yaml:"default_chain"`
	ExplorerURL    string `yaml:"explorer_url" env:"UOMI_EXPLORER_URL"`
	ProxyPrefix    string `yaml:"proxy_prefix"`
	APIKey         string `yaml:"api_key" env:"UOMI_EXPLORER_API_KEY"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AuthConfig 控制守护进程的 Bearer Token 认证。
type AuthConfig struct {
	Mode     string      `yaml:"mode" env:"UOMI_AUTH_MODE"`
	Tokens   []AuthToken `yaml:"tokens"`
	APIToken string      `yaml:"-" env:"UOMI_API_TOKEN"`
}

// AuthToken 描述一个允许访问的调用方。
type AuthToken struct {
	Name     string `yaml:"name"`
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level      string   `yaml:"level" env:"UOMI_LOG_LEVEL"`
	Format     string   `yaml:"format"`
	Outputs    []string `yaml:"outputs"`
	AuditPath  string   `yaml:"audit_path"`
	MaxSizeMB  int      `yaml:"max_size_mb"`
	MaxBackups int      `yaml:"max_backups"`
	MaxAgeDays int      `yaml:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir  string `yaml:"data_dir"`
	FilesDir string `yaml:"files_dir"`
}

// Load 读取 UOMI_CONFIG（默认 configs/uomi.yaml）并叠加环境变量。
func Load() (*Config, error) {
	path, explicit := os.LookupEnv(PathEnv)
	if !explicit || strings.TrimSpace(path) == "" {
		path = DefaultPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return LoadWithEnv("", nil)
		}
	}
	return LoadWithEnv(path, nil)
}

// LoadWithEnv 从指定文件加载配置，environ 为空时使用进程环境变量。
// path 为空时只使用默认值与环境变量。
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	var cfg Config
	baseDir := "."

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Agent.ResponseFormat == "" {
		c.Agent.ResponseFormat = "plain"
	}
	if c.Agent.ModelID <= 0 {
		c.Agent.ModelID = 1
	}
	if c.Agent.GuestLogLevel == "" {
		c.Agent.GuestLogLevel = "info"
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 90
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if len(c.LLM.Models) == 0 {
		c.LLM.Models = map[int]string{1: "gpt-4o-mini"}
	}
	if c.LLM.OpenAI.TimeoutSeconds <= 0 {
		c.LLM.OpenAI.TimeoutSeconds = 60
	}
	if c.LLM.Python.PythonExecutable == "" {
		c.LLM.Python.PythonExecutable = "python3"
	}
	c.LLM.Python.WorkingDir = resolve(baseDir, c.LLM.Python.WorkingDir, baseDir)

	if c.Web3.TimeoutSeconds <= 0 {
		c.Web3.TimeoutSeconds = 10
	}
	if c.Web3.ChainConfig != "" {
		c.Web3.ChainConfig = resolve(baseDir, c.Web3.ChainConfig, "")
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = "disabled"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	c.Runtime.DataDir = resolve(baseDir, c.Runtime.DataDir, filepath.Join(baseDir, "data"))
	c.Runtime.FilesDir = resolve(baseDir, c.Runtime.FilesDir, filepath.Join(c.Runtime.DataDir, "files"))
}

func resolve(baseDir, value, fallback string) string {
	if value == "" {
		return fallback
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Agent.ResponseFormat)) {
	case "plain", "enveloped":
	default:
		return fmt.Errorf("不支持的输出格式: %s", c.Agent.ResponseFormat)
	}
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "openai":
	case "python_bridge":
		if strings.TrimSpace(c.LLM.Python.ScriptPath) == "" {
			return errors.New("python_bridge 需要配置 script_path")
		}
	case "none":
	default:
		return fmt.Errorf("不支持的大模型提供方: %s", c.LLM.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(c.Auth.Mode)) {
	case "disabled", "token":
	default:
		return fmt.Errorf("不支持的认证模式: %s", c.Auth.Mode)
	}
	if prefix := strings.TrimSpace(c.Web3.ProxyPrefix); prefix != "" && !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("proxy_prefix 必须以 / 开头: %s", prefix)
	}
	return nil
}
