package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"UOMI-Agent/internal/agent"
	"UOMI-Agent/internal/auth"
	"UOMI-Agent/internal/config"
	"UOMI-Agent/internal/host"
	"UOMI-Agent/internal/llm"
	"UOMI-Agent/internal/llm/openai"
	"UOMI-Agent/internal/llm/pythonbridge"
	"UOMI-Agent/internal/web3"
	"UOMI-Agent/internal/web3/provider"
	"UOMI-Agent/pkg/logger"
)

// App 持有一次进程生命周期内共享的组件，调用之间不共享可变状态。
type App struct {
	cfg      *config.Config
	agent    *agent.Agent
	model    llm.Client
	registry *provider.Registry
	proxy    *web3.Proxy
	auth     *auth.Service
}

// InitLogging 按配置初始化全局日志。
func InitLogging(cfg config.LogConfig) error {
	return logger.Init(logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.AuditPath != "",
			Path:       cfg.AuditPath,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
		},
	})
}

// New 根据配置组装模型后端、链数据源与智能体，汇总所有初始化错误。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Named("app")
	var result error

	format, err := agent.ParseResponseFormat(cfg.Agent.ResponseFormat)
	if err != nil {
		result = multierror.Append(result, err)
	}

	model, err := newModel(cfg.LLM)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("初始化大模型失败: %w", err))
	}
	if model == nil && err == nil {
		log.Warn("no model backend configured, conversation requests will receive an apology", "provider", cfg.LLM.Provider)
	}

	authSvc, err := newAuth(cfg.Auth)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("初始化认证失败: %w", err))
	}

	registry, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("初始化链数据源失败: %w", err))
	}

	if result != nil {
		registry.Close()
		return nil, result
	}

	chain, err := registry.DefaultClient()
	if err != nil {
		registry.Close()
		return nil, err
	}
	log.Info("chain registry ready", "chains", registry.Chains())

	return &App{
		cfg: cfg,
		agent: agent.New(
			agent.WithResponseFormat(format),
			agent.WithModelID(cfg.Agent.ModelID),
			agent.WithLogLevel(logger.ParseLevel(cfg.Agent.GuestLogLevel)),
		),
		model:    model,
		registry: registry,
		proxy:    web3.NewProxy(chain),
		auth:     authSvc,
	}, nil
}

func newAuth(cfg config.AuthConfig) (*auth.Service, error) {
	tokens := make([]auth.Token, 0, len(cfg.Tokens)+1)
	for _, tok := range cfg.Tokens {
		tokens = append(tokens, auth.Token{Name: tok.Name, Value: tok.Token, ValueEnv: tok.TokenEnv})
	}
	if cfg.APIToken != "" {
		tokens = append(tokens, auth.Token{Name: "default", Value: cfg.APIToken})
	}
	return auth.NewService(auth.Config{Mode: auth.Mode(cfg.Mode), Tokens: tokens})
}

func newModel(cfg config.LLMConfig) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
			return nil, nil
		}
		client, err := openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "python_bridge":
		script := pythonbridge.ResolveScriptPath(cfg.Python.WorkingDir, cfg.Python.ScriptPath)
		client, err := pythonbridge.NewClient(cfg.Python.PythonExecutable, script, cfg.Python.WorkingDir)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("不支持的大模型提供方: %s", cfg.Provider)
	}
}

// Agent 返回组装好的智能体。
func (a *App) Agent() *agent.Agent {
	return a.agent
}

// Auth 返回守护进程使用的认证服务。
func (a *App) Auth() *auth.Service {
	return a.auth
}

// NewHost 为一次调用创建独立的宿主。
func (a *App) NewHost(in io.Reader, out io.Writer) host.Host {
	opts := []host.Option{
		host.WithChainProxy(a.proxy),
		host.WithFilesDir(a.cfg.Runtime.FilesDir),
	}
	if a.model != nil {
		opts = append(opts, host.WithModel(a.model, llm.ModelTable(a.cfg.LLM.Models)))
	}
	return host.NewLocal(in, out, opts...)
}

// Invoke 以给定输入输出执行一次调用。
func (a *App) Invoke(ctx context.Context, in io.Reader, out io.Writer) error {
	return a.agent.Run(ctx, a.NewHost(in, out))
}

// Close 释放链客户端并刷新日志。
func (a *App) Close() error {
	var result error
	if a.registry != nil {
		a.registry.Close()
	}
	if closer, ok := a.model.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("关闭大模型客户端失败: %w", err))
		}
	}
	if err := logger.Sync(); err != nil {
		result = multierror.Append(result, fmt.Errorf("刷新日志失败: %w", err))
	}
	return result
}
