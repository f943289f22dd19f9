package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"UOMI-Agent/internal/config"
	"UOMI-Agent/internal/web3"
	"UOMI-Agent/internal/web3/ethereum"
	"UOMI-Agent/internal/web3/explorer"
)

// Registry manages a set of chain clients keyed by human readable names.
type Registry struct {
	defaultChain string
	clients      map[string]web3.Client
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.Web3Config) (*Registry, error) {
	defs, err := web3.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]web3.Client)
	closeAll := func() {
		for _, client := range clients {
			client.Close()
		}
	}
	for name, chain := range defs.Chains {
		client, err := newClient(ctx, name, chain)
		if err != nil {
			closeAll()
			return nil, err
		}
		clients[name] = client
	}

	defaultChain := strings.TrimSpace(cfg.DefaultChain)
	if len(clients) == 0 {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = web3.ChainDefinition{APIKeyEnv: cfg.APIKeyEnv}.APIKey()
		}
		clients["default"] = explorer.NewClient(explorer.Config{
			BaseURL:     cfg.ExplorerURL,
			ProxyPrefix: cfg.ProxyPrefix,
			APIKey:      apiKey,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if defaultChain == "" {
			defaultChain = "default"
		}
	}

	if defaultChain == "" {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultChain = names[0]
	}
	if _, ok := clients[defaultChain]; !ok {
		closeAll()
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}

	return &Registry{defaultChain: defaultChain, clients: clients}, nil
}

func newClient(ctx context.Context, name string, chain web3.ChainDefinition) (web3.Client, error) {
	chainType := strings.ToLower(strings.TrimSpace(chain.Type))
	if chainType == "" {
		chainType = "explorer"
	}
	switch chainType {
	case "explorer":
		return explorer.NewClient(explorer.Config{
			BaseURL:     chain.ExplorerURL,
			ProxyPrefix: chain.ProxyPrefix,
			APIKey:      chain.APIKey(),
			Timeout:     time.Duration(chain.TimeoutSeconds) * time.Second,
		}), nil
	case "evm":
		client, err := ethereum.NewClient(ctx, ethereum.Config{
			Name:   name,
			RPCURL: chain.RPCURL,
			Notes:  chain.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
	}
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (web3.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
