package web3

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/observability/metrics"
	"UOMI-Agent/pkg/logger"
)

const (
	// ActionGetBalance 查询地址原生币余额。
	ActionGetBalance = "get_balance"
	// ActionGetTokens 查询地址代币余额。
	ActionGetTokens = "get_tokens"
)

// ProxyRequest 是沙箱内智能体发往区块链代理的请求。
type ProxyRequest struct {
	Action  string `json:"action"`
	Address string `json:"address"`
}

// proxyError 是代理失败时返回给智能体的响应体。
type proxyError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Proxy 实现宿主侧的 invoke-blockchain-proxy 调用。
type Proxy struct {
	client Client
	log    *slog.Logger
}

// NewProxy 基于链客户端创建区块链代理。
func NewProxy(client Client) *Proxy {
	return &Proxy{client: client, log: logger.Named("chain-proxy")}
}

// Handle 解析请求并返回 (HTTP 语义状态码, 响应体)。
func (p *Proxy) Handle(ctx context.Context, request []byte) (int, []byte) {
	var req ProxyRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return p.fail("unknown", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "代理请求解析失败"))
	}
	action := strings.TrimSpace(req.Action)
	address := strings.TrimSpace(req.Address)

	if p.client == nil {
		return p.fail(action, xerrors.New(xerrors.CodeInitializationFailure, "未配置链客户端"))
	}

	var (
		result any
		err    error
	)
	switch action {
	case ActionGetBalance:
		result, err = p.client.GetAddress(ctx, address)
	case ActionGetTokens:
		result, err = p.client.GetTokens(ctx, address)
	default:
		return p.fail(action, xerrors.New(xerrors.CodeInvalidArgument, "不支持的代理操作: "+action))
	}
	if err != nil {
		return p.fail(action, err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return p.fail(action, xerrors.Wrap(xerrors.CodeUnknown, err, "序列化代理响应失败"))
	}
	metrics.ObserveChainProxy(action, "ok")
	return http.StatusOK, body
}

func (p *Proxy) fail(action string, err error) (int, []byte) {
	code := xerrors.CodeOf(err)
	metrics.ObserveChainProxy(action, string(code))
	p.log.Warn("blockchain proxy request failed",
		"action", action,
		"code", code,
		"severity", xerrors.SeverityOf(err),
		"error", err,
	)
	body, _ := json.Marshal(proxyError{Error: err.Error(), Code: string(code)})
	return xerrors.HTTPStatus(err), body
}
