package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/host"
	"UOMI-Agent/internal/observability/metrics"
)

// Agent 处理一次调用：解析对话、选择分支、写出唯一结果。
type Agent struct {
	format   ResponseFormat
	modelID  int
	logLevel slog.Level
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithResponseFormat 设置输出格式。
func WithResponseFormat(format ResponseFormat) Option {
	return func(a *Agent) {
		if format != "" {
			a.format = format
		}
	}
}

// WithModelID 覆盖转发对话时使用的模型编号。
func WithModelID(id int) Option {
	return func(a *Agent) {
		if id > 0 {
			a.modelID = id
		}
	}
}

// WithLogLevel 设置写入宿主日志的最低级别。
func WithLogLevel(level slog.Level) Option {
	return func(a *Agent) {
		a.logLevel = level
	}
}

// New 创建一个 Agent。
func New(opts ...Option) *Agent {
	a := &Agent{
		format:   FormatPlain,
		modelID:  ModelID,
		logLevel: slog.LevelInfo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Format 返回当前的输出格式。
func (a *Agent) Format() ResponseFormat {
	return a.format
}

type invocationKey struct{}

// ContextWithInvocationID 将调用编号写入上下文。
func ContextWithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

// InvocationIDFromContext 读取上下文中的调用编号。
func InvocationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}

// Run 执行一次调用。输入无法解析时返回错误且不写出任何结果。
func (a *Agent) Run(ctx context.Context, h host.Host) error {
	id := InvocationIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	log := host.NewLogger(h, a.logLevel).With("invocation_id", id)
	log.Info("UOMI Agent initialized")

	input, err := h.ReadInput(ctx)
	if err != nil {
		metrics.ObserveInvocation(branchInvalidInput)
		log.Error("failed to read input", "error", err)
		return err
	}
	messages, err := DecodeMessages(input)
	if err != nil {
		metrics.ObserveInvocation(branchInvalidInput)
		log.Error("failed to decode input", "error", err)
		return err
	}

	var output []byte
	if wallet, ok := DetectWallet(LatestUserContent(messages)); ok {
		metrics.ObserveInvocation(branchBalance)
		reporter := &balanceReporter{host: h, log: log}
		output = a.format.renderText(reporter.Report(ctx, wallet))
	} else {
		metrics.ObserveInvocation(branchConversation)
		fwd := &forwarder{host: h, modelID: a.modelID}
		raw, err := fwd.Forward(ctx, messages)
		if err != nil {
			log.Error("model call failed", "code", xerrors.CodeOf(err), "error", err)
			output = a.format.renderText(ApologyModel)
		} else {
			output = a.format.renderModel(raw)
		}
	}

	if err := h.WriteOutput(ctx, output); err != nil {
		if _, ok := xerrors.From(err); !ok {
			err = xerrors.Wrap(xerrors.CodeOutputFailure, err, "")
		}
		log.Error("failed to write output", "error", err)
		return err
	}
	return nil
}
