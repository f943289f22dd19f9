package host

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/llm"
	"UOMI-Agent/pkg/logger"
)

const (
	cidDir   = "cid"
	inputDir = "input"
)

// Local 是进程内的宿主实现，每次调用创建一个新实例。
type Local struct {
	in  io.Reader
	out io.Writer

	model    llm.Client
	models   llm.ModelTable
	chain    ChainProxy
	filesDir string
	log      *slog.Logger

	mu        sync.Mutex
	input     []byte
	inputRead bool
	written   bool
}

// Option 定义 Local 的可选配置。
type Option func(*Local)

// WithModel 配置模型后端与模型编号映射。
func WithModel(client llm.Client, models llm.ModelTable) Option {
	return func(l *Local) {
		l.model = client
		if len(models) > 0 {
			l.models = models
		}
	}
}

// WithChainProxy 配置区块链代理。
func WithChainProxy(proxy ChainProxy) Option {
	return func(l *Local) {
		l.chain = proxy
	}
}

// WithFilesDir 指定 CID 文件与输入文件所在目录。
func WithFilesDir(dir string) Option {
	return func(l *Local) {
		l.filesDir = strings.TrimSpace(dir)
	}
}

// WithLogger 覆盖智能体日志的输出目标。
func WithLogger(log *slog.Logger) Option {
	return func(l *Local) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLocal 创建进程内宿主。
func NewLocal(in io.Reader, out io.Writer, opts ...Option) *Local {
	l := &Local{
		in:     in,
		out:    out,
		models: llm.DefaultModelTable(),
		log:    logger.Named("guest"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// ReadInput 返回本次调用的输入，多次调用得到同一份数据。
func (l *Local) ReadInput(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inputRead {
		return l.input, nil
	}
	if l.in == nil {
		l.inputRead = true
		return nil, nil
	}
	data, err := io.ReadAll(l.in)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取调用输入失败")
	}
	l.input, l.inputRead = data, true
	return data, nil
}

// WriteOutput 写出本次调用的唯一结果。
func (l *Local) WriteOutput(ctx context.Context, output []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.written {
		return ErrOutputWritten
	}
	l.written = true
	if l.out == nil {
		return nil
	}
	if _, err := l.out.Write(output); err != nil {
		return xerrors.Wrap(xerrors.CodeOutputFailure, err, "写出调用结果失败")
	}
	return nil
}

// Written 报告结果是否已经写出。
func (l *Local) Written() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Log 记录智能体日志。
func (l *Local) Log(message string) {
	l.log.Info(message)
}

// CallModel 解析 {"messages": [...]} 并交给模型后端。
func (l *Local) CallModel(ctx context.Context, modelID int, request []byte) ([]byte, error) {
	if l.model == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置模型后端")
	}
	var body struct {
		Messages []llm.Message `json:"messages"`
	}
	if err := json.Unmarshal(request, &body); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "模型请求解析失败")
	}
	name, err := l.models.Resolve(modelID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "")
	}
	resp, err := l.model.Complete(ctx, llm.Request{Model: name, Messages: body.Messages})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeModelFailure, err, "", xerrors.WithMetadata("model", name))
	}
	return []byte(resp.Content), nil
}

// CallBlockchain 将请求转交给区块链代理，返回状态码与响应体。
func (l *Local) CallBlockchain(ctx context.Context, request []byte) (int, []byte, error) {
	if l.chain == nil {
		return 0, nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置区块链代理")
	}
	status, body := l.chain.Handle(ctx, request)
	return status, body, nil
}

// FetchCIDFile 读取 files_dir/cid 下的文件。
func (l *Local) FetchCIDFile(ctx context.Context, cid string) ([]byte, error) {
	return l.readFile(cidDir, cid)
}

// FetchInputFile 读取 files_dir/input 下的文件。
func (l *Local) FetchInputFile(ctx context.Context, id string) ([]byte, error) {
	return l.readFile(inputDir, id)
}

func (l *Local) readFile(sub, name string) ([]byte, error) {
	if l.filesDir == "" {
		return nil, xerrors.New(xerrors.CodeUnsupported, "未配置文件目录")
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "非法的文件标识: "+name)
	}
	data, err := os.ReadFile(filepath.Join(l.filesDir, sub, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "文件不存在")
		}
		return nil, xerrors.Wrap(xerrors.CodeUnknown, err, "读取文件失败")
	}
	return data, nil
}

var _ Host = (*Local)(nil)
