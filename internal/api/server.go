package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"UOMI-Agent/internal/agent"
	"UOMI-Agent/internal/auth"
	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/host"
	"UOMI-Agent/internal/observability/metrics"
	"UOMI-Agent/pkg/logger"
)

// InvocationHeader 是响应中携带调用编号的头。
const InvocationHeader = "X-Invocation-ID"

const defaultMaxBodyBytes = 1 << 20

// Runner 执行一次智能体调用。
type Runner interface {
	Run(ctx context.Context, h host.Host) error
}

// HostFactory 为每个请求创建独立的宿主。
type HostFactory func(in io.Reader, out io.Writer) host.Host

// Server 负责暴露 REST 接口，供外部驱动智能体执行。
type Server struct {
	addr         string
	runner       Runner
	newHost      HostFactory
	maxBodyBytes int64
	readTimeout  time.Duration
	writeTimeout time.Duration
	auth         *auth.Service
}

// Option 定义可选的服务配置。
type Option func(*Server)

// WithMaxBodyBytes 限制请求体大小。
func WithMaxBodyBytes(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxBodyBytes = limit
		}
	}
}

// WithTimeouts 设置 HTTP 读写超时。
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithAuth 为调用接口启用认证。
func WithAuth(svc *auth.Service) Option {
	return func(s *Server) {
		s.auth = svc
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, runner Runner, newHost HostFactory, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		runner:       runner,
		newHost:      newHost,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回包含全部路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/invocations", instrument("invocations", s.auth.Middleware(http.HandlerFunc(s.handleInvocations))))
	mux.Handle("/healthz", instrument("healthz", http.HandlerFunc(handleHealth)))
	mux.Handle("/metrics", instrument("metrics", metrics.Handler()))
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Named("api").Info("api server listening", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleInvocations 把请求体作为一次调用的输入，返回唯一的输出。
func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, xerrors.New(xerrors.CodeInvalidArgument, "仅支持 POST"))
		return
	}
	if s.runner == nil || s.newHost == nil {
		writeError(w, http.StatusServiceUnavailable, xerrors.New(xerrors.CodeInitializationFailure, "Agent 未初始化"))
		return
	}

	id := uuid.NewString()
	w.Header().Set(InvocationHeader, id)

	input, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体过大"))
			return
		}
		writeError(w, http.StatusBadRequest, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "读取请求体失败"))
		return
	}

	var output bytes.Buffer
	ctx := agent.ContextWithInvocationID(r.Context(), id)
	if err := s.runner.Run(ctx, s.newHost(bytes.NewReader(input), &output)); err != nil {
		writeError(w, xerrors.HTTPStatus(err), err)
		return
	}

	if json.Valid(output.Bytes()) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(output.Bytes())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(xerrors.CodeOf(err)),
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
