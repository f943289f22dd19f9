package api

import (
	"net/http"
	"time"

	"UOMI-Agent/internal/observability/metrics"
	"UOMI-Agent/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument 记录审计日志与请求耗时指标。
func instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(name, r.Method, rec.status, elapsed)
		logger.Audit().Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"invocation_id", rec.Header().Get(InvocationHeader),
			"remote", r.RemoteAddr,
		)
	})
}
