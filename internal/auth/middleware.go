package auth

import (
	"errors"
	"net/http"

	loggerpkg "UOMI-Agent/pkg/logger"
)

// Middleware 返回一个 HTTP 中间件，拒绝未携带有效令牌的请求。
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.AuthenticateRequest(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrMissingToken) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="uomi-agent"`)
			}
			http.Error(w, http.StatusText(status), status)
			loggerpkg.Audit().Warn("access_denied",
				"path", r.URL.Path,
				"method", r.Method,
				"status", status,
				"error", err.Error(),
			)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}
