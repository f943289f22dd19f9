package host

import (
	"log/slog"
	"strings"

	"UOMI-Agent/pkg/logger"
)

// logWriter 把格式化后的日志行交给 Host.Log。
type logWriter struct {
	host Host
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.host.Log(line)
		}
	}
	return len(p), nil
}

// NewLogger 创建一个写入宿主日志通道的 slog 记录器。
func NewLogger(h Host, level slog.Level) *slog.Logger {
	return slog.New(logger.NewHandler("text", logWriter{host: h}, &slog.HandlerOptions{Level: level}))
}
