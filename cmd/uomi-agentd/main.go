package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UOMI-Agent/internal/api"
	"UOMI-Agent/internal/app"
	"UOMI-Agent/internal/config"
	"UOMI-Agent/internal/host"
	"UOMI-Agent/pkg/logger"
)

// main 是 UOMI Agent 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("uomi-agentd 运行失败: %v", err)
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := app.InitLogging(cfg.Log); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	server := api.NewServer(cfg.Server.Address, application.Agent(),
		func(in io.Reader, out io.Writer) host.Host { return application.NewHost(in, out) },
		api.WithAuth(application.Auth()),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second,
		),
	)

	logger.L().Info("uomi-agentd starting", "address", cfg.Server.Address, "response_format", cfg.Agent.ResponseFormat, "auth", application.Auth().Mode())
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.L().Info("uomi-agentd stopped")
	return nil
}
