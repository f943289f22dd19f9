package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"UOMI-Agent/internal/app"
	"UOMI-Agent/internal/config"
)

// main 读取标准输入中的对话，执行一次调用并把结果写到标准输出。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("uomi-agent 调用失败: %v", err)
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// 标准输出只承载调用结果
	cfg.Log.Outputs = withoutStdout(cfg.Log.Outputs)
	if err := app.InitLogging(cfg.Log); err != nil {
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

	return application.Invoke(ctx, os.Stdin, os.Stdout)
}

func withoutStdout(outputs []string) []string {
	kept := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if strings.EqualFold(strings.TrimSpace(out), "stdout") {
			continue
		}
		kept = append(kept, out)
	}
	return kept
}
