// Package main 交互式命令行客户端
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"slidedeck-ai/internal/config"
	"slidedeck-ai/internal/infrastructure/transport/httpclient"
	"slidedeck-ai/internal/interfaces/cli"
	"slidedeck-ai/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configDir := flag.String("config", config.DefaultDir, "config directory")
	baseURL := flag.String("server", "", "generation service base URL (overrides client.base_url)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	cfg, err := config.LoadFrom(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// 日志写 stderr，避免和交互输出混在一起
	logger.InitWithWriter(os.Stderr, *logLevel, "text")

	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	client, err := httpclient.New(httpclient.Options{
		BaseURL:          cfg.Client.BaseURL,
		Timeout:          cfg.Client.Timeout,
		MaxResponseBytes: cfg.Client.MaxResponseBytes,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server address: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// 第一次中断取消进行中的请求，再次中断按默认行为退出
	go func() {
		<-ctx.Done()
		stop()
	}()

	fmt.Printf("connected to %s\n", client.BaseURL())
	if err := cli.New(client).Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
