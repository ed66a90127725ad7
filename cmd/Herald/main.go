package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"Herald/internal/wire"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	// 1. 组装应用
	app, cleanup, err := wire.InitializeApplication()
	if err != nil {
		zlog.Fatal("初始化失败", zap.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 后台任务
	if app.Sweeper != nil {
		if err := app.Sweeper.Start(); err != nil {
			zlog.Fatal("status sweeper start failed", zap.Error(err))
		}
	}
	ingestDone := make(chan struct{})
	if app.Ingest != nil {
		go func() {
			defer close(ingestDone)
			if err := app.Ingest.Run(ctx); err != nil {
				zlog.Error("notification ingest stopped", zap.Error(err))
			}
		}()
	} else {
		close(ingestDone)
	}

	// 3. 启动 HTTP 服务
	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("服务器正在启动", zap.String("addr", app.Server.Addr))
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 4. 优雅关闭
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		zlog.Error("服务器启动失败", zap.Error(err))
		stop()
	}

	zlog.Info("正在关闭服务器...")
	timeout := time.Duration(app.Config.MainConfig.ShutdownSecs) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown incomplete", zap.Error(err))
	}
	select {
	case <-ingestDone:
	case <-shutdownCtx.Done():
	}
	zlog.Info("服务器已关闭")
}
