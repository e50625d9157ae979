package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"safeband-device/internal/config"
	"safeband-device/internal/logger"
	"safeband-device/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "safeband-device")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	device, err := service.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create device service",
			zap.Error(err),
		)
	}
	defer device.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务
	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- device.Start(ctx)
	}()

	// 6. SIGUSR1 充当紧急按钮，SIGINT/SIGTERM 优雅关闭
	manualChan := make(chan os.Signal, 1)
	signal.Notify(manualChan, syscall.SIGUSR1)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-manualChan:
			log.Info("manual trigger signal received")
			device.TriggerManual()
		case sig := <-sigChan:
			log.Info("Received signal, shutting down",
				zap.String("signal", sig.String()),
			)
			cancel()
			// wait for the in-flight alert run and the periodic loops to
			// drain before releasing resources
			if err := <-serviceDone; err != nil {
				log.Error("Service stopped with error",
					zap.Error(err),
				)
			}
			return
		case err := <-serviceDone:
			if err != nil {
				log.Fatal("Service error",
					zap.Error(err),
				)
			}
			return
		}
	}
}
