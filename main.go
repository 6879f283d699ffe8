package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"DetOverlay/health"
	"DetOverlay/logger"
	"DetOverlay/monitor"
	"DetOverlay/remote"
	"DetOverlay/viewer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := logger.Init(config.LogMode); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if config.LogMode != "development" && config.LogMode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	fmt.Println(strings.Repeat("#", 64))
	fmt.Println(" Viewer     :", config.ListenAddr)
	fmt.Println(" Metrics    :", config.MetricsPort)
	fmt.Println(" Detection  :", config.BaseURL)
	fmt.Println(strings.Repeat("#", 64))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	checker := health.New(config.BaseURL, time.Duration(config.HealthTimeoutSeconds)*time.Second)
	wg.Add(1)
	go checker.Run(ctx, time.Duration(config.HealthIntervalSeconds)*time.Second, &wg)

	if config.MetricsPort > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.StartMon(config.MetricsPort, ctx)
		}()
	}

	client := remote.New(config.BaseURL, remote.WithTimeout(time.Duration(config.PredictTimeoutSeconds)*time.Second))
	srv := viewer.New(client, checker, viewer.Options{
		Session:     config.sessionOptions(),
		IdleTimeout: time.Duration(config.SessionIdleMinutes) * time.Minute,
	})
	srv.StartIdleMonitor(ctx)

	logger.Log().Info("viewer starting", zap.String("addr", config.ListenAddr), zap.String("api", client.BaseURL()))
	if err := srv.Run(ctx, config.ListenAddr); err != nil {
		logger.Log().Error("viewer stopped", zap.Error(err))
		stop()
	}
	wg.Wait()
	fmt.Println("Safely exited")
}
