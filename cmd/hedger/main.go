package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/poolhedge/internal/app"
	"github.com/betbot/poolhedge/pkg/config"
	"github.com/betbot/poolhedge/pkg/logger"
	"github.com/betbot/poolhedge/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "configs/hedger.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", "dotenv 文件（不存在则忽略）")
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}

	cfg, err := config.LoadFromFile(*configPath, *envFile)
	if err != nil {
		logrus.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		logrus.Errorf("初始化日志失败: %v", err)
		os.Exit(1)
	}
	logrus.Infof("使用配置文件: %s (pools=%d dry_run=%v)", *configPath, len(cfg.Pools), cfg.DryRun)

	rootCtx, rootCancel := shutdown.WithSignals(context.Background())
	defer rootCancel()

	// SIGHUP 重新打开日志文件（配合 logrotate）
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := logger.Rotate(); err != nil {
				logrus.Warnf("日志轮转失败: %v", err)
			}
		}
	}()

	a, err := app.New(rootCtx, cfg)
	if err != nil {
		logrus.Errorf("启动失败: %v", err)
		os.Exit(1)
	}

	if !cfg.StartOnBoot {
		logrus.Infof("对冲未开启，通过 POST http://%s/api/start 开启", cfg.Control.Listen)
	}
	logrus.Info("✅ 对冲程序已启动，按 Ctrl+C 停止")

	runErr := a.Run(rootCtx)
	if runErr != nil {
		logrus.Errorf("运行失败: %v", runErr)
	}
	logrus.Info("正在关闭...")
	rootCancel()
	signal.Stop(hup)

	sm := shutdown.NewManager()
	sm.OnShutdown("app", func(ctx context.Context) {
		if err := a.Close(); err != nil {
			logrus.Errorf("关闭失败: %v", err)
		}
	})
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	sm.Shutdown(shutdownCtx)

	logrus.Info("✅ 对冲程序已停止")
	_ = logger.Close()
	if runErr != nil {
		os.Exit(1)
	}
}
