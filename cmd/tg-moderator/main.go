package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/bot"
	"tg-moderator/internal/config"
	"tg-moderator/internal/crash"
	"tg-moderator/internal/handler"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/moderation"
	"tg-moderator/internal/redis"
	"tg-moderator/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")
	// 设置全局崩溃处理
	crash.SetupCrashHandler()

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	db, err := storage.Initialize(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer storage.Close(db)

	sanctions := storage.NewSanctionRepository(db)
	if err := sanctions.MigrateTable(); err != nil {
		logger.Fatalf("Failed to migrate sanctions table: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var drainLock moderation.Locker
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			logger.Fatalf("Redis unreachable: %v", err)
		}
		drainLock = redis.NewDrainLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL)
		logger.Info("Reconciler drains are coordinated through redis")
	}

	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}

	var platform moderation.Platform = bot.NewTelegramPlatform(botService.Bot, cfg.Moderation.ChatID,
		cfg.Moderation.ExtraChatIDs, cfg.Moderation.Roles)
	if cfg.Moderation.DryRun {
		logger.Warning("Dry run: sanctions and direct messages are logged, not sent")
		platform = bot.NewDryRunPlatform(platform)
	}

	order, err := moderation.NewRoleOrder(cfg.Moderation.Roles)
	if err != nil {
		logger.Fatalf("Invalid role list: %v", err)
	}
	opts := moderation.OptionsFromConfig(cfg.Moderation)
	if err := opts.Policy.Validate(order); err != nil {
		logger.Fatalf("Invalid moderation policy: %v", err)
	}

	notifier := audit.NewNotifier(botService.Bot, audit.RoutesFromConfig(cfg.Audit), cfg.Moderation.Language)
	executor := moderation.NewExecutor(moderation.Deps{
		Store:    sanctions,
		Platform: platform,
		Auditor:  notifier,
		Locks:    moderation.NewSubjectLocks(),
		Now:      time.Now,
	}, opts)

	reconciler := moderation.NewReconciler(executor, moderation.ReconcilerOptions{
		Duration: cfg.Moderation.SanctionDuration,
		Location: cfg.Moderation.Location(),
		Locker:   drainLock,
	})
	crash.SafeGoroutine("expiry-reconciler", func() {
		reconciler.Run(ctx)
	})

	h, err := handler.New(botService.Bot, executor, notifier, cfg.Moderation, *botService.Self)
	if err != nil {
		logger.Fatalf("Failed to create handler: %v", err)
	}
	h.Register(botService.Handler)

	crash.SafeGoroutine("http-server", func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("HTTP server error: %v", err)
		}
	})

	// 等待 HTTP 服务器启动
	time.Sleep(500 * time.Millisecond)
	logger.Info("HTTP server is ready, starting bot handler...")

	crash.SafeGoroutine("bot-handler", botService.Start)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	cancel()
	botService.Stop()

	logger.Info("Waiting for message handlers to complete...")
	// 等待所有消息处理器完成
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All message handlers completed")
	case <-time.After(30 * time.Second):
		logger.Warning("Timeout waiting for message handlers, proceeding with shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	logger.Info("Server gracefully stopped")
}
