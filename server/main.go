package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/backend"
	"github.com/meikuraledutech/flowcanvas/config"
	"github.com/meikuraledutech/flowcanvas/conversation"
	"github.com/meikuraledutech/flowcanvas/logging"
	"github.com/meikuraledutech/flowcanvas/memory"
	"github.com/meikuraledutech/flowcanvas/postgres"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	convStore, closeConv, err := openConversationStore(cfg)
	if err != nil {
		return err
	}
	defer closeConv()

	s := &server{
		store:     store,
		canvases:  newCanvasRegistry(store),
		history:   conversation.NewHistory(convStore),
		workflows: backend.NewWorkflowClient(cfg.WorkflowBackendURL, cfg.BackendTimeout),
		insights:  backend.NewInsightClient(cfg.InsightBackendURL, cfg.BackendTimeout),
		log:       log,
		origins:   cfg.CORSOrigins,
	}
	app := newApp(s)

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port, "store", cfg.StoreType, "conversations", cfg.ConversationStore)
		errc <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(cfg.ShutdownGrace)
}

func openStore(ctx context.Context, cfg *config.Config) (flowcanvas.Store, func(), error) {
	switch cfg.StoreType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is not set")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.StoreType)
}

func openConversationStore(cfg *config.Config) (conversation.Store, func(), error) {
	switch cfg.ConversationStore {
	case "file":
		return conversation.NewFileStore(cfg.ConversationDir), func() {}, nil
	case "redis":
		rs, err := conversation.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown conversation store %q", cfg.ConversationStore)
}
