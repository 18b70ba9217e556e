package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fonpesca/alertbot/internal/api"
	"github.com/fonpesca/alertbot/internal/convlog"
	"github.com/fonpesca/alertbot/internal/identity"
	"github.com/fonpesca/alertbot/internal/middleware"
	"github.com/fonpesca/alertbot/internal/transport"
	"github.com/fonpesca/alertbot/internal/transport/telegram"
	"github.com/fonpesca/alertbot/internal/transport/webchat"
	"github.com/fonpesca/alertbot/internal/worker"
	"github.com/fonpesca/alertbot/internal/workflow"
	"github.com/fonpesca/alertbot/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report bot and HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

//nolint:gocognit // Startup wiring is intentionally sequential to keep dependency setup explicit.
func serve(parent context.Context) error {
	logger := slog.Default()
	slog.Info("Starting server",
		"port", cfg.Port,
		"db_driver", cfg.Database.Driver,
		"telegram", cfg.Telegram.Token != "",
		"webchat", cfg.WebChat.Enabled)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	clog, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := clog.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Outbound: engine -> conversation log -> channel router -> adapter.
	channels := transport.NewRouter()
	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithOperatorContact(cfg.OperatorContact),
	}
	if cfg.EmergencyContact != "" {
		opts = append(opts, workflow.WithEmergencyContact(cfg.EmergencyContact))
	}
	engine := workflow.NewEngine(
		convlog.Sender(channels, clog),
		identity.NewDirectory(repo, logger),
		repo,
		opts...,
	)

	// Inbound: adapter -> mailbox -> conversation log -> engine.
	mailbox := transport.NewMailbox(ctx, convlog.Handler(engine.Handle, clog), transport.MailboxConfig{
		Buffer:      cfg.Mailbox.Buffer,
		IdleTimeout: cfg.Mailbox.IdleTimeout,
		Rate:        rate.Limit(cfg.Mailbox.RatePerSec),
		Burst:       cfg.Mailbox.Burst,
	}, logger)
	defer mailbox.Close()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	gauges := []api.Gauge{
		{Name: "conversations", Value: engine.Sessions().Len},
		{Name: "mailboxes", Value: mailbox.Active},
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.Debug, logger)
		if err != nil {
			return err
		}
		channels.Register(telegram.Channel, bot)

		if cfg.Telegram.WebhookURL != "" {
			url := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + cfg.Telegram.WebhookPath
			if err := bot.SetWebhook(url, cfg.Telegram.WebhookSecret); err != nil {
				return err
			}
			r.Post(cfg.Telegram.WebhookPath, bot.WebhookHandler(cfg.Telegram.WebhookSecret, mailbox.Deliver))
		} else {
			if err := bot.DeleteWebhook(); err != nil {
				slog.Warn("Failed to clear telegram webhook before polling", "error", err)
			}
			g.Go(func() error { return bot.Poll(gctx, mailbox.Deliver) })
		}
	}

	if cfg.WebChat.Enabled {
		signer, err := webchat.NewSigner(cfg.WebChat.TokenSecret, cfg.WebChat.TokenTTL)
		if err != nil {
			return err
		}
		hub := webchat.NewHub(logger)
		channels.Register(webchat.Channel, hub)
		r.Get("/ws/chat", webchat.NewHandler(hub, mailbox.Deliver, signer, cfg.AllowedOrigins, logger).ServeHTTP)
		gauges = append(gauges, api.Gauge{Name: "web_connections", Value: hub.Active})
	}

	api.NewHealthHandler(repo, cfg.HealthCheckTimeout, gauges...).RegisterHealth(r)

	// Serve embedded chat page (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	if cfg.HeartbeatSchedule != "" {
		counts := make(map[string]func() int, len(gauges))
		for _, gauge := range gauges {
			counts[gauge.Name] = gauge.Value
		}
		if err := worker.NewHeartbeat(repo, counts, logger).Start(gctx, cfg.HeartbeatSchedule); err != nil {
			return err
		}
	}

	// WebSocket chats are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr, "channels", channels.Channels())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}
