// Package telegram receives Bot API updates by long polling or webhook and feeds
// them, in arrival order, to a single update handler.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/channelruntime/worker"
	"github.com/Abdurakhi/tg-feedback-bot/internal/healthcheck"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func Run(ctx context.Context, d Dependencies, opts RunOptions) error {
	return runTelegramLoop(ctx, d, resolveRuntimeLoopOptionsFromRunOptions(opts))
}

func runTelegramLoop(ctx context.Context, d Dependencies, opts runtimeLoopOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = normalizeRuntimeLoopOptions(opts)
	if opts.BotToken == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or FEEDBACK_BOT_TELEGRAM_BOT_TOKEN)")
	}
	logger, err := loggerFromDeps(d)
	if err != nil {
		return err
	}
	api, err := apiFromDeps(d)
	if err != nil {
		return err
	}
	handler, err := handlerFromDeps(d)
	if err != nil {
		return err
	}

	pollCtx, stop := context.WithCancel(ctx)
	defer stop()

	updates, err := worker.Start(worker.StartOptions[telegramapi.Update]{
		Ctx:    pollCtx,
		Size:   opts.QueueSize,
		Handle: handler.HandleUpdate,
		OnPanic: func(upd telegramapi.Update, r any) {
			logger.Error("telegram_update_panic", "update_id", upd.UpdateID, "panic", fmt.Sprint(r))
		},
	})
	if err != nil {
		return err
	}

	me, ok := waitForMe(pollCtx, logger, api)
	if !ok {
		return nil
	}

	mode := opts.Mode()
	healthListen := healthcheck.NormalizeListen(opts.HealthListen)
	if mode == ModePoll && healthListen != "" {
		r := mux.NewRouter()
		healthcheck.RegisterRoutes(r, mode, metricsHandler(d.Metrics))
		healthServer, err := healthcheck.StartServer(pollCtx, logger, healthListen, mode, r)
		if err != nil {
			logger.Warn("health_server_start_error", "addr", healthListen, "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = healthServer.Shutdown(shutdownCtx)
			}()
		}
	}

	logger.Info("telegram_start",
		"mode", mode,
		"bot_id", me.ID,
		"bot_username", me.Username,
		"poll_timeout", opts.PollTimeout.String(),
		"queue_size", opts.QueueSize,
	)

	if mode == ModeWebhook {
		return runWebhook(pollCtx, logger, api, updates, d.Metrics, opts)
	}
	return runPoll(pollCtx, logger, api, updates, d.Metrics, opts)
}

func waitForMe(ctx context.Context, logger *slog.Logger, api BotAPI) (*telegramapi.User, bool) {
	for {
		me, err := api.GetMe(ctx)
		if err == nil && me != nil {
			return me, true
		}
		if ctx.Err() != nil {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil, false
		}
		if err == nil {
			err = fmt.Errorf("empty getMe result")
		}
		logger.Warn("telegram_get_me_error", "error", err.Error())
		select {
		case <-ctx.Done():
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil, false
		case <-time.After(2 * time.Second):
		}
	}
}

func runPoll(ctx context.Context, logger *slog.Logger, api BotAPI, updates *worker.Serial[telegramapi.Update], m *metrics.Metrics, opts runtimeLoopOptions) error {
	// getUpdates is refused while a webhook is registered.
	if err := api.DeleteWebhook(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil
		}
		logger.Warn("telegram_delete_webhook_error", "error", err.Error())
	}

	var offset int64
	for {
		batch, nextOffset, err := api.GetUpdates(ctx, offset, opts.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
			if telegramapi.IsPollTimeoutError(err) {
				logger.Debug("telegram_get_updates_timeout", "error", err.Error())
			} else {
				logger.Warn("telegram_get_updates_error", "error", err.Error())
			}
			sleepCtx(ctx, time.Second)
			continue
		}
		offset = nextOffset

		for _, upd := range batch {
			m.ObserveUpdate(ModePoll)
			if err := updates.Enqueue(ctx, upd); err != nil {
				logger.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
		}
	}
}

func runWebhook(ctx context.Context, logger *slog.Logger, api BotAPI, updates *worker.Serial[telegramapi.Update], m *metrics.Metrics, opts runtimeLoopOptions) error {
	secret := opts.WebhookSecret
	if secret == "" {
		secret = uuid.NewString()
	}

	r := mux.NewRouter()
	healthcheck.RegisterRoutes(r, ModeWebhook, metricsHandler(m))
	r.Handle(opts.webhookRoute(), &webhookHandler{
		logger:  logger,
		secret:  secret,
		updates: updates,
		metrics: m,
	}).Methods(http.MethodPost)

	srv, err := healthcheck.StartServer(ctx, logger, opts.webhookAddr(), ModeWebhook, r)
	if err != nil {
		return fmt.Errorf("webhook listen %s: %w", opts.webhookAddr(), err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := api.SetWebhook(ctx, opts.webhookURL(), secret); err != nil {
		if ctx.Err() != nil {
			logger.Info("telegram_stop", "reason", "context_canceled")
			return nil
		}
		return fmt.Errorf("set webhook: %w", err)
	}
	logger.Info("telegram_webhook_set", "host", opts.WebhookHost, "addr", opts.webhookAddr())

	<-ctx.Done()
	logger.Info("telegram_stop", "reason", "context_canceled")
	return nil
}

func metricsHandler(m *metrics.Metrics) http.Handler {
	if m == nil {
		return nil
	}
	return m.Handler()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
