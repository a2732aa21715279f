package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/db"
	"github.com/Abdurakhi/tg-feedback-bot/internal/channelruntime/telegram"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/gormstore"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/pebblestore"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/redisstore"
	"github.com/Abdurakhi/tg-feedback-bot/internal/logutil"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/relay"
	"github.com/Abdurakhi/tg-feedback-bot/internal/sessionstate"
	"github.com/Abdurakhi/tg-feedback-bot/internal/statepaths"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay bot (long polling, or webhook when webhook.hostname is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().Int64("telegram-admin-id", 0, "Chat id of the administrator who receives feedback.")
	cmd.Flags().Duration("telegram-poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")
	cmd.Flags().String("webhook-hostname", "", "Public hostname; enables webhook mode when set.")
	cmd.Flags().Int("webhook-port", 5000, "Webhook listen port.")
	cmd.Flags().String("store-driver", "sqlite", "Correlation store: sqlite|pebble|redis.")
	cmd.Flags().String("health-listen", "", "Health and metrics listen address in poll mode (e.g. 127.0.0.1:8080). Empty disables.")

	_ = viper.BindPFlag("telegram.bot_token", cmd.Flags().Lookup("telegram-bot-token"))
	_ = viper.BindPFlag("telegram.admin_id", cmd.Flags().Lookup("telegram-admin-id"))
	_ = viper.BindPFlag("telegram.poll_timeout", cmd.Flags().Lookup("telegram-poll-timeout"))
	_ = viper.BindPFlag("webhook.hostname", cmd.Flags().Lookup("webhook-hostname"))
	_ = viper.BindPFlag("webhook.port", cmd.Flags().Lookup("webhook-port"))
	_ = viper.BindPFlag("store.driver", cmd.Flags().Lookup("store-driver"))
	_ = viper.BindPFlag("health.listen", cmd.Flags().Lookup("health-listen"))

	return cmd
}

func runBot(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
	if token == "" {
		return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token, FEEDBACK_BOT_TELEGRAM_BOT_TOKEN or TOKEN)")
	}
	adminID := viper.GetInt64("telegram.admin_id")
	if adminID == 0 {
		return fmt.Errorf("missing telegram.admin_id (set via --telegram-admin-id, FEEDBACK_BOT_TELEGRAM_ADMIN_ID or ADMIN_ID)")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Two processes on one state dir would fight over getUpdates (409 Conflict).
	if _, err := statepaths.EnsureStateDir(); err != nil {
		return fmt.Errorf("file_state_dir: %w", err)
	}
	lock, err := sessionstate.AcquireInstanceLock(statepaths.LockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open correlation store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store_close_error", "error", err.Error())
		}
	}()

	session, err := loadSession()
	if err != nil {
		// The session is still usable; only the restored target is lost.
		logger.Warn("reply_session_load_error", "path", statepaths.SessionPath(), "error", err.Error())
	}
	if t, ok := session.Target(); ok {
		logger.Info("reply_session_restored", "user_id", t.Ref.UserID, "message_id", t.Ref.MessageID)
	}

	m := metrics.New()
	pollTimeout := viper.GetDuration("telegram.poll_timeout")
	api := telegramapi.NewClient(&http.Client{
		Timeout: requestTimeout(viper.GetDuration("telegram.request_timeout"), pollTimeout),
	}, viper.GetString("telegram.base_url"), token)

	svc, err := relay.NewService(relay.Options{
		AdminChatID: adminID,
		Transport:   api,
		Store:       store,
		Session:     session,
		Limiter:     relay.NewUserLimiter(viper.GetFloat64("relay.user_rate_limit"), viper.GetInt("relay.user_rate_burst")),
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("feedbackbot_start",
		"version", version,
		"store_driver", storeDriver(),
		"admin_id", adminID,
	)
	return telegram.Run(ctx, telegram.Dependencies{
		Logger:  func() (*slog.Logger, error) { return logger, nil },
		API:     api,
		Handler: svc,
		Metrics: m,
	}, telegram.RunOptions{
		BotToken:      token,
		PollTimeout:   pollTimeout,
		QueueSize:     viper.GetInt("telegram.queue_size"),
		HealthListen:  viper.GetString("health.listen"),
		WebhookHost:   viper.GetString("webhook.hostname"),
		WebhookListen: viper.GetString("webhook.listen"),
		WebhookPort:   viper.GetInt("webhook.port"),
		WebhookPath:   viper.GetString("webhook.path"),
		WebhookSecret: viper.GetString("webhook.secret_token"),
	})
}

func storeDriver() string {
	return strings.ToLower(strings.TrimSpace(viper.GetString("store.driver")))
}

func openStore(ctx context.Context) (correlation.Store, error) {
	switch driver := storeDriver(); driver {
	case "", "sqlite":
		cfg := db.DefaultConfig()
		dsn := strings.TrimSpace(viper.GetString("store.sqlite.dsn"))
		stateDir := ""
		if dsn == "" {
			dir, err := statepaths.EnsureStateDir()
			if err != nil {
				return nil, err
			}
			stateDir = dir
		}
		resolved, err := db.ResolveSQLiteDSN(dsn, stateDir)
		if err != nil {
			return nil, err
		}
		cfg.DSN = resolved
		return gormstore.Open(cfg)
	case "pebble":
		return pebblestore.Open(statepaths.PebbleDir())
	case "redis":
		return redisstore.Open(ctx, viper.GetString("store.redis.url"), viper.GetString("store.redis.key_prefix"))
	default:
		return nil, fmt.Errorf("unknown store.driver: %s", driver)
	}
}

func loadSession() (*relay.ReplySession, error) {
	if !viper.GetBool("session.persist") {
		return relay.NewReplySession(), nil
	}
	if _, err := statepaths.EnsureStateDir(); err != nil {
		return relay.NewReplySession(), err
	}
	return relay.LoadReplySession(sessionstate.NewFile(statepaths.SessionPath()))
}

// requestTimeout keeps the HTTP client timeout above the long-poll window.
func requestTimeout(configured, pollTimeout time.Duration) time.Duration {
	floor := pollTimeout + 10*time.Second
	if configured < floor {
		return floor
	}
	return configured
}
