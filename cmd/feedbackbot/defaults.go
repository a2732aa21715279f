package main

import (
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/redisstore"
	"github.com/Abdurakhi/tg-feedback-bot/internal/statepaths"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.admin_id", int64(0))
	viper.SetDefault("telegram.base_url", telegramapi.DefaultBaseURL)
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.request_timeout", 90*time.Second)
	viper.SetDefault("telegram.queue_size", 256)

	// Webhook mode is enabled by setting webhook.hostname.
	viper.SetDefault("webhook.hostname", "")
	viper.SetDefault("webhook.listen", "0.0.0.0")
	viper.SetDefault("webhook.port", 5000)
	viper.SetDefault("webhook.path", "")
	viper.SetDefault("webhook.secret_token", "")

	// Global
	viper.SetDefault("file_state_dir", statepaths.DefaultStateDir)
	viper.SetDefault("health.listen", "")

	// Correlation store
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.sqlite.dsn", "")
	viper.SetDefault("store.pebble.dir", "")
	viper.SetDefault("store.redis.url", "redis://127.0.0.1:6379/0")
	viper.SetDefault("store.redis.key_prefix", redisstore.DefaultKeyPrefix)

	// Reply session
	viper.SetDefault("session.persist", true)
	viper.SetDefault("session.path", "")

	// Relay
	viper.SetDefault("relay.user_rate_limit", 0.0)
	viper.SetDefault("relay.user_rate_burst", 5)

	// Logging
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}
