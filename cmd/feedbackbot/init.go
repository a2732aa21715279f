package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/redisstore"
	"github.com/Abdurakhi/tg-feedback-bot/internal/statepaths"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type configTemplate struct {
	FileStateDir string           `yaml:"file_state_dir"`
	Telegram     telegramTemplate `yaml:"telegram"`
	Webhook      webhookTemplate  `yaml:"webhook"`
	Store        storeTemplate    `yaml:"store"`
	Session      sessionTemplate  `yaml:"session"`
	Relay        relayTemplate    `yaml:"relay"`
	Health       healthTemplate   `yaml:"health"`
	Logging      loggingTemplate  `yaml:"logging"`
}

type telegramTemplate struct {
	BotToken       string `yaml:"bot_token"`
	AdminID        int64  `yaml:"admin_id"`
	BaseURL        string `yaml:"base_url"`
	PollTimeout    string `yaml:"poll_timeout"`
	RequestTimeout string `yaml:"request_timeout"`
	QueueSize      int    `yaml:"queue_size"`
}

type webhookTemplate struct {
	Hostname    string `yaml:"hostname"`
	Listen      string `yaml:"listen"`
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"`
	SecretToken string `yaml:"secret_token"`
}

type storeTemplate struct {
	Driver string `yaml:"driver"`
	SQLite struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sqlite"`
	Pebble struct {
		Dir string `yaml:"dir"`
	} `yaml:"pebble"`
	Redis struct {
		URL       string `yaml:"url"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`
}

type sessionTemplate struct {
	Persist bool   `yaml:"persist"`
	Path    string `yaml:"path"`
}

type relayTemplate struct {
	UserRateLimit float64 `yaml:"user_rate_limit"`
	UserRateBurst int     `yaml:"user_rate_burst"`
}

type healthTemplate struct {
	Listen string `yaml:"listen"`
}

type loggingTemplate struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

var sectionComments = map[string]string{
	"file_state_dir": "Directory for the SQLite database, the pebble store and the armed reply target.",
	"telegram":       "bot_token and admin_id are required. Env: FEEDBACK_BOT_TELEGRAM_BOT_TOKEN / TOKEN, FEEDBACK_BOT_TELEGRAM_ADMIN_ID / ADMIN_ID.",
	"webhook":        "Set hostname to switch from long polling to a webhook. path defaults to the bot token.",
	"store":          "driver: sqlite | pebble | redis",
	"session":        "Persist the armed reply target across restarts.",
	"relay":          "Per-user inbound limit in messages per minute. 0 disables.",
	"health":         "Health and /metrics listener for poll mode. Webhook mode serves them on the webhook port.",
}

func defaultConfigTemplate(dir string) configTemplate {
	cfg := configTemplate{
		FileStateDir: dir,
		Telegram: telegramTemplate{
			BaseURL:        telegramapi.DefaultBaseURL,
			PollTimeout:    "30s",
			RequestTimeout: "90s",
			QueueSize:      256,
		},
		Webhook: webhookTemplate{
			Listen: "0.0.0.0",
			Port:   5000,
		},
		Session: sessionTemplate{Persist: true},
		Relay:   relayTemplate{UserRateBurst: 5},
		Logging: loggingTemplate{Level: "info", Format: "text"},
	}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Redis.URL = "redis://127.0.0.1:6379/0"
	cfg.Store.Redis.KeyPrefix = redisstore.DefaultKeyPrefix
	return cfg
}

func renderConfigTemplate(cfg configTemplate) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	if doc.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Content); i += 2 {
			if c, ok := sectionComments[doc.Content[i].Value]; ok {
				doc.Content[i].HeadComment = c
			}
		}
	}
	return yaml.Marshal(&doc)
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := statepaths.DefaultStateDir
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = statepaths.ExpandHomePath(dir)
			if strings.TrimSpace(dir) == "" {
				return fmt.Errorf("invalid dir")
			}
			dir = filepath.Clean(dir)

			if err := os.MkdirAll(dir, 0o700); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, statepaths.ConfigFilename)
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			body, err := renderConfigTemplate(defaultConfigTemplate(dir))
			if err != nil {
				return err
			}
			// The file will hold the bot token.
			if err := os.WriteFile(cfgPath, body, 0o600); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", cfgPath)
			return nil
		},
	}

	return cmd
}
