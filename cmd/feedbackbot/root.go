package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "FEEDBACK_BOT"
)

// legacyEnv maps config keys to the bare variable names older deployments set.
var legacyEnv = map[string]string{
	"telegram.bot_token": "TOKEN",
	"telegram.admin_id":  "ADMIN_ID",
	"webhook.port":       "PORT",
	"webhook.hostname":   "RENDER_EXTERNAL_HOSTNAME",
}

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedbackbot",
		Short: "Anonymous feedback relay between Telegram users and one administrator",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	cmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the environment (missing file is ignored).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("env_file", cmd.PersistentFlags().Lookup("env-file"))

	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (defaults to info; debug if --trace).")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")
	cmd.PersistentFlags().Bool("trace", false, "Print extra debug info to stderr.")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", cmd.PersistentFlags().Lookup("log-add-source"))
	_ = viper.BindPFlag("trace", cmd.PersistentFlags().Lookup("trace"))

	run := newRunCmd()
	// Bare "feedbackbot" starts the bot, as the single-script deployment did.
	cmd.RunE = run.RunE
	cmd.Flags().AddFlagSet(run.Flags())

	cmd.AddCommand(run)
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() {
	loadDotenv(viper.GetString("env_file"))
	initViperDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	bindLegacyEnv()

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}

func loadDotenv(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	// Load never overrides variables already present in the environment.
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
	}
}

// bindLegacyEnv binds each key to its prefixed name first, then the legacy one.
func bindLegacyEnv() {
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
		_ = viper.BindEnv(key, prefixed, legacy)
	}
}
