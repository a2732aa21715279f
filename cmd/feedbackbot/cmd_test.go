package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/relay"
	"github.com/Abdurakhi/tg-feedback-bot/internal/statepaths"
	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	initViperDefaults()
}

func TestLegacyEnvAliases(t *testing.T) {
	resetViper(t)
	t.Setenv("TOKEN", "123:legacy")
	t.Setenv("ADMIN_ID", "555")
	t.Setenv("PORT", "10000")
	t.Setenv("RENDER_EXTERNAL_HOSTNAME", "bot.onrender.com")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	bindLegacyEnv()

	if got := viper.GetString("telegram.bot_token"); got != "123:legacy" {
		t.Fatalf("telegram.bot_token = %q", got)
	}
	if got := viper.GetInt64("telegram.admin_id"); got != 555 {
		t.Fatalf("telegram.admin_id = %d", got)
	}
	if got := viper.GetInt("webhook.port"); got != 10000 {
		t.Fatalf("webhook.port = %d", got)
	}
	if got := viper.GetString("webhook.hostname"); got != "bot.onrender.com" {
		t.Fatalf("webhook.hostname = %q", got)
	}

	t.Setenv("FEEDBACK_BOT_TELEGRAM_BOT_TOKEN", "123:prefixed")
	if got := viper.GetString("telegram.bot_token"); got != "123:prefixed" {
		t.Fatalf("prefixed env should win, got %q", got)
	}
}

func TestLoadDotenvKeepsExistingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FEEDBACK_BOT_TEST_A=from-file\nFEEDBACK_BOT_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FEEDBACK_BOT_TEST_A", "from-env")
	t.Setenv("FEEDBACK_BOT_TEST_B", "")
	os.Unsetenv("FEEDBACK_BOT_TEST_B")

	loadDotenv(path)
	loadDotenv(filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("FEEDBACK_BOT_TEST_A"); got != "from-env" {
		t.Fatalf("FEEDBACK_BOT_TEST_A = %q, want from-env", got)
	}
	if got := os.Getenv("FEEDBACK_BOT_TEST_B"); got != "from-file" {
		t.Fatalf("FEEDBACK_BOT_TEST_B = %q, want from-file", got)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	for _, driver := range []string{"sqlite", "pebble", "redis"} {
		t.Run(driver, func(t *testing.T) {
			resetViper(t)
			viper.Set("file_state_dir", t.TempDir())
			viper.Set("store.driver", driver)
			viper.Set("store.redis.url", "redis://"+server.Addr()+"/0")
			viper.Set("store.redis.key_prefix", "test-"+driver+":")

			store, err := openStore(ctx)
			if err != nil {
				t.Fatalf("openStore(%s) error = %v", driver, err)
			}
			defer store.Close()

			link := correlation.MessageLink{
				Ref:            correlation.MessageRef{UserID: 42, MessageID: 7},
				AdminMessageID: 900,
				CreatedAt:      time.Now().UTC(),
			}
			if err := store.Put(ctx, link); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, found, err := store.LookupLink(ctx, link.Ref)
			if err != nil || !found {
				t.Fatalf("LookupLink() = %v, %v, want found", found, err)
			}
			if got.AdminMessageID != 900 {
				t.Fatalf("admin message id = %d", got.AdminMessageID)
			}
		})
	}

	resetViper(t)
	viper.Set("store.driver", "mongo")
	if _, err := openStore(ctx); err == nil {
		t.Fatalf("openStore(mongo) error = nil")
	}
}

func relayTarget(userID, messageID int64) relay.Target {
	return relay.Target{
		Ref:     correlation.MessageRef{UserID: userID, MessageID: messageID},
		ArmedAt: time.Now().UTC(),
	}
}

func TestLoadSessionPersistsAcrossRestarts(t *testing.T) {
	resetViper(t)
	viper.Set("file_state_dir", t.TempDir())

	session, err := loadSession()
	if err != nil {
		t.Fatalf("loadSession() error = %v", err)
	}
	if _, ok := session.Target(); ok {
		t.Fatalf("fresh session should have no target")
	}
	if _, err := session.Arm(relayTarget(42, 7)); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	if _, err := os.Stat(statepaths.SessionPath()); err != nil {
		t.Fatalf("session file missing: %v", err)
	}

	restored, err := loadSession()
	if err != nil {
		t.Fatalf("loadSession() error = %v", err)
	}
	target, ok := restored.Target()
	if !ok || target.Ref.UserID != 42 || target.Ref.MessageID != 7 {
		t.Fatalf("restored target = %#v, %v", target, ok)
	}

	viper.Set("session.persist", false)
	memOnly, err := loadSession()
	if err != nil {
		t.Fatalf("loadSession() error = %v", err)
	}
	if _, ok := memOnly.Target(); ok {
		t.Fatalf("in-memory session should start empty")
	}
}

func TestRequestTimeoutStaysAbovePollWindow(t *testing.T) {
	t.Parallel()

	if got := requestTimeout(20*time.Second, 30*time.Second); got != 40*time.Second {
		t.Fatalf("requestTimeout() = %v, want 40s", got)
	}
	if got := requestTimeout(90*time.Second, 30*time.Second); got != 90*time.Second {
		t.Fatalf("requestTimeout() = %v, want 90s", got)
	}
}

func TestRunBotRequiresCredentials(t *testing.T) {
	resetViper(t)
	if err := runBot(context.Background()); err == nil || !strings.Contains(err.Error(), "telegram.bot_token") {
		t.Fatalf("runBot() error = %v, want missing token", err)
	}
	viper.Set("telegram.bot_token", "123:abc")
	if err := runBot(context.Background()); err == nil || !strings.Contains(err.Error(), "telegram.admin_id") {
		t.Fatalf("runBot() error = %v, want missing admin id", err)
	}
}

func TestInitWritesCommentedConfigOnce(t *testing.T) {
	dir := t.TempDir()
	cmd := newInitCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init error = %v", err)
	}

	path := filepath.Join(dir, statepaths.ConfigFilename)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(raw), "# driver: sqlite | pebble | redis") {
		t.Fatalf("config missing store comment:\n%s", raw)
	}
	var parsed configTemplate
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if parsed.FileStateDir != dir || parsed.Store.Driver != "sqlite" || parsed.Webhook.Port != 5000 {
		t.Fatalf("parsed config = %#v", parsed)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v, want 0600", info.Mode().Perm())
	}

	again := newInitCmd()
	again.SetOut(&bytes.Buffer{})
	again.SetErr(&bytes.Buffer{})
	again.SetArgs([]string{dir})
	if err := again.Execute(); err == nil {
		t.Fatalf("second init error = nil, want already exists")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "feedbackbot dev") {
		t.Fatalf("version output = %q", out.String())
	}
}
