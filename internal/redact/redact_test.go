package redact

import (
	"errors"
	"strings"
	"testing"
)

func TestURLRemovesHostAndToken(t *testing.T) {
	t.Parallel()

	got := URL("https://api.telegram.org/bot123456:AAH-secret_token/sendMessage")
	if strings.Contains(got, "api.telegram.org") {
		t.Fatalf("host should be removed, got %q", got)
	}
	if strings.Contains(got, "AAH-secret_token") {
		t.Fatalf("token should be redacted, got %q", got)
	}
	if got != "/bot[redacted]/sendMessage" {
		t.Fatalf("URL() = %q", got)
	}
}

func TestTextRedactsTransportErrors(t *testing.T) {
	t.Parallel()

	in := `Post "https://api.telegram.org/bot42:abc_DEF-1/getUpdates?secret_token=xyz": context deadline exceeded`
	out := Text(in)
	for _, leak := range []string{"api.telegram.org", "abc_DEF-1", "xyz"} {
		if strings.Contains(out, leak) {
			t.Fatalf("Text() leaked %q: %q", leak, out)
		}
	}
	if !strings.Contains(out, "/bot[redacted]/getUpdates?") || !strings.HasSuffix(out, "context deadline exceeded") {
		t.Fatalf("Text() = %q", out)
	}
}

func TestBotTokenOutsideURL(t *testing.T) {
	t.Parallel()

	if got := BotToken("token bot777:zzz in config"); got != "token bot[redacted] in config" {
		t.Fatalf("BotToken() = %q", got)
	}
	if got := BotToken("nothing here"); got != "nothing here" {
		t.Fatalf("BotToken() = %q", got)
	}
}

func TestError(t *testing.T) {
	t.Parallel()

	if got := Error(nil); got != "" {
		t.Fatalf("Error(nil) = %q", got)
	}
	if got := Error(errors.New("dial https://example.com/bot1:x/getMe failed")); got != "dial /bot[redacted]/getMe failed" {
		t.Fatalf("Error() = %q", got)
	}
}
