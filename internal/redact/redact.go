// Package redact strips Bot API credentials from text that may end up in logs.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "[redacted]"

var (
	// Bot API URLs embed the token as /bot<id>:<secret>/method.
	botTokenRE = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)
	urlInText  = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

// BotToken replaces every bot<id>:<secret> sequence in s.
func BotToken(s string) string {
	return botTokenRE.ReplaceAllString(s, "bot"+placeholder)
}

// URL drops the host, redacts the token path segment and sensitive query values.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return BotToken(raw)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	path = BotToken(path)
	if len(u.Query()) > 0 {
		q := u.Query()
		for k := range q {
			if isSensitiveKey(k) {
				q.Set(k, placeholder)
			}
		}
		path += "?" + q.Encode()
	}
	return path
}

// Text rewrites every absolute URL in s with URL and redacts any bare token.
func Text(s string) string {
	s = urlInText.ReplaceAllStringFunc(s, URL)
	return BotToken(s)
}

// Error is Text(err.Error()), or "" for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Text(err.Error())
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(key)))
	switch {
	case k == "key", strings.Contains(k, "token"), strings.Contains(k, "secret"), strings.Contains(k, "apikey"):
		return true
	}
	return false
}
