package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	ModePoll    = "poll"
	ModeWebhook = "webhook"
)

type RunOptions struct {
	BotToken      string
	PollTimeout   time.Duration
	QueueSize     int
	HealthListen  string
	WebhookHost   string
	WebhookListen string
	WebhookPort   int
	WebhookPath   string
	WebhookSecret string
}

type runtimeLoopOptions struct {
	BotToken      string
	PollTimeout   time.Duration
	QueueSize     int
	HealthListen  string
	WebhookHost   string
	WebhookListen string
	WebhookPort   int
	WebhookPath   string
	WebhookSecret string
}

func resolveRuntimeLoopOptionsFromRunOptions(opts RunOptions) runtimeLoopOptions {
	out := runtimeLoopOptions{
		BotToken:      strings.TrimSpace(opts.BotToken),
		PollTimeout:   opts.PollTimeout,
		QueueSize:     opts.QueueSize,
		HealthListen:  strings.TrimSpace(opts.HealthListen),
		WebhookHost:   strings.TrimSpace(opts.WebhookHost),
		WebhookListen: strings.TrimSpace(opts.WebhookListen),
		WebhookPort:   opts.WebhookPort,
		WebhookPath:   strings.TrimSpace(opts.WebhookPath),
		WebhookSecret: strings.TrimSpace(opts.WebhookSecret),
	}
	return normalizeRuntimeLoopOptions(out)
}

func normalizeRuntimeLoopOptions(opts runtimeLoopOptions) runtimeLoopOptions {
	opts.BotToken = strings.TrimSpace(opts.BotToken)
	opts.HealthListen = strings.TrimSpace(opts.HealthListen)
	opts.WebhookHost = normalizeWebhookHost(opts.WebhookHost)
	opts.WebhookListen = strings.TrimSpace(opts.WebhookListen)
	opts.WebhookPath = strings.Trim(strings.TrimSpace(opts.WebhookPath), "/")

	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.WebhookListen == "" {
		opts.WebhookListen = "0.0.0.0"
	}
	if opts.WebhookPort <= 0 {
		opts.WebhookPort = 5000
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = opts.BotToken
	}
	return opts
}

// normalizeWebhookHost accepts "bot.example.com", "https://bot.example.com/" and similar.
func normalizeWebhookHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

func (o runtimeLoopOptions) Mode() string {
	if o.WebhookHost != "" {
		return ModeWebhook
	}
	return ModePoll
}

func (o runtimeLoopOptions) webhookURL() string {
	return "https://" + o.WebhookHost + "/" + o.WebhookPath
}

func (o runtimeLoopOptions) webhookRoute() string {
	return "/" + o.WebhookPath
}

func (o runtimeLoopOptions) webhookAddr() string {
	return net.JoinHostPort(o.WebhookListen, strconv.Itoa(o.WebhookPort))
}
