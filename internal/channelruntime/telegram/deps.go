package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// BotAPI is the part of the Bot API the delivery loop itself needs.
type BotAPI interface {
	GetMe(ctx context.Context) (*telegramapi.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramapi.Update, int64, error)
	SetWebhook(ctx context.Context, url, secretToken string) error
	DeleteWebhook(ctx context.Context) error
}

// UpdateHandler processes one update. It is called from a single worker goroutine.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd telegramapi.Update)
}

type Dependencies struct {
	Logger  func() (*slog.Logger, error)
	API     BotAPI
	Handler UpdateHandler
	Metrics *metrics.Metrics
}

func loggerFromDeps(d Dependencies) (*slog.Logger, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("Logger dependency missing")
	}
	return d.Logger()
}

func apiFromDeps(d Dependencies) (BotAPI, error) {
	if d.API == nil {
		return nil, fmt.Errorf("API dependency missing")
	}
	return d.API, nil
}

func handlerFromDeps(d Dependencies) (UpdateHandler, error) {
	if d.Handler == nil {
		return nil, fmt.Errorf("Handler dependency missing")
	}
	return d.Handler, nil
}
