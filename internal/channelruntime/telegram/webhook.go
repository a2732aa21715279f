package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Abdurakhi/tg-feedback-bot/internal/channelruntime/worker"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

const (
	secretTokenHeader  = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBodySize = 1 << 20
)

type webhookHandler struct {
	logger  *slog.Logger
	secret  string
	updates *worker.Serial[telegramapi.Update]
	metrics *metrics.Metrics
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkSecret(r) {
		h.logger.Warn("telegram_webhook_unauthorized", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var upd telegramapi.Update
	body := io.LimitReader(r.Body, maxWebhookBodySize)
	if err := json.NewDecoder(body).Decode(&upd); err != nil {
		h.logger.Warn("telegram_webhook_decode_error", "error", err.Error())
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.metrics.ObserveUpdate(ModeWebhook)
	// Acknowledge once queued; Telegram redelivers on non-2xx.
	if err := h.updates.TryEnqueue(upd); err != nil {
		h.logger.Warn("telegram_webhook_enqueue_error", "update_id", upd.UpdateID, "error", err.Error())
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *webhookHandler) checkSecret(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get(secretTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
