package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// Activation arms the reply target chosen with the reply button. It never touches the store.
type Activation struct {
	transport   Transport
	session     *ReplySession
	adminChatID int64
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Activate decodes the button payload, arms the session and marks the forwarded copy.
// The callback query is answered in every case so the client stops spinning.
func (a *Activation) Activate(ctx context.Context, q *telegramapi.CallbackQuery) (Target, error) {
	if err := a.transport.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		a.logger.Warn("relay_callback_answer_error", "callback_id", q.ID, "error", err.Error())
	}
	ref, err := DecodeReplyToken(q.Data)
	if err != nil {
		return Target{}, err
	}

	target := Target{Ref: ref, ArmedAt: a.now().UTC()}
	if q.Message != nil {
		target.AdminMessageID = q.Message.MessageID
		target.AdminMessageHasText = q.Message.Text != ""
		target.AdminMessageBody = q.Message.TextOrCaption()
	}
	previous, err := a.session.Arm(target)
	if err != nil {
		// The target is armed in memory; only the restart copy is stale.
		a.logger.Warn("relay_session_persist_error", "user_id", ref.UserID, "message_id", ref.MessageID, "error", err.Error())
	}
	if previous != nil && previous.Ref != ref {
		a.logger.Info("relay_target_replaced", "previous_user_id", previous.Ref.UserID, "previous_message_id", previous.Ref.MessageID)
	}
	a.metrics.ObserveActivation()

	if target.AdminMessageID != 0 {
		if err := a.markArmed(ctx, target); err != nil {
			a.logger.Warn("relay_mark_armed_error", "admin_message_id", target.AdminMessageID, "error", err.Error())
		}
	}
	return target, nil
}

// markArmed appends the armed marker and drops the keyboard.
func (a *Activation) markArmed(ctx context.Context, t Target) error {
	body := t.AdminMessageBody + ArmedMarker
	if t.AdminMessageHasText {
		if utf8.RuneCountInString(body) > telegramapi.MaxTextLength {
			return a.transport.EditMessageReplyMarkup(ctx, a.adminChatID, t.AdminMessageID, nil)
		}
		return a.transport.EditMessageText(ctx, a.adminChatID, t.AdminMessageID, body, nil)
	}
	if !fitsCaption(body) {
		return a.transport.EditMessageReplyMarkup(ctx, a.adminChatID, t.AdminMessageID, nil)
	}
	return a.transport.EditMessageCaption(ctx, a.adminChatID, t.AdminMessageID, body, nil)
}

// restore puts the original body and the reply button back on a disarmed copy.
func (a *Activation) restore(ctx context.Context, t Target) error {
	if t.AdminMessageID == 0 {
		return fmt.Errorf("target %s has no forwarded copy", t.Ref)
	}
	kb := replyKeyboard(t.Ref)
	if t.AdminMessageBody == "" {
		return a.transport.EditMessageReplyMarkup(ctx, a.adminChatID, t.AdminMessageID, kb)
	}
	if t.AdminMessageHasText {
		return a.transport.EditMessageText(ctx, a.adminChatID, t.AdminMessageID, t.AdminMessageBody, kb)
	}
	return a.transport.EditMessageCaption(ctx, a.adminChatID, t.AdminMessageID, t.AdminMessageBody, kb)
}
