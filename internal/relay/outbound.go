package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// Outbound delivers the administrator's reply to the armed target's user.
type Outbound struct {
	transport   Transport
	store       correlation.Store
	session     *ReplySession
	adminChatID int64
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Reply resolves target, delivers msg and then retires the target, the pending row and
// the forwarded copy. On any error before delivery succeeds the target stays armed.
func (o *Outbound) Reply(ctx context.Context, target Target, msg *telegramapi.Message) (correlation.MessageLink, error) {
	if target.Ref.IsZero() {
		return correlation.MessageLink{}, ErrNoActiveTarget
	}
	link, found, err := o.store.LookupLink(ctx, target.Ref)
	if err != nil {
		return correlation.MessageLink{}, fmt.Errorf("%w: lookup %s: %w", ErrStorage, target.Ref, err)
	}
	if !found {
		return correlation.MessageLink{}, fmt.Errorf("%w: %s", ErrCorrelationNotFound, target.Ref)
	}
	content, err := Classify(msg)
	if err != nil {
		return link, err
	}
	if err := o.deliver(ctx, link.Ref.UserID, msg, content); err != nil {
		return link, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	userID := link.Ref.UserID
	if _, err := o.session.DisarmIf(target.Ref); err != nil {
		o.logger.Warn("relay_session_persist_error", "user_id", userID, "error", err.Error())
	}
	if err := o.store.ClearPending(ctx, userID); err != nil {
		o.metrics.ObserveCleanupFailure("clear_pending")
		o.logger.Warn("relay_clear_pending_error", "user_id", userID, "error", err.Error())
	}
	if err := o.transport.DeleteMessage(ctx, o.adminChatID, link.AdminMessageID); err != nil {
		o.metrics.ObserveCleanupFailure("delete_forwarded")
		o.logger.Warn("relay_delete_forwarded_error", "user_id", userID, "admin_message_id", link.AdminMessageID, "error", err.Error())
	}
	if _, err := o.transport.SendMessage(ctx, o.adminChatID, NoticeReplySent, nil); err != nil {
		o.logger.Warn("relay_outbound_ack_error", "user_id", userID, "error", err.Error())
	}
	return link, nil
}

func (o *Outbound) deliver(ctx context.Context, userID int64, msg *telegramapi.Message, c Content) error {
	switch c.Kind {
	case KindText:
		_, err := sendTextChunks(ctx, o.transport, userID, ReplyBody(c.Body), nil)
		return err
	case KindImage, KindVideo, KindDocument, KindAudio, KindVoice, KindAnimation:
		kind, _ := c.Kind.MediaKind()
		_, err := sendMediaWithBody(ctx, o.transport, kind, userID, c.FileID, ReplyBody(c.Body), nil)
		return err
	case KindSticker, KindVideoNote:
		kind, _ := c.Kind.MediaKind()
		_, err := o.transport.SendMedia(ctx, kind, userID, c.FileID, "", nil)
		return err
	case KindOther:
		_, err := o.transport.CopyMessage(ctx, userID, o.adminChatID, msg.MessageID, nil)
		return err
	default:
		return ErrUnrecognizedContent
	}
}
