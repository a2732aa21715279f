package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// Inbound forwards user messages to the administrator and records the correlation.
type Inbound struct {
	transport   Transport
	store       correlation.Store
	adminChatID int64
	limiter     *UserLimiter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Relay forwards msg with the sender header and reply button, stores the link and
// acknowledges the user. Nothing is stored unless the forward succeeded.
func (in *Inbound) Relay(ctx context.Context, msg *telegramapi.Message) (correlation.MessageLink, error) {
	ref := messageRef(msg)
	if ref.IsZero() {
		return correlation.MessageLink{}, fmt.Errorf("%w: message without chat or id", ErrUnrecognizedContent)
	}
	if !in.limiter.Allow(ref.UserID, in.now()) {
		return correlation.MessageLink{}, ErrRateLimited
	}
	content, err := Classify(msg)
	if err != nil {
		return correlation.MessageLink{}, err
	}

	sent, err := in.forward(ctx, msg, ref, content)
	if err != nil {
		in.cleanup(ctx, sent, "delete_partial_forward")
		return correlation.MessageLink{}, fmt.Errorf("%w: forward %s %s: %w", ErrTransport, content.Kind, ref, err)
	}

	link := correlation.MessageLink{
		Ref:            ref,
		AdminMessageID: sent[len(sent)-1],
		ContentKind:    content.Kind.String(),
		CreatedAt:      in.now(),
	}
	if err := in.store.Put(ctx, link); err != nil {
		// The forwarded copy would carry a button that resolves to nothing.
		in.cleanup(ctx, sent, "delete_orphan_forward")
		return correlation.MessageLink{}, fmt.Errorf("%w: put %s: %w", ErrStorage, ref, err)
	}

	if _, err := in.transport.SendMessage(ctx, ref.UserID, NoticeDelivered, nil); err != nil {
		in.logger.Warn("relay_inbound_ack_error", "user_id", ref.UserID, "message_id", ref.MessageID, "error", err.Error())
	}
	return link, nil
}

// forward returns the ids of every admin-chat message it sent; the last one carries the button.
func (in *Inbound) forward(ctx context.Context, msg *telegramapi.Message, ref correlation.MessageRef, c Content) ([]int64, error) {
	body := ForwardBody(msg.From, c)
	kb := replyKeyboard(ref)

	switch c.Kind {
	case KindText:
		return sendTextChunks(ctx, in.transport, in.adminChatID, body, kb)
	case KindImage, KindVideo, KindDocument, KindAudio, KindVoice, KindAnimation, KindSticker, KindVideoNote:
		// Stickers and video notes have no caption: bare attachment, then the header with the button.
		kind, _ := c.Kind.MediaKind()
		return sendMediaWithBody(ctx, in.transport, kind, in.adminChatID, c.FileID, body, kb)
	case KindOther:
		copied, err := in.transport.CopyMessage(ctx, in.adminChatID, ref.UserID, ref.MessageID, nil)
		if err != nil {
			return nil, err
		}
		ids, err := sendTextChunks(ctx, in.transport, in.adminChatID, body, kb)
		return append([]int64{copied}, ids...), err
	default:
		return nil, ErrUnrecognizedContent
	}
}

func (in *Inbound) cleanup(ctx context.Context, ids []int64, step string) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := in.transport.DeleteMessage(ctx, in.adminChatID, id); err != nil {
			in.metrics.ObserveCleanupFailure(step)
			in.logger.Warn("relay_cleanup_error", "step", step, "admin_message_id", id, "error", err.Error())
		}
	}
}

func messageRef(msg *telegramapi.Message) correlation.MessageRef {
	if msg == nil {
		return correlation.MessageRef{}
	}
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	} else if msg.From != nil {
		chatID = msg.From.ID
	}
	return correlation.MessageRef{UserID: chatID, MessageID: msg.MessageID}
}
