package relay

import (
	"context"

	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// Transport is the subset of the Bot API the relay calls. *telegramapi.Client implements it.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegramapi.InlineKeyboardMarkup) (*telegramapi.Message, error)
	SendMedia(ctx context.Context, kind telegramapi.MediaKind, chatID int64, fileID, caption string, markup *telegramapi.InlineKeyboardMarkup) (*telegramapi.Message, error)
	CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64, markup *telegramapi.InlineKeyboardMarkup) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegramapi.InlineKeyboardMarkup) error
	EditMessageCaption(ctx context.Context, chatID, messageID int64, caption string, markup *telegramapi.InlineKeyboardMarkup) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *telegramapi.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

var _ Transport = (*telegramapi.Client)(nil)

// sendTextChunks sends text split to the message limit; markup rides on the last chunk.
// It returns the ids of every message sent, last one carrying the markup.
func sendTextChunks(ctx context.Context, t Transport, chatID int64, text string, markup *telegramapi.InlineKeyboardMarkup) ([]int64, error) {
	chunks := SplitText(text, telegramapi.MaxTextLength)
	ids := make([]int64, 0, len(chunks))
	for i, chunk := range chunks {
		var kb *telegramapi.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			kb = markup
		}
		sent, err := t.SendMessage(ctx, chatID, chunk, kb)
		if err != nil {
			return ids, err
		}
		ids = append(ids, sentID(sent))
	}
	return ids, nil
}

// sendMediaWithBody sends a captioned attachment. A body over the caption limit is sent
// as text after the bare attachment.
func sendMediaWithBody(ctx context.Context, t Transport, kind telegramapi.MediaKind, chatID int64, fileID, body string, markup *telegramapi.InlineKeyboardMarkup) ([]int64, error) {
	if kind.SupportsCaption() && fitsCaption(body) {
		sent, err := t.SendMedia(ctx, kind, chatID, fileID, body, markup)
		if err != nil {
			return nil, err
		}
		return []int64{sentID(sent)}, nil
	}
	sent, err := t.SendMedia(ctx, kind, chatID, fileID, "", nil)
	if err != nil {
		return nil, err
	}
	ids := []int64{sentID(sent)}
	more, err := sendTextChunks(ctx, t, chatID, body, markup)
	return append(ids, more...), err
}

func sentID(m *telegramapi.Message) int64 {
	if m == nil {
		return 0
	}
	return m.MessageID
}
