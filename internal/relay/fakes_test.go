package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

type sentCall struct {
	Method    string
	ChatID    int64
	MessageID int64
	Kind      telegramapi.MediaKind
	FileID    string
	Text      string
	Markup    *telegramapi.InlineKeyboardMarkup
	FromChat  int64
}

// fakeTransport records every call and hands out increasing message ids.
type fakeTransport struct {
	mu      sync.Mutex
	nextID  int64
	calls   []sentCall
	failOn  map[string]error
	deleted map[int64]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 1000, failOn: map[string]error{}, deleted: map[int64]bool{}}
}

func (f *fakeTransport) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = err
}

func (f *fakeTransport) record(c sentCall) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[c.Method]; err != nil {
		return 0, err
	}
	if c.MessageID == 0 {
		f.nextID++
		c.MessageID = f.nextID
	}
	f.calls = append(f.calls, c)
	return c.MessageID, nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, markup *telegramapi.InlineKeyboardMarkup) (*telegramapi.Message, error) {
	id, err := f.record(sentCall{Method: "sendMessage", ChatID: chatID, Text: text, Markup: markup})
	if err != nil {
		return nil, err
	}
	return &telegramapi.Message{MessageID: id, Chat: &telegramapi.Chat{ID: chatID}, Text: text}, nil
}

func (f *fakeTransport) SendMedia(_ context.Context, kind telegramapi.MediaKind, chatID int64, fileID, caption string, markup *telegramapi.InlineKeyboardMarkup) (*telegramapi.Message, error) {
	method, ok := kind.Method()
	if !ok {
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
	id, err := f.record(sentCall{Method: method, ChatID: chatID, Kind: kind, FileID: fileID, Text: caption, Markup: markup})
	if err != nil {
		return nil, err
	}
	return &telegramapi.Message{MessageID: id, Chat: &telegramapi.Chat{ID: chatID}, Caption: caption}, nil
}

func (f *fakeTransport) CopyMessage(_ context.Context, chatID, fromChatID, messageID int64, markup *telegramapi.InlineKeyboardMarkup) (int64, error) {
	return f.record(sentCall{Method: "copyMessage", ChatID: chatID, FromChat: fromChatID, Text: fmt.Sprint(messageID), Markup: markup})
}

func (f *fakeTransport) EditMessageText(_ context.Context, chatID, messageID int64, text string, markup *telegramapi.InlineKeyboardMarkup) error {
	_, err := f.record(sentCall{Method: "editMessageText", ChatID: chatID, MessageID: messageID, Text: text, Markup: markup})
	return err
}

func (f *fakeTransport) EditMessageCaption(_ context.Context, chatID, messageID int64, caption string, markup *telegramapi.InlineKeyboardMarkup) error {
	_, err := f.record(sentCall{Method: "editMessageCaption", ChatID: chatID, MessageID: messageID, Text: caption, Markup: markup})
	return err
}

func (f *fakeTransport) EditMessageReplyMarkup(_ context.Context, chatID, messageID int64, markup *telegramapi.InlineKeyboardMarkup) error {
	_, err := f.record(sentCall{Method: "editMessageReplyMarkup", ChatID: chatID, MessageID: messageID, Markup: markup})
	return err
}

func (f *fakeTransport) DeleteMessage(_ context.Context, chatID, messageID int64) error {
	if _, err := f.record(sentCall{Method: "deleteMessage", ChatID: chatID, MessageID: messageID}); err != nil {
		return err
	}
	f.mu.Lock()
	f.deleted[messageID] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) AnswerCallbackQuery(_ context.Context, callbackQueryID, text string) error {
	_, err := f.record(sentCall{Method: "answerCallbackQuery", Text: callbackQueryID})
	return err
}

func (f *fakeTransport) callsTo(chatID int64) []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentCall
	for _, c := range f.calls {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) callsNamed(method string) []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) lastTo(chatID int64) sentCall {
	calls := f.callsTo(chatID)
	if len(calls) == 0 {
		return sentCall{}
	}
	return calls[len(calls)-1]
}

func (f *fakeTransport) wasDeleted(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[id]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// memStore is an in-memory correlation.Store with fault injection.
type memStore struct {
	mu       sync.Mutex
	links    map[correlation.MessageRef]correlation.MessageLink
	pending  map[int64]correlation.PendingReply
	putErr   error
	clearErr error
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{
		links:   map[correlation.MessageRef]correlation.MessageLink{},
		pending: map[int64]correlation.PendingReply{},
	}
}

func (m *memStore) Put(_ context.Context, link correlation.MessageLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	link, err := correlation.ValidateLink(link, time.Now())
	if err != nil {
		return err
	}
	if _, ok := m.links[link.Ref]; ok {
		return correlation.ErrDuplicateLink
	}
	m.links[link.Ref] = link
	m.pending[link.Ref.UserID] = correlation.PendingReply{UserID: link.Ref.UserID, AdminMessageID: link.AdminMessageID, UpdatedAt: link.CreatedAt}
	return nil
}

func (m *memStore) LookupLink(_ context.Context, ref correlation.MessageRef) (correlation.MessageLink, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return correlation.MessageLink{}, false, m.getErr
	}
	link, ok := m.links[ref]
	return link, ok, nil
}

func (m *memStore) ClearPending(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.pending, userID)
	return nil
}

func (m *memStore) ListPending(_ context.Context) ([]correlation.PendingReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]correlation.PendingReply, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) linkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func (m *memStore) pendingFor(userID int64) (correlation.PendingReply, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[userID]
	return p, ok
}

var errBoom = errors.New("boom")
