// Package telegramapi is a small Bot API client covering what the relay needs:
// long-poll and webhook setup, the send* family by file_id, edits, deletes and callback answers.
package telegramapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/redact"
)

const DefaultBaseURL = "https://api.telegram.org"

type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call posts reqBody as JSON to the given Bot API method and decodes "result" into out (if non-nil).
func (c *Client) call(ctx context.Context, method string, reqBody any, out any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("telegram %s: encode request: %w", method, err)
		}
		body = bytes.NewReader(b)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error carries the request URL, token included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact.URL(urlErr.URL)
		}
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var envelope apiResponse
	_ = json.Unmarshal(raw, &envelope)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.OK {
		return &RequestError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   envelope.ErrorCode,
			Description: envelope.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var out User
	if err := c.call(ctx, "getMe", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// AllowedUpdates are the update types the relay subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// GetUpdates long-polls for updates and returns them with the next offset to acknowledge.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	var updates []Update
	err := c.call(reqCtx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        secs,
		AllowedUpdates: AllowedUpdates,
	}, &updates)
	if err != nil {
		return nil, offset, err
	}

	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return fmt.Errorf("missing webhook url")
	}
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            webhookURL,
		SecretToken:    strings.TrimSpace(secretToken),
		AllowedUpdates: AllowedUpdates,
	}, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends plain text (no parse mode, so user content is never re-interpreted).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		text = "(empty)"
	}
	var out Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMedia re-sends an already uploaded file by file_id through the send* method matching kind.
// The caption is dropped for kinds that do not accept one.
func (c *Client) SendMedia(ctx context.Context, kind MediaKind, chatID int64, fileID, caption string, markup *InlineKeyboardMarkup) (*Message, error) {
	method, ok := kind.Method()
	if !ok {
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("telegram %s: missing file_id", method)
	}
	req := map[string]any{
		"chat_id":    chatID,
		string(kind): fileID,
	}
	if kind.SupportsCaption() && strings.TrimSpace(caption) != "" {
		req["caption"] = caption
	}
	if markup != nil {
		req["reply_markup"] = markup
	}
	var out Message
	if err := c.call(ctx, method, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type copyMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	FromChatID  int64                 `json:"from_chat_id"`
	MessageID   int64                 `json:"message_id"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type messageIDResult struct {
	MessageID int64 `json:"message_id"`
}

// CopyMessage copies any message (including attachments without a send* primitive) without a
// "forwarded from" header and returns the id of the copy.
func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64, markup *InlineKeyboardMarkup) (int64, error) {
	var out messageIDResult
	err := c.call(ctx, "copyMessage", copyMessageRequest{
		ChatID:      chatID,
		FromChatID:  fromChatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.MessageID, nil
}

type editMessageTextRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText replaces the text; a nil markup removes the inline keyboard.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	return c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	}, nil)
}

type editMessageCaptionRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Caption     string                `json:"caption"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageCaption replaces a media caption; a nil markup removes the inline keyboard.
func (c *Client) EditMessageCaption(ctx context.Context, chatID, messageID int64, caption string, markup *InlineKeyboardMarkup) error {
	return c.call(ctx, "editMessageCaption", editMessageCaptionRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Caption:     caption,
		ReplyMarkup: markup,
	}, nil)
}

type editMessageReplyMarkupRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	return c.call(ctx, "editMessageReplyMarkup", editMessageReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	if messageID == 0 {
		return fmt.Errorf("missing message_id")
	}
	return c.call(ctx, "deleteMessage", map[string]int64{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	if strings.TrimSpace(callbackQueryID) == "" {
		return fmt.Errorf("missing callback_query_id")
	}
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}, nil)
}
