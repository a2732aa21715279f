package telegramapi

import (
	"encoding/json"
	"strings"
)

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	EditedMessage *Message       `json:"edited_message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64    `json:"message_id"`
	Date      int64    `json:"date,omitempty"`
	Chat      *Chat    `json:"chat,omitempty"`
	From      *User    `json:"from,omitempty"`
	Text      string   `json:"text,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`

	// File-bearing attachments.
	Photo     []PhotoSize `json:"photo,omitempty"`
	Video     *File       `json:"video,omitempty"`
	Document  *File       `json:"document,omitempty"`
	Audio     *File       `json:"audio,omitempty"`
	Voice     *File       `json:"voice,omitempty"`
	Sticker   *Sticker    `json:"sticker,omitempty"`
	VideoNote *File       `json:"video_note,omitempty"`
	Animation *File       `json:"animation,omitempty"`

	// Attachments without a dedicated send primitive; only their presence matters.
	Contact  json.RawMessage `json:"contact,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	Venue    json.RawMessage `json:"venue,omitempty"`
	Poll     json.RawMessage `json:"poll,omitempty"`
	Dice     json.RawMessage `json:"dice,omitempty"`
	Story    json.RawMessage `json:"story,omitempty"`

	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot,omitempty"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// File covers the common fields of video, document, audio, voice, video_note and animation.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	Duration     int    `json:"duration,omitempty"`
}

type Sticker struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	Emoji        string `json:"emoji,omitempty"`
	SetName      string `json:"set_name,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

// SingleButton builds a one-row, one-button keyboard.
func SingleButton(text, callbackData string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: text, CallbackData: callbackData},
		}},
	}
}

// Command returns the bot command ("/start" → "start") at the head of the text, if any.
// A "@botname" suffix is dropped.
func (m *Message) Command() string {
	if m == nil {
		return ""
	}
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	head := strings.Fields(text)[0]
	head = strings.TrimPrefix(head, "/")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	return strings.ToLower(head)
}

// LargestPhoto returns the last (largest) photo size; Telegram orders sizes ascending.
func (m *Message) LargestPhoto() (PhotoSize, bool) {
	if m == nil || len(m.Photo) == 0 {
		return PhotoSize{}, false
	}
	return m.Photo[len(m.Photo)-1], true
}

// TextOrCaption returns the message text, falling back to the media caption.
func (m *Message) TextOrCaption() string {
	if m == nil {
		return ""
	}
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.Caption
}

func DisplayName(u *User) string {
	if u == nil {
		return ""
	}
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	username := strings.TrimSpace(u.Username)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	case username != "":
		return "@" + username
	default:
		return ""
	}
}
