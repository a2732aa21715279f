package relay

import (
	"fmt"
	"strings"

	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

// ContentKind is the closed set of message shapes the relay dispatches on.
// The declaration order is the match priority used by Classify.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindText
	KindImage
	KindVideo
	KindDocument
	KindAudio
	KindVoice
	KindSticker
	KindVideoNote
	KindAnimation
	KindOther
)

var kindNames = map[ContentKind]string{
	KindUnknown:   "unknown",
	KindText:      "text",
	KindImage:     "image",
	KindVideo:     "video",
	KindDocument:  "document",
	KindAudio:     "audio",
	KindVoice:     "voice",
	KindSticker:   "sticker",
	KindVideoNote: "video_note",
	KindAnimation: "animation",
	KindOther:     "other",
}

func (k ContentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MediaKind maps a file-bearing kind to its send primitive. Text and other attachments have none.
func (k ContentKind) MediaKind() (telegramapi.MediaKind, bool) {
	switch k {
	case KindImage:
		return telegramapi.MediaPhoto, true
	case KindVideo:
		return telegramapi.MediaVideo, true
	case KindDocument:
		return telegramapi.MediaDocument, true
	case KindAudio:
		return telegramapi.MediaAudio, true
	case KindVoice:
		return telegramapi.MediaVoice, true
	case KindSticker:
		return telegramapi.MediaSticker, true
	case KindVideoNote:
		return telegramapi.MediaVideoNote, true
	case KindAnimation:
		return telegramapi.MediaAnimation, true
	default:
		return "", false
	}
}

// Content is one classified message.
type Content struct {
	Kind ContentKind
	// FileID is set for every kind that has a send primitive.
	FileID string
	// Body is the text for KindText and the caption otherwise (may be empty).
	Body string
	// MediaType names the attachment for KindOther (contact, location, ...).
	MediaType string
}

// Classify picks exactly one ContentKind for msg, first match wins:
// text, image, video, document, audio, voice, sticker, video note, animation, other attachment.
func Classify(msg *telegramapi.Message) (Content, error) {
	if msg == nil {
		return Content{}, ErrUnrecognizedContent
	}
	if strings.TrimSpace(msg.Text) != "" {
		return Content{Kind: KindText, Body: msg.Text}, nil
	}
	caption := msg.Caption
	if photo, ok := msg.LargestPhoto(); ok && photo.FileID != "" {
		return Content{Kind: KindImage, FileID: photo.FileID, Body: caption}, nil
	}
	if hasFile(msg.Video) {
		return Content{Kind: KindVideo, FileID: msg.Video.FileID, Body: caption}, nil
	}
	// Telegram fills document alongside animation for GIFs; the animation wins.
	if hasFile(msg.Document) && !hasFile(msg.Animation) {
		return Content{Kind: KindDocument, FileID: msg.Document.FileID, Body: caption}, nil
	}
	if hasFile(msg.Audio) {
		return Content{Kind: KindAudio, FileID: msg.Audio.FileID, Body: caption}, nil
	}
	if hasFile(msg.Voice) {
		return Content{Kind: KindVoice, FileID: msg.Voice.FileID, Body: caption}, nil
	}
	if msg.Sticker != nil && msg.Sticker.FileID != "" {
		return Content{Kind: KindSticker, FileID: msg.Sticker.FileID}, nil
	}
	if hasFile(msg.VideoNote) {
		return Content{Kind: KindVideoNote, FileID: msg.VideoNote.FileID}, nil
	}
	if hasFile(msg.Animation) {
		return Content{Kind: KindAnimation, FileID: msg.Animation.FileID, Body: caption}, nil
	}
	if mediaType := otherAttachment(msg); mediaType != "" {
		return Content{Kind: KindOther, Body: caption, MediaType: mediaType}, nil
	}
	return Content{}, ErrUnrecognizedContent
}

func hasFile(f *telegramapi.File) bool {
	return f != nil && strings.TrimSpace(f.FileID) != ""
}

func otherAttachment(msg *telegramapi.Message) string {
	switch {
	case len(msg.Contact) > 0:
		return "contact"
	case len(msg.Location) > 0 && len(msg.Venue) > 0:
		return "venue"
	case len(msg.Location) > 0:
		return "location"
	case len(msg.Venue) > 0:
		return "venue"
	case len(msg.Poll) > 0:
		return "poll"
	case len(msg.Dice) > 0:
		return "dice"
	case len(msg.Story) > 0:
		return "story"
	default:
		return ""
	}
}
