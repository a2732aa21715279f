package telegramapi

// MediaKind names a send* primitive by the request field that carries the file_id.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaSticker   MediaKind = "sticker"
	MediaVideoNote MediaKind = "video_note"
	MediaAnimation MediaKind = "animation"
)

// Caption and text limits of the Bot API, in characters.
const (
	MaxCaptionLength = 1024
	MaxTextLength    = 4096
)

var mediaMethods = map[MediaKind]string{
	MediaPhoto:     "sendPhoto",
	MediaVideo:     "sendVideo",
	MediaDocument:  "sendDocument",
	MediaAudio:     "sendAudio",
	MediaVoice:     "sendVoice",
	MediaSticker:   "sendSticker",
	MediaVideoNote: "sendVideoNote",
	MediaAnimation: "sendAnimation",
}

func (k MediaKind) Method() (string, bool) {
	m, ok := mediaMethods[k]
	return m, ok
}

// SupportsCaption is false for stickers and video notes.
func (k MediaKind) SupportsCaption() bool {
	switch k {
	case MediaSticker, MediaVideoNote:
		return false
	default:
		_, ok := mediaMethods[k]
		return ok
	}
}
