package relay

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

func TestClassifyPriority(t *testing.T) {
	t.Parallel()

	file := func(id string) *telegramapi.File { return &telegramapi.File{FileID: id} }
	cases := []struct {
		name     string
		msg      telegramapi.Message
		wantKind ContentKind
		wantFile string
		wantBody string
	}{
		{
			name:     "text",
			msg:      telegramapi.Message{Text: "hello"},
			wantKind: KindText,
			wantBody: "hello",
		},
		{
			name: "caption and photo is image",
			msg: telegramapi.Message{
				Caption: "look",
				Photo:   []telegramapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
			},
			wantKind: KindImage,
			wantFile: "large",
			wantBody: "look",
		},
		{
			name:     "video before document",
			msg:      telegramapi.Message{Video: file("v"), Document: file("d")},
			wantKind: KindVideo,
			wantFile: "v",
		},
		{
			name:     "document",
			msg:      telegramapi.Message{Document: file("d"), Caption: "cv"},
			wantKind: KindDocument,
			wantFile: "d",
			wantBody: "cv",
		},
		{
			name:     "gif carries document and animation",
			msg:      telegramapi.Message{Document: file("d"), Animation: file("a")},
			wantKind: KindAnimation,
			wantFile: "a",
		},
		{
			name:     "audio",
			msg:      telegramapi.Message{Audio: file("au")},
			wantKind: KindAudio,
			wantFile: "au",
		},
		{
			name:     "voice",
			msg:      telegramapi.Message{Voice: file("vo")},
			wantKind: KindVoice,
			wantFile: "vo",
		},
		{
			name:     "sticker",
			msg:      telegramapi.Message{Sticker: &telegramapi.Sticker{FileID: "st"}},
			wantKind: KindSticker,
			wantFile: "st",
		},
		{
			name:     "video note",
			msg:      telegramapi.Message{VideoNote: file("vn")},
			wantKind: KindVideoNote,
			wantFile: "vn",
		},
		{
			name:     "contact",
			msg:      telegramapi.Message{Contact: json.RawMessage(`{"phone_number":"1"}`)},
			wantKind: KindOther,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Classify(&tc.msg)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Kind != tc.wantKind {
				t.Fatalf("Classify().Kind = %v, want %v", got.Kind, tc.wantKind)
			}
			if got.FileID != tc.wantFile {
				t.Fatalf("Classify().FileID = %q, want %q", got.FileID, tc.wantFile)
			}
			if got.Body != tc.wantBody {
				t.Fatalf("Classify().Body = %q, want %q", got.Body, tc.wantBody)
			}
		})
	}
}

func TestClassifyOtherAttachmentType(t *testing.T) {
	t.Parallel()

	msg := telegramapi.Message{
		Location: json.RawMessage(`{"latitude":1,"longitude":2}`),
		Venue:    json.RawMessage(`{"title":"cafe"}`),
	}
	got, err := Classify(&msg)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Kind != KindOther || got.MediaType != "venue" {
		t.Fatalf("Classify() = %+v, want other/venue", got)
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	t.Parallel()

	for _, msg := range []*telegramapi.Message{nil, {}, {Text: "   "}, {Photo: []telegramapi.PhotoSize{{}}}} {
		if _, err := Classify(msg); !errors.Is(err, ErrUnrecognizedContent) {
			t.Fatalf("Classify(%+v) error = %v, want ErrUnrecognizedContent", msg, err)
		}
	}
}

func TestContentKindMediaKind(t *testing.T) {
	t.Parallel()

	if _, ok := KindText.MediaKind(); ok {
		t.Fatalf("KindText should have no media kind")
	}
	if _, ok := KindOther.MediaKind(); ok {
		t.Fatalf("KindOther should have no media kind")
	}
	if got, ok := KindImage.MediaKind(); !ok || got != telegramapi.MediaPhoto {
		t.Fatalf("KindImage.MediaKind() = %q, %v", got, ok)
	}
	if KindVideoNote.String() != "video_note" {
		t.Fatalf("KindVideoNote.String() = %q", KindVideoNote.String())
	}
}
