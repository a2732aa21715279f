package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

const (
	ReplyButtonText = "✉️ Ответить"
	ReplyPrefix     = "📨 Ответ от администратора:"
	ArmedMarker     = "\n\n🟢 ОТВЕТ АКТИВИРОВАН! Введите ваш ответ:"

	NoticeDelivered     = "✅ Сообщение доставлено администратору!"
	NoticeDeliveryError = "⚠️ Произошла ошибка при отправке сообщения."
	NoticeUnsupported   = "⚠️ Этот тип сообщений не поддерживается."
	NoticeRateLimited   = "⏳ Слишком много сообщений, попробуйте позже."
	NoticeReplySent     = "✅ Ответ успешно отправлен пользователю!"
	NoticeUserNotFound  = "⚠️ Ошибка: пользователь не найден."
	NoticeNoTarget      = "⚠️ Нет активного получателя. Нажмите «✉️ Ответить» под сообщением пользователя."
	NoticeCancelled     = "❎ Режим ответа отключён."
	NoticeNothingArmed  = "ℹ️ Режим ответа не активен."
	NoticeNoPending     = "📭 Нет пользователей, ожидающих ответа."

	AdminHelp = "🛠 Режим администратора\n\n" +
		"Нажмите «✉️ Ответить» под сообщением пользователя, затем отправьте ответ любым сообщением.\n\n" +
		"/pending — пользователи, ожидающие ответа\n" +
		"/cancel — отключить режим ответа"

	replyTokenPrefix = "reply:"
	placeholder      = "-"
)

// WelcomeText is the greeting shown to users on /start and /help.
func WelcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "друг"
	}
	return "Привет, " + name + "!\n" +
		"Отправь сюда свои предложения, вопросы или сообщения. " +
		"Я анонимно передам их администратору.\n\n" +
		"Можешь прикреплять текст, фото, видео, документы и другие файлы."
}

// ErrorNotice renders a fault for the administrator.
func ErrorNotice(err error) string {
	return "⚠️ Ошибка: " + err.Error()
}

// EncodeReplyToken builds the callback data carried by the reply button.
func EncodeReplyToken(ref correlation.MessageRef) string {
	return replyTokenPrefix + ref.String()
}

// DecodeReplyToken is the inverse of EncodeReplyToken.
func DecodeReplyToken(data string) (correlation.MessageRef, error) {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, replyTokenPrefix) {
		return correlation.MessageRef{}, fmt.Errorf("not a reply token: %q", data)
	}
	return correlation.ParseMessageRef(strings.TrimPrefix(data, replyTokenPrefix))
}

func replyKeyboard(ref correlation.MessageRef) *telegramapi.InlineKeyboardMarkup {
	return telegramapi.SingleButton(ReplyButtonText, EncodeReplyToken(ref))
}

// SenderHeader renders the fixed-shape sender block. Absent fields become placeholders.
func SenderHeader(u *telegramapi.User) string {
	var user telegramapi.User
	if u != nil {
		user = *u
	}
	handle := "отсутствует"
	if username := strings.TrimSpace(user.Username); username != "" {
		handle = "@" + username
	}
	return "👤 Отправитель:\n" +
		fmt.Sprintf("ID: %d\n", user.ID) +
		"Имя: " + orPlaceholder(user.FirstName) + "\n" +
		"Фамилия: " + orPlaceholder(user.LastName) + "\n" +
		"Юзернейм: " + handle + "\n" +
		"Язык: " + orPlaceholder(user.LanguageCode)
}

// ContentSection renders the "📩 ..." part that follows the sender header.
func ContentSection(c Content) string {
	switch c.Kind {
	case KindText:
		return "📩 Сообщение:\n" + orPlaceholder(c.Body)
	case KindImage:
		return "📩 Подпись к фото:\n" + orPlaceholder(c.Body)
	case KindVideo:
		return "📩 Подпись к видео:\n" + orPlaceholder(c.Body)
	case KindDocument:
		return "📩 Подпись к документу:\n" + orPlaceholder(c.Body)
	case KindAudio:
		return "📩 Подпись к аудио:\n" + orPlaceholder(c.Body)
	case KindVoice:
		if strings.TrimSpace(c.Body) == "" {
			return "📩 Голосовое сообщение"
		}
		return "📩 Голосовое сообщение:\n" + c.Body
	case KindSticker:
		return "📩 Пользователь отправил стикер"
	case KindVideoNote:
		return "📩 Пользователь отправил видео-заметку"
	case KindAnimation:
		return "📩 Подпись к GIF:\n" + orPlaceholder(c.Body)
	case KindOther:
		section := "📩 Сообщение с файлом\nТип: " + orPlaceholder(c.MediaType)
		if strings.TrimSpace(c.Body) != "" {
			section += "\n" + c.Body
		}
		return section
	default:
		return "📩 " + c.Kind.String()
	}
}

// ForwardBody is the full text the administrator sees next to a forwarded message.
func ForwardBody(u *telegramapi.User, c Content) string {
	return SenderHeader(u) + "\n\n" + ContentSection(c)
}

// ReplyBody wraps the administrator's text for delivery to the user.
func ReplyBody(text string) string {
	if strings.TrimSpace(text) == "" {
		return ReplyPrefix
	}
	return ReplyPrefix + "\n\n" + text
}

// SplitText cuts s into chunks of at most limit runes, preferring line breaks.
func SplitText(s string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var chunks []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func fitsCaption(s string) bool {
	return utf8.RuneCountInString(s) <= telegramapi.MaxCaptionLength
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
