package telegramapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// RequestError is returned when the Bot API answers with a non-2xx status or ok=false.
type RequestError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	prefix := "telegram"
	if m := strings.TrimSpace(e.Method); m != "" {
		prefix = "telegram " + m
	}
	desc := strings.TrimSpace(e.Description)
	if desc != "" {
		if e.StatusCode > 0 {
			return fmt.Sprintf("%s: http %d: %s", prefix, e.StatusCode, desc)
		}
		return prefix + ": " + desc
	}
	body := strings.TrimSpace(e.Body)
	if e.StatusCode > 0 {
		if body != "" {
			return fmt.Sprintf("%s: http %d: %s", prefix, e.StatusCode, body)
		}
		return fmt.Sprintf("%s: http %d", prefix, e.StatusCode)
	}
	if body != "" {
		return prefix + ": " + body
	}
	return prefix + ": request failed"
}

// IsPollTimeoutError reports whether err is the expected expiry of a long-poll request.
func IsPollTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

// IsMessageNotFound reports whether the API rejected an edit/delete because the message is gone.
func IsMessageNotFound(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	desc := strings.ToLower(reqErr.Description)
	return strings.Contains(desc, "message to delete not found") ||
		strings.Contains(desc, "message to edit not found")
}
