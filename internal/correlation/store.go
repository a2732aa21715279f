// Package correlation defines the durable mapping between a user's original message and the
// copy forwarded to the administrator, plus the per-user pending-reply slot.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDuplicateLink is returned by Put when a link for the same MessageRef already exists.
	ErrDuplicateLink = errors.New("correlation: link already exists")
	// ErrInvalidLink is returned by Put for links missing a user, message or admin message id.
	ErrInvalidLink = errors.New("correlation: invalid link")
)

// MessageRef identifies one message in a user's private chat with the bot.
// Telegram message ids are only unique within a chat, so the chat (= user) id is part of the key.
type MessageRef struct {
	UserID    int64
	MessageID int64
}

func (r MessageRef) IsZero() bool {
	return r.UserID == 0 || r.MessageID == 0
}

func (r MessageRef) String() string {
	return strconv.FormatInt(r.UserID, 10) + ":" + strconv.FormatInt(r.MessageID, 10)
}

// ParseMessageRef parses the "<user>:<message>" form produced by MessageRef.String.
func ParseMessageRef(s string) (MessageRef, error) {
	userRaw, msgRaw, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return MessageRef{}, fmt.Errorf("message ref %q: missing separator", s)
	}
	userID, err := strconv.ParseInt(userRaw, 10, 64)
	if err != nil {
		return MessageRef{}, fmt.Errorf("message ref %q: user id: %w", s, err)
	}
	msgID, err := strconv.ParseInt(msgRaw, 10, 64)
	if err != nil {
		return MessageRef{}, fmt.Errorf("message ref %q: message id: %w", s, err)
	}
	ref := MessageRef{UserID: userID, MessageID: msgID}
	if ref.IsZero() {
		return MessageRef{}, fmt.Errorf("message ref %q: zero id", s)
	}
	return ref, nil
}

// MessageLink is written once per forwarded user message and never updated.
type MessageLink struct {
	Ref            MessageRef
	AdminMessageID int64
	ContentKind    string
	CreatedAt      time.Time
}

// PendingReply marks that the administrator owes the user a reply to their latest message.
type PendingReply struct {
	UserID         int64
	AdminMessageID int64
	UpdatedAt      time.Time
}

// Store is implemented by every backend. All methods are durable before they return.
type Store interface {
	// Put inserts link and upserts the PendingReply of link.Ref.UserID as one atomic unit.
	Put(ctx context.Context, link MessageLink) error
	// LookupLink returns found=false with a nil error when no link exists for ref.
	LookupLink(ctx context.Context, ref MessageRef) (MessageLink, bool, error)
	// ClearPending deletes the user's PendingReply; a missing row is not an error.
	ClearPending(ctx context.Context, userID int64) error
	// ListPending returns all outstanding pending replies ordered by user id.
	ListPending(ctx context.Context) ([]PendingReply, error)
	Close() error
}

// ValidateLink normalizes a link before it is written.
func ValidateLink(link MessageLink, now time.Time) (MessageLink, error) {
	if link.Ref.IsZero() {
		return MessageLink{}, fmt.Errorf("%w: missing user or message id", ErrInvalidLink)
	}
	if link.AdminMessageID == 0 {
		return MessageLink{}, fmt.Errorf("%w: missing admin message id", ErrInvalidLink)
	}
	link.ContentKind = strings.TrimSpace(link.ContentKind)
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.CreatedAt = link.CreatedAt.UTC()
	return link, nil
}
