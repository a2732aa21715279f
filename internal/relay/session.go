package relay

import (
	"sync"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/sessionstate"
)

// Target is the message the administrator has armed for reply.
type Target struct {
	Ref correlation.MessageRef
	// AdminMessageID is the forwarded copy that was edited on arming; used by /cancel to restore the button.
	AdminMessageID int64
	// AdminMessageHasText records whether the copy is a text message (edit text) or media (edit caption).
	AdminMessageHasText bool
	// AdminMessageBody is the copy's text or caption before the armed marker was appended.
	AdminMessageBody string
	ArmedAt          time.Time
}

// ReplySession holds at most one armed target. Arming replaces any previous target.
type ReplySession struct {
	mu     sync.Mutex
	target *Target
	file   *sessionstate.File
}

type sessionSnapshot struct {
	UserID              int64     `json:"user_id"`
	MessageID           int64     `json:"message_id"`
	AdminMessageID      int64     `json:"admin_message_id,omitempty"`
	AdminMessageHasText bool      `json:"admin_message_has_text,omitempty"`
	AdminMessageBody    string    `json:"admin_message_body,omitempty"`
	ArmedAt             time.Time `json:"armed_at"`
}

// NewReplySession returns an in-memory session.
func NewReplySession() *ReplySession {
	return &ReplySession{}
}

// LoadReplySession restores the armed target from file. A nil or disabled file gives an in-memory session.
func LoadReplySession(file *sessionstate.File) (*ReplySession, error) {
	s := &ReplySession{file: file}
	var snap sessionSnapshot
	found, err := file.Load(&snap)
	if err != nil {
		return s, err
	}
	ref := correlation.MessageRef{UserID: snap.UserID, MessageID: snap.MessageID}
	if found && !ref.IsZero() {
		s.target = &Target{
			Ref:                 ref,
			AdminMessageID:      snap.AdminMessageID,
			AdminMessageHasText: snap.AdminMessageHasText,
			AdminMessageBody:    snap.AdminMessageBody,
			ArmedAt:             snap.ArmedAt,
		}
	}
	return s, nil
}

// Arm sets t as the only armed target and returns the one it replaced, if any.
func (s *ReplySession) Arm(t Target) (previous *Target, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.target
	armed := t
	s.target = &armed
	return previous, s.persistLocked()
}

// Target returns a copy of the armed target.
func (s *ReplySession) Target() (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return Target{}, false
	}
	return *s.target, true
}

// DisarmIf clears the session only while it still holds ref. It reports whether it did.
func (s *ReplySession) DisarmIf(ref correlation.MessageRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil || s.target.Ref != ref {
		return false, nil
	}
	s.target = nil
	return true, s.persistLocked()
}

// Disarm clears whatever target is armed and returns it.
func (s *ReplySession) Disarm() (*Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.target
	s.target = nil
	return previous, s.persistLocked()
}

func (s *ReplySession) persistLocked() error {
	if !s.file.Enabled() {
		return nil
	}
	if s.target == nil {
		return s.file.Remove()
	}
	return s.file.Save(sessionSnapshot{
		UserID:              s.target.Ref.UserID,
		MessageID:           s.target.Ref.MessageID,
		AdminMessageID:      s.target.AdminMessageID,
		AdminMessageHasText: s.target.AdminMessageHasText,
		AdminMessageBody:    s.target.AdminMessageBody,
		ArmedAt:             s.target.ArmedAt.UTC(),
	})
}
