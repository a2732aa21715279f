package relay

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/sessionstate"
)

func TestReplySessionArmReplaces(t *testing.T) {
	t.Parallel()

	s := NewReplySession()
	first := correlation.MessageRef{UserID: 1, MessageID: 10}
	second := correlation.MessageRef{UserID: 2, MessageID: 20}

	if prev, err := s.Arm(Target{Ref: first}); err != nil || prev != nil {
		t.Fatalf("Arm(first) prev=%v err=%v", prev, err)
	}
	prev, err := s.Arm(Target{Ref: second})
	if err != nil {
		t.Fatalf("Arm(second) error = %v", err)
	}
	if prev == nil || prev.Ref != first {
		t.Fatalf("Arm(second) previous = %+v, want first", prev)
	}
	got, ok := s.Target()
	if !ok || got.Ref != second {
		t.Fatalf("Target() = %+v ok=%v, want second", got, ok)
	}
}

func TestReplySessionDisarmIf(t *testing.T) {
	t.Parallel()

	s := NewReplySession()
	armed := correlation.MessageRef{UserID: 1, MessageID: 10}
	_, _ = s.Arm(Target{Ref: armed})

	if ok, _ := s.DisarmIf(correlation.MessageRef{UserID: 1, MessageID: 11}); ok {
		t.Fatalf("DisarmIf() cleared a different target")
	}
	if _, ok := s.Target(); !ok {
		t.Fatalf("target lost after mismatched DisarmIf()")
	}
	if ok, _ := s.DisarmIf(armed); !ok {
		t.Fatalf("DisarmIf() did not clear the armed target")
	}
	if _, ok := s.Target(); ok {
		t.Fatalf("Target() still armed after DisarmIf()")
	}
	if prev, _ := s.Disarm(); prev != nil {
		t.Fatalf("Disarm() on empty session returned %+v", prev)
	}
}

func TestReplySessionPersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	s, err := LoadReplySession(sessionstate.NewFile(path))
	if err != nil {
		t.Fatalf("LoadReplySession() error = %v", err)
	}
	armedAt := time.Date(2026, time.May, 2, 3, 4, 5, 0, time.UTC)
	target := Target{
		Ref:                 correlation.MessageRef{UserID: 42, MessageID: 7},
		AdminMessageID:      900,
		AdminMessageHasText: true,
		AdminMessageBody:    "header",
		ArmedAt:             armedAt,
	}
	if _, err := s.Arm(target); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}

	restored, err := LoadReplySession(sessionstate.NewFile(path))
	if err != nil {
		t.Fatalf("LoadReplySession() error = %v", err)
	}
	got, ok := restored.Target()
	if !ok {
		t.Fatalf("restored session has no target")
	}
	if got.Ref != target.Ref || got.AdminMessageID != 900 || !got.AdminMessageHasText || got.AdminMessageBody != "header" || !got.ArmedAt.Equal(armedAt) {
		t.Fatalf("restored target = %+v, want %+v", got, target)
	}

	if _, err := restored.Disarm(); err != nil {
		t.Fatalf("Disarm() error = %v", err)
	}
	again, err := LoadReplySession(sessionstate.NewFile(path))
	if err != nil {
		t.Fatalf("LoadReplySession() error = %v", err)
	}
	if _, ok := again.Target(); ok {
		t.Fatalf("disarmed target came back after restart")
	}
}

func TestReplySessionConcurrentArm(t *testing.T) {
	t.Parallel()

	s := NewReplySession()
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = s.Arm(Target{Ref: correlation.MessageRef{UserID: id, MessageID: id}})
		}(int64(i))
	}
	wg.Wait()
	if _, ok := s.Target(); !ok {
		t.Fatalf("expected exactly one armed target")
	}
}
