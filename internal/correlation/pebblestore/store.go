// Package pebblestore keeps correlation state in an embedded Pebble key-value store.
package pebblestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
)

var (
	linkPrefix    = []byte("link/")
	pendingPrefix = []byte("pending/")
)

type Store struct {
	db  *pebble.DB
	now func() time.Time

	// writeMu serializes the existence check and batch commit in Put.
	writeMu sync.Mutex
}

var _ correlation.Store = (*Store)(nil)

type linkRecord struct {
	UserID         int64     `json:"user_id"`
	UserMessageID  int64     `json:"user_message_id"`
	AdminMessageID int64     `json:"admin_message_id"`
	ContentKind    string    `json:"content_kind,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type pendingRecord struct {
	UserID         int64     `json:"user_id"`
	AdminMessageID int64     `json:"admin_message_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("missing pebble dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(_ context.Context, link correlation.MessageLink) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	link, err := correlation.ValidateLink(link, s.now())
	if err != nil {
		return err
	}

	linkValue, err := json.Marshal(linkRecord{
		UserID:         link.Ref.UserID,
		UserMessageID:  link.Ref.MessageID,
		AdminMessageID: link.AdminMessageID,
		ContentKind:    link.ContentKind,
		CreatedAt:      link.CreatedAt,
	})
	if err != nil {
		return err
	}
	pendingValue, err := json.Marshal(pendingRecord{
		UserID:         link.Ref.UserID,
		AdminMessageID: link.AdminMessageID,
		UpdatedAt:      link.CreatedAt,
	})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	key := linkKey(link.Ref)
	_, closer, err := s.db.Get(key)
	switch {
	case err == nil:
		_ = closer.Close()
		return fmt.Errorf("%w: %s", correlation.ErrDuplicateLink, link.Ref)
	case !errors.Is(err, pebble.ErrNotFound):
		return fmt.Errorf("check message link: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, linkValue, nil); err != nil {
		return err
	}
	if err := batch.Set(pendingKey(link.Ref.UserID), pendingValue, nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit message link: %w", err)
	}
	return nil
}

func (s *Store) LookupLink(_ context.Context, ref correlation.MessageRef) (correlation.MessageLink, bool, error) {
	if s == nil || s.db == nil {
		return correlation.MessageLink{}, false, fmt.Errorf("correlation store is not configured")
	}
	v, closer, err := s.db.Get(linkKey(ref))
	if errors.Is(err, pebble.ErrNotFound) {
		return correlation.MessageLink{}, false, nil
	}
	if err != nil {
		return correlation.MessageLink{}, false, fmt.Errorf("lookup message link: %w", err)
	}
	defer closer.Close()

	var rec linkRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return correlation.MessageLink{}, false, fmt.Errorf("decode message link %s: %w", ref, err)
	}
	return correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: rec.UserID, MessageID: rec.UserMessageID},
		AdminMessageID: rec.AdminMessageID,
		ContentKind:    rec.ContentKind,
		CreatedAt:      rec.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) ClearPending(_ context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	if err := s.db.Delete(pendingKey(userID), pebble.Sync); err != nil {
		return fmt.Errorf("clear pending reply: %w", err)
	}
	return nil
}

func (s *Store) ListPending(_ context.Context) ([]correlation.PendingReply, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("correlation store is not configured")
	}
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: pendingPrefix,
		UpperBound: prefixUpperBound(pendingPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []correlation.PendingReply
	for ok := it.First(); ok; ok = it.Next() {
		var rec pendingRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode pending reply: %w", err)
		}
		out = append(out, correlation.PendingReply{
			UserID:         rec.UserID,
			AdminMessageID: rec.AdminMessageID,
			UpdatedAt:      rec.UpdatedAt.UTC(),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ids are encoded big-endian so iteration order matches numeric order for positive ids.
func linkKey(ref correlation.MessageRef) []byte {
	key := make([]byte, 0, len(linkPrefix)+16)
	key = append(key, linkPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(ref.UserID))
	key = binary.BigEndian.AppendUint64(key, uint64(ref.MessageID))
	return key
}

func pendingKey(userID int64) []byte {
	key := make([]byte, 0, len(pendingPrefix)+8)
	key = append(key, pendingPrefix...)
	return binary.BigEndian.AppendUint64(key, uint64(userID))
}

func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
