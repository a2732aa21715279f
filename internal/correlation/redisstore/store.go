// Package redisstore keeps correlation state in Redis so several bot processes can share it.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
)

const (
	DefaultKeyPrefix = "feedbackbot:"
	maxPutAttempts   = 3
)

type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ correlation.Store = (*Store)(nil)

type linkRecord struct {
	AdminMessageID int64     `json:"admin_message_id"`
	ContentKind    string    `json:"content_kind,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type pendingRecord struct {
	AdminMessageID int64     `json:"admin_message_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Open connects to the redis:// URL and verifies the connection with PING.
func Open(ctx context.Context, rawURL, keyPrefix string) (*Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("missing redis url")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, keyPrefix), nil
}

func New(client *redis.Client, keyPrefix string) *Store {
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: keyPrefix, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, link correlation.MessageLink) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	link, err := correlation.ValidateLink(link, s.now())
	if err != nil {
		return err
	}
	linkValue, err := json.Marshal(linkRecord{
		AdminMessageID: link.AdminMessageID,
		ContentKind:    link.ContentKind,
		CreatedAt:      link.CreatedAt,
	})
	if err != nil {
		return err
	}
	pendingValue, err := json.Marshal(pendingRecord{
		AdminMessageID: link.AdminMessageID,
		UpdatedAt:      link.CreatedAt,
	})
	if err != nil {
		return err
	}

	key := s.linkKey(link.Ref)
	field := strconv.FormatInt(link.Ref.UserID, 10)
	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", correlation.ErrDuplicateLink, link.Ref)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, linkValue, 0)
			pipe.HSet(ctx, s.pendingKey(), field, pendingValue)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, correlation.ErrDuplicateLink) {
			return err
		}
		return fmt.Errorf("write message link: %w", err)
	}
	return nil
}

func (s *Store) LookupLink(ctx context.Context, ref correlation.MessageRef) (correlation.MessageLink, bool, error) {
	if s == nil || s.client == nil {
		return correlation.MessageLink{}, false, fmt.Errorf("correlation store is not configured")
	}
	raw, err := s.client.Get(ctx, s.linkKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return correlation.MessageLink{}, false, nil
	}
	if err != nil {
		return correlation.MessageLink{}, false, fmt.Errorf("lookup message link: %w", err)
	}
	var rec linkRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return correlation.MessageLink{}, false, fmt.Errorf("decode message link %s: %w", ref, err)
	}
	return correlation.MessageLink{
		Ref:            ref,
		AdminMessageID: rec.AdminMessageID,
		ContentKind:    rec.ContentKind,
		CreatedAt:      rec.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) ClearPending(ctx context.Context, userID int64) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	if err := s.client.HDel(ctx, s.pendingKey(), strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("clear pending reply: %w", err)
	}
	return nil
}

func (s *Store) ListPending(ctx context.Context) ([]correlation.PendingReply, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("correlation store is not configured")
	}
	fields, err := s.client.HGetAll(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending replies: %w", err)
	}
	out := make([]correlation.PendingReply, 0, len(fields))
	for field, raw := range fields {
		userID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pending reply field %q: %w", field, err)
		}
		var rec pendingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode pending reply %d: %w", userID, err)
		}
		out = append(out, correlation.PendingReply{
			UserID:         userID,
			AdminMessageID: rec.AdminMessageID,
			UpdatedAt:      rec.UpdatedAt.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) linkKey(ref correlation.MessageRef) string {
	return s.prefix + "link:" + ref.String()
}

func (s *Store) pendingKey() string {
	return s.prefix + "pending"
}
