// Package correlationtest holds the behavior every correlation.Store backend must show.
package correlationtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
)

// OpenFunc returns a fresh, empty store. The suite closes it.
type OpenFunc func(t *testing.T) correlation.Store

func Run(t *testing.T, open OpenFunc) {
	t.Helper()

	t.Run("PutThenLookup", func(t *testing.T) { testPutThenLookup(t, open(t)) })
	t.Run("LookupMissIsNotAnError", func(t *testing.T) { testLookupMiss(t, open(t)) })
	t.Run("PendingIsOverwrittenPerUser", func(t *testing.T) { testPendingOverwrite(t, open(t)) })
	t.Run("DuplicatePutLeavesNoPartialState", func(t *testing.T) { testDuplicatePut(t, open(t)) })
	t.Run("ClearPendingIsIdempotent", func(t *testing.T) { testClearPending(t, open(t)) })
	t.Run("MessageIDsAreScopedByUser", func(t *testing.T) { testScopedByUser(t, open(t)) })
	t.Run("InvalidLinkIsRejected", func(t *testing.T) { testInvalidLink(t, open(t)) })
	t.Run("ConcurrentPutsFromDifferentUsers", func(t *testing.T) { testConcurrentPuts(t, open(t)) })
}

func closeStore(t *testing.T, store correlation.Store) {
	t.Helper()
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func mustPut(t *testing.T, store correlation.Store, userID, msgID, adminID int64) {
	t.Helper()
	err := store.Put(context.Background(), correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: userID, MessageID: msgID},
		AdminMessageID: adminID,
		ContentKind:    "text",
	})
	if err != nil {
		t.Fatalf("Put(%d:%d) error = %v", userID, msgID, err)
	}
}

func pendingFor(t *testing.T, store correlation.Store, userID int64) (correlation.PendingReply, int) {
	t.Helper()
	rows, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	var out correlation.PendingReply
	count := 0
	for _, row := range rows {
		if row.UserID == userID {
			out = row
			count++
		}
	}
	return out, count
}

func testPutThenLookup(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	created := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	err := store.Put(context.Background(), correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: 42, MessageID: 7},
		AdminMessageID: 900,
		ContentKind:    "image",
		CreatedAt:      created,
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	link, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 42, MessageID: 7})
	if err != nil {
		t.Fatalf("LookupLink() error = %v", err)
	}
	if !found {
		t.Fatalf("LookupLink() found = false, want true")
	}
	if link.Ref.UserID != 42 || link.Ref.MessageID != 7 || link.AdminMessageID != 900 {
		t.Fatalf("LookupLink() = %+v", link)
	}
	if link.ContentKind != "image" {
		t.Fatalf("content kind = %q, want image", link.ContentKind)
	}
	if !link.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", link.CreatedAt, created)
	}
	pending, count := pendingFor(t, store, 42)
	if count != 1 || pending.AdminMessageID != 900 {
		t.Fatalf("pending = %+v (count %d), want admin message 900", pending, count)
	}
}

func testLookupMiss(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	_, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 1, MessageID: 2})
	if err != nil {
		t.Fatalf("LookupLink() error = %v, want nil", err)
	}
	if found {
		t.Fatalf("LookupLink() found = true on empty store")
	}
}

func testPendingOverwrite(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	mustPut(t, store, 42, 1, 100)
	mustPut(t, store, 42, 2, 101)
	pending, count := pendingFor(t, store, 42)
	if count != 1 {
		t.Fatalf("pending rows for user 42 = %d, want 1", count)
	}
	if pending.AdminMessageID != 101 {
		t.Fatalf("pending admin message = %d, want 101 (latest)", pending.AdminMessageID)
	}
	// Both links remain as history.
	for _, msgID := range []int64{1, 2} {
		if _, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 42, MessageID: msgID}); err != nil || !found {
			t.Fatalf("LookupLink(42:%d) found=%v err=%v, want found", msgID, found, err)
		}
	}
}

func testDuplicatePut(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	mustPut(t, store, 5, 10, 200)
	if err := store.ClearPending(context.Background(), 5); err != nil {
		t.Fatalf("ClearPending() error = %v", err)
	}
	err := store.Put(context.Background(), correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: 5, MessageID: 10},
		AdminMessageID: 201,
	})
	if !errors.Is(err, correlation.ErrDuplicateLink) {
		t.Fatalf("duplicate Put() error = %v, want ErrDuplicateLink", err)
	}
	link, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 5, MessageID: 10})
	if err != nil || !found {
		t.Fatalf("LookupLink() found=%v err=%v", found, err)
	}
	if link.AdminMessageID != 200 {
		t.Fatalf("link overwritten: admin message = %d, want 200", link.AdminMessageID)
	}
	if _, count := pendingFor(t, store, 5); count != 0 {
		t.Fatalf("failed Put() wrote a pending row")
	}
}

func testClearPending(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	mustPut(t, store, 8, 1, 300)
	for i := 0; i < 2; i++ {
		if err := store.ClearPending(context.Background(), 8); err != nil {
			t.Fatalf("ClearPending() call %d error = %v", i+1, err)
		}
	}
	if _, count := pendingFor(t, store, 8); count != 0 {
		t.Fatalf("pending row still present after ClearPending()")
	}
	if err := store.ClearPending(context.Background(), 999); err != nil {
		t.Fatalf("ClearPending() for unknown user error = %v", err)
	}
	// The link is history and survives.
	if _, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 8, MessageID: 1}); err != nil || !found {
		t.Fatalf("link lost after ClearPending(): found=%v err=%v", found, err)
	}
}

func testScopedByUser(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	mustPut(t, store, 1, 1, 400)
	mustPut(t, store, 2, 1, 401)
	for userID, want := range map[int64]int64{1: 400, 2: 401} {
		link, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: userID, MessageID: 1})
		if err != nil || !found {
			t.Fatalf("LookupLink(%d:1) found=%v err=%v", userID, found, err)
		}
		if link.AdminMessageID != want {
			t.Fatalf("LookupLink(%d:1) admin message = %d, want %d", userID, link.AdminMessageID, want)
		}
	}
	rows, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(rows) != 2 || rows[0].UserID != 1 || rows[1].UserID != 2 {
		t.Fatalf("ListPending() = %+v, want users 1 and 2 in order", rows)
	}
}

func testInvalidLink(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	cases := []correlation.MessageLink{
		{Ref: correlation.MessageRef{UserID: 0, MessageID: 1}, AdminMessageID: 1},
		{Ref: correlation.MessageRef{UserID: 1, MessageID: 0}, AdminMessageID: 1},
		{Ref: correlation.MessageRef{UserID: 1, MessageID: 1}, AdminMessageID: 0},
	}
	for _, link := range cases {
		if err := store.Put(context.Background(), link); !errors.Is(err, correlation.ErrInvalidLink) {
			t.Fatalf("Put(%+v) error = %v, want ErrInvalidLink", link, err)
		}
	}
}

func testConcurrentPuts(t *testing.T, store correlation.Store) {
	closeStore(t, store)
	const users = 8
	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			err := store.Put(context.Background(), correlation.MessageLink{
				Ref:            correlation.MessageRef{UserID: userID, MessageID: 1},
				AdminMessageID: 1000 + userID,
			})
			if err != nil {
				errs <- fmt.Errorf("user %d: %w", userID, err)
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Put() error = %v", err)
	}
	rows, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(rows) != users {
		t.Fatalf("pending rows = %d, want %d", len(rows), users)
	}
}
