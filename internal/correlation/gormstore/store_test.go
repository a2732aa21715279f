package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Abdurakhi/tg-feedback-bot/db"
	"github.com/Abdurakhi/tg-feedback-bot/db/models"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation/correlationtest"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "data.db")
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store
}

func TestStoreConformance(t *testing.T) {
	correlationtest.Run(t, func(t *testing.T) correlation.Store {
		return openTempStore(t)
	})
}

func TestPutRollsBackLinkWhenPendingWriteFails(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	defer store.Close()

	trigger := `CREATE TRIGGER fail_pending BEFORE INSERT ON pending_replies
BEGIN
  SELECT RAISE(ABORT, 'pending writes disabled');
END;`
	if err := store.db.Exec(trigger).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err := store.Put(context.Background(), correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: 3, MessageID: 4},
		AdminMessageID: 55,
	})
	if err == nil {
		t.Fatalf("Put() error = nil, want pending write failure")
	}

	var links int64
	if err := store.db.Model(&models.MessageLink{}).Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Fatalf("message_links rows = %d, want 0 after rolled back Put()", links)
	}
	_, found, err := store.LookupLink(context.Background(), correlation.MessageRef{UserID: 3, MessageID: 4})
	if err != nil {
		t.Fatalf("LookupLink() error = %v", err)
	}
	if found {
		t.Fatalf("LookupLink() found a link written by a failed Put()")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "data.db")
	first, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.Put(context.Background(), correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: 9, MessageID: 1},
		AdminMessageID: 77,
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()
	link, found, err := second.LookupLink(context.Background(), correlation.MessageRef{UserID: 9, MessageID: 1})
	if err != nil || !found {
		t.Fatalf("LookupLink() after reopen found=%v err=%v", found, err)
	}
	if link.AdminMessageID != 77 {
		t.Fatalf("admin message = %d, want 77", link.AdminMessageID)
	}
}
