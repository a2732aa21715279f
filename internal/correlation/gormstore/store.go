// Package gormstore persists correlation state in SQLite through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurakhi/tg-feedback-bot/db"
	"github.com/Abdurakhi/tg-feedback-bot/db/models"
	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ correlation.Store = (*Store)(nil)

// Open opens the SQLite database described by cfg and migrates the correlation tables.
func Open(cfg db.Config) (*Store, error) {
	cfg.AutoMigrate = true
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(gdb), nil
}

// New wraps an already migrated gorm handle.
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb, now: time.Now}
}

func (s *Store) Put(ctx context.Context, link correlation.MessageLink) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	link, err := correlation.ValidateLink(link, s.now())
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.MessageLink{
			UserID:         link.Ref.UserID,
			UserMessageID:  link.Ref.MessageID,
			AdminMessageID: link.AdminMessageID,
			ContentKind:    link.ContentKind,
			CreatedAt:      link.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %s", correlation.ErrDuplicateLink, link.Ref)
			}
			return fmt.Errorf("insert message link: %w", err)
		}
		pending := models.PendingReply{
			UserID:         link.Ref.UserID,
			AdminMessageID: link.AdminMessageID,
			UpdatedAt:      link.CreatedAt,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"admin_message_id", "updated_at"}),
		}).Create(&pending).Error
		if err != nil {
			return fmt.Errorf("upsert pending reply: %w", err)
		}
		return nil
	})
}

func (s *Store) LookupLink(ctx context.Context, ref correlation.MessageRef) (correlation.MessageLink, bool, error) {
	if s == nil || s.db == nil {
		return correlation.MessageLink{}, false, fmt.Errorf("correlation store is not configured")
	}
	var row models.MessageLink
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND user_message_id = ?", ref.UserID, ref.MessageID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return correlation.MessageLink{}, false, nil
	}
	if err != nil {
		return correlation.MessageLink{}, false, fmt.Errorf("lookup message link: %w", err)
	}
	return correlation.MessageLink{
		Ref:            correlation.MessageRef{UserID: row.UserID, MessageID: row.UserMessageID},
		AdminMessageID: row.AdminMessageID,
		ContentKind:    row.ContentKind,
		CreatedAt:      row.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) ClearPending(ctx context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("correlation store is not configured")
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PendingReply{}).Error
	if err != nil {
		return fmt.Errorf("clear pending reply: %w", err)
	}
	return nil
}

func (s *Store) ListPending(ctx context.Context) ([]correlation.PendingReply, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("correlation store is not configured")
	}
	var rows []models.PendingReply
	if err := s.db.WithContext(ctx).Order("user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pending replies: %w", err)
	}
	out := make([]correlation.PendingReply, 0, len(rows))
	for _, row := range rows {
		out = append(out, correlation.PendingReply{
			UserID:         row.UserID,
			AdminMessageID: row.AdminMessageID,
			UpdatedAt:      row.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "constraint failed: primary key")
}
