package models

import "time"

// MessageLink is the audit row written when a user message is forwarded to the administrator.
type MessageLink struct {
	UserID         int64     `gorm:"primaryKey;autoIncrement:false"`
	UserMessageID  int64     `gorm:"primaryKey;autoIncrement:false"`
	AdminMessageID int64     `gorm:"not null;index"`
	ContentKind    string    `gorm:"size:32;not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (MessageLink) TableName() string { return "message_links" }

// PendingReply holds at most one row per user.
type PendingReply struct {
	UserID         int64     `gorm:"primaryKey;autoIncrement:false"`
	AdminMessageID int64     `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (PendingReply) TableName() string { return "pending_replies" }
