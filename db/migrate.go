package db

import (
	"fmt"

	"github.com/Abdurakhi/tg-feedback-bot/db/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the correlation tables if they do not exist yet.
func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.MessageLink{},
		&models.PendingReply{},
	)
}
