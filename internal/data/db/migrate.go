package db

import (
	types "github.com/yungbote/knowledge-server/internal/domain"
	"gorm.io/gorm"
)

// AutoMigrateAll migrates the write side only: the append-only event log and
// the outbox. Concept and relationship state lives in the event streams and
// the two projection stores, never in relational rows.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Event{},
		&types.OutboxEntry{},
	)
}
