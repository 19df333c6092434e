package database

import (
	"fmt"
	"log"

	"github.com/MUSSAMALIK29/task-manager/internal/models"

	"gorm.io/gorm"
)

// taskColumns is the additive-only column ledger for the tasks table,
// in the order the fields were introduced. Extending the record means
// appending here; existing entries never change and nothing is ever
// dropped.
var taskColumns = []string{
	"Title",
	"Description",
	"Completed",
	"Priority",
	"Category",
	"DueDate",
	"CreatedAt",
	"CompletedAt",
	"Position",
}

type SchemaManager struct {
	db *gorm.DB
}

func NewSchemaManager(db *gorm.DB) *SchemaManager {
	return &SchemaManager{db: db}
}

// EnsureSchema creates the tasks table when missing and adds any column
// the current build expects that an older database lacks. Added columns
// carry their declared defaults, so existing rows stay readable. It
// never drops or rewrites anything; running it repeatedly is a no-op
// after the first pass.
func (m *SchemaManager) EnsureSchema() error {
	migrator := m.db.Migrator()

	if !migrator.HasTable(&models.Task{}) {
		if err := migrator.CreateTable(&models.Task{}); err != nil {
			return fmt.Errorf("failed to create tasks table: %w", err)
		}
		log.Println("📝 Created tasks table")
		return nil
	}

	for _, field := range taskColumns {
		if migrator.HasColumn(&models.Task{}, field) {
			continue
		}
		if err := migrator.AddColumn(&models.Task{}, field); err != nil {
			return fmt.Errorf("failed to add column %s to tasks table: %w", field, err)
		}
		log.Printf("📝 Added missing column %s to tasks table", field)
	}

	return nil
}

// Verify reports an error when the live schema is missing the table or
// any expected column.
func (m *SchemaManager) Verify() error {
	migrator := m.db.Migrator()

	if !migrator.HasTable(&models.Task{}) {
		return fmt.Errorf("tasks table is missing")
	}

	for _, field := range taskColumns {
		if !migrator.HasColumn(&models.Task{}, field) {
			return fmt.Errorf("tasks table is missing column %s", field)
		}
	}

	return nil
}
