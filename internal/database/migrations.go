package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds lookup indexes that are not expressed as struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   interface{}
		name    string
		columns string
	}{
		// Membership lookups by user (the primary key leads with group_id)
		{&models.Membership{}, "idx_memberships_user_id", "user_id"},

		// Assignee lookups by user for "assigned to me" views
		{&models.TaskAssignee{}, "idx_task_assignees_user_id", "user_id"},

		// Pending invites by handle
		{&models.Invite{}, "idx_invites_handle_status", "handle, status"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", stmt.Schema.Table, "columns", idx.columns)
	}

	return nil
}
