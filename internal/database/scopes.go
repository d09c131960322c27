package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/collab-miniapp-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// OrderByDeadline sorts tasks by deadline with undated tasks last, newest first
// within a day
func OrderByDeadline(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN tasks.deadline IS NULL THEN 1 ELSE 0 END, tasks.deadline ASC, tasks.id DESC")
}
