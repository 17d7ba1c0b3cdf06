// Package seed provisions the platform-default records on startup.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"gorm.io/gorm"
)

const defaultSchemeName = "Platform Default"

// EnsureDefaultScheme creates the ownerless active global scheme used as the
// resolution fallback when an entity has no mapping. Idempotent.
func EnsureDefaultScheme(db *gorm.DB, genID *snowflake.Node) error {
	var existing schemedomain.Scheme
	err := db.Raw(
		`SELECT id, status FROM schemes
		 WHERE scheme_type = ? AND created_by_id = 0
		 ORDER BY priority ASC, id ASC
		 LIMIT 1`,
		schemedomain.SchemeTypeGlobal,
	).Scan(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		return nil
	}

	now := time.Now().UTC()
	return db.Exec(
		`INSERT INTO schemes (
			id, name, description, scheme_type, service_scope, priority, status,
			created_by_id, created_by_role, effective_from, effective_to, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, NULL, NULL, ?, ?)`,
		genID.Generate(),
		defaultSchemeName,
		"Fallback scheme applied when an entity has no active mapping",
		schemedomain.SchemeTypeGlobal,
		schemedomain.ServiceScopeAll,
		1000,
		schemedomain.SchemeStatusActive,
		"admin",
		now,
		now,
		now,
	).Error
}
