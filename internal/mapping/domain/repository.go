package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// AssignActive deactivates any active mapping for (entityID, entityRole)
	// and inserts the new active row in a single transaction.
	AssignActive(ctx context.Context, db *gorm.DB, mapping *EntityMapping) error
	// FindActive returns the active mapping whose service_type is NULL or
	// equals serviceType, highest specificity first.
	FindActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID, entityRole, serviceType string) (*EntityMapping, error)
	// List filters on entityID and schemeID when non-zero.
	List(ctx context.Context, db *gorm.DB, entityID, schemeID snowflake.ID, status MappingStatus) ([]EntityMapping, error)
}
