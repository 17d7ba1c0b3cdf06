package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, scheme *Scheme) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Scheme, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Scheme, error)
	Update(ctx context.Context, db *gorm.DB, scheme *Scheme) error
	// Delete removes the scheme and cascades to its rate entries and mappings.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// FindDefault returns the platform-default active global scheme, if any.
	FindDefault(ctx context.Context, db *gorm.DB) (*Scheme, error)
}
