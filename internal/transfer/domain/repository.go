package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *TransferRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TransferRecord, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*TransferRecord, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, record *TransferRecord) error
}
