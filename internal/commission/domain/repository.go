package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, row *CommissionLedger) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionLedger, error)
	ListBySource(ctx context.Context, db *gorm.DB, sourceTxnID string) ([]CommissionLedger, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, row *CommissionLedger) error
}
