package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBBPS(ctx context.Context, db *gorm.DB, entry *BBPSCommission) error
	InsertPayout(ctx context.Context, db *gorm.DB, entry *PayoutCharge) error
	InsertMDR(ctx context.Context, db *gorm.DB, entry *MDRRate) error

	ListBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status EntryStatus) ([]BBPSCommission, error)
	ListPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status EntryStatus) ([]PayoutCharge, error)
	ListMDR(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status EntryStatus) ([]MDRRate, error)

	DeactivateBBPS(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	DeactivatePayout(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	DeactivateMDR(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	// CountOverlappingBBPS counts active slabs for the same scheme and
	// category whose [min, max] range intersects the given bounds.
	CountOverlappingBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, category *string, min, max decimal.Decimal) (int64, error)
	CountOverlappingPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode TransferMode, min, max decimal.Decimal) (int64, error)

	// FindMDRExact returns the active row matching the discriminator triple
	// exactly, with nil card type or brand matching only NULL columns.
	FindMDRExact(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode MDRMode, cardType *CardType, brand *BrandType) (*MDRRate, error)

	// MatchBBPS returns active slabs covering the amount, narrowest range
	// first. A NULL category row matches any requested category.
	MatchBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, category string, amount decimal.Decimal) ([]BBPSCommission, error)
	MatchPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode TransferMode, amount decimal.Decimal) ([]PayoutCharge, error)
}
