package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ratedomain.Repository {
	return &repo{}
}

const bbpsColumns = `id, scheme_id, category, min_amount, max_amount,
	 retailer_charge, retailer_charge_type,
	 retailer_commission, retailer_commission_type,
	 distributor_commission, distributor_commission_type,
	 md_commission, md_commission_type,
	 company_charge, company_charge_type,
	 status, created_at, updated_at`

const payoutColumns = `id, scheme_id, transfer_mode, min_amount, max_amount,
	 retailer_charge, retailer_charge_type,
	 retailer_commission, retailer_commission_type,
	 distributor_commission, distributor_commission_type,
	 md_commission, md_commission_type,
	 company_charge, company_charge_type,
	 status, created_at, updated_at`

const mdrColumns = `id, scheme_id, mode, card_type, brand_type,
	 retailer_mdr_t0, retailer_mdr_t1,
	 distributor_mdr_t0, distributor_mdr_t1,
	 md_mdr_t0, md_mdr_t1,
	 status, created_at, updated_at`

func (r *repo) InsertBBPS(ctx context.Context, db *gorm.DB, entry *ratedomain.BBPSCommission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO scheme_bbps_commissions (`+bbpsColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SchemeID, entry.Category, entry.MinAmount, entry.MaxAmount,
		entry.RetailerCharge, entry.RetailerChargeType,
		entry.RetailerCommission, entry.RetailerCommissionType,
		entry.DistributorCommission, entry.DistributorCommissionType,
		entry.MDCommission, entry.MDCommissionType,
		entry.CompanyCharge, entry.CompanyChargeType,
		entry.Status, entry.CreatedAt, entry.UpdatedAt,
	).Error
}

func (r *repo) InsertPayout(ctx context.Context, db *gorm.DB, entry *ratedomain.PayoutCharge) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO scheme_payout_charges (`+payoutColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SchemeID, entry.TransferMode, entry.MinAmount, entry.MaxAmount,
		entry.RetailerCharge, entry.RetailerChargeType,
		entry.RetailerCommission, entry.RetailerCommissionType,
		entry.DistributorCommission, entry.DistributorCommissionType,
		entry.MDCommission, entry.MDCommissionType,
		entry.CompanyCharge, entry.CompanyChargeType,
		entry.Status, entry.CreatedAt, entry.UpdatedAt,
	).Error
}

func (r *repo) InsertMDR(ctx context.Context, db *gorm.DB, entry *ratedomain.MDRRate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO scheme_mdr_rates (`+mdrColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SchemeID, entry.Mode, entry.CardType, entry.BrandType,
		entry.RetailerMDRT0, entry.RetailerMDRT1,
		entry.DistributorMDRT0, entry.DistributorMDRT1,
		entry.MDMDRT0, entry.MDMDRT1,
		entry.Status, entry.CreatedAt, entry.UpdatedAt,
	).Error
}

func (r *repo) ListBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status ratedomain.EntryStatus) ([]ratedomain.BBPSCommission, error) {
	var items []ratedomain.BBPSCommission
	err := db.WithContext(ctx).Raw(
		`SELECT `+bbpsColumns+` FROM scheme_bbps_commissions
		 WHERE scheme_id = ? AND status = ?
		 ORDER BY min_amount ASC, id ASC`,
		schemeID, status,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status ratedomain.EntryStatus) ([]ratedomain.PayoutCharge, error) {
	var items []ratedomain.PayoutCharge
	err := db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+` FROM scheme_payout_charges
		 WHERE scheme_id = ? AND status = ?
		 ORDER BY transfer_mode ASC, min_amount ASC, id ASC`,
		schemeID, status,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListMDR(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, status ratedomain.EntryStatus) ([]ratedomain.MDRRate, error) {
	var items []ratedomain.MDRRate
	err := db.WithContext(ctx).Raw(
		`SELECT `+mdrColumns+` FROM scheme_mdr_rates
		 WHERE scheme_id = ? AND status = ?
		 ORDER BY mode ASC, id ASC`,
		schemeID, status,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeactivateBBPS(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return deactivate(ctx, db, "scheme_bbps_commissions", id)
}

func (r *repo) DeactivatePayout(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return deactivate(ctx, db, "scheme_payout_charges", id)
}

func (r *repo) DeactivateMDR(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return deactivate(ctx, db, "scheme_mdr_rates", id)
}

func deactivate(ctx context.Context, db *gorm.DB, table string, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE `+table+` SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		ratedomain.EntryStatusInactive, id, ratedomain.EntryStatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountOverlappingBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, category *string, min, max decimal.Decimal) (int64, error) {
	// Rows with category NULL price every category, so they collide with any
	// requested category and vice versa.
	query := `SELECT COUNT(*) FROM scheme_bbps_commissions
		 WHERE scheme_id = ? AND status = ?
		 AND min_amount <= ? AND max_amount >= ?`
	args := []any{schemeID, ratedomain.EntryStatusActive, max, min}
	if category != nil {
		query += ` AND (category IS NULL OR category = ?)`
		args = append(args, *category)
	}

	var count int64
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) CountOverlappingPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode ratedomain.TransferMode, min, max decimal.Decimal) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM scheme_payout_charges
		 WHERE scheme_id = ? AND status = ? AND transfer_mode = ?
		 AND min_amount <= ? AND max_amount >= ?`,
		schemeID, ratedomain.EntryStatusActive, mode, max, min,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) FindMDRExact(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode ratedomain.MDRMode, cardType *ratedomain.CardType, brand *ratedomain.BrandType) (*ratedomain.MDRRate, error) {
	query := `SELECT ` + mdrColumns + ` FROM scheme_mdr_rates
		 WHERE scheme_id = ? AND status = ? AND mode = ?`
	args := []any{schemeID, ratedomain.EntryStatusActive, mode}
	if cardType != nil {
		query += ` AND card_type = ?`
		args = append(args, *cardType)
	} else {
		query += ` AND card_type IS NULL`
	}
	if brand != nil {
		query += ` AND brand_type = ?`
		args = append(args, *brand)
	} else {
		query += ` AND brand_type IS NULL`
	}
	query += ` ORDER BY id ASC LIMIT 1`

	var entry ratedomain.MDRRate
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&entry).Error; err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) MatchBBPS(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, category string, amount decimal.Decimal) ([]ratedomain.BBPSCommission, error) {
	var items []ratedomain.BBPSCommission
	err := db.WithContext(ctx).Raw(
		`SELECT `+bbpsColumns+` FROM scheme_bbps_commissions
		 WHERE scheme_id = ? AND status = ?
		 AND (category IS NULL OR category = ?)
		 AND min_amount <= ? AND max_amount >= ?
		 ORDER BY (max_amount - min_amount) ASC, id ASC`,
		schemeID, ratedomain.EntryStatusActive, category, amount, amount,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MatchPayout(ctx context.Context, db *gorm.DB, schemeID snowflake.ID, mode ratedomain.TransferMode, amount decimal.Decimal) ([]ratedomain.PayoutCharge, error) {
	var items []ratedomain.PayoutCharge
	err := db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+` FROM scheme_payout_charges
		 WHERE scheme_id = ? AND status = ? AND transfer_mode = ?
		 AND min_amount <= ? AND max_amount >= ?
		 ORDER BY (max_amount - min_amount) ASC, id ASC`,
		schemeID, ratedomain.EntryStatusActive, mode, amount, amount,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
