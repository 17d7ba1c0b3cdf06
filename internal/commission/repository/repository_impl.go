package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() commissiondomain.Repository {
	return &repo{}
}

const ledgerColumns = `id, source_txn_id, scheme_id, rate_entry_id, entity_id, entity_role,
	 service_type, amount, status, remarks, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, row *commissiondomain.CommissionLedger) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commission_ledger (`+ledgerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.SourceTxnID, row.SchemeID, row.RateEntryID,
		row.EntityID, row.EntityRole, row.ServiceType,
		row.Amount, row.Status, row.Remarks,
		row.CreatedAt, row.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*commissiondomain.CommissionLedger, error) {
	var row commissiondomain.CommissionLedger
	err := db.WithContext(ctx).Raw(
		`SELECT `+ledgerColumns+` FROM commission_ledger WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListBySource(ctx context.Context, db *gorm.DB, sourceTxnID string) ([]commissiondomain.CommissionLedger, error) {
	var rows []commissiondomain.CommissionLedger
	err := db.WithContext(ctx).Raw(
		`SELECT `+ledgerColumns+` FROM commission_ledger
		 WHERE source_txn_id = ?
		 ORDER BY id ASC`,
		sourceTxnID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, row *commissiondomain.CommissionLedger) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commission_ledger SET status = ?, updated_at = ? WHERE id = ?`,
		row.Status, row.UpdatedAt, row.ID,
	).Error
}
