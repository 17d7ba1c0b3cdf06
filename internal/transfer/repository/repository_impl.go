package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() transferdomain.Repository {
	return &repo{}
}

const transferColumns = `id, from_user_id, to_user_id, amount, fund_category, direction,
	 status, idempotency_key, remarks, failure_reason, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *transferdomain.TransferRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transfers (`+transferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.FromUserID, record.ToUserID,
		record.Amount, record.FundCategory, record.Direction,
		record.Status, record.IdempotencyKey, record.Remarks, record.FailureReason,
		record.CreatedAt, record.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transferdomain.TransferRecord, error) {
	var record transferdomain.TransferRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+transferColumns+` FROM transfers WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*transferdomain.TransferRecord, error) {
	var record transferdomain.TransferRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+transferColumns+` FROM transfers WHERE idempotency_key = ?`,
		key,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, record *transferdomain.TransferRecord) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transfers SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ?`,
		record.Status, record.FailureReason, record.UpdatedAt, record.ID,
	).Error
}
