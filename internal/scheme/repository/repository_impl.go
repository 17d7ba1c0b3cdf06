package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() schemedomain.Repository {
	return &repo{}
}

const schemeColumns = `id, name, description, scheme_type, service_scope, priority, status,
	 created_by_id, created_by_role, effective_from, effective_to, metadata, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, scheme *schemedomain.Scheme) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO schemes (
			id, name, description, scheme_type, service_scope, priority, status,
			created_by_id, created_by_role, effective_from, effective_to, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scheme.ID,
		scheme.Name,
		scheme.Description,
		scheme.SchemeType,
		scheme.ServiceScope,
		scheme.Priority,
		scheme.Status,
		scheme.CreatedByID,
		scheme.CreatedByRole,
		scheme.EffectiveFrom,
		scheme.EffectiveTo,
		scheme.Metadata,
		scheme.CreatedAt,
		scheme.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*schemedomain.Scheme, error) {
	var scheme schemedomain.Scheme
	err := db.WithContext(ctx).Raw(
		`SELECT `+schemeColumns+` FROM schemes WHERE id = ?`,
		id,
	).Scan(&scheme).Error
	if err != nil {
		return nil, err
	}
	if scheme.ID == 0 {
		return nil, nil
	}
	return &scheme, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter schemedomain.ListFilter) ([]schemedomain.Scheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM schemes WHERE 1=1`
	args := []any{}
	if filter.SchemeType != "" {
		query += ` AND scheme_type = ?`
		args = append(args, filter.SchemeType)
	}
	if filter.ServiceScope != "" {
		query += ` AND service_scope = ?`
		args = append(args, filter.ServiceScope)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY priority ASC, id ASC`

	var items []schemedomain.Scheme
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, scheme *schemedomain.Scheme) error {
	return db.WithContext(ctx).Exec(
		`UPDATE schemes
		 SET name = ?, description = ?, priority = ?, status = ?, effective_to = ?, updated_at = ?
		 WHERE id = ?`,
		scheme.Name,
		scheme.Description,
		scheme.Priority,
		scheme.Status,
		scheme.EffectiveTo,
		scheme.UpdatedAt,
		scheme.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			`DELETE FROM scheme_bbps_commissions WHERE scheme_id = ?`,
			`DELETE FROM scheme_payout_charges WHERE scheme_id = ?`,
			`DELETE FROM scheme_mdr_rates WHERE scheme_id = ?`,
			`DELETE FROM scheme_mappings WHERE scheme_id = ?`,
			`DELETE FROM schemes WHERE id = ?`,
		} {
			if err := tx.WithContext(ctx).Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB) (*schemedomain.Scheme, error) {
	var scheme schemedomain.Scheme
	err := db.WithContext(ctx).Raw(
		`SELECT `+schemeColumns+` FROM schemes
		 WHERE scheme_type = ? AND status = ? AND created_by_id = 0
		 ORDER BY priority ASC, id ASC
		 LIMIT 1`,
		schemedomain.SchemeTypeGlobal,
		schemedomain.SchemeStatusActive,
	).Scan(&scheme).Error
	if err != nil {
		return nil, err
	}
	if scheme.ID == 0 {
		return nil, nil
	}
	return &scheme, nil
}
