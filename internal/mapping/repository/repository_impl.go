package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() mappingdomain.Repository {
	return &repo{}
}

const mappingColumns = `id, scheme_id, entity_id, entity_role, service_type,
	 assigned_by_id, assigned_by_role, status, priority, created_at, updated_at`

func (r *repo) AssignActive(ctx context.Context, db *gorm.DB, mapping *mappingdomain.EntityMapping) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).Exec(
			`UPDATE scheme_mappings
			 SET status = ?, updated_at = ?
			 WHERE entity_id = ? AND entity_role = ? AND status = ?`,
			mappingdomain.MappingStatusInactive,
			mapping.UpdatedAt,
			mapping.EntityID,
			mapping.EntityRole,
			mappingdomain.MappingStatusActive,
		).Error
		if err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`INSERT INTO scheme_mappings (`+mappingColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			mapping.ID,
			mapping.SchemeID,
			mapping.EntityID,
			mapping.EntityRole,
			mapping.ServiceType,
			mapping.AssignedByID,
			mapping.AssignedByRole,
			mapping.Status,
			mapping.Priority,
			mapping.CreatedAt,
			mapping.UpdatedAt,
		).Error
	})
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, entityID snowflake.ID, entityRole, serviceType string) (*mappingdomain.EntityMapping, error) {
	var mapping mappingdomain.EntityMapping
	err := db.WithContext(ctx).Raw(
		`SELECT `+mappingColumns+` FROM scheme_mappings
		 WHERE entity_id = ? AND entity_role = ? AND status = ?
		 AND (service_type IS NULL OR service_type = ?)
		 ORDER BY service_type IS NULL ASC, priority ASC, id ASC
		 LIMIT 1`,
		entityID, entityRole, mappingdomain.MappingStatusActive, serviceType,
	).Scan(&mapping).Error
	if err != nil {
		return nil, err
	}
	if mapping.ID == 0 {
		return nil, nil
	}
	return &mapping, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, entityID, schemeID snowflake.ID, status mappingdomain.MappingStatus) ([]mappingdomain.EntityMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM scheme_mappings WHERE 1=1`
	args := []any{}
	if entityID != 0 {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	if schemeID != 0 {
		query += ` AND scheme_id = ?`
		args = append(args, schemeID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY priority ASC, id ASC`

	var items []mappingdomain.EntityMapping
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
