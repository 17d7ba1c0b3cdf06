// Package domain contains the scheme-to-entity mapping model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MappingStatus is the lifecycle state of a mapping row.
type MappingStatus string

const (
	MappingStatusActive   MappingStatus = "active"
	MappingStatusInactive MappingStatus = "inactive"
)

// EntityMapping binds an entity to a scheme for a service type. At most one
// row per (entity_id, entity_role) is active at any time; assignment
// supersedes, it never stacks.
type EntityMapping struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	SchemeID       snowflake.ID  `json:"scheme_id" gorm:"not null;index"`
	EntityID       snowflake.ID  `json:"entity_id" gorm:"not null;index"`
	EntityRole     string        `json:"entity_role" gorm:"type:text;not null"`
	ServiceType    *string       `json:"service_type,omitempty" gorm:"type:text"`
	AssignedByID   snowflake.ID  `json:"assigned_by_id" gorm:"not null"`
	AssignedByRole string        `json:"assigned_by_role" gorm:"type:text;not null"`
	Status         MappingStatus `json:"status" gorm:"type:text;not null;index"`
	Priority       int           `json:"priority" gorm:"not null"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EntityMapping) TableName() string { return "scheme_mappings" }
