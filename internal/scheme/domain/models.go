// Package domain contains persistence models for commission schemes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SchemeType classifies how a scheme is provisioned.
type SchemeType string

const (
	SchemeTypeGlobal SchemeType = "global"
	SchemeTypeGolden SchemeType = "golden"
	SchemeTypeCustom SchemeType = "custom"
)

// ServiceScope bounds the services a scheme may price.
type ServiceScope string

const (
	ServiceScopeAll    ServiceScope = "all"
	ServiceScopeBBPS   ServiceScope = "bbps"
	ServiceScopePayout ServiceScope = "payout"
	ServiceScopeMDR    ServiceScope = "mdr"
)

// SchemeStatus is the lifecycle state of a scheme.
type SchemeStatus string

const (
	SchemeStatusActive   SchemeStatus = "active"
	SchemeStatusInactive SchemeStatus = "inactive"
	SchemeStatusDraft    SchemeStatus = "draft"
)

// Scheme is a named bundle of rate table entries assignable to entities.
type Scheme struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	Name          string            `json:"name" gorm:"type:text;not null"`
	Description   string            `json:"description" gorm:"type:text"`
	SchemeType    SchemeType        `json:"scheme_type" gorm:"type:text;not null;index"`
	ServiceScope  ServiceScope      `json:"service_scope" gorm:"type:text;not null;index"`
	Priority      int               `json:"priority" gorm:"not null"`
	Status        SchemeStatus      `json:"status" gorm:"type:text;not null;index"`
	CreatedByID   snowflake.ID      `json:"created_by_id" gorm:"not null"`
	CreatedByRole string            `json:"created_by_role" gorm:"type:text;not null"`
	EffectiveFrom time.Time         `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time        `json:"effective_to,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Scheme) TableName() string { return "schemes" }

// EffectiveAt reports whether the scheme's effective window covers the instant.
func (s *Scheme) EffectiveAt(at time.Time) bool {
	if at.Before(s.EffectiveFrom) {
		return false
	}
	if s.EffectiveTo != nil && at.After(*s.EffectiveTo) {
		return false
	}
	return true
}

// Covers reports whether the scheme scope admits the requested service scope.
func (s *Scheme) Covers(scope ServiceScope) bool {
	return s.ServiceScope == ServiceScopeAll || s.ServiceScope == scope
}
