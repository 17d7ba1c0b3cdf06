package domain

import (
	"context"
	"errors"
	"time"

	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
)

type Service interface {
	// Assign supersedes any active mapping for the entity in one atomic
	// operation.
	Assign(ctx context.Context, req AssignRequest) (*Response, error)
	// Resolve returns the effective scheme for the entity, falling back to
	// the platform default. Absence of both is a hard error.
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error)
	List(ctx context.Context, filter ListFilter) ([]Response, error)
}

type AssignRequest struct {
	SchemeID    string  `json:"scheme_id"`
	EntityID    string  `json:"entity_id"`
	EntityRole  string  `json:"entity_role"`
	ServiceType *string `json:"service_type"`
	Priority    int     `json:"priority"`
}

type ResolveRequest struct {
	EntityID    string
	EntityRole  string
	ServiceType string
}

type ListFilter struct {
	EntityID string
	SchemeID string
	Status   MappingStatus
}

type Response struct {
	ID             string        `json:"id"`
	SchemeID       string        `json:"scheme_id"`
	EntityID       string        `json:"entity_id"`
	EntityRole     string        `json:"entity_role"`
	ServiceType    *string       `json:"service_type,omitempty"`
	AssignedByID   string        `json:"assigned_by_id"`
	AssignedByRole string        `json:"assigned_by_role"`
	Status         MappingStatus `json:"status"`
	Priority       int           `json:"priority"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Resolution carries the effective scheme and whether the platform default
// was used because no mapping matched.
type Resolution struct {
	Scheme    *schemedomain.Scheme `json:"-"`
	SchemeID  string               `json:"scheme_id"`
	MappingID string               `json:"mapping_id,omitempty"`
	Default   bool                 `json:"default"`
}

var (
	ErrInvalidEntity      = errors.New("invalid_entity")
	ErrInvalidEntityRole  = errors.New("invalid_entity_role")
	ErrInvalidServiceType = errors.New("invalid_service_type")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("no_applicable_scheme")
)
