package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	SetStatus(ctx context.Context, id string, status SchemeStatus) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, filter ListFilter) ([]Response, error)
}

type CreateRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	SchemeType    SchemeType     `json:"scheme_type"`
	ServiceScope  ServiceScope   `json:"service_scope"`
	Priority      *int           `json:"priority"`
	EffectiveFrom *time.Time     `json:"effective_from"`
	EffectiveTo   *time.Time     `json:"effective_to"`
	Metadata      map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Priority    *int       `json:"priority"`
	EffectiveTo *time.Time `json:"effective_to"`
}

type ListFilter struct {
	SchemeType   SchemeType
	ServiceScope ServiceScope
	Status       SchemeStatus
}

type Response struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	SchemeType    SchemeType   `json:"scheme_type"`
	ServiceScope  ServiceScope `json:"service_scope"`
	Priority      int          `json:"priority"`
	Status        SchemeStatus `json:"status"`
	CreatedByID   string       `json:"created_by_id"`
	CreatedByRole string       `json:"created_by_role"`
	EffectiveFrom time.Time    `json:"effective_from"`
	EffectiveTo   *time.Time   `json:"effective_to,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSchemeType   = errors.New("invalid_scheme_type")
	ErrInvalidServiceScope = errors.New("invalid_service_scope")
	ErrInvalidPriority     = errors.New("invalid_priority")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidEffectiveTo  = errors.New("invalid_effective_to")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("scheme_not_found")
	ErrForbidden           = errors.New("scheme_forbidden")
)
