package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/partnerpay/settlo/internal/actorctx"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       mappingdomain.Repository
	SchemeRepo schemedomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       mappingdomain.Repository
	schemeRepo schemedomain.Repository
}

func New(p Params) mappingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("mapping.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		schemeRepo: p.SchemeRepo,
	}
}

func (s *Service) Assign(ctx context.Context, req mappingdomain.AssignRequest) (*mappingdomain.Response, error) {
	actorID, actorRole, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return nil, mappingdomain.ErrInvalidEntity
	}
	switch actorRole {
	case actorctx.RoleAdmin, actorctx.RoleDistributor, actorctx.RoleMasterDistributor:
	default:
		return nil, schemedomain.ErrForbidden
	}

	schemeID, err := snowflake.ParseString(strings.TrimSpace(req.SchemeID))
	if err != nil {
		return nil, mappingdomain.ErrInvalidID
	}
	entityID, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil {
		return nil, mappingdomain.ErrInvalidEntity
	}

	entityRole := actorctx.Role(strings.TrimSpace(req.EntityRole))
	switch entityRole {
	case actorctx.RoleRetailer, actorctx.RoleDistributor, actorctx.RoleMasterDistributor:
	default:
		return nil, mappingdomain.ErrInvalidEntityRole
	}

	var serviceType *string
	if req.ServiceType != nil {
		trimmed := strings.TrimSpace(*req.ServiceType)
		if trimmed != "" {
			if !validServiceType(trimmed) {
				return nil, mappingdomain.ErrInvalidServiceType
			}
			serviceType = &trimmed
		}
	}

	scheme, err := s.schemeRepo.FindByID(ctx, s.db, schemeID)
	if err != nil {
		return nil, err
	}
	if scheme == nil {
		return nil, schemedomain.ErrNotFound
	}

	now := time.Now().UTC()
	mapping := &mappingdomain.EntityMapping{
		ID:             s.genID.Generate(),
		SchemeID:       scheme.ID,
		EntityID:       entityID,
		EntityRole:     string(entityRole),
		ServiceType:    serviceType,
		AssignedByID:   actorID,
		AssignedByRole: string(actorRole),
		Status:         mappingdomain.MappingStatusActive,
		Priority:       req.Priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.AssignActive(ctx, s.db, mapping); err != nil {
		return nil, err
	}

	s.log.Info("scheme assigned",
		zap.String("scheme_id", scheme.ID.String()),
		zap.String("entity_id", entityID.String()),
		zap.String("entity_role", string(entityRole)),
	)
	return toResponse(mapping), nil
}

func (s *Service) Resolve(ctx context.Context, req mappingdomain.ResolveRequest) (*mappingdomain.Resolution, error) {
	entityID, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil {
		return nil, mappingdomain.ErrInvalidEntity
	}
	entityRole := strings.TrimSpace(req.EntityRole)
	if entityRole == "" {
		return nil, mappingdomain.ErrInvalidEntityRole
	}
	serviceType := strings.TrimSpace(req.ServiceType)
	if !validServiceType(serviceType) {
		return nil, mappingdomain.ErrInvalidServiceType
	}

	now := time.Now().UTC()

	mapping, err := s.repo.FindActive(ctx, s.db, entityID, entityRole, serviceType)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		scheme, err := s.schemeRepo.FindByID(ctx, s.db, mapping.SchemeID)
		if err != nil {
			return nil, err
		}
		if scheme != nil && schemeUsable(scheme, serviceType, now) {
			return &mappingdomain.Resolution{
				Scheme:    scheme,
				SchemeID:  scheme.ID.String(),
				MappingID: mapping.ID.String(),
			}, nil
		}
		// Mapped scheme is inactive or outside its effective window; fall
		// through to the platform default rather than pricing off a dead
		// scheme.
	}

	fallback, err := s.schemeRepo.FindDefault(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if fallback == nil || !schemeUsable(fallback, serviceType, now) {
		return nil, mappingdomain.ErrNotFound
	}

	return &mappingdomain.Resolution{
		Scheme:   fallback,
		SchemeID: fallback.ID.String(),
		Default:  true,
	}, nil
}

func (s *Service) List(ctx context.Context, filter mappingdomain.ListFilter) ([]mappingdomain.Response, error) {
	var entityID, schemeID snowflake.ID
	if trimmed := strings.TrimSpace(filter.EntityID); trimmed != "" {
		id, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, mappingdomain.ErrInvalidEntity
		}
		entityID = id
	}
	if trimmed := strings.TrimSpace(filter.SchemeID); trimmed != "" {
		id, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, mappingdomain.ErrInvalidID
		}
		schemeID = id
	}

	items, err := s.repo.List(ctx, s.db, entityID, schemeID, filter.Status)
	if err != nil {
		return nil, err
	}
	resp := make([]mappingdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func schemeUsable(scheme *schemedomain.Scheme, serviceType string, at time.Time) bool {
	return scheme.Status == schemedomain.SchemeStatusActive &&
		scheme.EffectiveAt(at) &&
		scheme.Covers(schemedomain.ServiceScope(serviceType))
}

func validServiceType(serviceType string) bool {
	switch schemedomain.ServiceScope(serviceType) {
	case schemedomain.ServiceScopeBBPS, schemedomain.ServiceScopePayout, schemedomain.ServiceScopeMDR:
		return true
	default:
		return false
	}
}

func toResponse(m *mappingdomain.EntityMapping) *mappingdomain.Response {
	return &mappingdomain.Response{
		ID:             m.ID.String(),
		SchemeID:       m.SchemeID.String(),
		EntityID:       m.EntityID.String(),
		EntityRole:     m.EntityRole,
		ServiceType:    m.ServiceType,
		AssignedByID:   m.AssignedByID.String(),
		AssignedByRole: m.AssignedByRole,
		Status:         m.Status,
		Priority:       m.Priority,
		CreatedAt:      m.CreatedAt,
	}
}
