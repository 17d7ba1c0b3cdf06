package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/partnerpay/settlo/internal/actorctx"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  schemedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  schemedomain.Repository
}

func New(p Params) schemedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("scheme.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req schemedomain.CreateRequest) (*schemedomain.Response, error) {
	actorID, actorRole, err := authoringActor(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, schemedomain.ErrInvalidName
	}

	if !validSchemeType(req.SchemeType) {
		return nil, schemedomain.ErrInvalidSchemeType
	}
	// Only an admin may author platform-wide scheme types.
	if req.SchemeType != schemedomain.SchemeTypeCustom && actorRole != actorctx.RoleAdmin {
		return nil, schemedomain.ErrForbidden
	}

	if !validServiceScope(req.ServiceScope) {
		return nil, schemedomain.ErrInvalidServiceScope
	}

	// Priority is caller-supplied on purpose: lower values are evaluated
	// first and implicit defaults would mask mis-ranked schemes.
	if req.Priority == nil || *req.Priority < 0 {
		return nil, schemedomain.ErrInvalidPriority
	}

	now := time.Now().UTC()
	effectiveFrom := now
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	if req.EffectiveTo != nil && !req.EffectiveTo.After(effectiveFrom) {
		return nil, schemedomain.ErrInvalidEffectiveTo
	}

	entity := &schemedomain.Scheme{
		ID:            s.genID.Generate(),
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		SchemeType:    req.SchemeType,
		ServiceScope:  req.ServiceScope,
		Priority:      *req.Priority,
		Status:        schemedomain.SchemeStatusDraft,
		CreatedByID:   actorID,
		CreatedByRole: string(actorRole),
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	s.log.Info("scheme created",
		zap.String("scheme_id", entity.ID.String()),
		zap.String("scheme_type", string(entity.SchemeType)),
		zap.String("created_by", actorID.String()),
	)

	return toResponse(entity), nil
}

func (s *Service) Update(ctx context.Context, id string, req schemedomain.UpdateRequest) (*schemedomain.Response, error) {
	entity, err := s.findMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, schemedomain.ErrInvalidName
		}
		entity.Name = name
	}
	if req.Description != nil {
		entity.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		if *req.Priority < 0 {
			return nil, schemedomain.ErrInvalidPriority
		}
		entity.Priority = *req.Priority
	}
	if req.EffectiveTo != nil {
		if !req.EffectiveTo.After(entity.EffectiveFrom) {
			return nil, schemedomain.ErrInvalidEffectiveTo
		}
		entity.EffectiveTo = req.EffectiveTo
	}

	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}

	return toResponse(entity), nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status schemedomain.SchemeStatus) (*schemedomain.Response, error) {
	switch status {
	case schemedomain.SchemeStatusActive, schemedomain.SchemeStatusInactive, schemedomain.SchemeStatusDraft:
	default:
		return nil, schemedomain.ErrInvalidStatus
	}

	entity, err := s.findMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	entity.Status = status
	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}

	s.log.Info("scheme status changed",
		zap.String("scheme_id", entity.ID.String()),
		zap.String("status", string(status)),
	)

	return toResponse(entity), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entity, err := s.findMutable(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, entity.ID); err != nil {
		return err
	}

	s.log.Info("scheme deleted", zap.String("scheme_id", entity.ID.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*schemedomain.Response, error) {
	schemeID, err := parseID(id)
	if err != nil {
		return nil, schemedomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, schemeID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, schemedomain.ErrNotFound
	}

	return toResponse(entity), nil
}

func (s *Service) List(ctx context.Context, filter schemedomain.ListFilter) ([]schemedomain.Response, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]schemedomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

// findMutable loads the scheme and checks the actor may mutate it:
// admins always, other roles only for schemes they authored.
func (s *Service) findMutable(ctx context.Context, id string) (*schemedomain.Scheme, error) {
	actorID, actorRole, err := authoringActor(ctx)
	if err != nil {
		return nil, err
	}

	schemeID, err := parseID(id)
	if err != nil {
		return nil, schemedomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, schemeID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, schemedomain.ErrNotFound
	}

	if actorRole != actorctx.RoleAdmin && entity.CreatedByID != actorID {
		return nil, schemedomain.ErrForbidden
	}
	return entity, nil
}

func authoringActor(ctx context.Context) (snowflake.ID, actorctx.Role, error) {
	actorID, actorRole, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return 0, "", schemedomain.ErrInvalidActor
	}
	switch actorRole {
	case actorctx.RoleAdmin, actorctx.RoleDistributor, actorctx.RoleMasterDistributor:
		return actorID, actorRole, nil
	default:
		return 0, "", schemedomain.ErrForbidden
	}
}

func validSchemeType(t schemedomain.SchemeType) bool {
	switch t {
	case schemedomain.SchemeTypeGlobal, schemedomain.SchemeTypeGolden, schemedomain.SchemeTypeCustom:
		return true
	default:
		return false
	}
}

func validServiceScope(scope schemedomain.ServiceScope) bool {
	switch scope {
	case schemedomain.ServiceScopeAll, schemedomain.ServiceScopeBBPS, schemedomain.ServiceScopePayout, schemedomain.ServiceScopeMDR:
		return true
	default:
		return false
	}
}

func toResponse(s *schemedomain.Scheme) *schemedomain.Response {
	return &schemedomain.Response{
		ID:            s.ID.String(),
		Name:          s.Name,
		Description:   s.Description,
		SchemeType:    s.SchemeType,
		ServiceScope:  s.ServiceScope,
		Priority:      s.Priority,
		Status:        s.Status,
		CreatedByID:   s.CreatedByID.String(),
		CreatedByRole: s.CreatedByRole,
		EffectiveFrom: s.EffectiveFrom,
		EffectiveTo:   s.EffectiveTo,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
