// Package authorization gates HTTP operations by actor role. Service-level
// ownership checks still apply after a request passes the gate.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/partnerpay/settlo/internal/actorctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectScheme     = "scheme"
	ObjectRate       = "rate"
	ObjectMapping    = "mapping"
	ObjectCommission = "commission"
	ObjectWallet     = "wallet"
	ObjectTransfer   = "transfer"
)

const (
	ActionSchemeCreate = "scheme.create"
	ActionSchemeUpdate = "scheme.update"
	ActionSchemeStatus = "scheme.status"
	ActionSchemeDelete = "scheme.delete"
	ActionSchemeView   = "scheme.view"

	ActionRateCreate     = "rate.create"
	ActionRateDeactivate = "rate.deactivate"
	ActionRateView       = "rate.view"

	ActionMappingAssign = "mapping.assign"
	ActionMappingView   = "mapping.view"

	ActionCommissionResolve = "commission.resolve"
	ActionCommissionRecord  = "commission.record"
	ActionCommissionAdjust  = "commission.adjust"
	ActionCommissionView    = "commission.view"

	ActionWalletPost   = "wallet.post"
	ActionWalletView   = "wallet.view"
	ActionWalletFreeze = "wallet.freeze"
	ActionWalletHold   = "wallet.hold"

	ActionTransferCreate = "transfer.create"
	ActionTransferView   = "transfer.view"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, role actorctx.Role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role actorctx.Role, object, action string) error {
	if !role.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subjectFor(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subjectFor(role actorctx.Role) string {
	return "role:" + string(role)
}

// seedPolicies installs the built-in tier permissions. Admin holds every
// action; partner tiers hold the subset the portal exposes to them.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	adminActions := map[string][]string{
		ObjectScheme: {
			ActionSchemeCreate, ActionSchemeUpdate, ActionSchemeStatus,
			ActionSchemeDelete, ActionSchemeView,
		},
		ObjectRate:    {ActionRateCreate, ActionRateDeactivate, ActionRateView},
		ObjectMapping: {ActionMappingAssign, ActionMappingView},
		ObjectCommission: {
			ActionCommissionResolve, ActionCommissionRecord,
			ActionCommissionAdjust, ActionCommissionView,
		},
		ObjectWallet:   {ActionWalletPost, ActionWalletView, ActionWalletFreeze, ActionWalletHold},
		ObjectTransfer: {ActionTransferCreate, ActionTransferView},
	}

	partnerActions := map[string][]string{
		ObjectScheme:     {ActionSchemeCreate, ActionSchemeUpdate, ActionSchemeStatus, ActionSchemeDelete, ActionSchemeView},
		ObjectRate:       {ActionRateCreate, ActionRateDeactivate, ActionRateView},
		ObjectMapping:    {ActionMappingAssign, ActionMappingView},
		ObjectCommission: {ActionCommissionResolve, ActionCommissionView},
		ObjectWallet:     {ActionWalletView},
		ObjectTransfer:   {ActionTransferCreate, ActionTransferView},
	}

	retailerActions := map[string][]string{
		ObjectScheme:     {ActionSchemeView},
		ObjectRate:       {ActionRateView},
		ObjectCommission: {ActionCommissionResolve, ActionCommissionView},
		ObjectWallet:     {ActionWalletView},
		ObjectTransfer:   {ActionTransferView},
	}

	grants := []struct {
		role    actorctx.Role
		actions map[string][]string
	}{
		{actorctx.RoleAdmin, adminActions},
		{actorctx.RoleMasterDistributor, partnerActions},
		{actorctx.RoleDistributor, partnerActions},
		{actorctx.RoleRetailer, retailerActions},
	}

	for _, grant := range grants {
		subject := subjectFor(grant.role)
		for object, actions := range grant.actions {
			for _, action := range actions {
				has, err := enforcer.HasPolicy(subject, object, action)
				if err != nil {
					return err
				}
				if !has {
					if _, err := enforcer.AddPolicy(subject, object, action); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
