package actorctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role identifies the tier of the acting entity.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleMasterDistributor Role = "master_distributor"
	RoleDistributor       Role = "distributor"
	RoleRetailer          Role = "retailer"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMasterDistributor, RoleDistributor, RoleRetailer:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

type actorKey struct{}

type actor struct {
	ID   snowflake.ID
	Role Role
}

// WithActor stores the acting entity in the request context.
func WithActor(ctx context.Context, id snowflake.ID, role Role) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{ID: id, Role: role})
}

// ActorFromContext returns the acting entity, if set.
func ActorFromContext(ctx context.Context) (snowflake.ID, Role, bool) {
	if ctx == nil {
		return 0, "", false
	}
	value, ok := ctx.Value(actorKey{}).(actor)
	if !ok || value.ID == 0 {
		return 0, "", false
	}
	return value.ID, value.Role, true
}
