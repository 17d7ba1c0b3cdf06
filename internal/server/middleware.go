package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/partnerpay/settlo/internal/actorctx"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

// ActorContext resolves the acting entity from the gateway-injected headers
// and stores it on the request context. Requests without a valid actor never
// reach a handler.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := strings.TrimSpace(c.GetHeader(headerActorID))
		actorID, err := snowflake.ParseString(rawID)
		if err != nil || rawID == "" {
			AbortWithError(c, newValidationError("actor_id", "invalid_actor", "missing or malformed actor id header"))
			return
		}

		role, ok := actorctx.ParseRole(c.GetHeader(headerActorRole))
		if !ok {
			AbortWithError(c, newValidationError("actor_role", "invalid_actor_role", "missing or unknown actor role header"))
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actorID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequirePermission gates the route on the actor's role policy.
func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := actorctx.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, newValidationError("actor_id", "invalid_actor", "missing actor"))
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
