package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
)

func (s *Server) AssignMapping(c *gin.Context) {
	var req mappingdomain.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mappingSvc.Assign(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMappings(c *gin.Context) {
	var query struct {
		EntityID string `form:"entity_id"`
		SchemeID string `form:"scheme_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.mappingSvc.List(c.Request.Context(), mappingdomain.ListFilter{
		EntityID: strings.TrimSpace(query.EntityID),
		SchemeID: strings.TrimSpace(query.SchemeID),
		Status:   mappingdomain.MappingStatus(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isMappingValidationError(err error) bool {
	switch err {
	case mappingdomain.ErrInvalidEntity,
		mappingdomain.ErrInvalidEntityRole,
		mappingdomain.ErrInvalidServiceType,
		mappingdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
