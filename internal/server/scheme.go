package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
)

type createSchemeRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	SchemeType    string         `json:"scheme_type"`
	ServiceScope  string         `json:"service_scope"`
	Priority      *int           `json:"priority"`
	EffectiveFrom *time.Time     `json:"effective_from"`
	EffectiveTo   *time.Time     `json:"effective_to"`
	Metadata      map[string]any `json:"metadata"`
}

func (s *Server) CreateScheme(c *gin.Context) {
	var req createSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.schemeSvc.Create(c.Request.Context(), schemedomain.CreateRequest{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		SchemeType:    schemedomain.SchemeType(strings.TrimSpace(req.SchemeType)),
		ServiceScope:  schemedomain.ServiceScope(strings.TrimSpace(req.ServiceScope)),
		Priority:      req.Priority,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchemes(c *gin.Context) {
	var query struct {
		SchemeType   string `form:"scheme_type"`
		ServiceScope string `form:"service_scope"`
		Status       string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.schemeSvc.List(c.Request.Context(), schemedomain.ListFilter{
		SchemeType:   schemedomain.SchemeType(strings.TrimSpace(query.SchemeType)),
		ServiceScope: schemedomain.ServiceScope(strings.TrimSpace(query.ServiceScope)),
		Status:       schemedomain.SchemeStatus(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetScheme(c *gin.Context) {
	resp, err := s.schemeSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateScheme(c *gin.Context) {
	var req schemedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.schemeSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetSchemeStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.schemeSvc.SetStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), schemedomain.SchemeStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteScheme(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.schemeSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}

func isSchemeValidationError(err error) bool {
	switch err {
	case schemedomain.ErrInvalidName,
		schemedomain.ErrInvalidSchemeType,
		schemedomain.ErrInvalidServiceScope,
		schemedomain.ErrInvalidPriority,
		schemedomain.ErrInvalidStatus,
		schemedomain.ErrInvalidEffectiveTo,
		schemedomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
