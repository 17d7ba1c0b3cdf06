package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
)

func (s *Server) AddBBPSRate(c *gin.Context) {
	var req ratedomain.AddBBPSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rateSvc.AddBBPS(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddPayoutRate(c *gin.Context) {
	var req ratedomain.AddPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rateSvc.AddPayout(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddMDRRate(c *gin.Context) {
	var req ratedomain.AddMDRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rateSvc.AddMDR(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchemeRates(c *gin.Context) {
	resp, err := s.rateSvc.ListActive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateRate(c *gin.Context) {
	kind := ratedomain.RateKind(strings.TrimSpace(c.Param("kind")))
	id := strings.TrimSpace(c.Param("id"))

	if err := s.rateSvc.Deactivate(c.Request.Context(), kind, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "kind": kind, "deactivated": true}})
}

func isRateValidationError(err error) bool {
	switch err {
	case ratedomain.ErrInvalidID,
		ratedomain.ErrInvalidRateKind,
		ratedomain.ErrInvalidAmountType,
		ratedomain.ErrRateOutOfRange,
		ratedomain.ErrInvalidSlabBounds,
		ratedomain.ErrSlabOverlap,
		ratedomain.ErrTierOrdering,
		ratedomain.ErrInvalidTransferMode,
		ratedomain.ErrInvalidMode,
		ratedomain.ErrInvalidCardType,
		ratedomain.ErrIncompatibleBrand,
		ratedomain.ErrDuplicateRate:
		return true
	default:
		return false
	}
}
