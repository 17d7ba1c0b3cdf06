package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
)

func (s *Server) ResolveCommission(c *gin.Context) {
	var req commissiondomain.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commissionSvc.Resolve(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordCommission(c *gin.Context) {
	var req commissiondomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commissionSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissionBySource(c *gin.Context) {
	sourceTxnID := strings.TrimSpace(c.Query("source_txn_id"))
	if sourceTxnID == "" {
		AbortWithError(c, newValidationError("source_txn_id", "invalid_request", "source_txn_id is required"))
		return
	}

	resp, err := s.commissionSvc.ListBySource(c.Request.Context(), sourceTxnID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// AdjustCommission posts a correcting wallet entry against the commission's
// entity. The original ledger row stays untouched.
func (s *Server) AdjustCommission(c *gin.Context) {
	var req transferdomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transferSvc.Adjust(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCommissionValidationError(err error) bool {
	switch err {
	case commissiondomain.ErrInvalidAmount,
		commissiondomain.ErrInvalidTiming,
		commissiondomain.ErrInvalidRequest,
		commissiondomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
