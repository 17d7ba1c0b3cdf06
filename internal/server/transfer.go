package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
)

func (s *Server) CreateTransfer(c *gin.Context) {
	var req transferdomain.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.transferSvc.Transfer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransfer(c *gin.Context) {
	resp, err := s.transferSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isTransferValidationError(err error) bool {
	switch err {
	case transferdomain.ErrInvalidUser,
		transferdomain.ErrInvalidAmount,
		transferdomain.ErrInvalidDirection,
		transferdomain.ErrInvalidAdjustType,
		transferdomain.ErrAmountOutOfLimits,
		transferdomain.ErrMissingIdempotency,
		transferdomain.ErrSameWallet,
		transferdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
