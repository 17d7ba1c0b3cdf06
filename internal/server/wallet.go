package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/partnerpay/settlo/pkg/db/pagination"
)

func (s *Server) PostWalletEntry(c *gin.Context) {
	var req walletdomain.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.walletSvc.Post(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetWalletBalance(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	walletType := parseWalletType(c.Query("wallet_type"))

	balance, err := s.walletSvc.GetBalance(c.Request.Context(), userID, walletType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id":     userID,
		"wallet_type": walletType,
		"balance":     balance,
	}})
}

func (s *Server) ListWalletEntries(c *gin.Context) {
	var query struct {
		UserID     string `form:"user_id"`
		WalletType string `form:"wallet_type"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.walletSvc.ListEntries(c.Request.Context(), walletdomain.ListEntriesRequest{
		UserID:     strings.TrimSpace(query.UserID),
		WalletType: parseWalletType(query.WalletType),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type walletFlagRequest struct {
	UserID     string `json:"user_id"`
	WalletType string `json:"wallet_type"`
	Enabled    *bool  `json:"enabled"`
}

func (s *Server) SetWalletFreeze(c *gin.Context) {
	var req walletFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.walletSvc.SetFrozen(c.Request.Context(), strings.TrimSpace(req.UserID), parseWalletType(req.WalletType), *req.Enabled); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": req.UserID, "frozen": *req.Enabled}})
}

func (s *Server) SetWalletSettlementHold(c *gin.Context) {
	var req walletFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.walletSvc.SetSettlementHold(c.Request.Context(), strings.TrimSpace(req.UserID), parseWalletType(req.WalletType), *req.Enabled); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": req.UserID, "settlement_held": *req.Enabled}})
}

// parseWalletType defaults the read and toggle endpoints to the primary wallet.
func parseWalletType(raw string) walletdomain.WalletType {
	value := strings.TrimSpace(raw)
	if value == "" {
		return walletdomain.WalletTypePrimary
	}
	return walletdomain.WalletType(value)
}

func isWalletValidationError(err error) bool {
	switch err {
	case walletdomain.ErrInvalidUser,
		walletdomain.ErrInvalidWalletType,
		walletdomain.ErrInvalidAmount,
		walletdomain.ErrInvalidDirection,
		walletdomain.ErrInvalidFundCategory,
		walletdomain.ErrMissingIdempotency:
		return true
	default:
		return false
	}
}
