package domain

import (
	"context"
	"errors"
	"time"

	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Transfer moves funds between two wallets as a debit leg and a credit
	// leg. A failed credit leg is compensated before the error is returned;
	// partial application never survives the call.
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	// Adjust posts an adjustment-category wallet entry against the entity of
	// a recorded commission row. The original row is never mutated.
	Adjust(ctx context.Context, commissionID string, req AdjustRequest) (*walletdomain.EntryResponse, error)
	Get(ctx context.Context, id string) (*TransferResult, error)
}

type TransferRequest struct {
	FromUserID     string                    `json:"from_user_id"`
	ToUserID       string                    `json:"to_user_id"`
	Amount         decimal.Decimal           `json:"amount"`
	FundCategory   walletdomain.FundCategory `json:"fund_category"`
	Direction      TransferDirection         `json:"direction"`
	Remarks        string                    `json:"remarks"`
	IdempotencyKey string                    `json:"idempotency_key"`
}

type TransferResult struct {
	ID            string                    `json:"id"`
	FromUserID    string                    `json:"from_user_id"`
	ToUserID      string                    `json:"to_user_id"`
	Amount        decimal.Decimal           `json:"amount"`
	FundCategory  walletdomain.FundCategory `json:"fund_category"`
	Direction     TransferDirection         `json:"direction"`
	Status        TransferStatus            `json:"status"`
	Remarks       string                    `json:"remarks,omitempty"`
	FailureReason string                    `json:"failure_reason,omitempty"`
	Duplicate     bool                      `json:"duplicate,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

type AdjustRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Type           AdjustType      `json:"type"`
	Remarks        string          `json:"remarks"`
	IdempotencyKey string          `json:"idempotency_key"`
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidDirection   = errors.New("invalid_transfer_direction")
	ErrInvalidAdjustType  = errors.New("invalid_adjust_type")
	ErrAmountOutOfLimits  = errors.New("amount_out_of_limits")
	ErrMissingIdempotency = errors.New("missing_idempotency_key")
	ErrSameWallet         = errors.New("same_wallet_transfer")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("transfer_not_found")
)
