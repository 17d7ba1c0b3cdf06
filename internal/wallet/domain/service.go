package domain

import (
	"context"
	"errors"
	"time"

	"github.com/partnerpay/settlo/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Post appends one ledger movement atomically with the balance it
	// derives from. A replayed idempotency key returns the original entry
	// with Duplicate set, never a second posting.
	Post(ctx context.Context, req PostRequest) (*EntryResponse, error)
	GetBalance(ctx context.Context, userID string, walletType WalletType) (decimal.Decimal, error)
	SetFrozen(ctx context.Context, userID string, walletType WalletType, frozen bool) error
	SetSettlementHold(ctx context.Context, userID string, walletType WalletType, held bool) error
	ListEntries(ctx context.Context, req ListEntriesRequest) (*ListEntriesResponse, error)
}

type PostRequest struct {
	UserID          string          `json:"user_id"`
	WalletType      WalletType      `json:"wallet_type"`
	Amount          decimal.Decimal `json:"amount"`
	Direction       Direction       `json:"direction"`
	FundCategory    FundCategory    `json:"fund_category"`
	TransactionType string          `json:"transaction_type"`
	IdempotencyKey  string          `json:"idempotency_key"`
	Remarks         string          `json:"remarks"`
}

type EntryResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	WalletType      WalletType      `json:"wallet_type"`
	TransactionType string          `json:"transaction_type"`
	Credit          decimal.Decimal `json:"credit"`
	Debit           decimal.Decimal `json:"debit"`
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
	FundCategory    FundCategory    `json:"fund_category"`
	Status          EntryStatus     `json:"status"`
	ReferenceKey    string          `json:"reference_key"`
	Remarks         string          `json:"remarks,omitempty"`
	Duplicate       bool            `json:"duplicate,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ListEntriesRequest struct {
	UserID     string
	WalletType WalletType
	Pagination pagination.Pagination
}

type ListEntriesResponse struct {
	Entries  []EntryResponse      `json:"entries"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidWalletType   = errors.New("invalid_wallet_type")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDirection    = errors.New("invalid_direction")
	ErrInvalidFundCategory = errors.New("invalid_fund_category")
	ErrMissingIdempotency  = errors.New("missing_idempotency_key")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrWalletFrozen        = errors.New("wallet_frozen")
	ErrSettlementHeld      = errors.New("settlement_held")
	ErrNotFound            = errors.New("wallet_not_found")
)
