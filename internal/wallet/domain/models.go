// Package domain contains the wallet summary and append-only ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// WalletType partitions a user's funds.
type WalletType string

const (
	WalletTypePrimary WalletType = "primary"
	WalletTypeAEPS    WalletType = "aeps"
)

// Direction of a single ledger movement.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// FundCategory labels why funds moved.
type FundCategory string

const (
	FundCategoryCommission FundCategory = "commission"
	FundCategorySettlement FundCategory = "settlement"
	FundCategoryTransfer   FundCategory = "transfer"
	FundCategoryAdjustment FundCategory = "adjustment"
	FundCategoryCharge     FundCategory = "charge"
)

// ValidFundCategory reports whether the category is a known value.
func ValidFundCategory(c FundCategory) bool {
	switch c {
	case FundCategoryCommission, FundCategorySettlement, FundCategoryTransfer,
		FundCategoryAdjustment, FundCategoryCharge:
		return true
	default:
		return false
	}
}

// EntryStatus is the posting state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// Wallet is the summary row per (user, wallet type). It holds the derived
// balance and the admin flags; the row is the lock target for posting.
type Wallet struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	UserID         snowflake.ID    `json:"user_id" gorm:"not null;uniqueIndex:idx_wallets_user_type,priority:1"`
	WalletType     WalletType      `json:"wallet_type" gorm:"type:text;not null;uniqueIndex:idx_wallets_user_type,priority:2"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:numeric(20,2);not null"`
	Frozen         bool            `json:"frozen" gorm:"not null;default:false"`
	SettlementHeld bool            `json:"settlement_held" gorm:"not null;default:false"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletLedgerEntry is one append-only movement. Exactly one of credit and
// debit is non-zero; closing_balance is the balance immediately after the
// entry. Corrections are new entries, never edits.
type WalletLedgerEntry struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	UserID          snowflake.ID    `json:"user_id" gorm:"not null;index:idx_wallet_ledger_user_type"`
	WalletType      WalletType      `json:"wallet_type" gorm:"type:text;not null;index:idx_wallet_ledger_user_type"`
	TransactionType string          `json:"transaction_type" gorm:"type:text;not null"`
	Credit          decimal.Decimal `json:"credit" gorm:"type:numeric(20,2);not null"`
	Debit           decimal.Decimal `json:"debit" gorm:"type:numeric(20,2);not null"`
	ClosingBalance  decimal.Decimal `json:"closing_balance" gorm:"type:numeric(20,2);not null"`
	FundCategory    FundCategory    `json:"fund_category" gorm:"type:text;not null"`
	Status          EntryStatus     `json:"status" gorm:"type:text;not null"`
	ReferenceKey    string          `json:"reference_key" gorm:"type:text;not null;uniqueIndex"`
	Remarks         string          `json:"remarks" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (WalletLedgerEntry) TableName() string { return "wallet_ledger" }
