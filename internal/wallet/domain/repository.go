package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// LockWallet returns the summary row under an exclusive row lock,
	// creating it at zero balance when absent. Must run inside a
	// transaction.
	LockWallet(ctx context.Context, tx *gorm.DB, userID snowflake.ID, walletType WalletType, newID snowflake.ID) (*Wallet, error)
	FindWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType WalletType) (*Wallet, error)
	UpdateWallet(ctx context.Context, tx *gorm.DB, wallet *Wallet) error

	InsertEntry(ctx context.Context, tx *gorm.DB, entry *WalletLedgerEntry) error
	FindEntryByReferenceKey(ctx context.Context, db *gorm.DB, key string) (*WalletLedgerEntry, error)
	// ListEntries returns entries newest first, keyed after the cursor id
	// when non-zero.
	ListEntries(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType WalletType, afterID snowflake.ID, limit int) ([]WalletLedgerEntry, error)
	// LastEntry returns the most recent entry for continuity checks.
	LastEntry(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType WalletType) (*WalletLedgerEntry, error)
}
