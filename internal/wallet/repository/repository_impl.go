package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	pkgdb "github.com/partnerpay/settlo/pkg/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() walletdomain.Repository {
	return &repo{}
}

const walletColumns = `id, user_id, wallet_type, balance, frozen, settlement_held, created_at, updated_at`

const entryColumns = `id, user_id, wallet_type, transaction_type, credit, debit,
	 closing_balance, fund_category, status, reference_key, remarks, created_at`

// lockSuffix returns the row-lock clause for dialects that support it.
// SQLite serializes writers at the database level, so the clause is
// unnecessary there.
func lockSuffix(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}

func (r *repo) LockWallet(ctx context.Context, tx *gorm.DB, userID snowflake.ID, walletType walletdomain.WalletType, newID snowflake.ID) (*walletdomain.Wallet, error) {
	wallet, err := r.selectWallet(ctx, tx, userID, walletType, lockSuffix(tx))
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	err = tx.WithContext(ctx).Exec(
		`INSERT INTO wallets (`+walletColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		newID, userID, walletType, decimal.Zero, false, false, now, now,
	).Error
	// Another instance may create the wallet between the select and the
	// insert; the (user_id, wallet_type) unique constraint reports that as a
	// duplicate key and the re-select below picks up the winner's row.
	if err != nil && !pkgdb.IsDuplicateKeyErr(err) {
		return nil, err
	}
	return r.selectWallet(ctx, tx, userID, walletType, lockSuffix(tx))
}

func (r *repo) FindWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType walletdomain.WalletType) (*walletdomain.Wallet, error) {
	return r.selectWallet(ctx, db, userID, walletType, "")
}

func (r *repo) selectWallet(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType walletdomain.WalletType, suffix string) (*walletdomain.Wallet, error) {
	var wallet walletdomain.Wallet
	err := db.WithContext(ctx).Raw(
		`SELECT `+walletColumns+` FROM wallets
		 WHERE user_id = ? AND wallet_type = ?`+suffix,
		userID, walletType,
	).Scan(&wallet).Error
	if err != nil {
		return nil, err
	}
	if wallet.ID == 0 {
		return nil, nil
	}
	return &wallet, nil
}

func (r *repo) UpdateWallet(ctx context.Context, tx *gorm.DB, wallet *walletdomain.Wallet) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance = ?, frozen = ?, settlement_held = ?, updated_at = ?
		 WHERE id = ?`,
		wallet.Balance, wallet.Frozen, wallet.SettlementHeld, wallet.UpdatedAt, wallet.ID,
	).Error
}

func (r *repo) InsertEntry(ctx context.Context, tx *gorm.DB, entry *walletdomain.WalletLedgerEntry) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO wallet_ledger (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.WalletType, entry.TransactionType,
		entry.Credit, entry.Debit, entry.ClosingBalance,
		entry.FundCategory, entry.Status, entry.ReferenceKey, entry.Remarks,
		entry.CreatedAt,
	).Error
}

func (r *repo) FindEntryByReferenceKey(ctx context.Context, db *gorm.DB, key string) (*walletdomain.WalletLedgerEntry, error) {
	var entry walletdomain.WalletLedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT `+entryColumns+` FROM wallet_ledger WHERE reference_key = ?`,
		key,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType walletdomain.WalletType, afterID snowflake.ID, limit int) ([]walletdomain.WalletLedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_ledger
		 WHERE user_id = ? AND wallet_type = ?`
	args := []any{userID, walletType}
	if afterID != 0 {
		query += ` AND id < ?`
		args = append(args, afterID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var items []walletdomain.WalletLedgerEntry
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LastEntry(ctx context.Context, db *gorm.DB, userID snowflake.ID, walletType walletdomain.WalletType) (*walletdomain.WalletLedgerEntry, error) {
	var entry walletdomain.WalletLedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT `+entryColumns+` FROM wallet_ledger
		 WHERE user_id = ? AND wallet_type = ?
		 ORDER BY id DESC LIMIT 1`,
		userID, walletType,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}
