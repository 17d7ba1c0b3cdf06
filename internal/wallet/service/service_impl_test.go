package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/partnerpay/settlo/internal/config"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/partnerpay/settlo/internal/wallet/repository"
	"github.com/partnerpay/settlo/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWalletService(t *testing.T) (walletdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	if err := db.AutoMigrate(&walletdomain.Wallet{}, &walletdomain.WalletLedgerEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node := mustNode(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg:   config.Config{},
	})
	return svc, db, node
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func postEntry(t *testing.T, svc walletdomain.Service, userID string, direction walletdomain.Direction, amount string, key string) *walletdomain.EntryResponse {
	t.Helper()
	resp, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:          userID,
		WalletType:      walletdomain.WalletTypePrimary,
		Amount:          decimal.RequireFromString(amount),
		Direction:       direction,
		FundCategory:    walletdomain.FundCategoryTransfer,
		TransactionType: "test",
		IdempotencyKey:  key,
	})
	if err != nil {
		t.Fatalf("post %s %s: %v", direction, amount, err)
	}
	return resp
}

func TestPostValidation(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()
	ctx := context.Background()

	base := walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(10),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategoryTransfer,
		IdempotencyKey: "k1",
	}

	cases := []struct {
		name   string
		mutate func(*walletdomain.PostRequest)
		want   error
	}{
		{"bad user", func(r *walletdomain.PostRequest) { r.UserID = "not-a-number" }, walletdomain.ErrInvalidUser},
		{"bad wallet type", func(r *walletdomain.PostRequest) { r.WalletType = "savings" }, walletdomain.ErrInvalidWalletType},
		{"zero amount", func(r *walletdomain.PostRequest) { r.Amount = decimal.Zero }, walletdomain.ErrInvalidAmount},
		{"negative amount", func(r *walletdomain.PostRequest) { r.Amount = decimal.NewFromInt(-5) }, walletdomain.ErrInvalidAmount},
		{"bad direction", func(r *walletdomain.PostRequest) { r.Direction = "sideways" }, walletdomain.ErrInvalidDirection},
		{"bad category", func(r *walletdomain.PostRequest) { r.FundCategory = "bonus" }, walletdomain.ErrInvalidFundCategory},
		{"missing key", func(r *walletdomain.PostRequest) { r.IdempotencyKey = "  " }, walletdomain.ErrMissingIdempotency},
	}
	for _, tc := range cases {
		req := base
		tc.mutate(&req)
		if _, err := svc.Post(ctx, req); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestPostLedgerContinuity(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()

	first := postEntry(t, svc, userID, walletdomain.DirectionCredit, "100", "c-1")
	if first.ClosingBalance.StringFixed(2) != "100.00" {
		t.Fatalf("expected closing 100.00, got %s", first.ClosingBalance)
	}

	second := postEntry(t, svc, userID, walletdomain.DirectionDebit, "40", "d-1")
	if second.ClosingBalance.StringFixed(2) != "60.00" {
		t.Fatalf("expected closing 60.00, got %s", second.ClosingBalance)
	}

	balance, err := svc.GetBalance(context.Background(), userID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.StringFixed(2) != "60.00" {
		t.Fatalf("expected balance 60.00, got %s", balance)
	}
}

func TestPostInsufficientFunds(t *testing.T) {
	svc, db, node := setupWalletService(t)
	userID := node.Generate().String()

	postEntry(t, svc, userID, walletdomain.DirectionCredit, "100", "seed")

	_, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(150),
		Direction:      walletdomain.DirectionDebit,
		FundCategory:   walletdomain.FundCategoryTransfer,
		IdempotencyKey: "over",
	})
	if err != walletdomain.ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, err := svc.GetBalance(context.Background(), userID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("balance moved on rejected debit: %s", balance)
	}
	if count := countLedgerRows(t, db); count != 1 {
		t.Fatalf("expected 1 ledger row, got %d", count)
	}
}

func TestPostChainsFromLedgerTail(t *testing.T) {
	svc, db, node := setupWalletService(t)
	userID := node.Generate().String()

	postEntry(t, svc, userID, walletdomain.DirectionCredit, "100", "tail-seed")

	// Drift the summary row; the ledger tail stays the balance of record.
	if err := db.Exec(`UPDATE wallets SET balance = 999`).Error; err != nil {
		t.Fatalf("drift summary: %v", err)
	}

	_, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(150),
		Direction:      walletdomain.DirectionDebit,
		FundCategory:   walletdomain.FundCategoryTransfer,
		IdempotencyKey: "tail-over",
	})
	if err != walletdomain.ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds from ledger tail, got %v", err)
	}

	resp := postEntry(t, svc, userID, walletdomain.DirectionDebit, "40", "tail-debit")
	if resp.ClosingBalance.StringFixed(2) != "60.00" {
		t.Fatalf("expected closing 60.00 from ledger tail, got %s", resp.ClosingBalance)
	}

	// Posting re-syncs the summary to the ledger-derived balance.
	balance, err := svc.GetBalance(context.Background(), userID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.StringFixed(2) != "60.00" {
		t.Fatalf("summary not re-synced: %s", balance)
	}
}

func TestPostIdempotentReplay(t *testing.T) {
	svc, db, node := setupWalletService(t)
	userID := node.Generate().String()

	req := walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(25),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategoryCommission,
		IdempotencyKey: "replay-key",
	}

	first, err := svc.Post(context.Background(), req)
	if err != nil {
		t.Fatalf("first post: %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first post flagged duplicate")
	}

	second, err := svc.Post(context.Background(), req)
	if err != nil {
		t.Fatalf("replay post: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("replay not flagged duplicate")
	}
	if first.ID != second.ID {
		t.Fatalf("replay returned a different entry: %s vs %s", first.ID, second.ID)
	}
	if count := countLedgerRows(t, db); count != 1 {
		t.Fatalf("expected 1 ledger row after replay, got %d", count)
	}
}

func TestPostFrozenWallet(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()

	if err := svc.SetFrozen(context.Background(), userID, walletdomain.WalletTypePrimary, true); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	_, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(10),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategoryTransfer,
		IdempotencyKey: "frozen-1",
	})
	if err != walletdomain.ErrWalletFrozen {
		t.Fatalf("expected wallet frozen, got %v", err)
	}

	if err := svc.SetFrozen(context.Background(), userID, walletdomain.WalletTypePrimary, false); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	postEntry(t, svc, userID, walletdomain.DirectionCredit, "10", "frozen-2")
}

func TestSettlementHoldBlocksOnlySettlement(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()

	if err := svc.SetSettlementHold(context.Background(), userID, walletdomain.WalletTypePrimary, true); err != nil {
		t.Fatalf("hold: %v", err)
	}

	_, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(10),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategorySettlement,
		IdempotencyKey: "held-1",
	})
	if err != walletdomain.ErrSettlementHeld {
		t.Fatalf("expected settlement held, got %v", err)
	}

	// Commission credits keep flowing while settlement is held.
	resp, err := svc.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.NewFromInt(10),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategoryCommission,
		IdempotencyKey: "held-2",
	})
	if err != nil {
		t.Fatalf("commission credit under hold: %v", err)
	}
	if resp.ClosingBalance.StringFixed(2) != "10.00" {
		t.Fatalf("expected closing 10.00, got %s", resp.ClosingBalance)
	}
}

func TestConcurrentCreditsSerialize(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Post(context.Background(), walletdomain.PostRequest{
				UserID:         userID,
				WalletType:     walletdomain.WalletTypePrimary,
				Amount:         decimal.NewFromInt(50),
				Direction:      walletdomain.DirectionCredit,
				FundCategory:   walletdomain.FundCategoryTransfer,
				IdempotencyKey: fmt.Sprintf("conc-%d", n),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent post: %v", err)
		}
	}

	balance, err := svc.GetBalance(context.Background(), userID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("expected 100.00 after two credits, got %s", balance)
	}

	// Closing balances must chain, whatever the interleaving was.
	resp, err := svc.ListEntries(context.Background(), walletdomain.ListEntriesRequest{
		UserID:     userID,
		WalletType: walletdomain.WalletTypePrimary,
	})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].ClosingBalance.StringFixed(2) != "100.00" ||
		resp.Entries[1].ClosingBalance.StringFixed(2) != "50.00" {
		t.Fatalf("closing balances do not chain: %s, %s",
			resp.Entries[0].ClosingBalance, resp.Entries[1].ClosingBalance)
	}
}

func TestListEntriesPagination(t *testing.T) {
	svc, _, node := setupWalletService(t)
	userID := node.Generate().String()

	for i := 0; i < 3; i++ {
		postEntry(t, svc, userID, walletdomain.DirectionCredit, "10", fmt.Sprintf("page-%d", i))
	}

	first, err := svc.ListEntries(context.Background(), walletdomain.ListEntriesRequest{
		UserID:     userID,
		WalletType: walletdomain.WalletTypePrimary,
		Pagination: paginationOf(2, ""),
	})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Entries) != 2 {
		t.Fatalf("expected 2 entries on first page, got %d", len(first.Entries))
	}
	if first.PageInfo == nil || !first.PageInfo.HasMore {
		t.Fatalf("expected more pages")
	}

	second, err := svc.ListEntries(context.Background(), walletdomain.ListEntriesRequest{
		UserID:     userID,
		WalletType: walletdomain.WalletTypePrimary,
		Pagination: paginationOf(2, first.PageInfo.NextPageToken),
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Entries) != 1 {
		t.Fatalf("expected 1 entry on second page, got %d", len(second.Entries))
	}
	if second.PageInfo != nil && second.PageInfo.HasMore {
		t.Fatalf("unexpected third page")
	}
}

func paginationOf(size int, token string) pagination.Pagination {
	return pagination.Pagination{PageSize: size, PageToken: token}
}

func countLedgerRows(t *testing.T, db *gorm.DB) int {
	t.Helper()
	var count int
	if err := db.Raw(`SELECT COUNT(1) FROM wallet_ledger`).Scan(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	return count
}
