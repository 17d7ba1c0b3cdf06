package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	commissionrepo "github.com/partnerpay/settlo/internal/commission/repository"
	"github.com/partnerpay/settlo/internal/config"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
	"github.com/partnerpay/settlo/internal/transfer/repository"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	walletrepo "github.com/partnerpay/settlo/internal/wallet/repository"
	walletservice "github.com/partnerpay/settlo/internal/wallet/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type transferFixture struct {
	svc    transferdomain.Service
	wallet walletdomain.Service
	db     *gorm.DB
	node   *snowflake.Node
}

func setupTransfer(t *testing.T) *transferFixture {
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

	if err := db.AutoMigrate(
		&walletdomain.Wallet{},
		&walletdomain.WalletLedgerEntry{},
		&transferdomain.TransferRecord{},
		&commissiondomain.CommissionLedger{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	walletSvc := walletservice.New(walletservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  walletrepo.Provide(),
		Cfg:   config.Config{},
	})
	svc := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Repo:           repository.Provide(),
		CommissionRepo: commissionrepo.Provide(),
		Wallet:         walletSvc,
		Limits:         config.StaticLimitsHolder(config.DefaultLimitsConfig()),
	})
	return &transferFixture{svc: svc, wallet: walletSvc, db: db, node: node}
}

func (f *transferFixture) credit(t *testing.T, userID, amount, key string) {
	t.Helper()
	if _, err := f.wallet.Post(context.Background(), walletdomain.PostRequest{
		UserID:         userID,
		WalletType:     walletdomain.WalletTypePrimary,
		Amount:         decimal.RequireFromString(amount),
		Direction:      walletdomain.DirectionCredit,
		FundCategory:   walletdomain.FundCategorySettlement,
		IdempotencyKey: key,
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
}

func (f *transferFixture) balance(t *testing.T, userID string) string {
	t.Helper()
	balance, err := f.wallet.GetBalance(context.Background(), userID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance.StringFixed(2)
}

func TestTransferPush(t *testing.T) {
	f := setupTransfer(t)
	from := f.node.Generate().String()
	to := f.node.Generate().String()
	f.credit(t, from, "100", "seed-from")

	result, err := f.svc.Transfer(context.Background(), transferdomain.TransferRequest{
		FromUserID:     from,
		ToUserID:       to,
		Amount:         decimal.NewFromInt(40),
		FundCategory:   walletdomain.FundCategoryTransfer,
		Direction:      transferdomain.DirectionPush,
		IdempotencyKey: "push-1",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Status != transferdomain.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if f.balance(t, from) != "60.00" || f.balance(t, to) != "40.00" {
		t.Fatalf("balances wrong: from=%s to=%s", f.balance(t, from), f.balance(t, to))
	}

	got, err := f.svc.Get(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != transferdomain.StatusCompleted {
		t.Fatalf("persisted status: %s", got.Status)
	}
}

func TestTransferPullDebitsCounterparty(t *testing.T) {
	f := setupTransfer(t)
	from := f.node.Generate().String()
	to := f.node.Generate().String()
	f.credit(t, to, "100", "seed-to")

	_, err := f.svc.Transfer(context.Background(), transferdomain.TransferRequest{
		FromUserID:     from,
		ToUserID:       to,
		Amount:         decimal.NewFromInt(30),
		FundCategory:   walletdomain.FundCategoryTransfer,
		Direction:      transferdomain.DirectionPull,
		IdempotencyKey: "pull-1",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if f.balance(t, from) != "30.00" || f.balance(t, to) != "70.00" {
		t.Fatalf("balances wrong: from=%s to=%s", f.balance(t, from), f.balance(t, to))
	}
}

func TestTransferCompensatesFailedCredit(t *testing.T) {
	f := setupTransfer(t)
	from := f.node.Generate().String()
	to := f.node.Generate().String()
	f.credit(t, from, "100", "seed-from")

	// The credit leg will bounce off the frozen recipient.
	if err := f.wallet.SetFrozen(context.Background(), to, walletdomain.WalletTypePrimary, true); err != nil {
		t.Fatalf("freeze recipient: %v", err)
	}

	_, err := f.svc.Transfer(context.Background(), transferdomain.TransferRequest{
		FromUserID:     from,
		ToUserID:       to,
		Amount:         decimal.NewFromInt(40),
		FundCategory:   walletdomain.FundCategoryTransfer,
		Direction:      transferdomain.DirectionPush,
		IdempotencyKey: "comp-1",
	})
	if err != walletdomain.ErrWalletFrozen {
		t.Fatalf("expected wallet frozen, got %v", err)
	}

	// The reversal restored the debited side; nobody moved.
	if f.balance(t, from) != "100.00" {
		t.Fatalf("sender not restored: %s", f.balance(t, from))
	}
	if f.balance(t, to) != "0.00" {
		t.Fatalf("recipient moved: %s", f.balance(t, to))
	}

	var record transferdomain.TransferRecord
	if err := f.db.Raw(`SELECT id, status, failure_reason FROM transfers WHERE idempotency_key = ?`, "comp-1").Scan(&record).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Status != transferdomain.StatusFailed {
		t.Fatalf("expected failed record, got %s", record.Status)
	}
	if record.FailureReason == "" {
		t.Fatalf("failure reason not recorded")
	}
}

func TestTransferIdempotentReplay(t *testing.T) {
	f := setupTransfer(t)
	from := f.node.Generate().String()
	to := f.node.Generate().String()
	f.credit(t, from, "100", "seed-from")

	req := transferdomain.TransferRequest{
		FromUserID:     from,
		ToUserID:       to,
		Amount:         decimal.NewFromInt(25),
		FundCategory:   walletdomain.FundCategoryTransfer,
		Direction:      transferdomain.DirectionPush,
		IdempotencyKey: "replay-1",
	}

	first, err := f.svc.Transfer(context.Background(), req)
	if err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	second, err := f.svc.Transfer(context.Background(), req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Duplicate || second.ID != first.ID {
		t.Fatalf("replay should return the original transfer")
	}
	if f.balance(t, from) != "75.00" || f.balance(t, to) != "25.00" {
		t.Fatalf("replay moved money: from=%s to=%s", f.balance(t, from), f.balance(t, to))
	}
}

func TestTransferValidation(t *testing.T) {
	f := setupTransfer(t)
	from := f.node.Generate().String()
	to := f.node.Generate().String()

	base := transferdomain.TransferRequest{
		FromUserID:     from,
		ToUserID:       to,
		Amount:         decimal.NewFromInt(10),
		FundCategory:   walletdomain.FundCategoryTransfer,
		Direction:      transferdomain.DirectionPush,
		IdempotencyKey: "v-1",
	}

	cases := []struct {
		name   string
		mutate func(*transferdomain.TransferRequest)
		want   error
	}{
		{"same wallet", func(r *transferdomain.TransferRequest) { r.ToUserID = from }, transferdomain.ErrSameWallet},
		{"bad direction", func(r *transferdomain.TransferRequest) { r.Direction = "sideways" }, transferdomain.ErrInvalidDirection},
		{"bad category", func(r *transferdomain.TransferRequest) { r.FundCategory = "bonus" }, walletdomain.ErrInvalidFundCategory},
		{"zero amount", func(r *transferdomain.TransferRequest) { r.Amount = decimal.Zero }, transferdomain.ErrInvalidAmount},
		{"missing key", func(r *transferdomain.TransferRequest) { r.IdempotencyKey = " " }, transferdomain.ErrMissingIdempotency},
		{"below minimum", func(r *transferdomain.TransferRequest) { r.Amount = decimal.RequireFromString("0.5") }, transferdomain.ErrAmountOutOfLimits},
		{"above maximum", func(r *transferdomain.TransferRequest) { r.Amount = decimal.NewFromInt(600_000) }, transferdomain.ErrAmountOutOfLimits},
		{"bad user", func(r *transferdomain.TransferRequest) { r.FromUserID = "nope" }, transferdomain.ErrInvalidUser},
	}
	for _, tc := range cases {
		req := base
		tc.mutate(&req)
		if _, err := f.svc.Transfer(context.Background(), req); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAdjustPostsAgainstCommissionEntity(t *testing.T) {
	f := setupTransfer(t)
	entityID := f.node.Generate()
	f.credit(t, entityID.String(), "50", "seed-entity")

	now := time.Now().UTC()
	row := &commissiondomain.CommissionLedger{
		ID:          f.node.Generate(),
		SourceTxnID: "txn-adj",
		SchemeID:    f.node.Generate(),
		RateEntryID: f.node.Generate(),
		EntityID:    entityID,
		EntityRole:  "retailer",
		ServiceType: "bbps",
		Amount:      decimal.NewFromInt(20),
		Status:      commissiondomain.CommissionStatusCredited,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := commissionrepo.Provide().Insert(context.Background(), f.db, row); err != nil {
		t.Fatalf("seed commission: %v", err)
	}

	entry, err := f.svc.Adjust(context.Background(), row.ID.String(), transferdomain.AdjustRequest{
		Amount:         decimal.NewFromInt(10),
		Type:           transferdomain.AdjustTypeAdd,
		IdempotencyKey: "adj-add",
	})
	if err != nil {
		t.Fatalf("adjust add: %v", err)
	}
	if entry.FundCategory != walletdomain.FundCategoryAdjustment {
		t.Fatalf("expected adjustment category, got %s", entry.FundCategory)
	}
	if f.balance(t, entityID.String()) != "60.00" {
		t.Fatalf("balance after add: %s", f.balance(t, entityID.String()))
	}

	if _, err := f.svc.Adjust(context.Background(), row.ID.String(), transferdomain.AdjustRequest{
		Amount:         decimal.NewFromInt(5),
		Type:           transferdomain.AdjustTypeDeduct,
		IdempotencyKey: "adj-deduct",
	}); err != nil {
		t.Fatalf("adjust deduct: %v", err)
	}
	if f.balance(t, entityID.String()) != "55.00" {
		t.Fatalf("balance after deduct: %s", f.balance(t, entityID.String()))
	}

	// The commission row itself never changes.
	stored, err := commissionrepo.Provide().FindByID(context.Background(), f.db, row.ID)
	if err != nil {
		t.Fatalf("reload row: %v", err)
	}
	if !stored.Amount.Equal(decimal.NewFromInt(20)) || stored.Status != commissiondomain.CommissionStatusCredited {
		t.Fatalf("commission row mutated: %+v", stored)
	}
}

func TestAdjustValidation(t *testing.T) {
	f := setupTransfer(t)

	base := transferdomain.AdjustRequest{
		Amount:         decimal.NewFromInt(10),
		Type:           transferdomain.AdjustTypeAdd,
		IdempotencyKey: "adj-v",
	}

	if _, err := f.svc.Adjust(context.Background(), "abc", base); err != transferdomain.ErrInvalidID {
		t.Fatalf("bad id: expected %v, got %v", transferdomain.ErrInvalidID, err)
	}

	req := base
	req.Type = "rebate"
	if _, err := f.svc.Adjust(context.Background(), f.node.Generate().String(), req); err != transferdomain.ErrInvalidAdjustType {
		t.Fatalf("bad type: expected %v, got %v", transferdomain.ErrInvalidAdjustType, err)
	}

	req = base
	req.Amount = decimal.NewFromInt(200_000)
	if _, err := f.svc.Adjust(context.Background(), f.node.Generate().String(), req); err != transferdomain.ErrAmountOutOfLimits {
		t.Fatalf("over cap: expected %v, got %v", transferdomain.ErrAmountOutOfLimits, err)
	}

	if _, err := f.svc.Adjust(context.Background(), f.node.Generate().String(), base); err != commissiondomain.ErrNotFound {
		t.Fatalf("missing row: expected %v, got %v", commissiondomain.ErrNotFound, err)
	}
}
