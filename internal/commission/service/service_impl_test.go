package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/partnerpay/settlo/internal/actorctx"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	"github.com/partnerpay/settlo/internal/commission/repository"
	"github.com/partnerpay/settlo/internal/config"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	mappingrepo "github.com/partnerpay/settlo/internal/mapping/repository"
	mappingservice "github.com/partnerpay/settlo/internal/mapping/service"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	raterepo "github.com/partnerpay/settlo/internal/ratetable/repository"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	schemerepo "github.com/partnerpay/settlo/internal/scheme/repository"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	walletrepo "github.com/partnerpay/settlo/internal/wallet/repository"
	walletservice "github.com/partnerpay/settlo/internal/wallet/service"
	pkgdb "github.com/partnerpay/settlo/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     commissiondomain.Service
	mapping mappingdomain.Service
	wallet  walletdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	scheme  *schemedomain.Scheme
}

func setupCommission(t *testing.T) *fixture {
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
		&schemedomain.Scheme{},
		&ratedomain.BBPSCommission{},
		&ratedomain.PayoutCharge{},
		&ratedomain.MDRRate{},
		&mappingdomain.EntityMapping{},
		&walletdomain.Wallet{},
		&walletdomain.WalletLedgerEntry{},
		&commissiondomain.CommissionLedger{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	mappingSvc := mappingservice.New(mappingservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       mappingrepo.Provide(),
		SchemeRepo: schemerepo.Provide(),
	})
	walletSvc := walletservice.New(walletservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  walletrepo.Provide(),
		Cfg:   config.Config{},
	})
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		RateRepo:   raterepo.Provide(),
		SchemeRepo: schemerepo.Provide(),
		Mapping:    mappingSvc,
		Wallet:     walletSvc,
	})

	now := time.Now().UTC()
	scheme := &schemedomain.Scheme{
		ID:            node.Generate(),
		Name:          "Partner Scheme",
		SchemeType:    schemedomain.SchemeTypeCustom,
		ServiceScope:  schemedomain.ServiceScopeAll,
		Priority:      10,
		Status:        schemedomain.SchemeStatusActive,
		CreatedByID:   node.Generate(),
		CreatedByRole: "distributor",
		EffectiveFrom: now.Add(-time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := schemerepo.Provide().Insert(context.Background(), db, scheme); err != nil {
		t.Fatalf("seed scheme: %v", err)
	}

	return &fixture{svc: svc, mapping: mappingSvc, wallet: walletSvc, db: db, node: node, scheme: scheme}
}

func (f *fixture) mapEntity(t *testing.T, entityID string) {
	t.Helper()
	ctx := actorctx.WithActor(context.Background(), f.node.Generate(), actorctx.RoleAdmin)
	if _, err := f.mapping.Assign(ctx, mappingdomain.AssignRequest{
		SchemeID:   f.scheme.ID.String(),
		EntityID:   entityID,
		EntityRole: string(actorctx.RoleRetailer),
	}); err != nil {
		t.Fatalf("map entity: %v", err)
	}
}

func (f *fixture) seedBBPSSlab(t *testing.T, min, max string, retailerPct, distributorPct, mdPct string) *ratedomain.BBPSCommission {
	t.Helper()
	now := time.Now().UTC()
	entry := &ratedomain.BBPSCommission{
		ID:                        f.node.Generate(),
		SchemeID:                  f.scheme.ID,
		MinAmount:                 decimal.RequireFromString(min),
		MaxAmount:                 decimal.RequireFromString(max),
		RetailerCharge:            decimal.Zero,
		RetailerChargeType:        ratedomain.AmountTypeFlat,
		RetailerCommission:        decimal.RequireFromString(retailerPct),
		RetailerCommissionType:    ratedomain.AmountTypePercentage,
		DistributorCommission:     decimal.RequireFromString(distributorPct),
		DistributorCommissionType: ratedomain.AmountTypePercentage,
		MDCommission:              decimal.RequireFromString(mdPct),
		MDCommissionType:          ratedomain.AmountTypePercentage,
		CompanyCharge:             decimal.Zero,
		CompanyChargeType:         ratedomain.AmountTypeFlat,
		Status:                    ratedomain.EntryStatusActive,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := raterepo.Provide().InsertBBPS(context.Background(), f.db, entry); err != nil {
		t.Fatalf("seed bbps slab: %v", err)
	}
	return entry
}

func (f *fixture) seedMDR(t *testing.T, cardType *ratedomain.CardType, brand *ratedomain.BrandType, t0, t1 string) *ratedomain.MDRRate {
	t.Helper()
	now := time.Now().UTC()
	entry := &ratedomain.MDRRate{
		ID:               f.node.Generate(),
		SchemeID:         f.scheme.ID,
		Mode:             ratedomain.MDRModeCard,
		CardType:         cardType,
		BrandType:        brand,
		RetailerMDRT0:    decimal.RequireFromString(t0),
		RetailerMDRT1:    decimal.RequireFromString(t1),
		DistributorMDRT0: decimal.RequireFromString("0.5"),
		DistributorMDRT1: decimal.RequireFromString("0.4"),
		MDMDRT0:          decimal.RequireFromString("0.2"),
		MDMDRT1:          decimal.RequireFromString("0.1"),
		Status:           ratedomain.EntryStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := raterepo.Provide().InsertMDR(context.Background(), f.db, entry); err != nil {
		t.Fatalf("seed mdr: %v", err)
	}
	return entry
}

func TestResolveBBPSPercentageSplit(t *testing.T) {
	f := setupCommission(t)
	f.seedBBPSSlab(t, "0", "5000", "1", "0.5", "0.25")
	retailerID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	resp, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(2000),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Charge == nil {
		t.Fatalf("expected charge split")
	}
	if got := resp.Charge.RetailerCommission.StringFixed(2); got != "20.00" {
		t.Fatalf("retailer commission: expected 20.00, got %s", got)
	}
	if got := resp.Charge.DistributorCommission.StringFixed(2); got != "10.00" {
		t.Fatalf("distributor commission: expected 10.00, got %s", got)
	}
	if got := resp.Charge.MDCommission.StringFixed(2); got != "5.00" {
		t.Fatalf("md commission: expected 5.00, got %s", got)
	}
	if resp.DefaultScheme {
		t.Fatalf("mapped entity priced off the default scheme")
	}
}

func TestResolveNarrowestSlabWins(t *testing.T) {
	f := setupCommission(t)
	f.seedBBPSSlab(t, "0", "10000", "1", "0.5", "0.25")
	narrow := f.seedBBPSSlab(t, "1000", "2000", "2", "1", "0.5")
	retailerID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	resp, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.RateEntryID != narrow.ID.String() {
		t.Fatalf("expected narrowest slab %s, got %s", narrow.ID, resp.RateEntryID)
	}
	if got := resp.Charge.RetailerCommission.StringFixed(2); got != "30.00" {
		t.Fatalf("expected 30.00 off the narrow slab, got %s", got)
	}
}

func TestResolveNoApplicableRate(t *testing.T) {
	f := setupCommission(t)
	retailerID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	_, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(500),
	})
	if err != commissiondomain.ErrNoApplicableRate {
		t.Fatalf("expected no applicable rate, got %v", err)
	}
}

func TestResolveExplicitSchemeOverride(t *testing.T) {
	f := setupCommission(t)
	f.seedBBPSSlab(t, "0", "5000", "1", "0.5", "0.25")
	retailerID := f.node.Generate().String()

	// No mapping needed when the scheme is named explicitly.
	schemeID := f.scheme.ID.String()
	resp, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		SchemeID:    &schemeID,
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("resolve with override: %v", err)
	}
	if resp.SchemeID != schemeID {
		t.Fatalf("override ignored: %s", resp.SchemeID)
	}

	// An inactive override is a hard failure, never a silent fallback.
	f.scheme.Status = schemedomain.SchemeStatusInactive
	if err := schemerepo.Provide().Update(context.Background(), f.db, f.scheme); err != nil {
		t.Fatalf("deactivate scheme: %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		SchemeID:    &schemeID,
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(1000),
	}); err != mappingdomain.ErrNotFound {
		t.Fatalf("expected no applicable scheme, got %v", err)
	}
}

func TestResolveMDRPrecedenceAndTiming(t *testing.T) {
	f := setupCommission(t)
	credit := ratedomain.CardTypeCredit
	debit := ratedomain.CardTypeDebit
	visa := ratedomain.BrandVisa

	exact := f.seedMDR(t, &credit, &visa, "2.0", "1.5")
	cardWide := f.seedMDR(t, &credit, nil, "1.8", "1.2")
	modeWide := f.seedMDR(t, nil, nil, "1.0", "0.8")

	retailerID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	card := ratedomain.MDRModeCard
	resolveMDR := func(cardType *ratedomain.CardType, brand *ratedomain.BrandType, timing commissiondomain.SettlementTiming) *commissiondomain.ResolveResponse {
		resp, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
			EntityID:         retailerID,
			EntityRole:       string(actorctx.RoleRetailer),
			ServiceType:      string(schemedomain.ServiceScopeMDR),
			Mode:             &card,
			CardType:         cardType,
			BrandType:        brand,
			Amount:           decimal.NewFromInt(10000),
			SettlementTiming: timing,
		})
		if err != nil {
			t.Fatalf("resolve mdr: %v", err)
		}
		return resp
	}

	// Exact brand row wins.
	resp := resolveMDR(&credit, &visa, commissiondomain.SettlementT0)
	if resp.RateEntryID != exact.ID.String() {
		t.Fatalf("expected exact row, got %s", resp.RateEntryID)
	}
	if got := resp.MDR.RetailerAmount.StringFixed(2); got != "200.00" {
		t.Fatalf("t0 retailer amount: expected 200.00, got %s", got)
	}

	// No row for mastercard: card-type fallback applies.
	mastercard := ratedomain.BrandMastercard
	resp = resolveMDR(&credit, &mastercard, commissiondomain.SettlementT0)
	if resp.RateEntryID != cardWide.ID.String() {
		t.Fatalf("expected card-type fallback, got %s", resp.RateEntryID)
	}

	// No debit rows at all: mode-wide fallback applies.
	resp = resolveMDR(&debit, nil, commissiondomain.SettlementT0)
	if resp.RateEntryID != modeWide.ID.String() {
		t.Fatalf("expected mode-wide fallback, got %s", resp.RateEntryID)
	}

	// T1 picks the deferred tier of the same row.
	resp = resolveMDR(&credit, &visa, commissiondomain.SettlementT1)
	if got := resp.MDR.RetailerAmount.StringFixed(2); got != "150.00" {
		t.Fatalf("t1 retailer amount: expected 150.00, got %s", got)
	}

	// Timing is mandatory for MDR pricing.
	if _, err := f.svc.Resolve(context.Background(), commissiondomain.ResolveRequest{
		EntityID:    retailerID,
		EntityRole:  string(actorctx.RoleRetailer),
		ServiceType: string(schemedomain.ServiceScopeMDR),
		Mode:        &card,
		Amount:      decimal.NewFromInt(10000),
	}); err != commissiondomain.ErrInvalidTiming {
		t.Fatalf("expected invalid timing, got %v", err)
	}
}

func TestRecordCreditsTierChain(t *testing.T) {
	f := setupCommission(t)
	f.seedBBPSSlab(t, "0", "5000", "1", "0.5", "0.25")
	retailerID := f.node.Generate().String()
	distributorID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	req := commissiondomain.RecordRequest{
		SourceTxnID:   "txn-1001",
		RetailerID:    retailerID,
		DistributorID: distributorID,
		Resolve: commissiondomain.ResolveRequest{
			ServiceType: string(schemedomain.ServiceScopeBBPS),
			Amount:      decimal.NewFromInt(2000),
		},
	}

	resp, err := f.svc.Record(context.Background(), req)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if resp.Duplicate {
		t.Fatalf("first record flagged duplicate")
	}
	// MD id was blank, so only two tiers are paid.
	if len(resp.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Rows))
	}
	for _, row := range resp.Rows {
		if row.Status != commissiondomain.CommissionStatusCredited {
			t.Fatalf("row %s not credited: %s", row.ID, row.Status)
		}
	}

	retailerBalance, err := f.wallet.GetBalance(context.Background(), retailerID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("retailer balance: %v", err)
	}
	if retailerBalance.StringFixed(2) != "20.00" {
		t.Fatalf("retailer balance: expected 20.00, got %s", retailerBalance)
	}
	distributorBalance, err := f.wallet.GetBalance(context.Background(), distributorID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("distributor balance: %v", err)
	}
	if distributorBalance.StringFixed(2) != "10.00" {
		t.Fatalf("distributor balance: expected 10.00, got %s", distributorBalance)
	}

	// Replay returns the recorded rows and moves no money.
	replay, err := f.svc.Record(context.Background(), req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Duplicate {
		t.Fatalf("replay not flagged duplicate")
	}
	if len(replay.Rows) != 2 {
		t.Fatalf("replay rows: expected 2, got %d", len(replay.Rows))
	}
	retailerBalance, _ = f.wallet.GetBalance(context.Background(), retailerID, walletdomain.WalletTypePrimary)
	if retailerBalance.StringFixed(2) != "20.00" {
		t.Fatalf("replay moved money: %s", retailerBalance)
	}
}

func TestRecordSourceRoleUnique(t *testing.T) {
	f := setupCommission(t)
	now := time.Now().UTC()
	row := commissiondomain.CommissionLedger{
		ID:          f.node.Generate(),
		SourceTxnID: "txn-uq",
		SchemeID:    f.scheme.ID,
		RateEntryID: f.node.Generate(),
		EntityID:    f.node.Generate(),
		EntityRole:  "retailer",
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(10),
		Status:      commissiondomain.CommissionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repository.Provide().Insert(context.Background(), f.db, &row); err != nil {
		t.Fatalf("first row: %v", err)
	}

	dup := row
	dup.ID = f.node.Generate()
	dup.EntityID = f.node.Generate()
	err := repository.Provide().Insert(context.Background(), f.db, &dup)
	if err == nil {
		t.Fatalf("second row for same source and role accepted")
	}
	if !pkgdb.IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	// A different role under the same source is a distinct tier.
	other := row
	other.ID = f.node.Generate()
	other.EntityID = f.node.Generate()
	other.EntityRole = "distributor"
	if err := repository.Provide().Insert(context.Background(), f.db, &other); err != nil {
		t.Fatalf("distributor row: %v", err)
	}
}

func TestRecordConcurrentSameSource(t *testing.T) {
	f := setupCommission(t)
	f.seedBBPSSlab(t, "0", "5000", "1", "0.5", "0.25")
	retailerID := f.node.Generate().String()
	distributorID := f.node.Generate().String()
	f.mapEntity(t, retailerID)

	req := commissiondomain.RecordRequest{
		SourceTxnID:   "txn-race",
		RetailerID:    retailerID,
		DistributorID: distributorID,
		Resolve: commissiondomain.ResolveRequest{
			ServiceType: string(schemedomain.ServiceScopeBBPS),
			Amount:      decimal.NewFromInt(2000),
		},
	}

	var wg sync.WaitGroup
	results := make(chan *commissiondomain.RecordResponse, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Record(context.Background(), req)
			if err != nil {
				t.Errorf("concurrent record: %v", err)
				return
			}
			results <- resp
		}()
	}
	wg.Wait()
	close(results)

	originals := 0
	for resp := range results {
		if len(resp.Rows) != 2 {
			t.Fatalf("expected 2 rows per response, got %d", len(resp.Rows))
		}
		if !resp.Duplicate {
			originals++
		}
	}
	if originals != 1 {
		t.Fatalf("expected exactly one original record, got %d", originals)
	}

	var count int
	if err := f.db.Raw(`SELECT COUNT(1) FROM commission_ledger WHERE source_txn_id = ?`, "txn-race").Scan(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", count)
	}

	balance, err := f.wallet.GetBalance(context.Background(), retailerID, walletdomain.WalletTypePrimary)
	if err != nil {
		t.Fatalf("retailer balance: %v", err)
	}
	if balance.StringFixed(2) != "20.00" {
		t.Fatalf("retailer credited more than once: %s", balance)
	}
}

func TestRecordValidation(t *testing.T) {
	f := setupCommission(t)

	if _, err := f.svc.Record(context.Background(), commissiondomain.RecordRequest{
		SourceTxnID: " ",
		RetailerID:  f.node.Generate().String(),
	}); err != commissiondomain.ErrInvalidRequest {
		t.Fatalf("blank source txn: expected %v, got %v", commissiondomain.ErrInvalidRequest, err)
	}
	if _, err := f.svc.Record(context.Background(), commissiondomain.RecordRequest{
		SourceTxnID: "txn-1",
	}); err != commissiondomain.ErrInvalidRequest {
		t.Fatalf("blank retailer: expected %v, got %v", commissiondomain.ErrInvalidRequest, err)
	}
}

func TestCommissionTransitions(t *testing.T) {
	f := setupCommission(t)
	now := time.Now().UTC()
	row := &commissiondomain.CommissionLedger{
		ID:          f.node.Generate(),
		SourceTxnID: "txn-t",
		SchemeID:    f.scheme.ID,
		RateEntryID: f.node.Generate(),
		EntityID:    f.node.Generate(),
		EntityRole:  "retailer",
		ServiceType: string(schemedomain.ServiceScopeBBPS),
		Amount:      decimal.NewFromInt(10),
		Status:      commissiondomain.CommissionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repository.Provide().Insert(context.Background(), f.db, row); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	id := row.ID.String()

	credited, err := f.svc.MarkCredited(context.Background(), id)
	if err != nil {
		t.Fatalf("mark credited: %v", err)
	}
	if credited.Status != commissiondomain.CommissionStatusCredited {
		t.Fatalf("expected credited, got %s", credited.Status)
	}
	if _, err := f.svc.MarkCredited(context.Background(), id); err != commissiondomain.ErrInvalidRequest {
		t.Fatalf("double credit: expected %v, got %v", commissiondomain.ErrInvalidRequest, err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != commissiondomain.CommissionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := f.svc.Cancel(context.Background(), id); err != commissiondomain.ErrInvalidRequest {
		t.Fatalf("double cancel: expected %v, got %v", commissiondomain.ErrInvalidRequest, err)
	}

	if _, err := f.svc.Get(context.Background(), f.node.Generate().String()); err != commissiondomain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), "abc"); err != commissiondomain.ErrInvalidID {
		t.Fatalf("expected invalid id, got %v", err)
	}
}
