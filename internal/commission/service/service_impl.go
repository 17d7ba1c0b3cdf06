package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	"github.com/partnerpay/settlo/internal/observability/metrics"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/partnerpay/settlo/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       commissiondomain.Repository
	RateRepo   ratedomain.Repository
	SchemeRepo schemedomain.Repository
	Mapping    mappingdomain.Service
	Wallet     walletdomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       commissiondomain.Repository
	rateRepo   ratedomain.Repository
	schemeRepo schemedomain.Repository
	mapping    mappingdomain.Service
	wallet     walletdomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) commissiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		rateRepo:   p.RateRepo,
		schemeRepo: p.SchemeRepo,
		mapping:    p.Mapping,
		wallet:     p.Wallet,
		metrics:    p.Metrics,
	}
}

var hundred = decimal.NewFromInt(100)

func (s *Service) Resolve(ctx context.Context, req commissiondomain.ResolveRequest) (*commissiondomain.ResolveResponse, error) {
	resp, err := s.resolve(ctx, req)
	s.metrics.RecordResolution(req.ServiceType, outcomeLabel(err))
	return resp, err
}

func (s *Service) resolve(ctx context.Context, req commissiondomain.ResolveRequest) (*commissiondomain.ResolveResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, commissiondomain.ErrInvalidAmount
	}

	scheme, isDefault, err := s.effectiveScheme(ctx, req)
	if err != nil {
		return nil, err
	}

	switch schemedomain.ServiceScope(req.ServiceType) {
	case schemedomain.ServiceScopeBBPS:
		return s.resolveBBPS(ctx, scheme, isDefault, req)
	case schemedomain.ServiceScopePayout:
		return s.resolvePayout(ctx, scheme, isDefault, req)
	case schemedomain.ServiceScopeMDR:
		return s.resolveMDR(ctx, scheme, isDefault, req)
	default:
		return nil, commissiondomain.ErrInvalidRequest
	}
}

func (s *Service) effectiveScheme(ctx context.Context, req commissiondomain.ResolveRequest) (*schemedomain.Scheme, bool, error) {
	if req.SchemeID != nil && strings.TrimSpace(*req.SchemeID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.SchemeID))
		if err != nil {
			return nil, false, commissiondomain.ErrInvalidID
		}
		scheme, err := s.schemeRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, false, err
		}
		if scheme == nil || scheme.Status != schemedomain.SchemeStatusActive ||
			!scheme.EffectiveAt(time.Now().UTC()) ||
			!scheme.Covers(schemedomain.ServiceScope(req.ServiceType)) {
			return nil, false, mappingdomain.ErrNotFound
		}
		return scheme, false, nil
	}

	resolution, err := s.mapping.Resolve(ctx, mappingdomain.ResolveRequest{
		EntityID:    req.EntityID,
		EntityRole:  req.EntityRole,
		ServiceType: req.ServiceType,
	})
	if err != nil {
		return nil, false, err
	}
	return resolution.Scheme, resolution.Default, nil
}

func (s *Service) resolveBBPS(ctx context.Context, scheme *schemedomain.Scheme, isDefault bool, req commissiondomain.ResolveRequest) (*commissiondomain.ResolveResponse, error) {
	category := ""
	if req.Category != nil {
		category = strings.TrimSpace(*req.Category)
	}

	slabs, err := s.rateRepo.MatchBBPS(ctx, s.db, scheme.ID, category, req.Amount)
	if err != nil {
		return nil, err
	}
	if len(slabs) == 0 {
		return nil, commissiondomain.ErrNoApplicableRate
	}
	// Narrowest range first; ties broken by lowest id in the query ordering.
	slab := slabs[0]

	return &commissiondomain.ResolveResponse{
		SchemeID:      scheme.ID.String(),
		RateEntryID:   slab.ID.String(),
		ServiceType:   req.ServiceType,
		DefaultScheme: isDefault,
		Charge: &commissiondomain.ResolvedCharge{
			RetailerCharge:        applyRate(slab.RetailerCharge, slab.RetailerChargeType, req.Amount),
			RetailerCommission:    applyRate(slab.RetailerCommission, slab.RetailerCommissionType, req.Amount),
			DistributorCommission: applyRate(slab.DistributorCommission, slab.DistributorCommissionType, req.Amount),
			MDCommission:          applyRate(slab.MDCommission, slab.MDCommissionType, req.Amount),
			CompanyCharge:         applyRate(slab.CompanyCharge, slab.CompanyChargeType, req.Amount),
		},
	}, nil
}

func (s *Service) resolvePayout(ctx context.Context, scheme *schemedomain.Scheme, isDefault bool, req commissiondomain.ResolveRequest) (*commissiondomain.ResolveResponse, error) {
	if req.TransferMode == nil {
		return nil, commissiondomain.ErrInvalidRequest
	}
	mode := *req.TransferMode
	if mode != ratedomain.TransferModeIMPS && mode != ratedomain.TransferModeNEFT {
		return nil, commissiondomain.ErrInvalidRequest
	}

	slabs, err := s.rateRepo.MatchPayout(ctx, s.db, scheme.ID, mode, req.Amount)
	if err != nil {
		return nil, err
	}
	if len(slabs) == 0 {
		return nil, commissiondomain.ErrNoApplicableRate
	}
	slab := slabs[0]

	return &commissiondomain.ResolveResponse{
		SchemeID:      scheme.ID.String(),
		RateEntryID:   slab.ID.String(),
		ServiceType:   req.ServiceType,
		DefaultScheme: isDefault,
		Charge: &commissiondomain.ResolvedCharge{
			RetailerCharge:        applyRate(slab.RetailerCharge, slab.RetailerChargeType, req.Amount),
			RetailerCommission:    applyRate(slab.RetailerCommission, slab.RetailerCommissionType, req.Amount),
			DistributorCommission: applyRate(slab.DistributorCommission, slab.DistributorCommissionType, req.Amount),
			MDCommission:          applyRate(slab.MDCommission, slab.MDCommissionType, req.Amount),
			CompanyCharge:         applyRate(slab.CompanyCharge, slab.CompanyChargeType, req.Amount),
		},
	}, nil
}

func (s *Service) resolveMDR(ctx context.Context, scheme *schemedomain.Scheme, isDefault bool, req commissiondomain.ResolveRequest) (*commissiondomain.ResolveResponse, error) {
	if req.Mode == nil {
		return nil, commissiondomain.ErrInvalidRequest
	}
	mode := *req.Mode
	if mode != ratedomain.MDRModeCard && mode != ratedomain.MDRModeUPI {
		return nil, commissiondomain.ErrInvalidRequest
	}
	timing := req.SettlementTiming
	if timing != commissiondomain.SettlementT0 && timing != commissiondomain.SettlementT1 {
		return nil, commissiondomain.ErrInvalidTiming
	}

	entry, err := s.findMDR(ctx, scheme.ID, mode, req.CardType, req.BrandType)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, commissiondomain.ErrNoApplicableRate
	}
	// Write-time validation should make this unreachable; a violating row
	// must still never pay the retailer at a loss.
	if !entry.TierOrderingValid() {
		return nil, commissiondomain.ErrConfiguration
	}

	retailerRate, distributorRate, mdRate := entry.RetailerMDRT1, entry.DistributorMDRT1, entry.MDMDRT1
	if timing == commissiondomain.SettlementT0 {
		retailerRate, distributorRate, mdRate = entry.RetailerMDRT0, entry.DistributorMDRT0, entry.MDMDRT0
	}

	return &commissiondomain.ResolveResponse{
		SchemeID:      scheme.ID.String(),
		RateEntryID:   entry.ID.String(),
		ServiceType:   req.ServiceType,
		DefaultScheme: isDefault,
		MDR: &commissiondomain.ResolvedMDR{
			Timing:            timing,
			RetailerRate:      retailerRate,
			DistributorRate:   distributorRate,
			MDRate:            mdRate,
			RetailerAmount:    percentageOf(retailerRate, req.Amount),
			DistributorAmount: percentageOf(distributorRate, req.Amount),
			MDAmount:          percentageOf(mdRate, req.Amount),
		},
	}, nil
}

// findMDR walks the precedence ladder: exact brand, card type with no brand,
// mode-wide row. First hit wins.
func (s *Service) findMDR(ctx context.Context, schemeID snowflake.ID, mode ratedomain.MDRMode, cardType *ratedomain.CardType, brand *ratedomain.BrandType) (*ratedomain.MDRRate, error) {
	if cardType != nil && brand != nil {
		entry, err := s.rateRepo.FindMDRExact(ctx, s.db, schemeID, mode, cardType, brand)
		if err != nil || entry != nil {
			return entry, err
		}
	}
	if cardType != nil {
		entry, err := s.rateRepo.FindMDRExact(ctx, s.db, schemeID, mode, cardType, nil)
		if err != nil || entry != nil {
			return entry, err
		}
	}
	return s.rateRepo.FindMDRExact(ctx, s.db, schemeID, mode, nil, nil)
}

func (s *Service) Record(ctx context.Context, req commissiondomain.RecordRequest) (*commissiondomain.RecordResponse, error) {
	sourceTxnID := strings.TrimSpace(req.SourceTxnID)
	if sourceTxnID == "" || strings.TrimSpace(req.RetailerID) == "" {
		return nil, commissiondomain.ErrInvalidRequest
	}

	existing, err := s.repo.ListBySource(ctx, s.db, sourceTxnID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		rows, settleErr := s.settlePending(ctx, sourceTxnID, existing)
		if settleErr != nil {
			return nil, settleErr
		}
		return &commissiondomain.RecordResponse{
			SourceTxnID: sourceTxnID,
			Duplicate:   true,
			Rows:        rows,
		}, nil
	}

	resolveReq := req.Resolve
	resolveReq.EntityID = req.RetailerID
	if resolveReq.EntityRole == "" {
		resolveReq.EntityRole = "retailer"
	}
	resolved, err := s.Resolve(ctx, resolveReq)
	if err != nil {
		return nil, err
	}

	schemeID, err := snowflake.ParseString(resolved.SchemeID)
	if err != nil {
		return nil, commissiondomain.ErrInvalidID
	}
	rateEntryID, err := snowflake.ParseString(resolved.RateEntryID)
	if err != nil {
		return nil, commissiondomain.ErrInvalidID
	}

	type tierShare struct {
		entityID string
		role     string
		amount   decimal.Decimal
	}
	var shares []tierShare
	if resolved.Charge != nil {
		shares = []tierShare{
			{req.RetailerID, "retailer", resolved.Charge.RetailerCommission},
			{req.DistributorID, "distributor", resolved.Charge.DistributorCommission},
			{req.MDID, "master_distributor", resolved.Charge.MDCommission},
		}
	} else if resolved.MDR != nil {
		shares = []tierShare{
			{req.RetailerID, "retailer", resolved.MDR.RetailerAmount},
			{req.DistributorID, "distributor", resolved.MDR.DistributorAmount},
			{req.MDID, "master_distributor", resolved.MDR.MDAmount},
		}
	}

	now := time.Now().UTC()
	var rows []*commissiondomain.CommissionLedger
	for _, share := range shares {
		entityRaw := strings.TrimSpace(share.entityID)
		if entityRaw == "" || !share.amount.IsPositive() {
			continue
		}
		entityID, parseErr := snowflake.ParseString(entityRaw)
		if parseErr != nil {
			return nil, commissiondomain.ErrInvalidID
		}
		rows = append(rows, &commissiondomain.CommissionLedger{
			ID:          s.genID.Generate(),
			SourceTxnID: sourceTxnID,
			SchemeID:    schemeID,
			RateEntryID: rateEntryID,
			EntityID:    entityID,
			EntityRole:  share.role,
			ServiceType: resolved.ServiceType,
			Amount:      share.amount,
			Status:      commissiondomain.CommissionStatusPending,
			Remarks:     strings.TrimSpace(req.Remarks),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(rows) == 0 {
		return nil, commissiondomain.ErrNoApplicableRate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if txErr := s.repo.Insert(ctx, tx, row); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent Record for the same source can slip past the replay
		// check; the unique (source_txn_id, entity_role) index turns the
		// second insert into a duplicate key. Settle the winner's rows.
		if db.IsDuplicateKeyErr(err) {
			racing, listErr := s.repo.ListBySource(ctx, s.db, sourceTxnID)
			if listErr != nil {
				return nil, listErr
			}
			if len(racing) > 0 {
				settled, settleErr := s.settlePending(ctx, sourceTxnID, racing)
				if settleErr != nil {
					return nil, settleErr
				}
				return &commissiondomain.RecordResponse{
					SourceTxnID: sourceTxnID,
					Duplicate:   true,
					Rows:        settled,
				}, nil
			}
		}
		return nil, err
	}

	out, err := s.creditRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	s.log.Info("commission recorded",
		zap.String("source_txn_id", sourceTxnID),
		zap.String("scheme_id", resolved.SchemeID),
		zap.Int("tiers", len(out)),
	)
	return &commissiondomain.RecordResponse{SourceTxnID: sourceTxnID, Rows: out}, nil
}

// creditRows posts the wallet credit for each pending row and marks it
// credited. The wallet leg key is derived from the source transaction and
// tier, so a retry after a partial failure completes instead of
// double-paying.
func (s *Service) creditRows(ctx context.Context, rows []*commissiondomain.CommissionLedger) ([]commissiondomain.LedgerRow, error) {
	out := make([]commissiondomain.LedgerRow, 0, len(rows))
	for _, row := range rows {
		if row.Status == commissiondomain.CommissionStatusPending {
			_, err := s.wallet.Post(ctx, walletdomain.PostRequest{
				UserID:          row.EntityID.String(),
				WalletType:      walletdomain.WalletTypePrimary,
				Amount:          row.Amount,
				Direction:       walletdomain.DirectionCredit,
				FundCategory:    walletdomain.FundCategoryCommission,
				TransactionType: "commission",
				IdempotencyKey:  "commission:" + row.SourceTxnID + ":" + row.EntityRole,
				Remarks:         row.Remarks,
			})
			if err != nil {
				return nil, err
			}
			row.Status = commissiondomain.CommissionStatusCredited
			row.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpdateStatus(ctx, s.db, row); err != nil {
				return nil, err
			}
		}
		out = append(out, *toLedgerRow(row))
	}
	return out, nil
}

func (s *Service) settlePending(ctx context.Context, sourceTxnID string, existing []commissiondomain.CommissionLedger) ([]commissiondomain.LedgerRow, error) {
	rows := make([]*commissiondomain.CommissionLedger, 0, len(existing))
	for i := range existing {
		rows = append(rows, &existing[i])
	}
	return s.creditRows(ctx, rows)
}

func (s *Service) MarkCredited(ctx context.Context, id string) (*commissiondomain.LedgerRow, error) {
	return s.transition(ctx, id, commissiondomain.CommissionStatusCredited)
}

func (s *Service) Cancel(ctx context.Context, id string) (*commissiondomain.LedgerRow, error) {
	return s.transition(ctx, id, commissiondomain.CommissionStatusCancelled)
}

func (s *Service) transition(ctx context.Context, id string, target commissiondomain.CommissionStatus) (*commissiondomain.LedgerRow, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	switch target {
	case commissiondomain.CommissionStatusCredited:
		if row.Status != commissiondomain.CommissionStatusPending {
			return nil, commissiondomain.ErrInvalidRequest
		}
	case commissiondomain.CommissionStatusCancelled:
		if row.Status == commissiondomain.CommissionStatusCancelled {
			return nil, commissiondomain.ErrInvalidRequest
		}
	}

	row.Status = target
	row.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, row); err != nil {
		return nil, err
	}
	return toLedgerRow(row), nil
}

func (s *Service) Get(ctx context.Context, id string) (*commissiondomain.LedgerRow, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLedgerRow(row), nil
}

func (s *Service) ListBySource(ctx context.Context, sourceTxnID string) ([]commissiondomain.LedgerRow, error) {
	rows, err := s.repo.ListBySource(ctx, s.db, strings.TrimSpace(sourceTxnID))
	if err != nil {
		return nil, err
	}
	out := make([]commissiondomain.LedgerRow, 0, len(rows))
	for i := range rows {
		out = append(out, *toLedgerRow(&rows[i]))
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, id string) (*commissiondomain.CommissionLedger, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, commissiondomain.ErrInvalidID
	}
	row, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, commissiondomain.ErrNotFound
	}
	return row, nil
}

// applyRate computes one component: flat rates pass through, percentage
// rates apply to the transaction amount. Round half up to two places.
func applyRate(rate decimal.Decimal, amountType ratedomain.AmountType, amount decimal.Decimal) decimal.Decimal {
	if amountType == ratedomain.AmountTypePercentage {
		return percentageOf(rate, amount)
	}
	return rate.Round(2)
}

func percentageOf(rate, amount decimal.Decimal) decimal.Decimal {
	return rate.Mul(amount).Div(hundred).Round(2)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

func toLedgerRow(row *commissiondomain.CommissionLedger) *commissiondomain.LedgerRow {
	return &commissiondomain.LedgerRow{
		ID:          row.ID.String(),
		SourceTxnID: row.SourceTxnID,
		SchemeID:    row.SchemeID.String(),
		RateEntryID: row.RateEntryID.String(),
		EntityID:    row.EntityID.String(),
		EntityRole:  row.EntityRole,
		ServiceType: row.ServiceType,
		Amount:      row.Amount,
		Status:      row.Status,
		Remarks:     row.Remarks,
		CreatedAt:   row.CreatedAt,
	}
}
