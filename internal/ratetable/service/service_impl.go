package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
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
	Repo       ratedomain.Repository
	SchemeRepo schemedomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       ratedomain.Repository
	schemeRepo schemedomain.Repository
}

func New(p Params) ratedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ratetable.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		schemeRepo: p.SchemeRepo,
	}
}

var percentCeiling = decimal.NewFromInt(100)

func (s *Service) AddBBPS(ctx context.Context, schemeID string, req ratedomain.AddBBPSRequest) (*ratedomain.BBPSResponse, error) {
	scheme, err := s.findScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	if err := validateSlabBounds(req.MinAmount, req.MaxAmount); err != nil {
		return nil, err
	}
	for _, pair := range []ratedomain.RatePair{
		req.RetailerCharge, req.RetailerCommission, req.DistributorCommission,
		req.MDCommission, req.CompanyCharge,
	} {
		if err := validateRatePair(pair); err != nil {
			return nil, err
		}
	}

	var category *string
	if req.Category != nil {
		trimmed := strings.TrimSpace(*req.Category)
		if trimmed != "" {
			category = &trimmed
		}
	}

	overlapping, err := s.repo.CountOverlappingBBPS(ctx, s.db, scheme.ID, category, req.MinAmount, req.MaxAmount)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ratedomain.ErrSlabOverlap
	}

	now := time.Now().UTC()
	entry := &ratedomain.BBPSCommission{
		ID:                        s.genID.Generate(),
		SchemeID:                  scheme.ID,
		Category:                  category,
		MinAmount:                 req.MinAmount,
		MaxAmount:                 req.MaxAmount,
		RetailerCharge:            req.RetailerCharge.Amount,
		RetailerChargeType:        req.RetailerCharge.AmountType,
		RetailerCommission:        req.RetailerCommission.Amount,
		RetailerCommissionType:    req.RetailerCommission.AmountType,
		DistributorCommission:     req.DistributorCommission.Amount,
		DistributorCommissionType: req.DistributorCommission.AmountType,
		MDCommission:              req.MDCommission.Amount,
		MDCommissionType:          req.MDCommission.AmountType,
		CompanyCharge:             req.CompanyCharge.Amount,
		CompanyChargeType:         req.CompanyCharge.AmountType,
		Status:                    ratedomain.EntryStatusActive,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.repo.InsertBBPS(ctx, s.db, entry); err != nil {
		return nil, err
	}

	s.log.Info("bbps slab added",
		zap.String("scheme_id", scheme.ID.String()),
		zap.String("entry_id", entry.ID.String()),
	)
	return toBBPSResponse(entry), nil
}

func (s *Service) AddPayout(ctx context.Context, schemeID string, req ratedomain.AddPayoutRequest) (*ratedomain.PayoutResponse, error) {
	scheme, err := s.findScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	switch req.TransferMode {
	case ratedomain.TransferModeIMPS, ratedomain.TransferModeNEFT:
	default:
		return nil, ratedomain.ErrInvalidTransferMode
	}

	if err := validateSlabBounds(req.MinAmount, req.MaxAmount); err != nil {
		return nil, err
	}
	for _, pair := range []ratedomain.RatePair{
		req.RetailerCharge, req.RetailerCommission, req.DistributorCommission,
		req.MDCommission, req.CompanyCharge,
	} {
		if err := validateRatePair(pair); err != nil {
			return nil, err
		}
	}

	overlapping, err := s.repo.CountOverlappingPayout(ctx, s.db, scheme.ID, req.TransferMode, req.MinAmount, req.MaxAmount)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ratedomain.ErrSlabOverlap
	}

	now := time.Now().UTC()
	entry := &ratedomain.PayoutCharge{
		ID:                        s.genID.Generate(),
		SchemeID:                  scheme.ID,
		TransferMode:              req.TransferMode,
		MinAmount:                 req.MinAmount,
		MaxAmount:                 req.MaxAmount,
		RetailerCharge:            req.RetailerCharge.Amount,
		RetailerChargeType:        req.RetailerCharge.AmountType,
		RetailerCommission:        req.RetailerCommission.Amount,
		RetailerCommissionType:    req.RetailerCommission.AmountType,
		DistributorCommission:     req.DistributorCommission.Amount,
		DistributorCommissionType: req.DistributorCommission.AmountType,
		MDCommission:              req.MDCommission.Amount,
		MDCommissionType:          req.MDCommission.AmountType,
		CompanyCharge:             req.CompanyCharge.Amount,
		CompanyChargeType:         req.CompanyCharge.AmountType,
		Status:                    ratedomain.EntryStatusActive,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.repo.InsertPayout(ctx, s.db, entry); err != nil {
		return nil, err
	}

	s.log.Info("payout slab added",
		zap.String("scheme_id", scheme.ID.String()),
		zap.String("entry_id", entry.ID.String()),
	)
	return toPayoutResponse(entry), nil
}

func (s *Service) AddMDR(ctx context.Context, schemeID string, req ratedomain.AddMDRRequest) (*ratedomain.MDRResponse, error) {
	scheme, err := s.findScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	if err := validateMDRDiscriminator(req.Mode, req.CardType, req.BrandType); err != nil {
		return nil, err
	}
	for _, rate := range []decimal.Decimal{
		req.RetailerMDRT0, req.RetailerMDRT1,
		req.DistributorMDRT0, req.DistributorMDRT1,
		req.MDMDRT0, req.MDMDRT1,
	} {
		if rate.IsNegative() || rate.GreaterThan(percentCeiling) {
			return nil, ratedomain.ErrRateOutOfRange
		}
	}

	now := time.Now().UTC()
	entry := &ratedomain.MDRRate{
		ID:               s.genID.Generate(),
		SchemeID:         scheme.ID,
		Mode:             req.Mode,
		CardType:         req.CardType,
		BrandType:        req.BrandType,
		RetailerMDRT0:    req.RetailerMDRT0,
		RetailerMDRT1:    req.RetailerMDRT1,
		DistributorMDRT0: req.DistributorMDRT0,
		DistributorMDRT1: req.DistributorMDRT1,
		MDMDRT0:          req.MDMDRT0,
		MDMDRT1:          req.MDMDRT1,
		Status:           ratedomain.EntryStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !entry.TierOrderingValid() {
		return nil, ratedomain.ErrTierOrdering
	}

	existing, err := s.repo.FindMDRExact(ctx, s.db, scheme.ID, req.Mode, req.CardType, req.BrandType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ratedomain.ErrDuplicateRate
	}

	if err := s.repo.InsertMDR(ctx, s.db, entry); err != nil {
		return nil, err
	}

	s.log.Info("mdr rate added",
		zap.String("scheme_id", scheme.ID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("mode", string(req.Mode)),
	)
	return toMDRResponse(entry), nil
}

func (s *Service) ListActive(ctx context.Context, schemeID string) (*ratedomain.RatesResponse, error) {
	scheme, err := s.findScheme(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	bbps, err := s.repo.ListBBPS(ctx, s.db, scheme.ID, ratedomain.EntryStatusActive)
	if err != nil {
		return nil, err
	}
	payout, err := s.repo.ListPayout(ctx, s.db, scheme.ID, ratedomain.EntryStatusActive)
	if err != nil {
		return nil, err
	}
	mdr, err := s.repo.ListMDR(ctx, s.db, scheme.ID, ratedomain.EntryStatusActive)
	if err != nil {
		return nil, err
	}

	resp := &ratedomain.RatesResponse{
		BBPS:   make([]ratedomain.BBPSResponse, 0, len(bbps)),
		Payout: make([]ratedomain.PayoutResponse, 0, len(payout)),
		MDR:    make([]ratedomain.MDRResponse, 0, len(mdr)),
	}
	for i := range bbps {
		resp.BBPS = append(resp.BBPS, *toBBPSResponse(&bbps[i]))
	}
	for i := range payout {
		resp.Payout = append(resp.Payout, *toPayoutResponse(&payout[i]))
	}
	for i := range mdr {
		resp.MDR = append(resp.MDR, *toMDRResponse(&mdr[i]))
	}
	return resp, nil
}

func (s *Service) Deactivate(ctx context.Context, kind ratedomain.RateKind, entryID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(entryID))
	if err != nil {
		return ratedomain.ErrInvalidID
	}

	var found bool
	switch kind {
	case ratedomain.RateKindBBPS:
		found, err = s.repo.DeactivateBBPS(ctx, s.db, id)
	case ratedomain.RateKindPayout:
		found, err = s.repo.DeactivatePayout(ctx, s.db, id)
	case ratedomain.RateKindMDR:
		found, err = s.repo.DeactivateMDR(ctx, s.db, id)
	default:
		return ratedomain.ErrInvalidRateKind
	}
	if err != nil {
		return err
	}
	if !found {
		return ratedomain.ErrNotFound
	}

	s.log.Info("rate entry deactivated",
		zap.String("kind", string(kind)),
		zap.String("entry_id", id.String()),
	)
	return nil
}

func (s *Service) findScheme(ctx context.Context, schemeID string) (*schemedomain.Scheme, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(schemeID))
	if err != nil {
		return nil, schemedomain.ErrInvalidID
	}
	scheme, err := s.schemeRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if scheme == nil {
		return nil, schemedomain.ErrNotFound
	}
	return scheme, nil
}

func validateSlabBounds(min, max decimal.Decimal) error {
	if min.IsNegative() || !min.LessThan(max) {
		return ratedomain.ErrInvalidSlabBounds
	}
	return nil
}

func validateRatePair(pair ratedomain.RatePair) error {
	switch pair.AmountType {
	case ratedomain.AmountTypeFlat:
		if pair.Amount.IsNegative() {
			return ratedomain.ErrRateOutOfRange
		}
	case ratedomain.AmountTypePercentage:
		if pair.Amount.IsNegative() || pair.Amount.GreaterThan(percentCeiling) {
			return ratedomain.ErrRateOutOfRange
		}
	default:
		return ratedomain.ErrInvalidAmountType
	}
	return nil
}

// validateMDRDiscriminator enforces the closed discriminator combinations.
// UPI rows carry no card type or brand. A brand without a card type has no
// place in the resolution precedence and is rejected.
func validateMDRDiscriminator(mode ratedomain.MDRMode, cardType *ratedomain.CardType, brand *ratedomain.BrandType) error {
	switch mode {
	case ratedomain.MDRModeCard:
		if cardType == nil {
			if brand != nil {
				return ratedomain.ErrIncompatibleBrand
			}
			return nil
		}
		if !ratedomain.ValidCardType(*cardType) {
			return ratedomain.ErrInvalidCardType
		}
		if brand != nil && !ratedomain.BrandCompatible(*cardType, *brand) {
			return ratedomain.ErrIncompatibleBrand
		}
		return nil
	case ratedomain.MDRModeUPI:
		if cardType != nil {
			return ratedomain.ErrInvalidCardType
		}
		if brand != nil {
			return ratedomain.ErrIncompatibleBrand
		}
		return nil
	default:
		return ratedomain.ErrInvalidMode
	}
}

func toBBPSResponse(e *ratedomain.BBPSCommission) *ratedomain.BBPSResponse {
	return &ratedomain.BBPSResponse{
		ID:                    e.ID.String(),
		SchemeID:              e.SchemeID.String(),
		Category:              e.Category,
		MinAmount:             e.MinAmount,
		MaxAmount:             e.MaxAmount,
		RetailerCharge:        ratedomain.RatePair{Amount: e.RetailerCharge, AmountType: e.RetailerChargeType},
		RetailerCommission:    ratedomain.RatePair{Amount: e.RetailerCommission, AmountType: e.RetailerCommissionType},
		DistributorCommission: ratedomain.RatePair{Amount: e.DistributorCommission, AmountType: e.DistributorCommissionType},
		MDCommission:          ratedomain.RatePair{Amount: e.MDCommission, AmountType: e.MDCommissionType},
		CompanyCharge:         ratedomain.RatePair{Amount: e.CompanyCharge, AmountType: e.CompanyChargeType},
		Status:                e.Status,
		CreatedAt:             e.CreatedAt,
	}
}

func toPayoutResponse(e *ratedomain.PayoutCharge) *ratedomain.PayoutResponse {
	return &ratedomain.PayoutResponse{
		ID:                    e.ID.String(),
		SchemeID:              e.SchemeID.String(),
		TransferMode:          e.TransferMode,
		MinAmount:             e.MinAmount,
		MaxAmount:             e.MaxAmount,
		RetailerCharge:        ratedomain.RatePair{Amount: e.RetailerCharge, AmountType: e.RetailerChargeType},
		RetailerCommission:    ratedomain.RatePair{Amount: e.RetailerCommission, AmountType: e.RetailerCommissionType},
		DistributorCommission: ratedomain.RatePair{Amount: e.DistributorCommission, AmountType: e.DistributorCommissionType},
		MDCommission:          ratedomain.RatePair{Amount: e.MDCommission, AmountType: e.MDCommissionType},
		CompanyCharge:         ratedomain.RatePair{Amount: e.CompanyCharge, AmountType: e.CompanyChargeType},
		Status:                e.Status,
		CreatedAt:             e.CreatedAt,
	}
}

func toMDRResponse(e *ratedomain.MDRRate) *ratedomain.MDRResponse {
	return &ratedomain.MDRResponse{
		ID:               e.ID.String(),
		SchemeID:         e.SchemeID.String(),
		Mode:             e.Mode,
		CardType:         e.CardType,
		BrandType:        e.BrandType,
		RetailerMDRT0:    e.RetailerMDRT0,
		RetailerMDRT1:    e.RetailerMDRT1,
		DistributorMDRT0: e.DistributorMDRT0,
		DistributorMDRT1: e.DistributorMDRT1,
		MDMDRT0:          e.MDMDRT0,
		MDMDRT1:          e.MDMDRT1,
		Status:           e.Status,
		CreatedAt:        e.CreatedAt,
	}
}
