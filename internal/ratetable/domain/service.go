package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	AddBBPS(ctx context.Context, schemeID string, req AddBBPSRequest) (*BBPSResponse, error)
	AddPayout(ctx context.Context, schemeID string, req AddPayoutRequest) (*PayoutResponse, error)
	AddMDR(ctx context.Context, schemeID string, req AddMDRRequest) (*MDRResponse, error)
	ListActive(ctx context.Context, schemeID string) (*RatesResponse, error)
	Deactivate(ctx context.Context, kind RateKind, entryID string) error
}

// RateKind selects which rate table an entry identifier refers to.
type RateKind string

const (
	RateKindBBPS   RateKind = "bbps"
	RateKindPayout RateKind = "payout"
	RateKindMDR    RateKind = "mdr"
)

// RatePair is a configured amount together with how it applies.
type RatePair struct {
	Amount     decimal.Decimal `json:"amount"`
	AmountType AmountType      `json:"amount_type"`
}

type AddBBPSRequest struct {
	Category              *string         `json:"category"`
	MinAmount             decimal.Decimal `json:"min_amount"`
	MaxAmount             decimal.Decimal `json:"max_amount"`
	RetailerCharge        RatePair        `json:"retailer_charge"`
	RetailerCommission    RatePair        `json:"retailer_commission"`
	DistributorCommission RatePair        `json:"distributor_commission"`
	MDCommission          RatePair        `json:"md_commission"`
	CompanyCharge         RatePair        `json:"company_charge"`
}

type AddPayoutRequest struct {
	TransferMode          TransferMode    `json:"transfer_mode"`
	MinAmount             decimal.Decimal `json:"min_amount"`
	MaxAmount             decimal.Decimal `json:"max_amount"`
	RetailerCharge        RatePair        `json:"retailer_charge"`
	RetailerCommission    RatePair        `json:"retailer_commission"`
	DistributorCommission RatePair        `json:"distributor_commission"`
	MDCommission          RatePair        `json:"md_commission"`
	CompanyCharge         RatePair        `json:"company_charge"`
}

type AddMDRRequest struct {
	Mode             MDRMode         `json:"mode"`
	CardType         *CardType       `json:"card_type"`
	BrandType        *BrandType      `json:"brand_type"`
	RetailerMDRT0    decimal.Decimal `json:"retailer_mdr_t0"`
	RetailerMDRT1    decimal.Decimal `json:"retailer_mdr_t1"`
	DistributorMDRT0 decimal.Decimal `json:"distributor_mdr_t0"`
	DistributorMDRT1 decimal.Decimal `json:"distributor_mdr_t1"`
	MDMDRT0          decimal.Decimal `json:"md_mdr_t0"`
	MDMDRT1          decimal.Decimal `json:"md_mdr_t1"`
}

type BBPSResponse struct {
	ID                    string          `json:"id"`
	SchemeID              string          `json:"scheme_id"`
	Category              *string         `json:"category,omitempty"`
	MinAmount             decimal.Decimal `json:"min_amount"`
	MaxAmount             decimal.Decimal `json:"max_amount"`
	RetailerCharge        RatePair        `json:"retailer_charge"`
	RetailerCommission    RatePair        `json:"retailer_commission"`
	DistributorCommission RatePair        `json:"distributor_commission"`
	MDCommission          RatePair        `json:"md_commission"`
	CompanyCharge         RatePair        `json:"company_charge"`
	Status                EntryStatus     `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
}

type PayoutResponse struct {
	ID                    string          `json:"id"`
	SchemeID              string          `json:"scheme_id"`
	TransferMode          TransferMode    `json:"transfer_mode"`
	MinAmount             decimal.Decimal `json:"min_amount"`
	MaxAmount             decimal.Decimal `json:"max_amount"`
	RetailerCharge        RatePair        `json:"retailer_charge"`
	RetailerCommission    RatePair        `json:"retailer_commission"`
	DistributorCommission RatePair        `json:"distributor_commission"`
	MDCommission          RatePair        `json:"md_commission"`
	CompanyCharge         RatePair        `json:"company_charge"`
	Status                EntryStatus     `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
}

type MDRResponse struct {
	ID               string          `json:"id"`
	SchemeID         string          `json:"scheme_id"`
	Mode             MDRMode         `json:"mode"`
	CardType         *CardType       `json:"card_type,omitempty"`
	BrandType        *BrandType      `json:"brand_type,omitempty"`
	RetailerMDRT0    decimal.Decimal `json:"retailer_mdr_t0"`
	RetailerMDRT1    decimal.Decimal `json:"retailer_mdr_t1"`
	DistributorMDRT0 decimal.Decimal `json:"distributor_mdr_t0"`
	DistributorMDRT1 decimal.Decimal `json:"distributor_mdr_t1"`
	MDMDRT0          decimal.Decimal `json:"md_mdr_t0"`
	MDMDRT1          decimal.Decimal `json:"md_mdr_t1"`
	Status           EntryStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

type RatesResponse struct {
	BBPS   []BBPSResponse   `json:"bbps"`
	Payout []PayoutResponse `json:"payout"`
	MDR    []MDRResponse    `json:"mdr"`
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidRateKind     = errors.New("invalid_rate_kind")
	ErrInvalidAmountType   = errors.New("invalid_amount_type")
	ErrRateOutOfRange      = errors.New("rate_out_of_range")
	ErrInvalidSlabBounds   = errors.New("invalid_slab_bounds")
	ErrSlabOverlap         = errors.New("slab_overlap")
	ErrTierOrdering        = errors.New("tier_ordering_violated")
	ErrInvalidTransferMode = errors.New("invalid_transfer_mode")
	ErrInvalidMode         = errors.New("invalid_mode")
	ErrInvalidCardType     = errors.New("invalid_card_type")
	ErrIncompatibleBrand   = errors.New("incompatible_brand")
	ErrDuplicateRate       = errors.New("duplicate_rate_entry")
	ErrNotFound            = errors.New("rate_entry_not_found")
)
