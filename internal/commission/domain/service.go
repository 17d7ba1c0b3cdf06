package domain

import (
	"context"
	"errors"
	"time"

	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Resolve prices one transaction deterministically. It never substitutes
	// a default rate; every failure is terminal for the pricing attempt.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveResponse, error)
	// Record persists the per-tier commission rows for a source transaction
	// and credits each tier's wallet. Replaying a source transaction returns
	// the rows already recorded.
	Record(ctx context.Context, req RecordRequest) (*RecordResponse, error)
	MarkCredited(ctx context.Context, id string) (*LedgerRow, error)
	Cancel(ctx context.Context, id string) (*LedgerRow, error)
	Get(ctx context.Context, id string) (*LedgerRow, error)
	ListBySource(ctx context.Context, sourceTxnID string) ([]LedgerRow, error)
}

// ResolveRequest carries the transaction context. SchemeID overrides mapping
// resolution when set; otherwise the entity's mapping decides.
type ResolveRequest struct {
	SchemeID    *string `json:"scheme_id"`
	EntityID    string  `json:"entity_id"`
	EntityRole  string  `json:"entity_role"`
	ServiceType string  `json:"service_type"`

	Category     *string                  `json:"category"`
	TransferMode *ratedomain.TransferMode `json:"transfer_mode"`
	Mode         *ratedomain.MDRMode      `json:"mode"`
	CardType     *ratedomain.CardType     `json:"card_type"`
	BrandType    *ratedomain.BrandType    `json:"brand_type"`

	Amount           decimal.Decimal  `json:"amount"`
	SettlementTiming SettlementTiming `json:"settlement_timing"`
}

// ResolvedCharge is the five-way split for BBPS and payout pricing.
type ResolvedCharge struct {
	RetailerCharge        decimal.Decimal `json:"retailer_charge"`
	RetailerCommission    decimal.Decimal `json:"retailer_commission"`
	DistributorCommission decimal.Decimal `json:"distributor_commission"`
	MDCommission          decimal.Decimal `json:"md_commission"`
	CompanyCharge         decimal.Decimal `json:"company_charge"`
}

// ResolvedMDR is the tier split for card/UPI pricing at the selected timing.
type ResolvedMDR struct {
	Timing            SettlementTiming `json:"timing"`
	RetailerRate      decimal.Decimal  `json:"retailer_rate"`
	DistributorRate   decimal.Decimal  `json:"distributor_rate"`
	MDRate            decimal.Decimal  `json:"md_rate"`
	RetailerAmount    decimal.Decimal  `json:"retailer_amount"`
	DistributorAmount decimal.Decimal  `json:"distributor_amount"`
	MDAmount          decimal.Decimal  `json:"md_amount"`
}

type ResolveResponse struct {
	SchemeID      string          `json:"scheme_id"`
	RateEntryID   string          `json:"rate_entry_id"`
	ServiceType   string          `json:"service_type"`
	DefaultScheme bool            `json:"default_scheme"`
	Charge        *ResolvedCharge `json:"charge,omitempty"`
	MDR           *ResolvedMDR    `json:"mdr,omitempty"`
}

// RecordRequest resolves for the retailer and credits the full tier chain.
type RecordRequest struct {
	SourceTxnID   string `json:"source_txn_id"`
	RetailerID    string `json:"retailer_id"`
	DistributorID string `json:"distributor_id"`
	MDID          string `json:"md_id"`
	Remarks       string `json:"remarks"`

	Resolve ResolveRequest `json:"resolve"`
}

type RecordResponse struct {
	SourceTxnID string      `json:"source_txn_id"`
	Duplicate   bool        `json:"duplicate,omitempty"`
	Rows        []LedgerRow `json:"rows"`
}

type LedgerRow struct {
	ID          string           `json:"id"`
	SourceTxnID string           `json:"source_txn_id"`
	SchemeID    string           `json:"scheme_id"`
	RateEntryID string           `json:"rate_entry_id"`
	EntityID    string           `json:"entity_id"`
	EntityRole  string           `json:"entity_role"`
	ServiceType string           `json:"service_type"`
	Amount      decimal.Decimal  `json:"amount"`
	Status      CommissionStatus `json:"status"`
	Remarks     string           `json:"remarks,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidTiming    = errors.New("invalid_settlement_timing")
	ErrInvalidRequest   = errors.New("invalid_resolution_request")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNoApplicableRate = errors.New("no_applicable_rate")
	ErrConfiguration    = errors.New("configuration_error")
	ErrNotFound         = errors.New("commission_not_found")
)
