// Package domain contains the rate table variants, one table per priced service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AmountType says how a configured rate is applied to a transaction amount.
type AmountType string

const (
	AmountTypeFlat       AmountType = "flat"
	AmountTypePercentage AmountType = "percentage"
)

// EntryStatus is the lifecycle state of a rate table row.
type EntryStatus string

const (
	EntryStatusActive   EntryStatus = "active"
	EntryStatusInactive EntryStatus = "inactive"
)

// TransferMode is the payout rail a slab prices.
type TransferMode string

const (
	TransferModeIMPS TransferMode = "IMPS"
	TransferModeNEFT TransferMode = "NEFT"
)

// MDRMode is the acquiring mode an MDR row prices.
type MDRMode string

const (
	MDRModeCard MDRMode = "CARD"
	MDRModeUPI  MDRMode = "UPI"
)

// CardType narrows an MDR row within CARD mode. Nil means any card type.
type CardType string

const (
	CardTypeCredit  CardType = "CREDIT"
	CardTypeDebit   CardType = "DEBIT"
	CardTypePrepaid CardType = "PREPAID"
)

// BrandType is the card network. Nil on a row means any brand.
type BrandType string

const (
	BrandMastercard BrandType = "MASTERCARD"
	BrandVisa       BrandType = "VISA"
	BrandRupay      BrandType = "RUPAY"
	BrandAmex       BrandType = "AMEX"
)

// brandCompatibility is the closed set of valid brands per card type.
// DEBIT and PREPAID cards are never issued on AMEX.
var brandCompatibility = map[CardType]map[BrandType]struct{}{
	CardTypeCredit: {
		BrandMastercard: {},
		BrandVisa:       {},
		BrandRupay:      {},
		BrandAmex:       {},
	},
	CardTypeDebit: {
		BrandMastercard: {},
		BrandVisa:       {},
		BrandRupay:      {},
	},
	CardTypePrepaid: {
		BrandMastercard: {},
		BrandVisa:       {},
		BrandRupay:      {},
	},
}

// ValidCardType reports whether the card type is a known value.
func ValidCardType(t CardType) bool {
	_, ok := brandCompatibility[t]
	return ok
}

// BrandCompatible reports whether the brand may appear under the card type.
func BrandCompatible(cardType CardType, brand BrandType) bool {
	brands, ok := brandCompatibility[cardType]
	if !ok {
		return false
	}
	_, ok = brands[brand]
	return ok
}

// BBPSCommission is a BBPS slab row. A nil category applies to all biller
// categories.
type BBPSCommission struct {
	ID                        snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchemeID                  snowflake.ID    `json:"scheme_id" gorm:"not null;index"`
	Category                  *string         `json:"category,omitempty" gorm:"type:text"`
	MinAmount                 decimal.Decimal `json:"min_amount" gorm:"type:numeric(20,2);not null"`
	MaxAmount                 decimal.Decimal `json:"max_amount" gorm:"type:numeric(20,2);not null"`
	RetailerCharge            decimal.Decimal `json:"retailer_charge" gorm:"type:numeric(20,2);not null"`
	RetailerChargeType        AmountType      `json:"retailer_charge_type" gorm:"type:text;not null"`
	RetailerCommission        decimal.Decimal `json:"retailer_commission" gorm:"type:numeric(20,2);not null"`
	RetailerCommissionType    AmountType      `json:"retailer_commission_type" gorm:"type:text;not null"`
	DistributorCommission     decimal.Decimal `json:"distributor_commission" gorm:"type:numeric(20,2);not null"`
	DistributorCommissionType AmountType      `json:"distributor_commission_type" gorm:"type:text;not null"`
	MDCommission              decimal.Decimal `json:"md_commission" gorm:"type:numeric(20,2);not null"`
	MDCommissionType          AmountType      `json:"md_commission_type" gorm:"type:text;not null"`
	CompanyCharge             decimal.Decimal `json:"company_charge" gorm:"type:numeric(20,2);not null"`
	CompanyChargeType         AmountType      `json:"company_charge_type" gorm:"type:text;not null"`
	Status                    EntryStatus     `json:"status" gorm:"type:text;not null;index"`
	CreatedAt                 time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                 time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BBPSCommission) TableName() string { return "scheme_bbps_commissions" }

// PayoutCharge is a payout slab row keyed by transfer mode.
type PayoutCharge struct {
	ID                        snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchemeID                  snowflake.ID    `json:"scheme_id" gorm:"not null;index"`
	TransferMode              TransferMode    `json:"transfer_mode" gorm:"type:text;not null"`
	MinAmount                 decimal.Decimal `json:"min_amount" gorm:"type:numeric(20,2);not null"`
	MaxAmount                 decimal.Decimal `json:"max_amount" gorm:"type:numeric(20,2);not null"`
	RetailerCharge            decimal.Decimal `json:"retailer_charge" gorm:"type:numeric(20,2);not null"`
	RetailerChargeType        AmountType      `json:"retailer_charge_type" gorm:"type:text;not null"`
	RetailerCommission        decimal.Decimal `json:"retailer_commission" gorm:"type:numeric(20,2);not null"`
	RetailerCommissionType    AmountType      `json:"retailer_commission_type" gorm:"type:text;not null"`
	DistributorCommission     decimal.Decimal `json:"distributor_commission" gorm:"type:numeric(20,2);not null"`
	DistributorCommissionType AmountType      `json:"distributor_commission_type" gorm:"type:text;not null"`
	MDCommission              decimal.Decimal `json:"md_commission" gorm:"type:numeric(20,2);not null"`
	MDCommissionType          AmountType      `json:"md_commission_type" gorm:"type:text;not null"`
	CompanyCharge             decimal.Decimal `json:"company_charge" gorm:"type:numeric(20,2);not null"`
	CompanyChargeType         AmountType      `json:"company_charge_type" gorm:"type:text;not null"`
	Status                    EntryStatus     `json:"status" gorm:"type:text;not null;index"`
	CreatedAt                 time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                 time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PayoutCharge) TableName() string { return "scheme_payout_charges" }

// MDRRate is a card/UPI discount rate row. All six rates are percentages.
// Nil card type or brand widens the row; such rows serve as fallbacks during
// resolution.
type MDRRate struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	SchemeID         snowflake.ID    `json:"scheme_id" gorm:"not null;index"`
	Mode             MDRMode         `json:"mode" gorm:"type:text;not null"`
	CardType         *CardType       `json:"card_type,omitempty" gorm:"type:text"`
	BrandType        *BrandType      `json:"brand_type,omitempty" gorm:"type:text"`
	RetailerMDRT0    decimal.Decimal `json:"retailer_mdr_t0" gorm:"column:retailer_mdr_t0;type:numeric(20,2);not null"`
	RetailerMDRT1    decimal.Decimal `json:"retailer_mdr_t1" gorm:"column:retailer_mdr_t1;type:numeric(20,2);not null"`
	DistributorMDRT0 decimal.Decimal `json:"distributor_mdr_t0" gorm:"column:distributor_mdr_t0;type:numeric(20,2);not null"`
	DistributorMDRT1 decimal.Decimal `json:"distributor_mdr_t1" gorm:"column:distributor_mdr_t1;type:numeric(20,2);not null"`
	MDMDRT0          decimal.Decimal `json:"md_mdr_t0" gorm:"column:md_mdr_t0;type:numeric(20,2);not null"`
	MDMDRT1          decimal.Decimal `json:"md_mdr_t1" gorm:"column:md_mdr_t1;type:numeric(20,2);not null"`
	Status           EntryStatus     `json:"status" gorm:"type:text;not null;index"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MDRRate) TableName() string { return "scheme_mdr_rates" }

// TierOrderingValid checks that the retailer never earns fewer basis points
// than the distributor it funds, on both settlement timings.
func (m *MDRRate) TierOrderingValid() bool {
	return m.RetailerMDRT0.GreaterThanOrEqual(m.DistributorMDRT0) &&
		m.RetailerMDRT1.GreaterThanOrEqual(m.DistributorMDRT1)
}
