// Package domain contains the commission ledger model and resolution types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CommissionStatus is the lifecycle state of a recorded commission.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusCredited  CommissionStatus = "credited"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// SettlementTiming selects the T+0 or T+1 MDR rate set.
type SettlementTiming string

const (
	SettlementT0 SettlementTiming = "t0"
	SettlementT1 SettlementTiming = "t1"
)

// CommissionLedger is one tier's share of a priced transaction. Adjustments
// are separate wallet entries; this row is never rewritten after recording.
type CommissionLedger struct {
	ID          snowflake.ID     `json:"id" gorm:"primaryKey"`
	SourceTxnID string           `json:"source_txn_id" gorm:"type:text;not null;uniqueIndex:uq_commission_source_role,priority:1"`
	SchemeID    snowflake.ID     `json:"scheme_id" gorm:"not null"`
	RateEntryID snowflake.ID     `json:"rate_entry_id" gorm:"not null"`
	EntityID    snowflake.ID     `json:"entity_id" gorm:"not null;index"`
	EntityRole  string           `json:"entity_role" gorm:"type:text;not null;uniqueIndex:uq_commission_source_role,priority:2"`
	ServiceType string           `json:"service_type" gorm:"type:text;not null"`
	Amount      decimal.Decimal  `json:"amount" gorm:"type:numeric(20,2);not null"`
	Status      CommissionStatus `json:"status" gorm:"type:text;not null;index"`
	Remarks     string           `json:"remarks" gorm:"type:text"`
	CreatedAt   time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CommissionLedger) TableName() string { return "commission_ledger" }
