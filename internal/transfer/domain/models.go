// Package domain contains the fund transfer record and its state machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/shopspring/decimal"
)

// TransferDirection says which party initiates the movement.
type TransferDirection string

const (
	DirectionPush TransferDirection = "push"
	DirectionPull TransferDirection = "pull"
)

// TransferStatus walks requested, debited, credited, completed on the happy
// path, with debited, compensating, failed on a credit-leg failure.
type TransferStatus string

const (
	StatusRequested    TransferStatus = "requested"
	StatusDebited      TransferStatus = "debited"
	StatusCredited     TransferStatus = "credited"
	StatusCompleted    TransferStatus = "completed"
	StatusCompensating TransferStatus = "compensating"
	StatusFailed       TransferStatus = "failed"
)

// AdjustType is the direction of a commission adjustment.
type AdjustType string

const (
	AdjustTypeAdd    AdjustType = "add"
	AdjustTypeDeduct AdjustType = "deduct"
)

// TransferRecord is the audit row for one push or pull operation. Leg
// outcomes advance the status; the row is never deleted.
type TransferRecord struct {
	ID             snowflake.ID              `json:"id" gorm:"primaryKey"`
	FromUserID     snowflake.ID              `json:"from_user_id" gorm:"not null;index"`
	ToUserID       snowflake.ID              `json:"to_user_id" gorm:"not null;index"`
	Amount         decimal.Decimal           `json:"amount" gorm:"type:numeric(20,2);not null"`
	FundCategory   walletdomain.FundCategory `json:"fund_category" gorm:"type:text;not null"`
	Direction      TransferDirection         `json:"direction" gorm:"type:text;not null"`
	Status         TransferStatus            `json:"status" gorm:"type:text;not null;index"`
	IdempotencyKey string                    `json:"idempotency_key" gorm:"type:text;not null;uniqueIndex"`
	Remarks        string                    `json:"remarks" gorm:"type:text"`
	FailureReason  string                    `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt      time.Time                 `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time                 `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TransferRecord) TableName() string { return "transfers" }
