package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	"github.com/partnerpay/settlo/internal/config"
	"github.com/partnerpay/settlo/internal/observability/metrics"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Repo           transferdomain.Repository
	CommissionRepo commissiondomain.Repository
	Wallet         walletdomain.Service
	Limits         *config.LimitsHolder
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	repo           transferdomain.Repository
	commissionRepo commissiondomain.Repository
	wallet         walletdomain.Service
	limits         *config.LimitsHolder
	metrics        *metrics.Metrics
}

func New(p Params) transferdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("transfer.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		commissionRepo: p.CommissionRepo,
		wallet:         p.Wallet,
		limits:         p.Limits,
		metrics:        p.Metrics,
	}
}

func (s *Service) Transfer(ctx context.Context, req transferdomain.TransferRequest) (*transferdomain.TransferResult, error) {
	fromID, err := parseUser(req.FromUserID)
	if err != nil {
		return nil, err
	}
	toID, err := parseUser(req.ToUserID)
	if err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, transferdomain.ErrSameWallet
	}
	if req.Direction != transferdomain.DirectionPush && req.Direction != transferdomain.DirectionPull {
		return nil, transferdomain.ErrInvalidDirection
	}
	if !walletdomain.ValidFundCategory(req.FundCategory) {
		return nil, walletdomain.ErrInvalidFundCategory
	}
	if !req.Amount.IsPositive() {
		return nil, transferdomain.ErrInvalidAmount
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, transferdomain.ErrMissingIdempotency
	}

	limits := s.limits.Get()
	amount := req.Amount.Round(2)
	if amount.LessThan(limits.MinTransfer()) || amount.GreaterThan(limits.MaxTransfer()) {
		return nil, transferdomain.ErrAmountOutOfLimits
	}

	if existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, key); findErr != nil {
		return nil, findErr
	} else if existing != nil {
		return toResult(existing, true), nil
	}

	now := time.Now().UTC()
	record := &transferdomain.TransferRecord{
		ID:             s.genID.Generate(),
		FromUserID:     fromID,
		ToUserID:       toID,
		Amount:         amount,
		FundCategory:   req.FundCategory,
		Direction:      req.Direction,
		Status:         transferdomain.StatusRequested,
		IdempotencyKey: key,
		Remarks:        strings.TrimSpace(req.Remarks),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	// Push debits the initiator; pull debits the counterparty.
	debitUser, creditUser := fromID, toID
	if req.Direction == transferdomain.DirectionPull {
		debitUser, creditUser = toID, fromID
	}

	if _, err := s.postLeg(ctx, debitUser, amount, walletdomain.DirectionDebit, req.FundCategory, key+":debit", record.Remarks); err != nil {
		s.fail(ctx, record, transferdomain.StatusFailed, err)
		return nil, err
	}
	s.advance(ctx, record, transferdomain.StatusDebited)

	if _, err := s.postLeg(ctx, creditUser, amount, walletdomain.DirectionCredit, req.FundCategory, key+":credit", record.Remarks); err != nil {
		s.advance(ctx, record, transferdomain.StatusCompensating)
		s.metrics.RecordCompensation()

		// Reverse the applied debit so neither party moves.
		if _, compErr := s.postLeg(ctx, debitUser, amount, walletdomain.DirectionCredit, req.FundCategory, key+":reversal", "reversal: "+record.Remarks); compErr != nil {
			s.log.Error("transfer compensation failed",
				zap.String("transfer_id", record.ID.String()),
				zap.Error(compErr),
			)
			return nil, compErr
		}
		s.fail(ctx, record, transferdomain.StatusFailed, err)
		return nil, err
	}
	s.advance(ctx, record, transferdomain.StatusCredited)
	s.advance(ctx, record, transferdomain.StatusCompleted)

	s.log.Info("transfer completed",
		zap.String("transfer_id", record.ID.String()),
		zap.String("direction", string(req.Direction)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return toResult(record, false), nil
}

func (s *Service) postLeg(ctx context.Context, userID snowflake.ID, amount decimal.Decimal, direction walletdomain.Direction, category walletdomain.FundCategory, legKey, remarks string) (*walletdomain.EntryResponse, error) {
	entry, err := s.wallet.Post(ctx, walletdomain.PostRequest{
		UserID:          userID.String(),
		WalletType:      walletdomain.WalletTypePrimary,
		Amount:          amount,
		Direction:       direction,
		FundCategory:    category,
		TransactionType: "transfer",
		IdempotencyKey:  legKey,
		Remarks:         remarks,
	})
	result := "ok"
	if err != nil {
		result = err.Error()
	}
	s.metrics.RecordTransferLeg(string(direction), result)
	return entry, err
}

func (s *Service) advance(ctx context.Context, record *transferdomain.TransferRecord, status transferdomain.TransferStatus) {
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, record); err != nil {
		s.log.Error("transfer status update failed",
			zap.String("transfer_id", record.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *Service) fail(ctx context.Context, record *transferdomain.TransferRecord, status transferdomain.TransferStatus, cause error) {
	record.FailureReason = cause.Error()
	s.advance(ctx, record, status)
}

func (s *Service) Adjust(ctx context.Context, commissionID string, req transferdomain.AdjustRequest) (*walletdomain.EntryResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(commissionID))
	if err != nil {
		return nil, transferdomain.ErrInvalidID
	}
	if req.Type != transferdomain.AdjustTypeAdd && req.Type != transferdomain.AdjustTypeDeduct {
		return nil, transferdomain.ErrInvalidAdjustType
	}
	if !req.Amount.IsPositive() {
		return nil, transferdomain.ErrInvalidAmount
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, transferdomain.ErrMissingIdempotency
	}

	amount := req.Amount.Round(2)
	if amount.GreaterThan(s.limits.Get().MaxAdjust()) {
		return nil, transferdomain.ErrAmountOutOfLimits
	}

	row, err := s.commissionRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, commissiondomain.ErrNotFound
	}

	direction := walletdomain.DirectionCredit
	if req.Type == transferdomain.AdjustTypeDeduct {
		direction = walletdomain.DirectionDebit
	}

	entry, err := s.wallet.Post(ctx, walletdomain.PostRequest{
		UserID:          row.EntityID.String(),
		WalletType:      walletdomain.WalletTypePrimary,
		Amount:          amount,
		Direction:       direction,
		FundCategory:    walletdomain.FundCategoryAdjustment,
		TransactionType: "adjustment",
		IdempotencyKey:  key,
		Remarks:         strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("commission adjusted",
		zap.String("commission_id", row.ID.String()),
		zap.String("entity_id", row.EntityID.String()),
		zap.String("type", string(req.Type)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, id string) (*transferdomain.TransferResult, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, transferdomain.ErrInvalidID
	}
	record, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, transferdomain.ErrNotFound
	}
	return toResult(record, false), nil
}

func parseUser(userID string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return 0, transferdomain.ErrInvalidUser
	}
	return id, nil
}

func toResult(record *transferdomain.TransferRecord, duplicate bool) *transferdomain.TransferResult {
	return &transferdomain.TransferResult{
		ID:            record.ID.String(),
		FromUserID:    record.FromUserID.String(),
		ToUserID:      record.ToUserID.String(),
		Amount:        record.Amount,
		FundCategory:  record.FundCategory,
		Direction:     record.Direction,
		Status:        record.Status,
		Remarks:       record.Remarks,
		FailureReason: record.FailureReason,
		Duplicate:     duplicate,
		CreatedAt:     record.CreatedAt,
	}
}
