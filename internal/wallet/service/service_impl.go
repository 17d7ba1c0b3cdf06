package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/partnerpay/settlo/internal/config"
	"github.com/partnerpay/settlo/internal/observability/metrics"
	"github.com/partnerpay/settlo/internal/ratelimit"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"github.com/partnerpay/settlo/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    walletdomain.Repository
	Cfg     config.Config
	Locker  *ratelimit.Locker `optional:"true"`
	Metrics *metrics.Metrics  `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    walletdomain.Repository
	locker  *ratelimit.Locker
	lockTTL time.Duration
	metrics *metrics.Metrics
}

func New(p Params) walletdomain.Service {
	ttl := time.Duration(p.Cfg.RateLimit.WalletLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("wallet.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		locker:  p.Locker,
		lockTTL: ttl,
		metrics: p.Metrics,
	}
}

func (s *Service) Post(ctx context.Context, req walletdomain.PostRequest) (*walletdomain.EntryResponse, error) {
	userID, err := parseUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if !validWalletType(req.WalletType) {
		return nil, walletdomain.ErrInvalidWalletType
	}
	if !req.Amount.IsPositive() {
		return nil, walletdomain.ErrInvalidAmount
	}
	if req.Direction != walletdomain.DirectionCredit && req.Direction != walletdomain.DirectionDebit {
		return nil, walletdomain.ErrInvalidDirection
	}
	if !walletdomain.ValidFundCategory(req.FundCategory) {
		return nil, walletdomain.ErrInvalidFundCategory
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, walletdomain.ErrMissingIdempotency
	}
	amount := req.Amount.Round(2)

	// Cheap replay check before taking any lock.
	if existing, err := s.repo.FindEntryByReferenceKey(ctx, s.db, key); err != nil {
		return nil, err
	} else if existing != nil {
		return toEntryResponse(existing, true), nil
	}

	// Cross-instance fence when redis is configured. The row lock below is
	// the correctness guarantee either way.
	if s.locker != nil {
		lockKey := ratelimit.WalletLockKey(userID.String(), string(req.WalletType))
		token, ok, lockErr := s.locker.TryLock(ctx, lockKey, s.lockTTL)
		if lockErr != nil {
			s.log.Warn("wallet lock unavailable", zap.Error(lockErr))
		} else if ok {
			defer func() {
				if releaseErr := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); releaseErr != nil {
					s.log.Warn("wallet lock release failed", zap.Error(releaseErr))
				}
			}()
		}
	}

	var entry *walletdomain.WalletLedgerEntry
	var duplicate bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, txErr := s.repo.LockWallet(ctx, tx, userID, req.WalletType, s.genID.Generate())
		if txErr != nil {
			return txErr
		}

		// Re-check under the lock; a racing retry may have won.
		if existing, txErr := s.repo.FindEntryByReferenceKey(ctx, tx, key); txErr != nil {
			return txErr
		} else if existing != nil {
			entry = existing
			duplicate = true
			return nil
		}

		if wallet.Frozen {
			return walletdomain.ErrWalletFrozen
		}
		if req.FundCategory == walletdomain.FundCategorySettlement && wallet.SettlementHeld {
			return walletdomain.ErrSettlementHeld
		}

		// The ledger tail is the balance of record; the wallet row is a
		// summary re-synced on every post.
		opening := wallet.Balance
		if last, txErr := s.repo.LastEntry(ctx, tx, userID, req.WalletType); txErr != nil {
			return txErr
		} else if last != nil {
			opening = last.ClosingBalance
		}

		closing := opening
		credit, debit := decimal.Zero, decimal.Zero
		switch req.Direction {
		case walletdomain.DirectionCredit:
			credit = amount
			closing = closing.Add(amount)
		case walletdomain.DirectionDebit:
			if opening.LessThan(amount) {
				return walletdomain.ErrInsufficientFunds
			}
			debit = amount
			closing = closing.Sub(amount)
		}

		now := time.Now().UTC()
		entry = &walletdomain.WalletLedgerEntry{
			ID:              s.genID.Generate(),
			UserID:          userID,
			WalletType:      req.WalletType,
			TransactionType: strings.TrimSpace(req.TransactionType),
			Credit:          credit,
			Debit:           debit,
			ClosingBalance:  closing,
			FundCategory:    req.FundCategory,
			Status:          walletdomain.EntryStatusCompleted,
			ReferenceKey:    key,
			Remarks:         strings.TrimSpace(req.Remarks),
			CreatedAt:       now,
		}
		if txErr := s.repo.InsertEntry(ctx, tx, entry); txErr != nil {
			return txErr
		}

		wallet.Balance = closing
		wallet.UpdatedAt = now
		return s.repo.UpdateWallet(ctx, tx, wallet)
	})
	if err != nil {
		return nil, err
	}

	if !duplicate {
		s.metrics.RecordLedgerEntry(string(req.FundCategory), string(req.Direction))
		s.log.Info("ledger entry posted",
			zap.String("user_id", userID.String()),
			zap.String("wallet_type", string(req.WalletType)),
			zap.String("direction", string(req.Direction)),
			zap.String("fund_category", string(req.FundCategory)),
			zap.String("closing_balance", entry.ClosingBalance.StringFixed(2)),
		)
	}
	return toEntryResponse(entry, duplicate), nil
}

func (s *Service) GetBalance(ctx context.Context, userID string, walletType walletdomain.WalletType) (decimal.Decimal, error) {
	id, err := parseUser(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !validWalletType(walletType) {
		return decimal.Zero, walletdomain.ErrInvalidWalletType
	}

	wallet, err := s.repo.FindWallet(ctx, s.db, id, walletType)
	if err != nil {
		return decimal.Zero, err
	}
	if wallet == nil {
		return decimal.Zero, nil
	}
	return wallet.Balance, nil
}

func (s *Service) SetFrozen(ctx context.Context, userID string, walletType walletdomain.WalletType, frozen bool) error {
	return s.setFlag(ctx, userID, walletType, func(w *walletdomain.Wallet) {
		w.Frozen = frozen
	})
}

func (s *Service) SetSettlementHold(ctx context.Context, userID string, walletType walletdomain.WalletType, held bool) error {
	return s.setFlag(ctx, userID, walletType, func(w *walletdomain.Wallet) {
		w.SettlementHeld = held
	})
}

func (s *Service) setFlag(ctx context.Context, userID string, walletType walletdomain.WalletType, apply func(*walletdomain.Wallet)) error {
	id, err := parseUser(userID)
	if err != nil {
		return err
	}
	if !validWalletType(walletType) {
		return walletdomain.ErrInvalidWalletType
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, txErr := s.repo.LockWallet(ctx, tx, id, walletType, s.genID.Generate())
		if txErr != nil {
			return txErr
		}
		apply(wallet)
		wallet.UpdatedAt = time.Now().UTC()
		return s.repo.UpdateWallet(ctx, tx, wallet)
	})
}

func (s *Service) ListEntries(ctx context.Context, req walletdomain.ListEntriesRequest) (*walletdomain.ListEntriesResponse, error) {
	id, err := parseUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if !validWalletType(req.WalletType) {
		return nil, walletdomain.ErrInvalidWalletType
	}

	limit := req.Pagination.PageSize
	if limit <= 0 {
		limit = 25
	}

	var afterID snowflake.ID
	if req.Pagination.PageToken != "" {
		cursor, cursorErr := pagination.DecodeCursor(req.Pagination.PageToken)
		if cursorErr != nil {
			return nil, walletdomain.ErrInvalidUser
		}
		parsed, parseErr := snowflake.ParseString(cursor.ID)
		if parseErr != nil {
			return nil, walletdomain.ErrInvalidUser
		}
		afterID = parsed
	}

	items, err := s.repo.ListEntries(ctx, s.db, id, req.WalletType, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, limit, func(e walletdomain.WalletLedgerEntry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})

	entries := make([]walletdomain.EntryResponse, 0, len(items))
	for i := range items {
		entries = append(entries, *toEntryResponse(&items[i], false))
	}
	return &walletdomain.ListEntriesResponse{Entries: entries, PageInfo: pageInfo}, nil
}

func parseUser(userID string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return 0, walletdomain.ErrInvalidUser
	}
	return id, nil
}

func validWalletType(t walletdomain.WalletType) bool {
	return t == walletdomain.WalletTypePrimary || t == walletdomain.WalletTypeAEPS
}

func toEntryResponse(e *walletdomain.WalletLedgerEntry, duplicate bool) *walletdomain.EntryResponse {
	return &walletdomain.EntryResponse{
		ID:              e.ID.String(),
		UserID:          e.UserID.String(),
		WalletType:      e.WalletType,
		TransactionType: e.TransactionType,
		Credit:          e.Credit,
		Debit:           e.Debit,
		ClosingBalance:  e.ClosingBalance,
		FundCategory:    e.FundCategory,
		Status:          e.Status,
		ReferenceKey:    e.ReferenceKey,
		Remarks:         e.Remarks,
		Duplicate:       duplicate,
		CreatedAt:       e.CreatedAt,
	}
}
