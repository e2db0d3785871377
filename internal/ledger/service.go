// Package ledger implements the funds-transfer coordinator: precondition
// checks, the atomic double-entry mutation, the running-median update and the
// dispatch of the fraud feature vector that gates the commit.
package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finguard/finguard/common/errors"
	"github.com/finguard/finguard/internal/fraud"
	"github.com/finguard/finguard/internal/median"
	"github.com/finguard/finguard/internal/messaging"
	"github.com/finguard/finguard/pkg/metrics"
	"github.com/finguard/finguard/pkg/models"
)

const (
	defaultDebitDescription = "withdrawal"
	creditDescription       = "deposit"
	defaultDispatchTimeout  = 5 * time.Second
)

// TransferRequest is the transfer payload. TraceID is assigned by the
// transport layer, not bound from the body.
type TransferRequest struct {
	UserSub        string          `json:"userSub" binding:"required"`
	FromAccount    string          `json:"my_account" binding:"required,acctnum"`
	CounterAccount string          `json:"counter_account" binding:"required,acctnum"`
	Amount         decimal.Decimal `json:"money" binding:"required"`
	UsedCard       bool            `json:"used_card"`
	Description    string          `json:"description"`
	Location       []float64       `json:"location" binding:"required,len=2"`

	TraceID string `json:"-"`
}

// TransferLeg identifies one of the two rows inserted for a transfer.
type TransferLeg struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	AccountID     uuid.UUID       `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferResult summarizes a committed transfer.
type TransferResult struct {
	TraceID string      `json:"traceId"`
	Debit   TransferLeg `json:"debit"`
	Credit  TransferLeg `json:"credit"`
}

// Service coordinates transfers. A transfer is visible in the ledger if and
// only if its feature vector was durably accepted by the queue.
type Service struct {
	logger          *zap.Logger
	db              *gorm.DB
	gate            *fraud.Gate
	producer        messaging.Producer
	dispatchTimeout time.Duration
	seq             atomic.Uint64 // dedup nonce, unique per attempt
}

// NewService creates the transfer coordinator.
func NewService(logger *zap.Logger, db *gorm.DB, gate *fraud.Gate, producer messaging.Producer, dispatchTimeout time.Duration) (*Service, error) {
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	return &Service{
		logger:          logger,
		db:              db,
		gate:            gate,
		producer:        producer,
		dispatchTimeout: dispatchTimeout,
	}, nil
}

// Transfer moves req.Amount from the source to the destination account,
// synthesizes the fraud feature vector and dispatches it to the scoring
// queue. Dispatch failure rolls the whole mutation back.
func (s *Service) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	result, err := s.transfer(ctx, req)
	metrics.TransfersTotal.WithLabelValues(transferResultLabel(err)).Inc()
	return result, err
}

func (s *Service) transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.New(errors.KindValidation, "transfer amount must be positive")
	}
	if req.FromAccount == req.CounterAccount {
		return nil, errors.New(errors.KindValidation, "source and destination accounts must differ")
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}
	logger := s.logger.With(zap.String("trace_id", traceID), zap.String("user_sub", req.UserSub))

	// 1. Deny-list check, before any balance read.
	blocked, err := s.gate.IsBlocked(ctx, req.CounterAccount)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "fraud list lookup failed", err)
	}
	if blocked {
		logger.Warn("Transfer to deny-listed account rejected",
			zap.String("counter_account", req.CounterAccount))
		return nil, errors.New(errors.KindFraudulentCounterparty, "transfers to this account are not permitted")
	}

	// 2. Source account and balance.
	var source models.Account
	if err := s.db.WithContext(ctx).Where("account_number = ?", req.FromAccount).First(&source).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.KindAccountNotFound, "source account not found")
		}
		return nil, errors.Wrap(errors.KindInternal, "failed to load source account", err)
	}
	if source.Balance.LessThan(req.Amount) {
		return nil, errors.New(errors.KindInsufficientBalance, "balance is insufficient for this transfer")
	}

	// 3. Destination account.
	var dest models.Account
	if err := s.db.WithContext(ctx).Where("account_number = ?", req.CounterAccount).First(&dest).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.KindCounterpartyNotFound, "counterparty account not found")
		}
		return nil, errors.Wrap(errors.KindInternal, "failed to load counterparty account", err)
	}

	// 4. Read-only feature inputs.
	current := fraud.Location{Lat: req.Location[0], Lon: req.Location[1]}

	lastWithdrawal, err := s.lastWithdrawalLocation(ctx, source.ID)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to load last withdrawal", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("user_sub = ?", req.UserSub).First(&user).Error; err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to load user profile", err)
	}

	var repeatCount int64
	err = s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ? AND counter_account = ?", source.ID, req.CounterAccount).
		Count(&repeatCount).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to check counterparty history", err)
	}

	// 5. Atomic mutation: balances, two transaction rows, median state. The
	// transaction stays open across dispatch so a queue failure rolls
	// everything back.
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to begin transaction", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Conditional update: the balance guard and the decrement are one atomic
	// statement, so a concurrent transfer cannot overdraw the account.
	res := tx.Model(&models.Account{}).
		Where("id = ? AND balance >= ?", source.ID, req.Amount).
		Update("balance", gorm.Expr("balance - ?", req.Amount))
	if res.Error != nil {
		tx.Rollback()
		return nil, errors.Wrap(errors.KindInternal, "failed to debit source account", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, errors.New(errors.KindInsufficientBalance, "balance is insufficient for this transfer")
	}

	res = tx.Model(&models.Account{}).
		Where("id = ?", dest.ID).
		Update("balance", gorm.Expr("balance + ?", req.Amount))
	if res.Error != nil || res.RowsAffected == 0 {
		tx.Rollback()
		return nil, errors.Wrap(errors.KindInternal, "failed to credit counterparty account", res.Error)
	}

	now := time.Now().UTC()
	date := now.Format("2006-01-02")
	timeOfDay := now.Format("15:04:05")

	description := req.Description
	if description == "" {
		description = defaultDebitDescription
	}

	debit := &models.Transaction{
		ID:             uuid.New(),
		AccountID:      source.ID,
		Date:           date,
		Time:           timeOfDay,
		Description:    description,
		Amount:         req.Amount.Neg(),
		Type:           "debit",
		Latitude:       current.Lat,
		Longitude:      current.Lon,
		CounterAccount: req.CounterAccount,
		CreatedAt:      now,
	}
	credit := &models.Transaction{
		ID:             uuid.New(),
		AccountID:      dest.ID,
		Date:           date,
		Time:           timeOfDay,
		Description:    creditDescription,
		Amount:         req.Amount,
		Type:           "credit",
		Latitude:       current.Lat,
		Longitude:      current.Lon,
		CounterAccount: req.FromAccount,
		CreatedAt:      now,
	}
	if err := tx.Create(debit).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(errors.KindInternal, "failed to insert debit row", err)
	}
	if err := tx.Create(credit).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(errors.KindInternal, "failed to insert credit row", err)
	}

	medianBefore, err := s.updateMedianState(tx, req.FromAccount, req.Amount.InexactFloat64(), now)
	if err != nil {
		tx.Rollback()
		return nil, errors.Wrap(errors.KindInternal, "failed to update median state", err)
	}

	// 6. Build the feature vector and dispatch. Commit only on queue accept.
	features := fraud.Features(fraud.FeatureInput{
		Home:               fraud.Location{Lat: user.HomeLatitude, Lon: user.HomeLongitude},
		LastWithdrawal:     lastWithdrawal,
		Current:            current,
		Amount:             req.Amount.InexactFloat64(),
		MedianBefore:       medianBefore,
		RepeatCounterparty: repeatCount > 0,
		ChipUsed:           req.UsedCard,
	})

	dedupID := fmt.Sprintf("%s-%d", traceID, s.seq.Add(1))
	dispatchCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	err = s.producer.Publish(dispatchCtx, messaging.FeatureGroupKey,
		map[string]string{messaging.DedupHeader: dedupID},
		&messaging.FeatureMessage{
			TraceID:  traceID,
			UserSub:  req.UserSub,
			Features: features,
		})
	if err != nil {
		tx.Rollback()
		metrics.DispatchFailures.Inc()
		logger.Error("Feature dispatch failed, transfer rolled back", zap.Error(err))
		return nil, errors.Wrap(errors.KindDispatchFailure, "feature dispatch failed, transfer cancelled", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to commit transaction", err)
	}

	logger.Info("Transfer completed",
		zap.String("from_account", req.FromAccount),
		zap.String("counter_account", req.CounterAccount),
		zap.String("amount", req.Amount.String()))

	return &TransferResult{
		TraceID: traceID,
		Debit:   TransferLeg{TransactionID: debit.ID, AccountID: source.ID, Amount: debit.Amount},
		Credit:  TransferLeg{TransactionID: credit.ID, AccountID: dest.ID, Amount: credit.Amount},
	}, nil
}

// lastWithdrawalLocation returns the geolocation of the most recent debit on
// the account, or nil when there is no debit history.
func (s *Service) lastWithdrawalLocation(ctx context.Context, accountID uuid.UUID) (*fraud.Location, error) {
	var last models.Transaction
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND type = ?", accountID, "debit").
		Order("date DESC, time DESC").
		First(&last).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fraud.Location{Lat: last.Latitude, Lon: last.Longitude}, nil
}

// updateMedianState reads the median state for accountNumber inside tx,
// returns the pre-insertion median, inserts amount and persists the new
// halves. On PostgreSQL the state row is locked so concurrent transfers on
// one account cannot lose updates; SQLite serializes writers on its own.
func (s *Service) updateMedianState(tx *gorm.DB, accountNumber string, amount float64, now time.Time) (float64, error) {
	stateQuery := tx
	if tx.Dialector.Name() == "postgres" {
		stateQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var state models.MedianState
	err := stateQuery.Where("account_number = ?", accountNumber).First(&state).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	tracker, err := median.Unmarshal(state.LowerHalf, state.UpperHalf)
	if err != nil {
		return 0, fmt.Errorf("corrupt median state for %s: %w", accountNumber, err)
	}

	medianBefore := tracker.Median()
	tracker.Insert(amount)

	lower, upper, err := tracker.Marshal()
	if err != nil {
		return 0, err
	}

	state = models.MedianState{
		AccountNumber: accountNumber,
		LowerHalf:     lower,
		UpperHalf:     upper,
		UpdatedAt:     now,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"lower_half", "upper_half", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return 0, err
	}

	return medianBefore, nil
}

func transferResultLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch errors.KindOf(err) {
	case errors.KindFraudulentCounterparty:
		return "fraud_blocked"
	case errors.KindInsufficientBalance:
		return "insufficient_balance"
	case errors.KindAccountNotFound, errors.KindCounterpartyNotFound:
		return "not_found"
	case errors.KindDispatchFailure:
		return "dispatch_failure"
	default:
		return "error"
	}
}
