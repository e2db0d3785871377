// Package accounts manages deposit account lifecycle: opening, detail lookup
// with transaction history and per-user listing.
package accounts

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finguard/finguard/common/errors"
	"github.com/finguard/finguard/pkg/models"
)

// maxNumberAttempts bounds the retry loop for account number collisions.
const maxNumberAttempts = 5

// OpenRequest is the account-opening payload.
type OpenRequest struct {
	UserSub     string `json:"userSub" binding:"required"`
	AccountName string `json:"account_name" binding:"required"`
	BankName    string `json:"bank_name" binding:"required"`
}

// AccountDetail is an account plus its transaction history, newest first.
type AccountDetail struct {
	Account      models.Account       `json:"account"`
	Transactions []models.Transaction `json:"transactions"`
}

// Service implements account operations on the relational store.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates the account service.
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger, db: db}
}

// Open creates a new account with a zero balance and a freshly generated
// account number. Number collisions are retried a bounded number of times.
func (s *Service) Open(ctx context.Context, req *OpenRequest) (*models.Account, error) {
	var created *models.Account

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		account := &models.Account{
			ID:            uuid.New(),
			UserSub:       req.UserSub,
			AccountName:   req.AccountName,
			AccountNumber: generateAccountNumber(),
			BankName:      req.BankName,
			Balance:       decimal.Zero,
		}

		err := s.db.WithContext(ctx).Create(account).Error
		if err == nil {
			created = account
			break
		}
		if !stderrors.Is(err, gorm.ErrDuplicatedKey) && !isUniqueViolation(err) {
			return nil, errors.Wrap(errors.KindInternal, "failed to create account", err)
		}
		s.logger.Warn("Account number collision, retrying",
			zap.String("account_number", account.AccountNumber))
	}
	if created == nil {
		return nil, errors.New(errors.KindInternal, "could not allocate a unique account number")
	}

	s.logger.Info("Account opened",
		zap.String("user_sub", created.UserSub),
		zap.String("account_number", created.AccountNumber))
	return created, nil
}

// Get returns one account by id along with its transaction history ordered
// newest first.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*AccountDetail, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.KindAccountNotFound, "account not found")
		}
		return nil, errors.Wrap(errors.KindInternal, "failed to load account", err)
	}

	var transactions []models.Transaction
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("date DESC, time DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to load transactions", err)
	}

	return &AccountDetail{Account: account, Transactions: transactions}, nil
}

// List returns all accounts owned by userSub.
func (s *Service) List(ctx context.Context, userSub string) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("user_sub = ?", userSub).
		Order("created_at").
		Find(&accounts).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, "failed to list accounts", err)
	}
	return accounts, nil
}

// generateAccountNumber produces a number in the NNN-NNN-NNNNN format. The
// top-level rand functions serialize access, so Open is safe to call from
// concurrent handlers.
func generateAccountNumber() string {
	return fmt.Sprintf("%03d-%03d-%05d",
		rand.Intn(1000), rand.Intn(1000), rand.Intn(100000))
}

// isUniqueViolation matches driver-specific unique constraint errors that
// gorm does not translate on every dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
