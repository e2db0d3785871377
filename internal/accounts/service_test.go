package accounts

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/finguard/finguard/common/errors"
	"github.com/finguard/finguard/pkg/models"
)

var accountNumberPattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{5}$`)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.Transaction{}))
	return NewService(zap.NewNop(), db), db
}

func TestOpenAccount(t *testing.T) {
	svc, db := setupService(t)

	account, err := svc.Open(context.Background(), &OpenRequest{
		UserSub:     "user-1",
		AccountName: "checking",
		BankName:    "FinGuard",
	})
	require.NoError(t, err)

	assert.Regexp(t, accountNumberPattern, account.AccountNumber)
	assert.True(t, account.Balance.IsZero(), "new accounts start empty")

	var stored models.Account
	require.NoError(t, db.Where("id = ?", account.ID).First(&stored).Error)
	assert.Equal(t, "user-1", stored.UserSub)
}

func TestOpenAccountNumbersDiffer(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		account, err := svc.Open(ctx, &OpenRequest{
			UserSub: "user-1", AccountName: "a", BankName: "b",
		})
		require.NoError(t, err)
		assert.False(t, seen[account.AccountNumber])
		seen[account.AccountNumber] = true
	}
}

func TestOpenAccountConcurrent(t *testing.T) {
	svc, db := setupService(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: each in-memory SQLite connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	const workers = 8
	const perWorker = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.Open(context.Background(), &OpenRequest{
					UserSub: "user-1", AccountName: "a", BankName: "b",
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Count(&count).Error)
	assert.EqualValues(t, workers*perWorker, count)
}

func TestGetAccountWithHistory(t *testing.T) {
	svc, db := setupService(t)

	account := &models.Account{
		ID:            uuid.New(),
		UserSub:       "user-1",
		AccountName:   "checking",
		AccountNumber: "111-222-33333",
		BankName:      "FinGuard",
		Balance:       decimal.NewFromInt(500),
	}
	require.NoError(t, db.Create(account).Error)

	older := &models.Transaction{
		ID: uuid.New(), AccountID: account.ID,
		Date: "2026-08-01", Time: "09:00:00",
		Amount: decimal.NewFromInt(-100), Type: "debit",
	}
	newer := &models.Transaction{
		ID: uuid.New(), AccountID: account.ID,
		Date: "2026-08-02", Time: "10:30:00",
		Amount: decimal.NewFromInt(200), Type: "credit",
	}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)

	detail, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AccountNumber, detail.Account.AccountNumber)
	require.Len(t, detail.Transactions, 2)
	assert.Equal(t, newer.ID, detail.Transactions[0].ID, "history is newest first")
}

func TestGetAccountNotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.KindAccountNotFound, errors.KindOf(err))
}

func TestListAccountsByUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Open(ctx, &OpenRequest{UserSub: "user-1", AccountName: "a", BankName: "b"})
		require.NoError(t, err)
	}
	_, err := svc.Open(ctx, &OpenRequest{UserSub: "user-2", AccountName: "a", BankName: "b"})
	require.NoError(t, err)

	accounts, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	for _, acc := range accounts {
		assert.Equal(t, "user-1", acc.UserSub)
	}
}
