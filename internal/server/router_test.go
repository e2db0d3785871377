package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/finguard/finguard/internal/accounts"
	"github.com/finguard/finguard/internal/fraud"
	"github.com/finguard/finguard/internal/identities"
	"github.com/finguard/finguard/internal/ledger"
	"github.com/finguard/finguard/pkg/models"
)

type noopProducer struct{}

func (noopProducer) Publish(context.Context, string, map[string]string, interface{}) error {
	return nil
}
func (noopProducer) Close() error { return nil }

func setupRouter(t *testing.T, verifier TokenVerifier) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Account{}, &models.Transaction{},
		&models.MedianState{}, &models.FraudListEntry{},
	))

	logger := zap.NewNop()
	ledgerSvc, err := ledger.NewService(logger, db, fraud.NewGate(db), noopProducer{}, 0)
	require.NoError(t, err)
	accountsSvc := accounts.NewService(logger, db)
	identitiesSvc := identities.NewService(logger, db, nil, "test-secret")

	handlers := NewHandlers(logger, ledgerSvc, accountsSvc, identitiesSvc, nil)
	return NewRouter(logger, handlers, verifier), db
}

func seedTransferAccounts(t *testing.T, db *gorm.DB) (source, dest models.Account) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{Sub: "user-1", HomeLatitude: 1, HomeLongitude: 2}).Error)
	source = models.Account{
		ID: uuid.New(), UserSub: "user-1", AccountName: "checking",
		AccountNumber: "111-222-33333", BankName: "FinGuard",
		Balance: decimal.NewFromInt(1000),
	}
	dest = models.Account{
		ID: uuid.New(), UserSub: "user-2", AccountName: "savings",
		AccountNumber: "444-555-66666", BankName: "FinGuard",
		Balance: decimal.NewFromInt(0),
	}
	require.NoError(t, db.Create(&source).Error)
	require.NoError(t, db.Create(&dest).Error)
	return source, dest
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTransferEndpoint(t *testing.T) {
	router, db := setupRouter(t, nil)
	source, dest := seedTransferAccounts(t, db)

	w := doJSON(router, http.MethodPost, "/banks/accounts", gin.H{
		"userSub":         "user-1",
		"my_account":      source.AccountNumber,
		"counter_account": dest.AccountNumber,
		"money":           200,
		"used_card":       true,
		"location":        []float64{1.0, 2.0},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result ledger.TransferResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.TraceID)

	var updated models.Account
	require.NoError(t, db.Where("id = ?", source.ID).First(&updated).Error)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(800)))
}

func TestTransferEndpointInsufficientBalance(t *testing.T) {
	router, db := setupRouter(t, nil)
	source, dest := seedTransferAccounts(t, db)

	w := doJSON(router, http.MethodPost, "/banks/accounts", gin.H{
		"userSub":         "user-1",
		"my_account":      source.AccountNumber,
		"counter_account": dest.AccountNumber,
		"money":           5000,
		"location":        []float64{1.0, 2.0},
	}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "InsufficientBalance", body["error"])
	assert.NotEmpty(t, body["trace_id"])
}

func TestTransferEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/banks/accounts", gin.H{
		"userSub": "user-1",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountLifecycleEndpoints(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/financial/accounts", gin.H{
		"userSub":      "user-1",
		"account_name": "checking",
		"bank_name":    "FinGuard",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var account models.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))

	w = doJSON(router, http.MethodGet, "/accounts/"+account.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/financial/accounts/user-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Accounts []models.Account `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Accounts, 1)
}

func TestRegisterUserAcceptsZeroCoordinates(t *testing.T) {
	router, db := setupRouter(t, nil)

	// Equator / prime meridian is a valid home location, not a missing field.
	w := doJSON(router, http.MethodPost, "/users", gin.H{
		"userSub":        "user-1",
		"home_latitude":  0,
		"home_longitude": 0,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, db.Where("user_sub = ?", "user-1").First(&user).Error)
	assert.Equal(t, 0.0, user.HomeLatitude)
}

func TestRegisterUserRejectsMissingCoordinates(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/users", gin.H{
		"userSub":       "user-1",
		"home_latitude": 1.0,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterUserRejectsOutOfRangeLatitude(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodPost, "/users", gin.H{
		"userSub":        "user-1",
		"home_latitude":  95.0,
		"home_longitude": 10.0,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAccountRejectsBadID(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/accounts/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyToken(string) (string, error) {
	return "", fmt.Errorf("bad token")
}

type acceptingVerifier struct{}

func (acceptingVerifier) VerifyToken(string) (string, error) { return "user-1", nil }

func TestAuthMiddlewareBlocksWithoutToken(t *testing.T) {
	router, _ := setupRouter(t, rejectingVerifier{})

	w := doJSON(router, http.MethodGet, "/financial/accounts/user-1", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewarePassesBearerToken(t *testing.T) {
	router, _ := setupRouter(t, acceptingVerifier{})

	w := doJSON(router, http.MethodGet, "/financial/accounts/user-1", nil,
		map[string]string{"Authorization": "Bearer token"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
