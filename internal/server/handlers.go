package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finguard/finguard/common/errors"
	"github.com/finguard/finguard/internal/accounts"
	"github.com/finguard/finguard/internal/identities"
	"github.com/finguard/finguard/internal/ledger"
	"github.com/finguard/finguard/internal/notifications"
)

// Handlers groups the HTTP handlers around the domain services.
type Handlers struct {
	logger        *zap.Logger
	ledger        *ledger.Service
	accounts      *accounts.Service
	identities    *identities.Service
	notifications *notifications.Service
}

// NewHandlers creates the handler set.
func NewHandlers(logger *zap.Logger, ledgerSvc *ledger.Service, accountsSvc *accounts.Service, identitiesSvc *identities.Service, notificationsSvc *notifications.Service) *Handlers {
	return &Handlers{
		logger:        logger,
		ledger:        ledgerSvc,
		accounts:      accountsSvc,
		identities:    identitiesSvc,
		notifications: notificationsSvc,
	}
}

// Transfer handles POST /banks/accounts.
func (h *Handlers) Transfer(c *gin.Context) {
	var req ledger.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.WriteError(c, errors.Wrap(errors.KindValidation, "invalid transfer request", err))
		return
	}
	req.TraceID = c.GetString("trace_id")

	result, err := h.ledger.Transfer(c.Request.Context(), &req)
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// RegisterUser handles POST /users.
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req identities.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.WriteError(c, errors.Wrap(errors.KindValidation, "invalid registration request", err))
		return
	}

	user, err := h.identities.Register(c.Request.Context(), &req)
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// SignIn handles POST /users/sign-in.
func (h *Handlers) SignIn(c *gin.Context) {
	var req identities.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.WriteError(c, errors.Wrap(errors.KindValidation, "invalid sign-in request", err))
		return
	}

	session, err := h.identities.SignIn(c.Request.Context(), &req)
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// OpenAccount handles POST /financial/accounts.
func (h *Handlers) OpenAccount(c *gin.Context) {
	var req accounts.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.WriteError(c, errors.Wrap(errors.KindValidation, "invalid account request", err))
		return
	}

	account, err := h.accounts.Open(c.Request.Context(), &req)
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// GetAccount handles GET /accounts/:accountId.
func (h *Handlers) GetAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		errors.WriteError(c, errors.New(errors.KindValidation, "account id must be a UUID"))
		return
	}

	detail, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListAccounts handles GET /financial/accounts/:userSub.
func (h *Handlers) ListAccounts(c *gin.Context) {
	list, err := h.accounts.List(c.Request.Context(), c.Param("userSub"))
	if err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": list})
}

// RegisterPushToken handles POST /notifications/tokens.
func (h *Handlers) RegisterPushToken(c *gin.Context) {
	var req notifications.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.WriteError(c, errors.Wrap(errors.KindValidation, "invalid token request", err))
		return
	}

	if err := h.notifications.Register(c.Request.Context(), &req); err != nil {
		errors.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
