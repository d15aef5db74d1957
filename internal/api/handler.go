// Package api is the HTTP surface over the ledger service. It only parses
// requests and maps ledger errors to status codes; all financial logic lives
// behind the service.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/harborpay/ledger/internal/amount"
	"github.com/harborpay/ledger/internal/ledger"
)

type Handler struct {
	service *ledger.Service
	log     *zap.Logger
}

func NewHandler(service *ledger.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

type createAccountRequest struct {
	Name           string          `json:"name" binding:"required"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	account, err := h.service.CreateAccount(c.Request.Context(), req.Name, req.Currency, req.InitialBalance)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.service.ListAccounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *Handler) GetAccount(c *gin.Context) {
	accountID, ok := pathID(c)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := pathID(c)
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "balance": balance})
}

func (h *Handler) ListLedgerEntries(c *gin.Context) {
	accountID, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.service.ListEntries(c.Request.Context(), accountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type transferRequest struct {
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Description          string          `json:"description"`
}

func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": amount.ErrInvalidAmount.Error()})
		return
	}

	result, err := h.service.Transfer(c.Request.Context(),
		req.SourceAccountID, req.DestinationAccountID, req.Amount, req.Currency, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":            "Transfer completed successfully.",
		"transaction_id":     result.TransactionID,
		"new_source_balance": result.Balance,
	})
}

type accountMovementRequest struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (h *Handler) Deposit(c *gin.Context) {
	var req accountMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": amount.ErrInvalidAmount.Error()})
		return
	}

	result, err := h.service.Deposit(c.Request.Context(), req.AccountID, req.Amount, req.Currency, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":        "Deposit completed successfully.",
		"transaction_id": result.TransactionID,
		"new_balance":    result.Balance,
	})
}

func (h *Handler) Withdraw(c *gin.Context) {
	var req accountMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": amount.ErrInvalidAmount.Error()})
		return
	}

	result, err := h.service.Withdraw(c.Request.Context(), req.AccountID, req.Amount, req.Currency, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":            "Withdrawal completed successfully.",
		"transaction_id":     result.TransactionID,
		"new_source_balance": result.Balance,
	})
}

// fail maps ledger errors onto status codes: validation and bad accounts are
// 400, business rule rejections 422, unknown accounts 404. Everything else is
// internal and surfaced opaquely.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAccount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	var uri struct {
		AccountID int64 `uri:"accountId" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return 0, false
	}
	return uri.AccountID, true
}
