package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborpay/ledger/internal/ledger"
	"github.com/harborpay/ledger/internal/models"
	"github.com/harborpay/ledger/internal/storage/memory"
)

func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := ledger.NewService(memory.NewStore(), nil, nil)
	return NewRouter(NewHandler(svc, nil)), svc
}

func seedAccount(t *testing.T, svc *ledger.Service, name, balance string) models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), name, "USD", decimal.RequireFromString(balance))
	require.NoError(t, err)
	return account
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTransferEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "100.00")
	b := seedAccount(t, svc, "bob", "0")

	body := fmt.Sprintf(`{"source_account_id":%d,"destination_account_id":%d,"amount":"60.00","currency":"USD","description":"rent"}`, a.ID, b.ID)
	w := do(router, http.MethodPost, "/transfers", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		TransactionID    string `json:"transaction_id"`
		NewSourceBalance string `json:"new_source_balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TransactionID)
	assert.True(t, decimal.RequireFromString(resp.NewSourceBalance).Equal(decimal.RequireFromString("40")))
}

func TestTransferInsufficientFundsIs422(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "10.00")
	b := seedAccount(t, svc, "bob", "0")

	body := fmt.Sprintf(`{"source_account_id":%d,"destination_account_id":%d,"amount":"60.00"}`, a.ID, b.ID)
	w := do(router, http.MethodPost, "/transfers", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTransferInvalidAmountIs400(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "100.00")
	b := seedAccount(t, svc, "bob", "0")

	for _, amount := range []string{`"10.005"`, `10.005`, `"-5"`, `"abc"`} {
		body := fmt.Sprintf(`{"source_account_id":%d,"destination_account_id":%d,"amount":%s}`, a.ID, b.ID, amount)
		w := do(router, http.MethodPost, "/transfers", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %s: %s", amount, w.Body.String())
	}
}

func TestTransferSameAccountIs400(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "100.00")

	body := fmt.Sprintf(`{"source_account_id":%d,"destination_account_id":%d,"amount":"10.00"}`, a.ID, a.ID)
	w := do(router, http.MethodPost, "/transfers", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositAndWithdrawalEndpoints(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "0")

	w := do(router, http.MethodPost, "/deposits", fmt.Sprintf(`{"account_id":%d,"amount":"50.00"}`, a.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/withdrawals", fmt.Sprintf(`{"account_id":%d,"amount":"20.00"}`, a.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, http.MethodGet, fmt.Sprintf("/accounts/%d/balance", a.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, decimal.RequireFromString(resp.Balance).Equal(decimal.RequireFromString("30")))
}

func TestBalanceUnknownAccountIs404(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(router, http.MethodGet, "/accounts/999/balance", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerEndpointNewestFirst(t *testing.T) {
	router, svc := newTestRouter(t)
	a := seedAccount(t, svc, "alice", "0")

	do(router, http.MethodPost, "/deposits", fmt.Sprintf(`{"account_id":%d,"amount":"1.00"}`, a.ID))
	do(router, http.MethodPost, "/deposits", fmt.Sprintf(`{"account_id":%d,"amount":"2.00"}`, a.ID))

	w := do(router, http.MethodGet, fmt.Sprintf("/accounts/%d/ledger", a.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []struct {
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].Amount)
	assert.Equal(t, "1", entries[1].Amount)
}

func TestCreateAccountEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/accounts", `{"name":"alice","initial_balance":"100.00"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var account struct {
		ID       int64  `json:"id"`
		Currency string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
	assert.NotZero(t, account.ID)
	assert.Equal(t, "USD", account.Currency)

	w = do(router, http.MethodPost, "/accounts", `{"initial_balance":"1.00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")
}
