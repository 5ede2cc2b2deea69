package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	http_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/http"
	memory_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/memory"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
)

// ---- helpers ----

func newTestRouter(t *testing.T) (*gin.Engine, *usecase.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := memory_adapter.NewStore(nil)
	require.NoError(t, err)
	engine := usecase.NewEngine(store, nil)

	handler := http_adapter.NewHandler(engine, nil)
	return http_adapter.NewRouter(handler), engine
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ---- tests ----

func TestDepositEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/v1/wallets/alice/deposit",
		`{"amount": 100, "currency": "USD"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	balances, err := engine.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balances["USD"])
}

func TestDepositUnknownCurrency(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/v1/wallets/bob/deposit",
		`{"amount": 50, "currency": "JPY"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown currency")
}

func TestDepositInvalidBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/v1/wallets/alice/deposit", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositInvalidRefID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodPost, "/v1/wallets/alice/deposit",
		`{"amount": 100, "currency": "USD", "ref_id": "not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid ref_id")
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	router, engine := newTestRouter(t)
	require.NoError(t, engine.Deposit(context.Background(), uuid.Nil, "alice", 100, domain.CurrencyUSD))

	rec := doJSON(router, http.MethodPost, "/v1/wallets/alice/withdraw",
		`{"amount": 150, "currency": "USD"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")

	// 餘額不變
	balances, err := engine.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balances["USD"])
}

func TestWithdrawWithRefIDReplay(t *testing.T) {
	router, engine := newTestRouter(t)
	require.NoError(t, engine.Deposit(context.Background(), uuid.Nil, "alice", 100, domain.CurrencyUSD))

	body := `{"amount": 40, "currency": "USD", "ref_id": "7f9c24e8-3b12-4fef-91f0-0f3e3ae12c11"}`

	rec := doJSON(router, http.MethodPost, "/v1/wallets/alice/withdraw", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 重送同一 RefID 只會扣一次
	rec = doJSON(router, http.MethodPost, "/v1/wallets/alice/withdraw", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	balances, err := engine.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balances["USD"])
}

func TestGetBalanceEndpoint(t *testing.T) {
	router, engine := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, engine.Deposit(ctx, uuid.Nil, "alice", 100, domain.CurrencyUSD))
	require.NoError(t, engine.Deposit(ctx, uuid.Nil, "alice", 200, domain.CurrencyEUR))

	rec := doJSON(router, http.MethodGet, "/v1/wallets/alice/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID   string           `json:"user_id"`
		Balances map[string]int64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.UserID)
	assert.Equal(t, map[string]int64{"USD": 100, "EUR": 200}, resp.Balances)
}

func TestGetBalanceUnknownUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/v1/wallets/nobody/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Balances map[string]int64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Balances)
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
