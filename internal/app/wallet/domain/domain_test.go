package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidCurrency(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{code: "USD", valid: true},
		{code: "EUR", valid: true},
		{code: "GBP", valid: true},
		{code: "JPY", valid: false},
		{code: "usd", valid: false},
		{code: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCurrency(tt.code))
		})
	}
}

func TestTransactionAmount(t *testing.T) {
	now := time.Now()

	deposit := NewDeposit(uuid.New(), "alice", 100, CurrencyUSD, now)
	assert.Equal(t, int64(100), deposit.Amount())
	assert.Equal(t, int64(100), deposit.Deposit)
	assert.Zero(t, deposit.Withdraw)

	withdraw := NewWithdraw(uuid.New(), "alice", 40, CurrencyUSD, now)
	assert.Equal(t, int64(-40), withdraw.Amount())
	assert.Equal(t, int64(40), withdraw.Withdraw)
	assert.Zero(t, withdraw.Deposit)
}

func TestBalanceApply(t *testing.T) {
	now := time.Now()
	balance := NewBalance("alice", CurrencyUSD, now)
	assert.Zero(t, balance.Amount)

	deposit := NewDeposit(uuid.New(), "alice", 100, CurrencyUSD, now)
	deposit.ID = 7
	balance.Apply(deposit, now)
	assert.Equal(t, int64(100), balance.Amount)
	assert.Equal(t, int64(7), balance.LastTransactionID)

	withdraw := NewWithdraw(uuid.New(), "alice", 30, CurrencyUSD, now)
	withdraw.ID = 8
	balance.Apply(withdraw, now)
	assert.Equal(t, int64(70), balance.Amount)
	assert.Equal(t, int64(8), balance.LastTransactionID)
}

func TestBalanceCanWithdraw(t *testing.T) {
	balance := &Balance{UserID: "alice", Currency: CurrencyUSD, Amount: 100}

	assert.True(t, balance.CanWithdraw(100))
	assert.True(t, balance.CanWithdraw(1))
	assert.False(t, balance.CanWithdraw(101))
}
