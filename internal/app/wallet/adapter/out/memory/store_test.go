package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(nil)
	require.NoError(t, err)
	return s
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 3; i++ {
		id, err := s.InsertTransaction(ctx, domain.NewDeposit(uuid.New(), "alice", 10, domain.CurrencyUSD, now))
		require.NoError(t, err)
		assert.Equal(t, int64(i), id)
	}
	assert.Len(t, s.AllTransactions(), 3)
}

func TestFindBalanceNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.FindBalance(context.Background(), "nobody", domain.CurrencyUSD)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestRollbackLeavesNoTrace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	boom := errors.New("boom")

	// fn 回傳 error 時，暫存的交易與餘額都不能落地
	err := s.WithinTx(ctx, usecase.IsolationSerializable, func(store usecase.LedgerStore) error {
		id, err := store.InsertTransaction(ctx, domain.NewDeposit(uuid.New(), "alice", 100, domain.CurrencyUSD, now))
		require.NoError(t, err)
		require.Equal(t, int64(1), id)

		balance := domain.NewBalance("alice", domain.CurrencyUSD, now)
		balance.Amount = 100
		require.NoError(t, store.UpsertBalance(ctx, balance))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, s.AllTransactions())
	_, err = s.FindBalance(ctx, "alice", domain.CurrencyUSD)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)

	// Rollback 後 ID 沒有被消耗掉
	id, err := s.InsertTransaction(ctx, domain.NewDeposit(uuid.New(), "alice", 1, domain.CurrencyUSD, now))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestTxReadsItsOwnWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	err := s.WithinTx(ctx, usecase.IsolationSerializable, func(store usecase.LedgerStore) error {
		balance := domain.NewBalance("alice", domain.CurrencyEUR, now)
		balance.Amount = 42
		require.NoError(t, store.UpsertBalance(ctx, balance))

		// 同一 Unit of Work 內要讀得到剛剛的寫入
		got, err := store.FindBalance(ctx, "alice", domain.CurrencyEUR)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.Amount)

		all, err := store.FindAllBalances(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestReadOnlyTxRejectsWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	err := s.WithinTx(ctx, usecase.IsolationReadCommitted, func(store usecase.LedgerStore) error {
		_, err := store.InsertTransaction(ctx, domain.NewDeposit(uuid.New(), "alice", 1, domain.CurrencyUSD, now))
		return err
	})
	assert.ErrorIs(t, err, ErrReadOnlyTx)

	err = s.WithinTx(ctx, usecase.IsolationReadCommitted, func(store usecase.LedgerStore) error {
		return store.UpsertBalance(ctx, domain.NewBalance("alice", domain.CurrencyUSD, now))
	})
	assert.ErrorIs(t, err, ErrReadOnlyTx)
}

func TestFindTransactionByRefID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	refID := uuid.New()
	_, err := s.InsertTransaction(ctx, domain.NewDeposit(refID, "alice", 10, domain.CurrencyUSD, now))
	require.NoError(t, err)

	got, err := s.FindTransactionByRefID(ctx, refID)
	require.NoError(t, err)
	assert.Equal(t, refID, got.RefID)

	_, err = s.FindTransactionByRefID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestRecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	walPath := filepath.Join(t.TempDir(), "wal.log")

	// 第一個 Store 寫入幾筆交易後關閉
	w, err := wal.Open(walPath)
	require.NoError(t, err)

	s, err := NewStore(w)
	require.NoError(t, err)

	engine := usecase.NewEngine(s, nil)
	require.NoError(t, engine.Deposit(ctx, uuid.Nil, "alice", 100, domain.CurrencyUSD))
	require.NoError(t, engine.Deposit(ctx, uuid.Nil, "alice", 200, domain.CurrencyEUR))
	require.NoError(t, engine.Withdraw(ctx, uuid.Nil, "alice", 30, domain.CurrencyUSD))
	require.NoError(t, w.Close())

	// 重開後重放 WAL，餘額與交易 ID 計數都要一致
	w2, err := wal.Open(walPath)
	require.NoError(t, err)
	defer w2.Close()

	s2, err := NewStore(w2)
	require.NoError(t, err)

	engine2 := usecase.NewEngine(s2, nil)
	balances, err := engine2.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"USD": 70, "EUR": 200}, balances)

	assert.Len(t, s2.AllTransactions(), 3)

	// 恢復後新交易的 ID 要接續既有序號
	id, err := s2.InsertTransaction(ctx, domain.NewDeposit(uuid.New(), "alice", 1, domain.CurrencyUSD, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}
