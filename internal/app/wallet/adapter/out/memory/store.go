package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

// ErrReadOnlyTx 在讀取用 Unit of Work 內嘗試寫入
var ErrReadOnlyTx = errors.New("write operation in read-only unit of work")

type balanceKey struct {
	userID   string
	currency string
}

// Store 是記憶體實作的 LedgerStore
//
// 隔離等級的對應:
//
//	Serializable   -> 互斥鎖 (寫交易全序列化)
//	ReadCommitted  -> 讀鎖 (可並發讀，不會讀到未 Commit 的寫入)
//
// 寫入先暫存在 txStore，fn 成功返回才落地 (先寫 WAL 再更新記憶體)，
// 因此任何錯誤路徑都等同 Rollback
type Store struct {
	mu           sync.RWMutex
	balances     map[balanceKey]*domain.Balance
	transactions map[int64]*domain.Transaction
	byRefID      map[uuid.UUID]int64
	// nextID: 最後分配的交易 ID，只在 Commit 時遞增
	nextID int64
	// wal: Write-Ahead Log，nil 表示純記憶體模式 (測試用)
	wal *wal.WAL
}

// NewStore 建立記憶體 LedgerStore
//
// 參數:
//
//	w: WAL 實例，非 nil 時會先重放既有紀錄恢復狀態
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 重放失敗
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		balances:     make(map[balanceKey]*domain.Balance),
		transactions: make(map[int64]*domain.Transaction),
		byRefID:      make(map[uuid.UUID]int64),
		wal:          w,
	}
	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recoverFromWAL 重放 WAL 恢復帳本狀態
// 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var tran domain.Transaction
		if err := json.Unmarshal(jsonRaw, &tran); err != nil {
			return err
		}
		s.applyTransaction(&tran)
		return nil
	})
}

// applyTransaction 將一筆已確定的交易套用進記憶體狀態
// 呼叫端需持有寫鎖 (或在單執行緒恢復流程內)
func (s *Store) applyTransaction(tran *domain.Transaction) {
	t := *tran
	s.transactions[t.ID] = &t
	s.byRefID[t.RefID] = t.ID
	if t.ID > s.nextID {
		s.nextID = t.ID
	}

	key := balanceKey{userID: t.UserID, currency: t.Currency}
	balance, ok := s.balances[key]
	if !ok {
		balance = &domain.Balance{UserID: t.UserID, Currency: t.Currency}
		s.balances[key] = balance
	}
	balance.Amount += t.Amount()
	balance.LastTransactionID = t.ID
	balance.Modified = t.CreatedAt
}

// WithinTx 以指定隔離等級執行 fn
func (s *Store) WithinTx(ctx context.Context, level usecase.IsolationLevel, fn func(store usecase.LedgerStore) error) error {
	if level == usecase.IsolationSerializable {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx := &txStore{
			s:       s,
			write:   true,
			upserts: make(map[balanceKey]domain.Balance),
		}
		if err := fn(tx); err != nil {
			return err
		}
		return tx.commit()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&txStore{s: s})
}

// 頂層 Store 的單呼叫操作等同一個最小 Unit of Work
// (Engine 一律走 WithinTx，這些轉發主要供測試直接檢查狀態)

func (s *Store) InsertTransaction(ctx context.Context, tran *domain.Transaction) (int64, error) {
	var id int64
	err := s.WithinTx(ctx, usecase.IsolationSerializable, func(store usecase.LedgerStore) error {
		var err error
		id, err = store.InsertTransaction(ctx, tran)
		return err
	})
	return id, err
}

func (s *Store) FindTransactionByRefID(ctx context.Context, refID uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findTransactionByRefIDLocked(refID)
}

func (s *Store) FindBalance(ctx context.Context, userID, currency string) (*domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findBalanceLocked(userID, currency)
}

func (s *Store) FindAllBalances(ctx context.Context, userID string) ([]domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findAllBalancesLocked(userID), nil
}

func (s *Store) UpsertBalance(ctx context.Context, balance *domain.Balance) error {
	return s.WithinTx(ctx, usecase.IsolationSerializable, func(store usecase.LedgerStore) error {
		return store.UpsertBalance(ctx, balance)
	})
}

// AllTransactions 回傳所有交易紀錄 (依 ID 排序)，供測試與除錯檢查
func (s *Store) AllTransactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trans := make([]domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		trans = append(trans, *t)
	}
	sort.Slice(trans, func(i, j int) bool { return trans[i].ID < trans[j].ID })
	return trans
}

func (s *Store) findTransactionByRefIDLocked(refID uuid.UUID) (*domain.Transaction, error) {
	id, ok := s.byRefID[refID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t := *s.transactions[id]
	return &t, nil
}

func (s *Store) findBalanceLocked(userID, currency string) (*domain.Balance, error) {
	balance, ok := s.balances[balanceKey{userID: userID, currency: currency}]
	if !ok {
		return nil, domain.ErrBalanceNotFound
	}
	// 回傳副本，避免呼叫端直接改動共享狀態
	b := *balance
	return &b, nil
}

func (s *Store) findAllBalancesLocked(userID string) []domain.Balance {
	balances := make([]domain.Balance, 0)
	for key, balance := range s.balances {
		if key.userID == userID {
			balances = append(balances, *balance)
		}
	}
	return balances
}

// txStore 是單一 Unit of Work 的視圖
// 寫入都先暫存，commit 時才寫 WAL 並套用到 Store
type txStore struct {
	s     *Store
	write bool
	// inserted: 本次 Unit of Work 內新增的交易 (已預先分配 ID)
	inserted []domain.Transaction
	// upserts: 本次 Unit of Work 內覆寫的餘額快照
	upserts map[balanceKey]domain.Balance
}

func (tx *txStore) InsertTransaction(ctx context.Context, tran *domain.Transaction) (int64, error) {
	if !tx.write {
		return 0, ErrReadOnlyTx
	}
	t := *tran
	// 預分配 ID：已落地的最大 ID 加上本次已暫存的筆數
	t.ID = tx.s.nextID + int64(len(tx.inserted)) + 1
	tx.inserted = append(tx.inserted, t)
	return t.ID, nil
}

func (tx *txStore) FindTransactionByRefID(ctx context.Context, refID uuid.UUID) (*domain.Transaction, error) {
	for i := range tx.inserted {
		if tx.inserted[i].RefID == refID {
			t := tx.inserted[i]
			return &t, nil
		}
	}
	return tx.s.findTransactionByRefIDLocked(refID)
}

func (tx *txStore) FindBalance(ctx context.Context, userID, currency string) (*domain.Balance, error) {
	if b, ok := tx.upserts[balanceKey{userID: userID, currency: currency}]; ok {
		return &b, nil
	}
	return tx.s.findBalanceLocked(userID, currency)
}

func (tx *txStore) FindAllBalances(ctx context.Context, userID string) ([]domain.Balance, error) {
	balances := tx.s.findAllBalancesLocked(userID)
	// 以本次 Unit of Work 的暫存覆寫已落地的資料
	seen := make(map[balanceKey]struct{}, len(balances))
	for i := range balances {
		key := balanceKey{userID: balances[i].UserID, currency: balances[i].Currency}
		if b, ok := tx.upserts[key]; ok {
			balances[i] = b
		}
		seen[key] = struct{}{}
	}
	for key, b := range tx.upserts {
		if key.userID == userID {
			if _, ok := seen[key]; !ok {
				balances = append(balances, b)
			}
		}
	}
	return balances, nil
}

func (tx *txStore) UpsertBalance(ctx context.Context, balance *domain.Balance) error {
	if !tx.write {
		return ErrReadOnlyTx
	}
	tx.upserts[balanceKey{userID: balance.UserID, currency: balance.Currency}] = *balance
	return nil
}

// WithinTx 不支援巢狀 Unit of Work，直接在當前視圖內執行
func (tx *txStore) WithinTx(ctx context.Context, level usecase.IsolationLevel, fn func(store usecase.LedgerStore) error) error {
	return fn(tx)
}

// commit 落地本次 Unit of Work
// 先寫 WAL 並 Flush，成功後才更新記憶體狀態，維持 Crash 一致性
func (tx *txStore) commit() error {
	if tx.s.wal != nil {
		for i := range tx.inserted {
			if err := tx.s.wal.Append(&tx.inserted[i]); err != nil {
				return err
			}
		}
		if err := tx.s.wal.Flush(); err != nil {
			return err
		}
	}

	for i := range tx.inserted {
		t := tx.inserted[i]
		tx.s.transactions[t.ID] = &t
		tx.s.byRefID[t.RefID] = t.ID
		if t.ID > tx.s.nextID {
			tx.s.nextID = t.ID
		}
	}
	for key, b := range tx.upserts {
		balance := b
		tx.s.balances[key] = &balance
	}
	return nil
}

var _ usecase.LedgerStore = (*Store)(nil)
var _ usecase.LedgerStore = (*txStore)(nil)
