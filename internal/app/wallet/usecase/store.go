package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// IsolationLevel Unit of Work 的隔離等級
type IsolationLevel uint8

const (
	// IsolationReadCommitted 讀取用，避免 Dirty Read 但不阻擋並發寫入
	IsolationReadCommitted IsolationLevel = iota + 1
	// IsolationSerializable 寫入用，同一 (User, Currency) 的讀-驗-寫序列互相排他
	IsolationSerializable
)

// LedgerStore 是帳本儲存的介面 (Port)
// 交易紀錄只進不改，餘額快照以 (UserID, Currency) 為鍵 Upsert
type LedgerStore interface {
	// InsertTransaction 寫入交易紀錄並回傳分配的 ID (Append-Only)
	InsertTransaction(ctx context.Context, tran *domain.Transaction) (int64, error)
	// FindTransactionByRefID 以外部追蹤號查詢交易，查無回傳 domain.ErrTransactionNotFound
	FindTransactionByRefID(ctx context.Context, refID uuid.UUID) (*domain.Transaction, error)
	// FindBalance 查詢單一幣別餘額，查無回傳 domain.ErrBalanceNotFound
	FindBalance(ctx context.Context, userID, currency string) (*domain.Balance, error)
	// FindAllBalances 查詢使用者所有幣別餘額 (不保證順序)
	FindAllBalances(ctx context.Context, userID string) ([]domain.Balance, error)
	// UpsertBalance 寫入或更新餘額快照
	UpsertBalance(ctx context.Context, balance *domain.Balance) error
	// WithinTx 以指定隔離等級執行一個 Unit of Work
	// fn 回傳 nil 則 Commit，回傳 error 則 Rollback 並原樣傳回該 error
	WithinTx(ctx context.Context, level IsolationLevel, fn func(store LedgerStore) error) error
}
