package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/mysql"
)

// sqlTransaction 對應資料庫的 transactions 表
// 只進不改 (Append-Only)，ID 由 auto increment 分配
type sqlTransaction struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RefID     []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.RefID
	UserID    string `gorm:"column:user_id;size:64;index"`
	Currency  string `gorm:"size:8"`
	Deposit   int64
	Withdraw  int64
	CreatedAt int64 `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// sqlBalance 對應資料庫的 balances 表
// (user_id, currency) 複合唯一索引，每組合最多一筆
type sqlBalance struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	UserID            string `gorm:"column:user_id;size:64;uniqueIndex:idx_user_currency"`
	Currency          string `gorm:"size:8;uniqueIndex:idx_user_currency"`
	Amount            int64
	LastTransactionID int64 `gorm:"column:last_transaction_id"`
	UpdatedAt         int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlBalance) TableName() string {
	return "balances"
}

// Store 是 MySQL 實作的 LedgerStore
// 隔離保證全部交給資料庫的 Transaction Isolation，程式內不另外加鎖
type Store struct {
	db *gorm.DB
	// locking 表示目前在 Serializable Unit of Work 內，
	// 餘額讀取需帶 FOR UPDATE 悲觀鎖
	locking bool
}

// NewStore 建立 MySQL LedgerStore
func NewStore(client *mysql.Client) *Store {
	return &Store{db: client.DB()}
}

// WithinTx 以指定隔離等級開啟資料庫交易執行 fn
// fn 回傳 nil 則 Commit，回傳 error 則 Rollback
func (s *Store) WithinTx(ctx context.Context, level usecase.IsolationLevel, fn func(store usecase.LedgerStore) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	locking := false
	if level == usecase.IsolationSerializable {
		opts.Isolation = sql.LevelSerializable
		locking = true
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, locking: locking})
	}, opts)
}

// InsertTransaction 寫入交易紀錄並回傳分配的 ID
func (s *Store) InsertTransaction(ctx context.Context, tran *domain.Transaction) (int64, error) {
	row := sqlTransaction{
		RefID:     tran.RefID[:],
		UserID:    tran.UserID,
		Currency:  tran.Currency,
		Deposit:   tran.Deposit,
		Withdraw:  tran.Withdraw,
		CreatedAt: tran.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// FindTransactionByRefID 以外部追蹤號查詢交易
func (s *Store) FindTransactionByRefID(ctx context.Context, refID uuid.UUID) (*domain.Transaction, error) {
	var row sqlTransaction
	err := s.db.WithContext(ctx).Where("ref_id = ?", refID[:]).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainTransaction(&row)
}

// FindBalance 查詢單一幣別餘額
// 在 Serializable Unit of Work 內會帶 FOR UPDATE，
// 確保並發的 讀-驗-寫 序列在同一 (user, currency) 上互相排他
func (s *Store) FindBalance(ctx context.Context, userID, currency string) (*domain.Balance, error) {
	query := s.db.WithContext(ctx)
	if s.locking {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row sqlBalance
	err := query.Where("user_id = ? AND currency = ?", userID, currency).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBalanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainBalance(&row), nil
}

// FindAllBalances 查詢使用者所有幣別餘額 (不保證順序)
func (s *Store) FindAllBalances(ctx context.Context, userID string) ([]domain.Balance, error) {
	var rows []sqlBalance
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(rows))
	for i := range rows {
		balances = append(balances, *toDomainBalance(&rows[i]))
	}
	return balances, nil
}

// UpsertBalance 寫入或更新餘額快照
// (user_id, currency) 唯一索引衝突時改走 UPDATE
func (s *Store) UpsertBalance(ctx context.Context, balance *domain.Balance) error {
	row := sqlBalance{
		UserID:            balance.UserID,
		Currency:          balance.Currency,
		Amount:            balance.Amount,
		LastTransactionID: balance.LastTransactionID,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "last_transaction_id", "updated_at"}),
	}).Create(&row).Error
}

func toDomainTransaction(row *sqlTransaction) (*domain.Transaction, error) {
	refID, err := uuid.FromBytes(row.RefID)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:        row.ID,
		RefID:     refID,
		UserID:    row.UserID,
		Currency:  row.Currency,
		Deposit:   row.Deposit,
		Withdraw:  row.Withdraw,
		CreatedAt: row.CreatedAt,
	}, nil
}

func toDomainBalance(row *sqlBalance) *domain.Balance {
	return &domain.Balance{
		UserID:            row.UserID,
		Currency:          row.Currency,
		Amount:            row.Amount,
		LastTransactionID: row.LastTransactionID,
		Modified:          row.UpdatedAt,
	}
}

var _ usecase.LedgerStore = (*Store)(nil)
