package domain

import (
	"time"

	"github.com/google/uuid"
)

// amount 使用 int64，單位為該幣別的最小單位 (如 cent)
// 不使用浮點數，避免精度問題

// Transaction 交易事實紀錄，寫入後不可修改 (Append-Only)
// Deposit / Withdraw 兩者只會有一個有值，另一個為 0
type Transaction struct {
	// ID: 由 Store 在寫入時分配的流水號 (1, 2, 3...)
	ID int64
	// RefID: 外部追蹤號 (UUID)，用於冪等判斷
	RefID uuid.UUID
	// UserID: 使用者 ID
	UserID string
	// Currency: 幣別代碼 (USD / EUR / GBP)
	Currency string
	// Deposit: 存款金額
	Deposit int64
	// Withdraw: 提款金額
	Withdraw int64
	// CreatedAt: 交易時間 (Unix Milli)
	CreatedAt int64
}

// NewDeposit 建立一筆存款交易
func NewDeposit(refID uuid.UUID, userID string, amount int64, currency string, now time.Time) *Transaction {
	return &Transaction{
		RefID:     refID,
		UserID:    userID,
		Currency:  currency,
		Deposit:   amount,
		CreatedAt: now.UnixMilli(),
	}
}

// NewWithdraw 建立一筆提款交易
func NewWithdraw(refID uuid.UUID, userID string, amount int64, currency string, now time.Time) *Transaction {
	return &Transaction{
		RefID:     refID,
		UserID:    userID,
		Currency:  currency,
		Withdraw:  amount,
		CreatedAt: now.UnixMilli(),
	}
}

// Amount 回傳交易異動金額 (存款為正，提款為負)
func (t *Transaction) Amount() int64 {
	return t.Deposit - t.Withdraw
}
