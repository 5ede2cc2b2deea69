package domain

import "time"

// Balance 餘額快照，每個 (UserID, Currency) 組合最多一筆
// 是交易歷史總和的物化快取，只在交易的同一個 Unit of Work 內更新
type Balance struct {
	// UserID + Currency: 複合查詢鍵
	UserID   string
	Currency string
	// Amount: 當前餘額 (最小幣別單位)
	Amount int64
	// LastTransactionID: 最後一筆套用的交易 ID
	LastTransactionID int64
	// Modified: 最後異動時間 (Unix Milli)
	Modified int64
}

// NewBalance 建立餘額為 0 的新快照 (首次存款時 Lazy 建立)
func NewBalance(userID, currency string, now time.Time) *Balance {
	return &Balance{
		UserID:   userID,
		Currency: currency,
		Amount:   0,
		Modified: now.UnixMilli(),
	}
}

// Apply 套用一筆交易異動：更新餘額、異動時間與最後交易 ID
// 僅允許在交易的 Unit of Work 內呼叫
func (b *Balance) Apply(tran *Transaction, now time.Time) {
	b.Amount += tran.Amount()
	b.LastTransactionID = tran.ID
	b.Modified = now.UnixMilli()
}

// CanWithdraw 檢查提款後餘額是否仍為非負數
func (b *Balance) CanWithdraw(amount int64) bool {
	return b.Amount-amount >= 0
}
