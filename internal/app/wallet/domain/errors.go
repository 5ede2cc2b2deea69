package domain

import "errors"

var (
	// ErrUnknownCurrency 幣別不在白名單內
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrBalanceNotFound 找不到餘額快照
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrTransactionNotFound 找不到交易紀錄
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStoreFailure Store 無法完成 Unit of Work (連線失敗、Serialization 衝突等)
	ErrStoreFailure = errors.New("ledger store failure")
)
