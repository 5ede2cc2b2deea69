package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// Engine 是核心業務邏輯層 (Transaction Engine)
// 驗證請求、維持餘額非負 Invariant，並在單一 Unit of Work 內
// 完成 讀餘額 -> 驗證 -> 寫交易 -> 寫餘額
//
// Engine 本身不持有任何可變狀態，所有狀態在呼叫當下由 Store 取得
type Engine struct {
	store LedgerStore
	log   *zap.SugaredLogger
	// now 可注入，方便測試固定時間
	now func() time.Time
}

// NewEngine 建立 Transaction Engine
//
// 參數:
//
//	store: LedgerStore 實作 (MySQL 或 Memory)
//	log: zap logger，傳入 nil 則不輸出
func NewEngine(store LedgerStore, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Deposit 存款
// refID 為外部追蹤號，傳 uuid.Nil 則由 Engine 自行產生 (不做冪等判斷)
func (e *Engine) Deposit(ctx context.Context, refID uuid.UUID, userID string, amount int64, currency string) error {
	e.log.Debugw("deposit", "user_id", userID, "currency", currency, "amount", amount)
	err := e.execute(ctx, refID, userID, amount, currency, true)
	e.log.Debugw("deposit finished", "user_id", userID, "err", err)
	return err
}

// Withdraw 提款，餘額不足回傳 domain.ErrInsufficientFunds
func (e *Engine) Withdraw(ctx context.Context, refID uuid.UUID, userID string, amount int64, currency string) error {
	e.log.Debugw("withdraw", "user_id", userID, "currency", currency, "amount", amount)
	err := e.execute(ctx, refID, userID, amount, currency, false)
	e.log.Debugw("withdraw finished", "user_id", userID, "err", err)
	return err
}

// execute 交易執行核心
// 幣別與金額驗證在碰 Store 之前完成，拒絕的請求不會留下任何寫入
func (e *Engine) execute(ctx context.Context, refID uuid.UUID, userID string, amount int64, currency string, isDeposit bool) error {
	// 1. 先檢查幣別白名單，不合法直接拒絕
	if !domain.ValidCurrency(currency) {
		return domain.ErrUnknownCurrency
	}

	// 2. 金額必須為正數 (0 或負數的「存款」會默默扣款，不允許)
	if amount <= 0 {
		return domain.ErrAmountMustBePositive
	}

	// 3. 冪等判斷只針對外部帶入的 RefID，自產的必為新交易
	replayable := refID != uuid.Nil
	if !replayable {
		refID = uuid.New()
	}

	// 4. 讀-驗-寫 必須在同一個 Serializable Unit of Work 內
	//    避免兩筆並發提款讀到同一個舊餘額、雙雙通過檢查 (Lost Update)
	err := e.store.WithinTx(ctx, IsolationSerializable, func(store LedgerStore) error {
		if replayable {
			_, err := store.FindTransactionByRefID(ctx, refID)
			if err == nil {
				// 已處理過的交易，視為成功
				e.log.Debugw("transaction already processed", "ref_id", refID)
				return nil
			}
			if !errors.Is(err, domain.ErrTransactionNotFound) {
				return err
			}
		}

		now := e.now()

		// 查詢餘額，查無視為 0 (只有存款會真的建立新快照)
		balance, err := store.FindBalance(ctx, userID, currency)
		if errors.Is(err, domain.ErrBalanceNotFound) {
			balance = domain.NewBalance(userID, currency, now)
		} else if err != nil {
			return err
		}

		var tran *domain.Transaction
		if isDeposit {
			tran = domain.NewDeposit(refID, userID, amount, currency, now)
		} else {
			// 提款先檢查餘額是否足夠，不足則整筆拒絕、不留寫入
			if !balance.CanWithdraw(amount) {
				return domain.ErrInsufficientFunds
			}
			tran = domain.NewWithdraw(refID, userID, amount, currency, now)
		}

		// 寫入交易紀錄，取得 Store 分配的 ID
		id, err := store.InsertTransaction(ctx, tran)
		if err != nil {
			return err
		}
		tran.ID = id

		// 套用異動並更新餘額快照
		balance.Apply(tran, now)
		return store.UpsertBalance(ctx, balance)
	})

	return e.wrapStoreErr(err)
}

// GetBalance 查詢使用者所有幣別的餘額
// 未知使用者不算錯誤，回傳空 map
func (e *Engine) GetBalance(ctx context.Context, userID string) (map[string]int64, error) {
	e.log.Debugw("get balance", "user_id", userID)

	balances := make(map[string]int64)

	// 讀取用 Read Committed 即可：不阻擋並發寫入，
	// 可能讀到更新前或更新後的值，但不會讀到寫到一半的值
	err := e.store.WithinTx(ctx, IsolationReadCommitted, func(store LedgerStore) error {
		rows, err := store.FindAllBalances(ctx, userID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			// 同幣別理論上只有一筆，若出現重複以先讀到的為準
			if _, ok := balances[row.Currency]; !ok {
				balances[row.Currency] = row.Amount
			}
		}
		return nil
	})
	if err != nil {
		return nil, e.wrapStoreErr(err)
	}

	e.log.Debugw("get balance finished", "user_id", userID, "currencies", len(balances))
	return balances, nil
}

// wrapStoreErr 業務錯誤原樣回傳，其餘視為 Store 層失敗
func (e *Engine) wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAmountMustBePositive):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
}
