package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
)

// Handler 是 HTTP 入口 Adapter
// 只負責轉換請求與結果，所有業務判斷都在 Engine 內
type Handler struct {
	engine *usecase.Engine
	log    *zap.SugaredLogger
}

// NewHandler 建立 HTTP Handler
func NewHandler(engine *usecase.Engine, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		engine: engine,
		log:    log,
	}
}

// NewRouter 建立 gin Router 並註冊路由
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1/wallets")
	{
		v1.POST("/:user_id/deposit", h.Deposit)
		v1.POST("/:user_id/withdraw", h.Withdraw)
		v1.GET("/:user_id/balance", h.GetBalance)
	}

	return router
}

// transactionRequest 存提款請求
// RefID 選填，重送同一 RefID 的請求視為同一筆交易
type transactionRequest struct {
	Amount   int64  `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	RefID    string `json:"ref_id"`
}

// Deposit POST /v1/wallets/:user_id/deposit
func (h *Handler) Deposit(c *gin.Context) {
	h.handleTransaction(c, h.engine.Deposit)
}

// Withdraw POST /v1/wallets/:user_id/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	h.handleTransaction(c, h.engine.Withdraw)
}

// handleTransaction 存提款共用流程：解析請求 -> 呼叫 Engine -> 對應狀態碼
func (h *Handler) handleTransaction(c *gin.Context, op func(ctx context.Context, refID uuid.UUID, userID string, amount int64, currency string) error) {
	userID := c.Param("user_id")

	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	refID := uuid.Nil
	if req.RefID != "" {
		parsed, err := uuid.Parse(req.RefID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ref_id"})
			return
		}
		refID = parsed
	}

	if err := op(c.Request.Context(), refID, userID, req.Amount, req.Currency); err != nil {
		h.writeError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetBalance GET /v1/wallets/:user_id/balance
// 未知使用者回傳空的 balances，不是 404
func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.Param("user_id")

	balances, err := h.engine.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"balances": balances,
	})
}

// writeError 業務錯誤對應 4xx，Store 層失敗一律 500
func (h *Handler) writeError(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrAmountMustBePositive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		h.log.Errorw("request failed", "user_id", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
