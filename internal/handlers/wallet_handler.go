package handlers

import (
	"net/http"

	"flight-markets/internal/auth"
	"flight-markets/internal/services"
	"flight-markets/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	walletService *services.WalletService
	fundsService  *services.FundsService
}

func NewWalletHandler(walletService *services.WalletService, fundsService *services.FundsService) *WalletHandler {
	return &WalletHandler{walletService: walletService, fundsService: fundsService}
}

// Balance returns the liquidity float
// GET /api/wallet/balance
func (h *WalletHandler) Balance(c *gin.Context) {
	balance, err := h.walletService.Balance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": utils.FormatWei(balance)})
}

type walletDepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// Deposit adds funds to the float
// POST /api/wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req walletDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if err := h.walletService.Deposit(c.Request.Context(), amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type walletWithdrawRequest struct {
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// Withdraw pays part of the float out. Owner only
// POST /api/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req walletWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if err := h.walletService.Withdraw(c.Request.Context(), wallet, req.To, amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type accountDepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// DepositAccount credits the caller's own trading account
// POST /api/wallet/account/deposit
func (h *WalletHandler) DepositAccount(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req accountDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if err := h.fundsService.Deposit(c.Request.Context(), wallet, amount); err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.fundsService.BalanceOf(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": utils.FormatWei(balance)})
}

// AccountBalance returns the caller's trading balance
// GET /api/wallet/account/balance
func (h *WalletHandler) AccountBalance(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	balance, err := h.fundsService.BalanceOf(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": utils.FormatWei(balance)})
}
