package handlers

import (
	"net/http"
	"strconv"

	"flight-markets/internal/auth"
	"flight-markets/internal/models"
	"flight-markets/internal/services"
	"flight-markets/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// List returns recent markets
// GET /api/markets
func (h *MarketHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	markets, err := h.marketService.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

// Get returns one market with its live figures
// GET /api/markets/:address
func (h *MarketHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	market, err := h.marketService.GetByAddress(ctx, address)
	if err != nil {
		respondError(c, err)
		return
	}

	yes, no, err := h.marketService.TokenBalances(ctx, address)
	if err != nil {
		respondError(c, err)
		return
	}
	tvl, err := h.marketService.TVL(ctx, address)
	if err != nil {
		respondError(c, err)
		return
	}
	distribution, err := h.marketService.CurrentDistribution(ctx, address)
	if err != nil {
		respondError(c, err)
		return
	}
	canSettle, err := h.marketService.CanBeSettled(ctx, address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market":         market,
		"yes_supply":     utils.FormatWei(yes),
		"no_supply":      utils.FormatWei(no),
		"tvl":            utils.FormatWei(tvl),
		"distribution":   distribution,
		"can_be_settled": canSettle,
	})
}

// Quote prices a gross bid in tokens at the current market rate
// GET /api/markets/:address/quote?value=<wei>
func (h *MarketHandler) Quote(c *gin.Context) {
	value, err := decimal.NewFromString(c.Query("value"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}

	yes, no, err := h.marketService.PriceETHToYesNo(c.Request.Context(), c.Param("address"), value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"yes": yes.String(),
		"no":  no.String(),
	})
}

// ExitQuote values a token amount against the caller's cost basis
// GET /api/markets/:address/exit-quote?amount=<tokens>
func (h *MarketHandler) ExitQuote(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	yes, no, err := h.marketService.PriceETHForYesNo(c.Request.Context(), c.Param("address"), wallet, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"yes": yes.String(),
		"no":  no.String(),
	})
}

// PayoutQuote estimates the caller's settlement payout after one more bid
// GET /api/markets/:address/payout-quote?value=<wei>&side=YES
func (h *MarketHandler) PayoutQuote(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	value, err := decimal.NewFromString(c.Query("value"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}
	side, ok := parseSide(c.Query("side"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be YES or NO"})
		return
	}

	payout, err := h.marketService.PriceETHForPayout(c.Request.Context(), c.Param("address"), wallet, value, side)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout.String()})
}

type participateRequest struct {
	Side  string `json:"side" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// Participate places a bid on one side
// POST /api/markets/:address/participate
func (h *MarketHandler) Participate(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req participateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be YES or NO"})
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil || !value.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}

	if err := h.marketService.Participate(c.Request.Context(), c.Param("address"), wallet, side, value); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type withdrawBetRequest struct {
	Side   string `json:"side" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// WithdrawBet burns tokens back into the bank before the cutoff
// POST /api/markets/:address/withdraw
func (h *MarketHandler) WithdrawBet(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req withdrawBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be YES or NO"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	payout, err := h.marketService.WithdrawBet(c.Request.Context(), c.Param("address"), wallet, side, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout.String()})
}

// Claim redeems the caller's winning tokens after settlement
// POST /api/markets/:address/claim
func (h *MarketHandler) Claim(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	payout, err := h.marketService.ClaimReward(c.Request.Context(), c.Param("address"), wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout.String()})
}

// Settle files the flight status request for a market past closing
// POST /api/markets/:address/settle
func (h *MarketHandler) Settle(c *gin.Context) {
	requestID, err := h.marketService.TrySettle(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": requestID})
}

func parseSide(raw string) (models.MarketSide, bool) {
	switch models.MarketSide(raw) {
	case models.SideYes:
		return models.SideYes, true
	case models.SideNo:
		return models.SideNo, true
	default:
		return "", false
	}
}
