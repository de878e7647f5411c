package handlers

import (
	"net/http"
	"strconv"

	"flight-markets/internal/auth"
	"flight-markets/internal/services"
	"flight-markets/internal/trustus"
	"flight-markets/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InsuranceHandler struct {
	insuranceService *services.InsuranceService
}

func NewInsuranceHandler(insuranceService *services.InsuranceService) *InsuranceHandler {
	return &InsuranceHandler{insuranceService: insuranceService}
}

type createMarketRequest struct {
	Side   string         `json:"side" binding:"required"`
	Value  string         `json:"value"`
	Packet trustus.Packet `json:"packet" binding:"required"`
}

// Create deploys a market from a signed packet with the caller's bet
// POST /api/insurance/markets
func (h *InsuranceHandler) Create(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req createMarketRequest
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

	market, err := h.insuranceService.CreateMarket(c.Request.Context(), wallet, side, value, &req.Packet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"market": market})
}

type createSponsoredRequest struct {
	Side   string         `json:"side" binding:"required"`
	Packet trustus.Packet `json:"packet" binding:"required"`
}

// CreateSponsored deploys a market with the bet staked by the sponsor
// POST /api/insurance/markets/sponsored
func (h *InsuranceHandler) CreateSponsored(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req createSponsoredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be YES or NO"})
		return
	}

	market, err := h.insuranceService.CreateMarketSponsored(c.Request.Context(), wallet, side, &req.Packet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"market": market})
}

type sponsoredBetRequest struct {
	Side string `json:"side" binding:"required"`
}

// ParticipateSponsored stakes the sponsored amount on an existing market
// POST /api/insurance/markets/:address/sponsored
func (h *InsuranceHandler) ParticipateSponsored(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req sponsoredBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be YES or NO"})
		return
	}

	err := h.insuranceService.ParticipateSponsored(c.Request.Context(), c.Param("address"), wallet, side)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Find resolves a flight to its deterministic market id and address
// GET /api/insurance/markets/find?flight_name=BA442&departure_date=...&delay_minutes=...
func (h *InsuranceHandler) Find(c *gin.Context) {
	flightName := c.Query("flight_name")
	if flightName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flight_name is required"})
		return
	}
	departureDate, err := strconv.ParseUint(c.Query("departure_date"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid departure_date"})
		return
	}
	delayMinutes, err := strconv.ParseUint(c.Query("delay_minutes"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delay_minutes"})
		return
	}

	marketID, address, err := h.insuranceService.FindMarket(c.Request.Context(), flightName, departureDate, uint32(delayMinutes))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"market_id": marketID,
		"address":   address,
		"exists":    address != "",
	})
}

// GetByID loads a market by its flight id
// GET /api/insurance/markets/:id
func (h *InsuranceHandler) GetByID(c *gin.Context) {
	market, err := h.insuranceService.GetMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"market": market})
}

type trustRequest struct {
	Signer  string `json:"signer" binding:"required"`
	Trusted bool   `json:"trusted"`
}

// SetTrusted grants or revokes a packet signer. Owner only
// POST /api/insurance/signers
func (h *InsuranceHandler) SetTrusted(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req trustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.insuranceService.SetIsTrusted(c.Request.Context(), wallet, req.Signer, req.Trusted); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type depositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// DepositSponsorship funds the sponsored-bet balance
// POST /api/insurance/sponsorship/deposit
func (h *InsuranceHandler) DepositSponsorship(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if err := h.insuranceService.DepositSponsorship(c.Request.Context(), amount); err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.insuranceService.SponsorBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": utils.FormatWei(balance)})
}
