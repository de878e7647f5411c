package handlers

import (
	"net/http"
	"strconv"

	"flight-markets/internal/auth"
	"flight-markets/internal/models"
	"flight-markets/internal/services"

	"github.com/gin-gonic/gin"
)

type OracleHandler struct {
	oracleService *services.OracleService
}

func NewOracleHandler(oracleService *services.OracleService) *OracleHandler {
	return &OracleHandler{oracleService: oracleService}
}

// Pending lists unanswered flight status requests
// GET /api/oracle/requests
func (h *OracleHandler) Pending(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	requests, err := h.oracleService.PendingRequests(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Fulfill answers a pending request with the observed flight status
// POST /api/oracle/fulfill
func (h *OracleHandler) Fulfill(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req models.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.oracleService.FulfillFlightStatus(c.Request.Context(), wallet, req.RequestID, req.FlightStatus, req.DelayMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
