package handlers

import (
	"net/http"
	"strconv"

	"flight-markets/internal/auth"
	"flight-markets/internal/services"

	"github.com/gin-gonic/gin"
)

type RegistryHandler struct {
	registryService *services.RegistryService
}

func NewRegistryHandler(registryService *services.RegistryService) *RegistryHandler {
	return &RegistryHandler{registryService: registryService}
}

type setAddressesRequest struct {
	IDs       []uint   `json:"ids" binding:"required"`
	Addresses []string `json:"addresses" binding:"required"`
}

// SetAddresses assigns registry roles in bulk. Owner only
// POST /api/registry/addresses
func (h *RegistryHandler) SetAddresses(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wallet not authenticated"})
		return
	}

	var req setAddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registryService.SetAddresses(c.Request.Context(), wallet, req.IDs, req.Addresses); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetAddress resolves a role id to its address
// GET /api/registry/roles/:id
func (h *RegistryHandler) GetAddress(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role id"})
		return
	}

	address, err := h.registryService.GetAddress(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}
