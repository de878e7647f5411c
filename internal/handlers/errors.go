package handlers

import (
	"errors"
	"net/http"

	"flight-markets/internal/services"

	"github.com/gin-gonic/gin"
)

var notFoundErrors = []error{
	services.ErrUnknownMarket,
	services.ErrUnknownRequest,
}

var forbiddenErrors = []error{
	services.ErrNotOwner,
	services.ErrUnauthorizedSender,
}

var badRequestErrors = []error{
	services.ErrMarketClosed,
	services.ErrMarketNotClosedYet,
	services.ErrWrongMarketState,
	services.ErrCreateClosedMarket,
	services.ErrMarketExists,
	services.ErrExceededMaxBid,
	services.ErrBelowMinBid,
	services.ErrUnknownProduct,
	services.ErrWrongTokens,
	services.ErrCantWithdraw,
	services.ErrNotEnoughTokens,
	services.ErrMarketNotSettled,
	services.ErrNothingToClaim,
	services.ErrRegistryInputLength,
	services.ErrInsufficientBalance,
	services.ErrInvalidPacket,
	services.ErrPacketExpired,
	services.ErrWrongRequestTag,
	services.ErrAlreadySponsored,
	services.ErrInvalidLoginSignature,
}

// respondError maps domain errors onto HTTP statuses. Anything unknown is
// treated as an internal failure without leaking its message.
func respondError(c *gin.Context, err error) {
	for _, known := range notFoundErrors {
		if errors.Is(err, known) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}
	for _, known := range forbiddenErrors {
		if errors.Is(err, known) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}
	for _, known := range badRequestErrors {
		if errors.Is(err, known) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
