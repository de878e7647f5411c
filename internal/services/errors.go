package services

import "errors"

// Domain errors surfaced to callers. Handlers map these to HTTP statuses;
// tests match them exactly.
var (
	ErrMarketClosed       = errors.New("Market is closed")
	ErrMarketNotClosedYet = errors.New("Market is not closed yet")
	ErrWrongMarketState   = errors.New("Wrong market state")
	ErrUnauthorizedSender = errors.New("Unauthorized sender")
	ErrCreateClosedMarket = errors.New("Cannot create closed market")
	ErrMarketExists       = errors.New("Market already exists")
	ErrExceededMaxBid     = errors.New("Exceeded max bid")
	ErrBelowMinBid        = errors.New("Value included is less than min-bid")
	ErrUnknownProduct     = errors.New("Unknown product")
	ErrUnknownMarket      = errors.New("Unknown market")
	ErrWrongTokens        = errors.New("Wrong tokens")
	ErrCantWithdraw       = errors.New("Can't withdraw")
	ErrNotEnoughTokens    = errors.New("Not enough tokens")
	ErrMarketNotSettled   = errors.New("Market is not settled")
	ErrNothingToClaim     = errors.New("Nothing to claim")

	ErrNotOwner            = errors.New("Ownable: caller is not the owner")
	ErrRegistryInputLength = errors.New("DFIRegistry: invalid input length")

	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrInvalidPacket   = errors.New("invalid packet")
	ErrPacketExpired   = errors.New("packet expired")
	ErrWrongRequestTag = errors.New("wrong request tag")

	ErrUnknownRequest   = errors.New("Unknown request")
	ErrAlreadySponsored = errors.New("Already sponsored")
)
