package utils

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MarketID derives the deterministic id of a flight-delay market from the
// flight identity. The encoding matches abi.encode(string, uint64, uint32):
// three head words (string offset, departure date, delay) followed by the
// string tail (length word plus padded bytes).
func MarketID(flightName string, departureDate uint64, delayMinutes uint32) common.Hash {
	name := []byte(flightName)
	padded := len(name)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}

	buf := make([]byte, 32*4+padded)
	buf[31] = 0x60 // offset of the string tail
	binary.BigEndian.PutUint64(buf[56:64], departureDate)
	binary.BigEndian.PutUint32(buf[92:96], delayMinutes)
	binary.BigEndian.PutUint64(buf[120:128], uint64(len(name)))
	copy(buf[128:], name)

	return crypto.Keccak256Hash(buf)
}

// MarketAddress derives a stable address for a market from its id and the
// id of its first claim token.
func MarketAddress(marketID common.Hash, uniqueID uint64) string {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], uniqueID)
	h := crypto.Keccak256(marketID.Bytes(), word[:])
	return common.BytesToAddress(h[12:]).Hex()
}
