// Package trustus implements the signed-packet format used to authorize
// market creation. A packet carries an opaque payload, a request tag and a
// deadline; the signature is made over a typed digest so a packet cannot be
// replayed for a different request kind.
package trustus

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RequestCreateMarket tags packets that authorize market creation.
var RequestCreateMarket = crypto.Keccak256Hash([]byte("createMarket(bool)"))

var (
	packetTypeHash = crypto.Keccak256Hash([]byte("VerifyPacket(bytes32 request,uint256 deadline,bytes payload)"))

	domainSeparator = crypto.Keccak256Hash(
		crypto.Keccak256([]byte("EIP712Domain(string name,string version)")),
		crypto.Keccak256([]byte("Trustus")),
		crypto.Keccak256([]byte("1")),
	)
)

var ErrInvalidSignature = errors.New("invalid packet")

// Packet is a signed authorization. R, S, V form a recoverable secp256k1
// signature over Digest.
type Packet struct {
	V        uint8       `json:"v"`
	R        common.Hash `json:"r"`
	S        common.Hash `json:"s"`
	Request  common.Hash `json:"request"`
	Deadline int64       `json:"deadline"`
	Payload  []byte      `json:"payload"`
}

// Digest returns the typed hash the packet signature commits to.
func (p *Packet) Digest() common.Hash {
	var deadline [32]byte
	binary.BigEndian.PutUint64(deadline[24:], uint64(p.Deadline))

	structHash := crypto.Keccak256(
		packetTypeHash.Bytes(),
		p.Request.Bytes(),
		deadline[:],
		crypto.Keccak256(p.Payload),
	)

	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash)
}

// Sign fills in the packet signature fields using the given key.
func Sign(p *Packet, key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(p.Digest().Bytes(), key)
	if err != nil {
		return err
	}

	p.R = common.BytesToHash(sig[:32])
	p.S = common.BytesToHash(sig[32:64])
	p.V = sig[64] + 27
	return nil
}

// Recover returns the address that signed the packet.
func Recover(p *Packet) (common.Address, error) {
	if p.V != 27 && p.V != 28 {
		return common.Address{}, ErrInvalidSignature
	}

	sig := make([]byte, 65)
	copy(sig[:32], p.R.Bytes())
	copy(sig[32:64], p.S.Bytes())
	sig[64] = p.V - 27

	pub, err := crypto.SigToPub(p.Digest().Bytes(), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}

	return crypto.PubkeyToAddress(*pub), nil
}
