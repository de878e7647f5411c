package trustus

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	packet := &Packet{
		Request:  RequestCreateMarket,
		Deadline: 1700000600,
		Payload:  []byte(`{"flight":"BA442"}`),
	}
	if err := Sign(packet, key); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if packet.V != 27 && packet.V != 28 {
		t.Fatalf("v = %d, expected 27 or 28", packet.V)
	}

	signer, err := Recover(packet)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if signer != crypto.PubkeyToAddress(key.PublicKey) {
		t.Errorf("recovered %s, expected %s", signer.Hex(), crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
}

func TestRecoverDetectsTampering(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	packet := &Packet{
		Request:  RequestCreateMarket,
		Deadline: 1700000600,
		Payload:  []byte(`{"flight":"BA442"}`),
	}
	if err := Sign(packet, key); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	packet.Payload = []byte(`{"flight":"BA443"}`)

	signer, err := Recover(packet)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if signer == crypto.PubkeyToAddress(key.PublicKey) {
		t.Error("a tampered payload must not recover to the original signer")
	}
}

func TestRecoverRejectsBadV(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	packet := &Packet{
		Request:  RequestCreateMarket,
		Deadline: 1700000600,
		Payload:  []byte("payload"),
	}
	if err := Sign(packet, key); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	packet.V = 3
	if _, err := Recover(packet); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestDigestCommitsToAllFields(t *testing.T) {
	base := &Packet{Request: RequestCreateMarket, Deadline: 100, Payload: []byte("a")}
	digest := base.Digest()

	changed := *base
	changed.Deadline = 101
	if changed.Digest() == digest {
		t.Error("digest must change with the deadline")
	}

	changed = *base
	changed.Payload = []byte("b")
	if changed.Digest() == digest {
		t.Error("digest must change with the payload")
	}

	changed = *base
	changed.Request = crypto.Keccak256Hash([]byte("other(bool)"))
	if changed.Digest() == digest {
		t.Error("digest must change with the request tag")
	}
}
