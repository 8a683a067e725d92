package session

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"moff.io/web3session/pkg/errors"
)

// Signature is a 65-byte secp256k1 wallet signature split into its
// components. V is normalized to a 0/1 recovery id.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// ParseSignature decodes a hex wallet signature, with or without the 0x
// prefix.
func ParseSignature(hexSig string) (*Signature, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexSig, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "decode signature hex")
	}
	if len(raw) != crypto.SignatureLength {
		return nil, errors.Errorf("unexpected signature length %d", len(raw))
	}
	var sig Signature
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[crypto.RecoveryIDOffset]
	if sig.V >= 27 {
		sig.V -= 27 // Transform yellow paper V from 27/28 to 0/1
	}
	return &sig, nil
}

// Bytes returns the signature in [R || S || V] form.
func (s *Signature) Bytes() []byte {
	out := make([]byte, crypto.SignatureLength)
	copy(out[:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[crypto.RecoveryIDOffset] = s.V
	return out
}

func (s *Signature) String() string {
	return "0x" + hex.EncodeToString(s.Bytes())
}
