package session

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexSig(v byte) string {
	raw := make([]byte, 65)
	raw[0] = 0xaa
	raw[32] = 0xbb
	raw[64] = v
	return hex.EncodeToString(raw)
}

func TestParseSignatureNormalizesV(t *testing.T) {
	cases := map[byte]byte{27: 0, 28: 1, 0: 0, 1: 1}
	for in, want := range cases {
		sig, err := ParseSignature(hexSig(in))
		require.NoError(t, err)
		assert.Equal(t, want, sig.V, "v=%d", in)
		assert.Equal(t, byte(0xaa), sig.R[0])
		assert.Equal(t, byte(0xbb), sig.S[0])
	}
}

func TestParseSignatureAcceptsPrefix(t *testing.T) {
	sig, err := ParseSignature("0x" + hexSig(28))
	require.NoError(t, err)
	assert.Equal(t, byte(1), sig.V)
}

func TestParseSignatureRejectsBadInput(t *testing.T) {
	_, err := ParseSignature("0xzz")
	assert.Error(t, err)

	_, err = ParseSignature(hex.EncodeToString(make([]byte, 64)))
	assert.Error(t, err)
}

func TestSignatureRoundTrip(t *testing.T) {
	in := "0x" + hexSig(1)
	sig, err := ParseSignature(in)
	require.NoError(t, err)
	assert.Equal(t, in, sig.String())
}
