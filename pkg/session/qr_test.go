package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingQRCode(t *testing.T) {
	png, err := PairingQRCode("wc:topic@2?relay-protocol=irn&symKey=abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestPairingQRCodeRejectsEmptyURI(t *testing.T) {
	_, err := PairingQRCode("")
	assert.Error(t, err)
}
