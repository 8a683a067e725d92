package session

import (
	qrcode "github.com/skip2/go-qrcode"

	"moff.io/web3session/pkg/errors"
)

const qrCodeSize = 256

// PairingQRCode renders a pairing URI (from EventConnectionWaiting) as a PNG
// QR code for the user's wallet to scan.
func PairingQRCode(uri string) ([]byte, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, errors.Wrap(err, "encode pairing qr code")
	}
	return png, nil
}
