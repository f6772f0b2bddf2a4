package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// NewSlipToken token acak untuk QR slip peminjaman
func NewSlipToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SlipVerifyURL URL publik yang dikodekan ke QR slip.
func SlipVerifyURL(publicURL, token string) string {
	return fmt.Sprintf("%s/api/v1/verify-loan/%s", publicURL, token)
}

// QRCodePNG membuat QR code sebagai PNG bytes
func QRCodePNG(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("gagal generate QR code: %w", err)
	}
	return png, nil
}
