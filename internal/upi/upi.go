// Package upi builds UPI payment deep links and their QR codes.
package upi

import (
	"fmt"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultNote   = "Payment"
	DefaultQRSize = 256
)

// BuildURI fills the upi://pay template. Inputs are used verbatim: the
// address, name and note are neither validated nor escaped.
func BuildURI(vpa, name string, amount decimal.Decimal, note string) string {
	if note == "" {
		note = DefaultNote
	}
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&tn=%s", vpa, name, amount.StringFixed(2), note)
}

// RenderQR encodes uri as a PNG image of size×size pixels.
func RenderQR(uri string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
