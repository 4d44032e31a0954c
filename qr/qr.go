// Package qr encodes card numbers into QR module matrices.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder produces the bare symbol matrix, without quiet zone. The layout
// reserves its own padding around the code.
type Encoder struct {
	Level qrcode.RecoveryLevel
}

// NewEncoder returns an encoder at medium error correction.
func NewEncoder() *Encoder {
	return &Encoder{Level: qrcode.Medium}
}

// Encode returns the dark modules of payload, row-major.
func (e *Encoder) Encode(payload string) ([][]bool, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr: empty payload")
	}
	q, err := qrcode.New(payload, e.Level)
	if err != nil {
		return nil, fmt.Errorf("qr: encode %q: %w", payload, err)
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}
