package qr

import (
	"bytes"

	"github.com/yeqown/go-qrcode"
)

// RenderPNG encodes a ticket's QR payload as a scannable PNG.
func RenderPNG(payload string) ([]byte, error) {
	qrc, err := qrcode.New(payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
