// Package qr renders weixin pairing tickets as QR codes, either as PNG
// bytes for saving to disk or as a half-block string for the terminal.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels. 256 scans reliably on
// phone cameras without bloating the file.
const DefaultSize = 256

// Generate returns the content encoded as a PNG QR code. A non-positive
// size falls back to DefaultSize.
func Generate(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// Terminal returns the content as a compact QR code drawn with block
// characters, suitable for printing straight to a terminal.
func Terminal(content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr content is empty")
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return code.ToSmallString(false), nil
}
