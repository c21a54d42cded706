package zepp

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"
)

// The mobile app ships a fixed key and IV for the credential envelope. The
// remote service accepts nothing else, so these are protocol constants, not
// secrets.
var (
	loginKey = []byte("xeNtBVqzDc6tuNTh")
	loginIV  = []byte("MAAAYAAAAAAAAABg")
)

// encryptLoginPayload seals the urlencoded credential form with AES-128-CBC
// and PKCS#7 padding, reproducing the app's login envelope byte for byte.
func encryptLoginPayload(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(loginKey)
	if err != nil {
		return nil, fmt.Errorf("init login cipher: %w", err)
	}

	padLen := aes.BlockSize - len(plain)%aes.BlockSize
	padded := make([]byte, 0, len(plain)+padLen)
	padded = append(padded, plain...)
	padded = append(padded, bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, loginIV).CryptBlocks(out, padded)
	return out, nil
}

// extractAccessCode pulls the access code from a redirect Location header.
// The remote always terminates the parameter with '&', even when it is the
// last one; a Location without that trailing delimiter yields no code.
func extractAccessCode(location string) string {
	const marker = "access="
	start := strings.Index(location, marker)
	if start < 0 {
		return ""
	}
	rest := location[start+len(marker):]
	end := strings.Index(rest, "&")
	if end < 0 {
		return ""
	}
	return rest[:end]
}
