//go:build !windows

package authstore

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// Embedded key for sealing record values. This provides obfuscation
// rather than strong security since anyone with access to the binary
// can extract it. The goal is to keep tokens and password hashes out
// of plain text on disk.
var embeddedKey = [32]byte{
	0x4e, 0xa1, 0x07, 0xd3, 0x5b, 0x92, 0xf8, 0x2c,
	0x61, 0xbe, 0x33, 0x70, 0xc5, 0x1a, 0x8d, 0xe9,
	0x04, 0x57, 0xfa, 0x26, 0xb1, 0x6c, 0x98, 0x0f,
	0xd2, 0x45, 0xeb, 0x38, 0x7e, 0xa3, 0x10, 0xcd,
}

// sealValue encrypts data using nacl/secretbox with the embedded key.
// Returns nonce (24 bytes) + ciphertext.
func sealValue(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &embeddedKey), nil
}

// openValue decrypts data sealed with sealValue.
func openValue(sealed []byte) ([]byte, error) {
	if len(sealed) < 24+secretbox.Overhead {
		return nil, fmt.Errorf("sealed value too short")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &embeddedKey)
	if !ok {
		return nil, fmt.Errorf("unseal failed")
	}

	return plaintext, nil
}
