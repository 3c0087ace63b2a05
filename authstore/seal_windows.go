//go:build windows

package authstore

import (
	"github.com/billgraziano/dpapi"
)

// sealValue encrypts record data using Windows DPAPI.
func sealValue(plaintext []byte) ([]byte, error) {
	return dpapi.EncryptBytes(plaintext)
}

// openValue decrypts record data sealed with sealValue.
func openValue(sealed []byte) ([]byte, error) {
	return dpapi.DecryptBytes(sealed)
}
