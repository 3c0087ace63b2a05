package authkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strconv"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// Passphrase sealing for private keys at rest. The PKCS#8 DER is
// sealed with nacl/secretbox under a scrypt-derived key; the KDF
// parameters travel in the PEM headers so they can change without a
// format break.

const sealedKeyPEMType = "SEALED PRIVATE KEY"

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	saltSize  = 16
	nonceSize = 24
)

// encodePrivateKey produces the PEM block for a private key: plain
// PKCS#8 without a passphrase, a sealed block with one.
func encodePrivateKey(key *rsa.PrivateKey, passphrase string) (*pem.Block, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return &pem.Block{Type: privateKeyPEMType, Bytes: der}, nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	sealKey, err := deriveSealKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], der, &nonce, sealKey)

	return &pem.Block{
		Type: sealedKeyPEMType,
		Headers: map[string]string{
			"Kdf":  "scrypt",
			"Salt": hex.EncodeToString(salt),
			"N":    strconv.Itoa(scryptN),
			"R":    strconv.Itoa(scryptR),
			"P":    strconv.Itoa(scryptP),
		},
		Bytes: sealed,
	}, nil
}

// decodePrivateKeyBlock returns the PKCS#8 DER from a key block,
// unsealing it when the block is passphrase-protected. A wrong
// passphrase surfaces as an unsealing failure.
func decodePrivateKeyBlock(block *pem.Block, passphrase string) ([]byte, error) {
	switch block.Type {
	case privateKeyPEMType:
		return block.Bytes, nil
	case sealedKeyPEMType:
		// Sealed key below.
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}

	if passphrase == "" {
		return nil, fmt.Errorf("key is passphrase-protected and no passphrase was given")
	}
	if block.Headers["Kdf"] != "scrypt" {
		return nil, fmt.Errorf("unsupported kdf %q", block.Headers["Kdf"])
	}
	salt, err := hex.DecodeString(block.Headers["Salt"])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("malformed salt header")
	}
	n, r, p, err := sealParams(block.Headers)
	if err != nil {
		return nil, err
	}

	keyBytes, err := scrypt.Key([]byte(passphrase), salt, n, r, p, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var sealKey [32]byte
	copy(sealKey[:], keyBytes)

	if len(block.Bytes) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("sealed key too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], block.Bytes[:nonceSize])

	der, ok := secretbox.Open(nil, block.Bytes[nonceSize:], &nonce, &sealKey)
	if !ok {
		return nil, fmt.Errorf("unseal failed (wrong passphrase?)")
	}
	return der, nil
}

func deriveSealKey(passphrase string, salt []byte) (*[32]byte, error) {
	keyBytes, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [32]byte
	copy(key[:], keyBytes)
	return &key, nil
}

func sealParams(headers map[string]string) (n, r, p int, err error) {
	n, err = strconv.Atoi(headers["N"])
	if err != nil || n < 2 {
		return 0, 0, 0, fmt.Errorf("malformed N header")
	}
	r, err = strconv.Atoi(headers["R"])
	if err != nil || r < 1 {
		return 0, 0, 0, fmt.Errorf("malformed R header")
	}
	p, err = strconv.Atoi(headers["P"])
	if err != nil || p < 1 {
		return 0, 0, 0, fmt.Errorf("malformed P header")
	}
	return n, r, p, nil
}
