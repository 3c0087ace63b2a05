// Package codec provides the stateless byte-level helpers shared by
// the authentication protocol: base64 and hex encoding and one-shot
// digest computation.
package codec

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Algorithm selects a digest function.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	SHA256
)

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	default:
		return sha256.Size
	}
}

// Sum computes a one-shot digest of msg. Unknown algorithms fall back
// to SHA-256, the protocol default.
func Sum(a Algorithm, msg []byte) []byte {
	switch a {
	case MD5:
		d := md5.Sum(msg)
		return d[:]
	case SHA1:
		d := sha1.Sum(msg)
		return d[:]
	default:
		d := sha256.Sum256(msg)
		return d[:]
	}
}

// HexSum computes a digest of msg and hex-encodes it. This is the
// password-hash encoding stored in credential records.
func HexSum(a Algorithm, msg []byte) string {
	return hex.EncodeToString(Sum(a, msg))
}

// Base64Encode encodes b using standard base64 with padding, the
// encoding used for all ciphertext and signature fields on the wire.
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64Decode decodes a standard base64 string.
func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// HexEncode encodes b as lowercase hex.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode decodes a hex string.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
