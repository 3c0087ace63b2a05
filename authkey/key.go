// Package authkey owns the lifecycle of the RSA identities used by
// the credential protocol: generation, PEM persistence on disk, and
// scoped load-use-release access to the private material.
//
// Two identities exist at runtime. The server identity decrypts
// inbound credential fields and signs issued bearer tokens; the client
// identity's public half verifies the signature a submitting client
// produced over the plaintext password. Both are plain RSA pairs, not
// certificates.
//
// Private keys are never held between operations: every public method
// loads what it needs and releases it before returning, on success and
// failure alike.
package authkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/indiepub/indieback/authdef"
	"github.com/indiepub/indieback/codec"
)

// Identity tags which role a key pair plays, so the wrong key cannot
// be used for the wrong operation.
type Identity int

const (
	ServerIdentity Identity = iota
	ClientIdentity
)

func (i Identity) String() string {
	switch i {
	case ServerIdentity:
		return "server identity"
	case ClientIdentity:
		return "client identity"
	default:
		return "unknown identity"
	}
}

// basename is the fixed file stem for the identity's PEM material.
func (i Identity) basename() string {
	if i == ClientIdentity {
		return "client_identity"
	}
	return "server_identity"
}

// DefaultBits is the RSA modulus size used when none is configured.
const DefaultBits = 2048

// pkcs1v15Overhead is the minimum PKCS#1 v1.5 padding size; plaintext
// longer than keySize-pkcs1v15Overhead cannot be encrypted in one
// block and the protocol never chunks.
const pkcs1v15Overhead = 11

const (
	publicKeyPEMType  = "PUBLIC KEY"
	privateKeyPEMType = "PRIVATE KEY"
)

// Config controls where and how a Manager keeps its key pair.
type Config struct {
	// Dir is the key directory. Empty means DefaultDir().
	Dir string

	// Bits is the RSA modulus size for Generate. Zero means
	// DefaultBits.
	Bits int

	// Digest selects the hash used for signing and verification.
	// The protocol uses SHA-256, which is also the zero value.
	Digest codec.Algorithm
}

// Manager manages one identity's RSA key pair. It holds no key
// material itself and is safe for concurrent use; each operation is a
// self-contained load/operate/release sequence.
type Manager struct {
	identity Identity
	dir      string
	bits     int
	digest   codec.Algorithm
}

// NewManager creates a Manager for the given identity.
func NewManager(identity Identity, cfg Config) *Manager {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	bits := cfg.Bits
	if bits == 0 {
		bits = DefaultBits
	}
	return &Manager{
		identity: identity,
		dir:      dir,
		bits:     bits,
		digest:   cfg.Digest,
	}
}

// Identity returns the role tag of this manager's key pair.
func (m *Manager) Identity() Identity {
	return m.identity
}

// PublicKeyPath returns the location of the PEM-encoded public key.
func (m *Manager) PublicKeyPath() string {
	return filepath.Join(m.dir, m.identity.basename()+"_pub.pem")
}

// PrivateKeyPath returns the location of the PEM-encoded private key.
func (m *Manager) PrivateKeyPath() string {
	return filepath.Join(m.dir, m.identity.basename()+".pem")
}

// HasKeyPair reports whether both halves exist on disk.
func (m *Manager) HasKeyPair() bool {
	if _, err := os.Stat(m.PublicKeyPath()); err != nil {
		return false
	}
	if _, err := os.Stat(m.PrivateKeyPath()); err != nil {
		return false
	}
	return true
}

// Generate creates a fresh RSA key pair and writes both halves,
// PEM-encoded, to the manager's fixed locations. The public key is
// written unencrypted; the private key is sealed when a passphrase is
// given. The in-memory key is released before Generate returns.
func (m *Manager) Generate(passphrase string) error {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("%w: create key directory: %v", authdef.ErrKeyGeneration, err)
	}

	key, err := rsa.GenerateKey(rand.Reader, m.bits)
	if err != nil {
		return fmt.Errorf("%w: generate %d-bit rsa key: %v", authdef.ErrKeyGeneration, m.bits, err)
	}
	defer scrub(key)

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: encode public key: %v", authdef.ErrKeyGeneration, err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: pubDER})

	privBlock, err := encodePrivateKey(key, passphrase)
	if err != nil {
		return fmt.Errorf("%w: encode private key: %v", authdef.ErrKeyGeneration, err)
	}
	privPEM := pem.EncodeToMemory(privBlock)

	if err := atomicWriteFile(m.PublicKeyPath(), pubPEM, 0644); err != nil {
		return fmt.Errorf("%w: write public key: %v", authdef.ErrKeyGeneration, err)
	}
	if err := atomicWriteFile(m.PrivateKeyPath(), privPEM, 0600); err != nil {
		return fmt.Errorf("%w: write private key: %v", authdef.ErrKeyGeneration, err)
	}
	return nil
}

// Encrypt encrypts plaintext with the identity's public key using
// PKCS#1 v1.5 padding. Plaintext longer than the padding-adjusted
// modulus size fails; it is never truncated.
func (m *Manager) Encrypt(plaintext []byte) ([]byte, error) {
	pub, err := m.loadPublicKey()
	if err != nil {
		return nil, err
	}
	if max := pub.Size() - pkcs1v15Overhead; len(plaintext) > max {
		return nil, fmt.Errorf("%w: plaintext is %d bytes, limit for this key is %d",
			authdef.ErrEncryption, len(plaintext), max)
	}
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authdef.ErrEncryption, err)
	}
	return out, nil
}

// Decrypt decrypts ciphertext with the identity's private key using
// PKCS#1 v1.5 padding. The key is loaded for this call only and
// released before Decrypt returns.
func (m *Manager) Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	var out []byte
	err := m.withPrivateKey(passphrase, func(key *rsa.PrivateKey) error {
		pt, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
		if err != nil {
			return fmt.Errorf("%w: %v", authdef.ErrDecryption, err)
		}
		out = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sign digests message with the configured algorithm and signs the
// digest with the identity's private key (PKCS#1 v1.5 signature).
func (m *Manager) Sign(message []byte, passphrase string) ([]byte, error) {
	var sig []byte
	err := m.withPrivateKey(passphrase, func(key *rsa.PrivateKey) error {
		s, err := rsa.SignPKCS1v15(rand.Reader, key, m.hash(), codec.Sum(m.digest, message))
		if err != nil {
			return fmt.Errorf("%w: %v", authdef.ErrSigning, err)
		}
		sig = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Verify digests message identically to Sign and checks signature
// against the identity's public key. A mismatch returns (false, nil);
// an error is returned only for malformed input or unloadable keys.
func (m *Manager) Verify(message, signature []byte) (bool, error) {
	if len(signature) == 0 {
		return false, fmt.Errorf("%w: empty signature", authdef.ErrVerification)
	}
	pub, err := m.loadPublicKey()
	if err != nil {
		return false, err
	}
	if err := rsa.VerifyPKCS1v15(pub, m.hash(), codec.Sum(m.digest, message), signature); err != nil {
		return false, nil
	}
	return true, nil
}

// Digest exposes the manager's configured one-shot hash, used for
// password hashing and as the pre-image for signing.
func (m *Manager) Digest(message []byte) []byte {
	return codec.Sum(m.digest, message)
}

func (m *Manager) hash() crypto.Hash {
	switch m.digest {
	case codec.MD5:
		return crypto.MD5
	case codec.SHA1:
		return crypto.SHA1
	default:
		return crypto.SHA256
	}
}

// withPrivateKey loads the private key, runs fn, and releases the key
// on every exit path.
func (m *Manager) withPrivateKey(passphrase string, fn func(*rsa.PrivateKey) error) error {
	key, err := m.loadPrivateKey(passphrase)
	if err != nil {
		return err
	}
	defer scrub(key)
	return fn(key)
}

func (m *Manager) loadPublicKey() (*rsa.PublicKey, error) {
	data, err := os.ReadFile(m.PublicKeyPath())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s public key: %v", authdef.ErrKeyLoad, m.identity, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("%w: %s public key: no %s PEM block", authdef.ErrKeyLoad, m.identity, publicKeyPEMType)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s public key: %v", authdef.ErrKeyLoad, m.identity, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s public key is %T, not RSA", authdef.ErrKeyLoad, m.identity, pub)
	}
	return rsaPub, nil
}

func (m *Manager) loadPrivateKey(passphrase string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(m.PrivateKeyPath())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s private key: %v", authdef.ErrKeyLoad, m.identity, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s private key: no PEM block", authdef.ErrKeyLoad, m.identity)
	}

	der, err := decodePrivateKeyBlock(block, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s private key: %v", authdef.ErrKeyLoad, m.identity, err)
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s private key: %v", authdef.ErrKeyLoad, m.identity, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s private key is %T, not RSA", authdef.ErrKeyLoad, m.identity, key)
	}
	return rsaKey, nil
}

// scrub releases private key material. Go offers no guaranteed memory
// zeroing for big.Int, so this is best effort: the component values
// are reset before the references are dropped.
func scrub(k *rsa.PrivateKey) {
	if k == nil {
		return
	}
	if k.D != nil {
		k.D.SetInt64(0)
	}
	for _, p := range k.Primes {
		if p != nil {
			p.SetInt64(0)
		}
	}
	k.Precomputed = rsa.PrecomputedValues{}
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it to the target path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
