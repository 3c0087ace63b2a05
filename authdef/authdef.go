// Package authdef holds the shared definitions of the IndieBack
// authentication core: the data model, the collaborator interfaces the
// protocol drives, the sentinel errors of the key layer, and the fault
// taxonomy surfaced to clients.
package authdef

import (
	"fmt"
	"time"
)

var (
	// ErrKeyGeneration is returned when an RSA key pair cannot be
	// generated or persisted.
	ErrKeyGeneration = fmt.Errorf("indieback: key generation failed")

	// ErrKeyLoad is returned when PEM key material is absent,
	// unreadable, or fails to parse (including a wrong passphrase).
	ErrKeyLoad = fmt.Errorf("indieback: key load failed")

	// ErrEncryption is returned when RSA encryption fails, including
	// plaintext exceeding the PKCS#1 v1.5 size bound.
	ErrEncryption = fmt.Errorf("indieback: encryption failed")

	// ErrDecryption is returned on ciphertext padding or format
	// mismatch during RSA decryption.
	ErrDecryption = fmt.Errorf("indieback: decryption failed")

	// ErrSigning is returned when producing an RSA signature fails.
	ErrSigning = fmt.Errorf("indieback: signing failed")

	// ErrVerification is returned only for malformed verification
	// input; an ordinary signature mismatch is not an error.
	ErrVerification = fmt.Errorf("indieback: verification failed")
)

// User is the public profile kept in the user directory.
type User struct {
	ID             string    `json:"user_id" cbor:"1,keyasint"`
	Email          string    `json:"email" cbor:"2,keyasint"`
	Role           string    `json:"role" cbor:"3,keyasint"`
	Name           string    `json:"name" cbor:"4,keyasint"`
	CreatedAt      time.Time `json:"created_at" cbor:"5,keyasint"`
	Bio            string    `json:"bio" cbor:"6,keyasint,omitempty"`
	ProfilePicture string    `json:"profile_picture" cbor:"7,keyasint,omitempty"`
	SocialLinks    []string  `json:"social_links" cbor:"8,keyasint,omitempty"`
}

// CredentialRecord is one user's authentication state. At most one
// record exists per user id. AuthToken is overwritten on every
// successful sign-in; PasswordHash is set once at sign-up.
type CredentialRecord struct {
	UserID       string `cbor:"1,keyasint"`
	AuthToken    string `cbor:"2,keyasint"`
	PasswordHash string `cbor:"3,keyasint"`
}

// CredentialStore is the durable record store keyed by user id, with
// secondary lookups by auth token and password hash. Lookups return
// nil (not an error) when no record matches; only connectivity or
// malformed-query failures surface as errors.
type CredentialStore interface {
	// Insert writes a record, overwriting any prior record for the
	// same user id. It returns false, without panicking or erroring,
	// when the user id is empty or the underlying write fails.
	Insert(rec CredentialRecord) bool

	FindByUserID(id string) (*CredentialRecord, error)
	FindByAuthToken(token string) (*CredentialRecord, error)
	FindByPasswordHash(hash string) (*CredentialRecord, error)
}

// UserDirectory is the external collaborator holding user profiles.
type UserDirectory interface {
	// FindByEmail returns nil when no user has the given email.
	FindByEmail(email string) (*User, error)

	// FindByID returns nil when no user has the given id.
	FindByID(id string) (*User, error)

	Insert(u User) error
	Update(u User) error
}

// FaultKind classifies a protocol failure for transport mapping.
type FaultKind int

const (
	// FaultBadRequest covers malformed, undecryptable, unverifiable,
	// or policy-violating input. The client's fault.
	FaultBadRequest FaultKind = iota + 1

	// FaultUnauthorized covers token or identity mismatches and wrong
	// passwords.
	FaultUnauthorized

	// FaultConflict covers storage writes that failed after all
	// validation passed.
	FaultConflict

	// FaultInternal covers unexpected failures in the crypto or store
	// layers. Details are logged, never sent to the client.
	FaultInternal
)

func (k FaultKind) String() string {
	switch k {
	case FaultBadRequest:
		return "bad_request"
	case FaultUnauthorized:
		return "unauthorized"
	case FaultConflict:
		return "conflict"
	case FaultInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Fault is a protocol failure carrying a kind for status mapping and a
// short stable reason safe to show a user. Reasons never include
// decrypted input or key material.
type Fault struct {
	Kind   FaultKind
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

// BadRequest builds a FaultBadRequest fault.
func BadRequest(reason string) *Fault {
	return &Fault{Kind: FaultBadRequest, Reason: reason}
}

// Unauthorized builds a FaultUnauthorized fault.
func Unauthorized(reason string) *Fault {
	return &Fault{Kind: FaultUnauthorized, Reason: reason}
}

// Conflict builds a FaultConflict fault.
func Conflict(reason string) *Fault {
	return &Fault{Kind: FaultConflict, Reason: reason}
}

// Internal builds the generic FaultInternal fault. The underlying
// cause is for the log, not the response.
func Internal() *Fault {
	return &Fault{Kind: FaultInternal, Reason: "internal error"}
}

// Stable user-facing reason strings. Clients and tests match on these
// exactly, so changing one is a wire-format change.
const (
	ReasonDecryptEmailFailed    = "decrypt email failed"
	ReasonInvalidEmail          = "invalid email"
	ReasonInvalidPasswordFormat = "invalid password format"
	ReasonDecryptPasswordFailed = "decrypt password failed"
	ReasonSignatureInvalid      = "signature verification failed"
	ReasonWeakPassword          = "weak password"
	ReasonDecryptRoleFailed     = "decrypt role failed"
	ReasonEmailTaken            = "email already registered"
	ReasonUserWriteFailed       = "could not create user"
	ReasonCredentialWriteFailed = "could not store credentials"
	ReasonNotRegistered         = "not registered"
	ReasonWrongPassword         = "wrong password"
	ReasonTokenMissing          = "token not provided"
	ReasonTokenFormat           = "invalid token format"
	ReasonTokenInvalid          = "invalid token"
	ReasonUserIDMissing         = "user id not provided"
	ReasonUserIDMismatch        = "User ID does not match token"
	ReasonUserNotFound          = "user not found"
)
