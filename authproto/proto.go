// Package authproto implements the encrypted-credential sign-up and
// sign-in pipelines and bearer-token request authentication.
//
// Clients submit each credential field as base64 RSA ciphertext under
// the server identity's public key; the password additionally carries
// a signature the client identity produced over the plaintext
// password. Every pipeline stage validates one thing and
// short-circuits with a stable, user-safe fault on failure.
//
// The bearer token is deliberately deterministic: it is the server
// identity's PKCS#1 v1.5 signature over the hex-encoded SHA-256 hash
// of the password. A token is therefore a verifiable function of the
// password and repeats across sign-ins. That matches the deployed
// protocol and is preserved for compatibility; it should be treated as
// a known weakness, not a feature.
package authproto

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indiepub/indieback/authdef"
	"github.com/indiepub/indieback/authkey"
	"github.com/indiepub/indieback/codec"
)

// Service orchestrates sign-up and sign-in. It is safe for concurrent
// use; all state lives in the collaborators.
type Service struct {
	// Server decrypts inbound fields and signs issued tokens.
	Server *authkey.Manager

	// Client verifies the password signature submitted by the client.
	Client *authkey.Manager

	Users authdef.UserDirectory
	Creds authdef.CredentialStore

	// ServerPassphrase unlocks the server identity's private key for
	// decrypt and sign operations.
	ServerPassphrase string

	Log *slog.Logger
}

// SignUpRequest is the JSON body of a sign-up call. Every field is
// base64 RSA ciphertext; Password is "ciphertext:signature".
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SignInRequest is the JSON body of a sign-in call.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the successful outcome of either pipeline.
type Session struct {
	Token string
	User  authdef.User
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// SignUp runs the registration pipeline: decrypt and validate email,
// decrypt and verify the signed password, check password policy,
// decrypt role, then create the user and its credential record.
//
// No transaction spans the user directory and the credential store. A
// credential write failing after the user row was created leaves the
// row behind; the failure surfaces as a conflict and is not rolled
// back.
func (s *Service) SignUp(req SignUpRequest) (*Session, *authdef.Fault) {
	email, f := s.decryptField(req.Email, authdef.ReasonDecryptEmailFailed)
	if f != nil {
		return nil, f
	}
	if !IsValidEmail(email) {
		return nil, authdef.BadRequest(authdef.ReasonInvalidEmail)
	}

	password, f := s.decryptPassword(req.Password)
	if f != nil {
		return nil, f
	}
	if !IsValidPassword(password) {
		return nil, authdef.BadRequest(authdef.ReasonWeakPassword)
	}

	role, f := s.decryptField(req.Role, authdef.ReasonDecryptRoleFailed)
	if f != nil {
		return nil, f
	}

	hash := codec.HexSum(codec.SHA256, []byte(password))

	existing, err := s.Users.FindByEmail(email)
	if err != nil {
		s.logger().Error("user lookup failed during sign-up", "err", err)
		return nil, authdef.Internal()
	}
	if existing != nil {
		return nil, authdef.Conflict(authdef.ReasonEmailTaken)
	}

	user := authdef.User{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		Name:      displayName(email),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Users.Insert(user); err != nil {
		s.logger().Error("user insert failed", "user_id", user.ID, "err", err)
		return nil, authdef.Conflict(authdef.ReasonUserWriteFailed)
	}

	token, f := s.issueToken(hash)
	if f != nil {
		return nil, f
	}
	rec := authdef.CredentialRecord{
		UserID:       user.ID,
		AuthToken:    token,
		PasswordHash: hash,
	}
	if !s.Creds.Insert(rec) {
		return nil, authdef.Conflict(authdef.ReasonCredentialWriteFailed)
	}

	s.logger().Info("user signed up", "user_id", user.ID, "role", role)
	return &Session{Token: token, User: user}, nil
}

// SignIn runs the login pipeline: the same decrypt/verify/policy steps
// as sign-up (without role), then password check and token refresh.
// The refreshed token overwrites the stored one; because the token is
// derived from the password, it is byte-identical across sign-ins.
func (s *Service) SignIn(req SignInRequest) (*Session, *authdef.Fault) {
	email, f := s.decryptField(req.Email, authdef.ReasonDecryptEmailFailed)
	if f != nil {
		return nil, f
	}
	if !IsValidEmail(email) {
		return nil, authdef.BadRequest(authdef.ReasonInvalidEmail)
	}

	password, f := s.decryptPassword(req.Password)
	if f != nil {
		return nil, f
	}
	if !IsValidPassword(password) {
		return nil, authdef.BadRequest(authdef.ReasonWeakPassword)
	}

	user, err := s.Users.FindByEmail(email)
	if err != nil {
		s.logger().Error("user lookup failed during sign-in", "err", err)
		return nil, authdef.Internal()
	}
	if user == nil {
		return nil, authdef.Unauthorized(authdef.ReasonNotRegistered)
	}

	rec, err := s.Creds.FindByUserID(user.ID)
	if err != nil {
		s.logger().Error("credential lookup failed during sign-in", "user_id", user.ID, "err", err)
		return nil, authdef.Internal()
	}
	if rec == nil {
		// Directory row without credentials: the account cannot
		// authenticate, and "wrong password" would confirm the email
		// is registered.
		return nil, authdef.Unauthorized(authdef.ReasonNotRegistered)
	}

	hash := codec.HexSum(codec.SHA256, []byte(password))
	if rec.PasswordHash != hash {
		return nil, authdef.Unauthorized(authdef.ReasonWrongPassword)
	}

	token, f := s.issueToken(hash)
	if f != nil {
		return nil, f
	}
	rec.AuthToken = token
	if !s.Creds.Insert(*rec) {
		return nil, authdef.Conflict(authdef.ReasonCredentialWriteFailed)
	}

	s.logger().Info("user signed in", "user_id", user.ID)
	return &Session{Token: token, User: *user}, nil
}

// decryptField base64-decodes one encrypted field and decrypts it with
// the server identity. An empty or undecryptable field fails with the
// given reason.
func (s *Service) decryptField(field, reason string) (string, *authdef.Fault) {
	ciphertext, err := codec.Base64Decode(field)
	if err != nil || len(ciphertext) == 0 {
		return "", authdef.BadRequest(reason)
	}
	plaintext, err := s.Server.Decrypt(ciphertext, s.ServerPassphrase)
	if err != nil {
		s.logger().Debug("field decryption failed", "err", err)
		return "", authdef.BadRequest(reason)
	}
	if len(plaintext) == 0 {
		return "", authdef.BadRequest(reason)
	}
	return string(plaintext), nil
}

// decryptPassword splits the password field on its first ':' into
// ciphertext and signature, decrypts the ciphertext, and verifies the
// signature over the plaintext password with the client identity.
func (s *Service) decryptPassword(field string) (string, *authdef.Fault) {
	ciphertextB64, signatureB64, found := strings.Cut(field, ":")
	if !found {
		return "", authdef.BadRequest(authdef.ReasonInvalidPasswordFormat)
	}

	password, f := s.decryptField(ciphertextB64, authdef.ReasonDecryptPasswordFailed)
	if f != nil {
		return "", f
	}

	signature, err := codec.Base64Decode(signatureB64)
	if err != nil || len(signature) == 0 {
		return "", authdef.BadRequest(authdef.ReasonSignatureInvalid)
	}
	ok, err := s.Client.Verify([]byte(password), signature)
	if err != nil {
		s.logger().Debug("password signature verification errored", "err", err)
		return "", authdef.BadRequest(authdef.ReasonSignatureInvalid)
	}
	if !ok {
		return "", authdef.BadRequest(authdef.ReasonSignatureInvalid)
	}
	return password, nil
}

// issueToken derives the bearer token from a password hash: the server
// identity's signature over the hex digest, base64-encoded.
func (s *Service) issueToken(passwordHash string) (string, *authdef.Fault) {
	sig, err := s.Server.Sign([]byte(passwordHash), s.ServerPassphrase)
	if err != nil {
		s.logger().Error("token signing failed", "err", err)
		return "", authdef.Internal()
	}
	return codec.Base64Encode(sig), nil
}

// displayName derives the initial profile name from the email's local
// part.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
