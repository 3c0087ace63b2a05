package authproto

import (
	"log/slog"
	"strings"

	"github.com/indiepub/indieback/authdef"
)

// BearerPrefix is the required prefix of the Authorization header
// value on authenticated requests.
const BearerPrefix = "Bearer "

// TokenAuthenticator validates the bearer token and claimed user id
// presented on every authenticated request.
type TokenAuthenticator struct {
	Creds authdef.CredentialStore
	Users authdef.UserDirectory
	Log   *slog.Logger
}

func (a *TokenAuthenticator) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}

// Authenticate checks the Authorization header value and the X-User-Id
// header value in the fixed order of the protocol, short-circuiting
// with a specific unauthorized fault at the first failing step. On
// success it returns the resolved user and credential record.
func (a *TokenAuthenticator) Authenticate(authorization, userID string) (*authdef.User, *authdef.CredentialRecord, *authdef.Fault) {
	if authorization == "" {
		return nil, nil, authdef.Unauthorized(authdef.ReasonTokenMissing)
	}
	if !strings.HasPrefix(authorization, BearerPrefix) {
		return nil, nil, authdef.Unauthorized(authdef.ReasonTokenFormat)
	}
	token := authorization[len(BearerPrefix):]

	rec, err := a.Creds.FindByAuthToken(token)
	if err != nil {
		a.logger().Error("token lookup failed", "err", err)
		return nil, nil, authdef.Internal()
	}
	if rec == nil {
		return nil, nil, authdef.Unauthorized(authdef.ReasonTokenInvalid)
	}

	if userID == "" {
		return nil, nil, authdef.Unauthorized(authdef.ReasonUserIDMissing)
	}
	if userID != rec.UserID {
		return nil, nil, authdef.Unauthorized(authdef.ReasonUserIDMismatch)
	}

	user, err := a.Users.FindByID(rec.UserID)
	if err != nil {
		a.logger().Error("user lookup failed during authentication", "user_id", rec.UserID, "err", err)
		return nil, nil, authdef.Internal()
	}
	if user == nil {
		return nil, nil, authdef.Unauthorized(authdef.ReasonUserNotFound)
	}

	return user, rec, nil
}
