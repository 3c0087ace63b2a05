// Package authhttp exposes the credential protocol over JSON/HTTP:
// POST /signup, POST /login, and a bearer-authenticated GET /me.
// Faults map to statuses: bad request 400, unauthorized 401, conflict
// 409, internal 500.
package authhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/indiepub/indieback/authdef"
	"github.com/indiepub/indieback/authproto"
)

// maxRequestBodySize limits POST body sizes. Encrypted credential
// fields are a few hundred bytes each; anything near this limit is
// garbage.
const maxRequestBodySize = 64 << 10 // 64 KiB

// HeaderUserID is the header carrying the claimed user id on
// authenticated requests.
const HeaderUserID = "X-User-Id"

// Server wires the protocol service and authenticator to HTTP.
type Server struct {
	Proto   *authproto.Service
	Auth    *authproto.TokenAuthenticator
	Metrics *Metrics
	Log     *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Register installs the handlers on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", s.handleSignUp)
	mux.HandleFunc("POST /login", s.handleSignIn)
	mux.HandleFunc("GET /me", s.RequireAuth(s.handleMe))
}

// sessionResponse is the success body of sign-up and sign-in: the
// bearer token plus the public profile fields.
type sessionResponse struct {
	Token          string    `json:"token"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	SocialLinks    []string  `json:"social_links"`
}

func newSessionResponse(sess *authproto.Session) sessionResponse {
	return sessionResponse{
		Token:          sess.Token,
		UserID:         sess.User.ID,
		Email:          sess.User.Email,
		Role:           sess.User.Role,
		Name:           sess.User.Name,
		CreatedAt:      sess.User.CreatedAt,
		Bio:            sess.User.Bio,
		ProfilePicture: sess.User.ProfilePicture,
		SocialLinks:    sess.User.SocialLinks,
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req authproto.SignUpRequest
	if !s.decodeBody(w, r, &req) {
		s.Metrics.CountSignUp(authdef.BadRequest(""))
		return
	}

	sess, fault := s.Proto.SignUp(req)
	s.Metrics.CountSignUp(fault)
	if fault != nil {
		s.writeFault(w, fault)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req authproto.SignInRequest
	if !s.decodeBody(w, r, &req) {
		s.Metrics.CountSignIn(authdef.BadRequest(""))
		return
	}

	sess, fault := s.Proto.SignIn(req)
	s.Metrics.CountSignIn(fault)
	if fault != nil {
		s.writeFault(w, fault)
		return
	}
	s.writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// AuthedHandler is an HTTP handler that additionally receives the
// authenticated user and credential record.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user *authdef.User, rec *authdef.CredentialRecord)

// RequireAuth wraps next with bearer-token authentication. The token
// comes from the Authorization header, the claimed identity from
// X-User-Id; any check failing short-circuits with 401 and a specific
// reason.
func (s *Server) RequireAuth(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, rec, fault := s.Auth.Authenticate(r.Header.Get("Authorization"), r.Header.Get(HeaderUserID))
		s.Metrics.CountTokenCheck(fault)
		if fault != nil {
			s.writeFault(w, fault)
			return
		}
		next(w, r, user, rec)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *authdef.User, rec *authdef.CredentialRecord) {
	s.writeJSON(w, http.StatusOK, user)
}

// decodeBody parses a size-limited JSON body into v, answering 400 on
// failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeFault(w, authdef.BadRequest("invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeFault(w http.ResponseWriter, fault *authdef.Fault) {
	s.writeJSON(w, statusForFault(fault.Kind), map[string]string{"error": fault.Reason})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger().Error("response encode failed", "err", err)
	}
}

func statusForFault(kind authdef.FaultKind) int {
	switch kind {
	case authdef.FaultBadRequest:
		return http.StatusBadRequest
	case authdef.FaultUnauthorized:
		return http.StatusUnauthorized
	case authdef.FaultConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
