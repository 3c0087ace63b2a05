package authproto

import (
	"errors"
	"testing"

	"github.com/indiepub/indieback/authdef"
	"github.com/indiepub/indieback/authkey"
	"github.com/indiepub/indieback/authmock"
	"github.com/indiepub/indieback/codec"
)

type testRig struct {
	svc   *Service
	users *authmock.InMemoryUserDirectory
	creds *authmock.InMemoryCredentialStore
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()
	server := authkey.NewManager(authkey.ServerIdentity, authkey.Config{Dir: dir})
	client := authkey.NewManager(authkey.ClientIdentity, authkey.Config{Dir: dir})
	if err := server.Generate(""); err != nil {
		t.Fatalf("generate server keys: %v", err)
	}
	if err := client.Generate(""); err != nil {
		t.Fatalf("generate client keys: %v", err)
	}
	users := authmock.NewInMemoryUserDirectory()
	creds := authmock.NewInMemoryCredentialStore()
	return &testRig{
		svc: &Service{
			Server: server,
			Client: client,
			Users:  users,
			Creds:  creds,
		},
		users: users,
		creds: creds,
	}
}

// seal encrypts a field the way a protocol client would.
func (r *testRig) seal(t *testing.T, value string) string {
	t.Helper()
	ct, err := r.svc.Server.Encrypt([]byte(value))
	if err != nil {
		t.Fatalf("encrypt %q: %v", value, err)
	}
	return codec.Base64Encode(ct)
}

// sealPassword produces the "ciphertext:signature" password field.
func (r *testRig) sealPassword(t *testing.T, password string) string {
	t.Helper()
	sig, err := r.svc.Client.Sign([]byte(password), "")
	if err != nil {
		t.Fatalf("sign password: %v", err)
	}
	return r.seal(t, password) + ":" + codec.Base64Encode(sig)
}

func (r *testRig) signUpRequest(t *testing.T, email, password, role string) SignUpRequest {
	t.Helper()
	return SignUpRequest{
		Email:    r.seal(t, email),
		Password: r.sealPassword(t, password),
		Role:     r.seal(t, role),
	}
}

func (r *testRig) signInRequest(t *testing.T, email, password string) SignInRequest {
	t.Helper()
	return SignInRequest{
		Email:    r.seal(t, email),
		Password: r.sealPassword(t, password),
	}
}

const (
	testEmail    = "artist@example.com"
	testPassword = "Str0ngP@ssw0rd"
)

func TestSignUpSuccess(t *testing.T) {
	r := newTestRig(t)

	sess, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "artist"))
	if fault != nil {
		t.Fatalf("SignUp fault: %v", fault)
	}
	if sess.Token == "" {
		t.Fatal("empty session token")
	}
	if sess.User.Email != testEmail || sess.User.Role != "artist" {
		t.Errorf("user = %+v", sess.User)
	}
	if sess.User.Name != "artist" {
		t.Errorf("display name = %q, want local part of email", sess.User.Name)
	}
	if sess.User.ID == "" || sess.User.CreatedAt.IsZero() {
		t.Errorf("user id/created_at not populated: %+v", sess.User)
	}

	// The credential record must be reachable through every index.
	byID, err := r.creds.FindByUserID(sess.User.ID)
	if err != nil || byID == nil {
		t.Fatalf("FindByUserID = %v, %v", byID, err)
	}
	byToken, err := r.creds.FindByAuthToken(sess.Token)
	if err != nil || byToken == nil {
		t.Fatalf("FindByAuthToken = %v, %v", byToken, err)
	}
	if *byID != *byToken {
		t.Errorf("index mismatch: %+v vs %+v", byID, byToken)
	}
	wantHash := codec.HexSum(codec.SHA256, []byte(testPassword))
	if byID.PasswordHash != wantHash {
		t.Errorf("stored hash = %q, want hex sha256 of the password", byID.PasswordHash)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	r := newTestRig(t)

	if _, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan")); fault != nil {
		t.Fatalf("first SignUp fault: %v", fault)
	}
	_, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan"))
	if fault == nil {
		t.Fatal("duplicate SignUp succeeded")
	}
	if fault.Kind != authdef.FaultConflict || fault.Reason != authdef.ReasonEmailTaken {
		t.Errorf("fault = %v/%q", fault.Kind, fault.Reason)
	}
	if r.users.Len() != 1 {
		t.Errorf("user count = %d after duplicate sign-up, want 1", r.users.Len())
	}
}

func TestSignUpRejectsBadInputs(t *testing.T) {
	r := newTestRig(t)

	tests := []struct {
		name   string
		req    SignUpRequest
		kind   authdef.FaultKind
		reason string
	}{
		{
			"undecryptable email",
			SignUpRequest{Email: "bm90IGNpcGhlcnRleHQ=", Password: r.sealPassword(t, testPassword), Role: r.seal(t, "fan")},
			authdef.FaultBadRequest, authdef.ReasonDecryptEmailFailed,
		},
		{
			"email not base64",
			SignUpRequest{Email: "!!!", Password: r.sealPassword(t, testPassword), Role: r.seal(t, "fan")},
			authdef.FaultBadRequest, authdef.ReasonDecryptEmailFailed,
		},
		{
			"invalid email shape",
			r.signUpRequest(t, "not-an-email", testPassword, "fan"),
			authdef.FaultBadRequest, authdef.ReasonInvalidEmail,
		},
		{
			"password missing signature separator",
			SignUpRequest{Email: r.seal(t, testEmail), Password: r.seal(t, testPassword), Role: r.seal(t, "fan")},
			authdef.FaultBadRequest, authdef.ReasonInvalidPasswordFormat,
		},
		{
			"weak password",
			r.signUpRequest(t, testEmail, "weakpw", "fan"),
			authdef.FaultBadRequest, authdef.ReasonWeakPassword,
		},
		{
			"undecryptable role",
			SignUpRequest{Email: r.seal(t, testEmail), Password: r.sealPassword(t, testPassword), Role: "!!!"},
			authdef.FaultBadRequest, authdef.ReasonDecryptRoleFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fault := r.svc.SignUp(tt.req)
			if fault == nil {
				t.Fatal("expected fault")
			}
			if fault.Kind != tt.kind || fault.Reason != tt.reason {
				t.Errorf("fault = %v/%q, want %v/%q", fault.Kind, fault.Reason, tt.kind, tt.reason)
			}
		})
	}
}

func TestSignUpRejectsTamperedSignature(t *testing.T) {
	r := newTestRig(t)

	// Signature over a different password than the ciphertext carries.
	sig, err := r.svc.Client.Sign([]byte("OtherP@ssw0rd1"), "")
	if err != nil {
		t.Fatal(err)
	}
	req := SignUpRequest{
		Email:    r.seal(t, testEmail),
		Password: r.seal(t, testPassword) + ":" + codec.Base64Encode(sig),
		Role:     r.seal(t, "fan"),
	}
	_, fault := r.svc.SignUp(req)
	if fault == nil {
		t.Fatal("expected fault")
	}
	if fault.Kind != authdef.FaultBadRequest || fault.Reason != authdef.ReasonSignatureInvalid {
		t.Errorf("fault = %v/%q", fault.Kind, fault.Reason)
	}
}

func TestSignUpCredentialWriteFailure(t *testing.T) {
	r := newTestRig(t)
	r.creds.FailInserts = true

	_, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan"))
	if fault == nil {
		t.Fatal("expected fault")
	}
	if fault.Kind != authdef.FaultConflict || fault.Reason != authdef.ReasonCredentialWriteFailed {
		t.Errorf("fault = %v/%q", fault.Kind, fault.Reason)
	}
	// The user row is not rolled back.
	if r.users.Len() != 1 {
		t.Errorf("user count = %d, want the orphaned row to remain", r.users.Len())
	}
}

func TestSignInSuccessAndTokenDeterminism(t *testing.T) {
	r := newTestRig(t)

	up, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan"))
	if fault != nil {
		t.Fatalf("SignUp fault: %v", fault)
	}

	first, fault := r.svc.SignIn(r.signInRequest(t, testEmail, testPassword))
	if fault != nil {
		t.Fatalf("SignIn fault: %v", fault)
	}
	second, fault := r.svc.SignIn(r.signInRequest(t, testEmail, testPassword))
	if fault != nil {
		t.Fatalf("second SignIn fault: %v", fault)
	}

	// The token is a deterministic function of the password.
	if first.Token != up.Token || second.Token != up.Token {
		t.Error("tokens differ across sign-up and sign-ins")
	}
	if first.User.ID != up.User.ID {
		t.Errorf("sign-in user id = %q, want %q", first.User.ID, up.User.ID)
	}
	if r.creds.Len() != 1 {
		t.Errorf("credential count = %d, want 1", r.creds.Len())
	}
}

func TestSignInFailures(t *testing.T) {
	r := newTestRig(t)
	if _, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan")); fault != nil {
		t.Fatalf("SignUp fault: %v", fault)
	}

	tests := []struct {
		name   string
		req    SignInRequest
		kind   authdef.FaultKind
		reason string
	}{
		{
			"unknown email",
			r.signInRequest(t, "stranger@example.com", testPassword),
			authdef.FaultUnauthorized, authdef.ReasonNotRegistered,
		},
		{
			"wrong password",
			r.signInRequest(t, testEmail, "Wr0ngP@ssword"),
			authdef.FaultUnauthorized, authdef.ReasonWrongPassword,
		},
		{
			"invalid email shape",
			r.signInRequest(t, "not-an-email", testPassword),
			authdef.FaultBadRequest, authdef.ReasonInvalidEmail,
		},
		{
			"weak password short-circuits before lookup",
			r.signInRequest(t, testEmail, "weakpw"),
			authdef.FaultBadRequest, authdef.ReasonWeakPassword,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fault := r.svc.SignIn(tt.req)
			if fault == nil {
				t.Fatal("expected fault")
			}
			if fault.Kind != tt.kind || fault.Reason != tt.reason {
				t.Errorf("fault = %v/%q, want %v/%q", fault.Kind, fault.Reason, tt.kind, tt.reason)
			}
		})
	}
}

func TestSignInUserWithoutCredentials(t *testing.T) {
	r := newTestRig(t)
	if err := r.users.Insert(authdef.User{ID: "u1", Email: testEmail}); err != nil {
		t.Fatal(err)
	}

	_, fault := r.svc.SignIn(r.signInRequest(t, testEmail, testPassword))
	if fault == nil {
		t.Fatal("expected fault")
	}
	// Indistinguishable from an unregistered email on purpose.
	if fault.Kind != authdef.FaultUnauthorized || fault.Reason != authdef.ReasonNotRegistered {
		t.Errorf("fault = %v/%q", fault.Kind, fault.Reason)
	}
}

func TestLookupErrorsSurfaceAsInternal(t *testing.T) {
	r := newTestRig(t)
	r.users.LookupErr = errors.New("boom")

	_, fault := r.svc.SignUp(r.signUpRequest(t, testEmail, testPassword, "fan"))
	if fault == nil || fault.Kind != authdef.FaultInternal {
		t.Errorf("fault = %v, want internal", fault)
	}
}
