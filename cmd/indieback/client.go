package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/indiepub/indieback/authkey"
	"github.com/indiepub/indieback/authproto"
	"github.com/indiepub/indieback/codec"
	"github.com/indiepub/indieback/config"
)

// ClientOptions configures the signup and login modes.
type ClientOptions struct {
	ServerURL        string
	KeysDir          string
	Email            string
	Password         string
	Role             string
	ClientPassphrase string
}

// RunSignup registers a new account against a running server.
func RunSignup(ctx context.Context, opts *ClientOptions) error {
	c, err := newProtocolClient(opts)
	if err != nil {
		return err
	}
	password, err := c.sealPassword(opts.Password)
	if err != nil {
		return err
	}
	email, err := c.sealField(opts.Email)
	if err != nil {
		return err
	}
	role, err := c.sealField(opts.Role)
	if err != nil {
		return err
	}
	return c.post(ctx, "/signup", authproto.SignUpRequest{
		Email:    email,
		Password: password,
		Role:     role,
	})
}

// RunLogin signs in against a running server.
func RunLogin(ctx context.Context, opts *ClientOptions) error {
	c, err := newProtocolClient(opts)
	if err != nil {
		return err
	}
	password, err := c.sealPassword(opts.Password)
	if err != nil {
		return err
	}
	email, err := c.sealField(opts.Email)
	if err != nil {
		return err
	}
	return c.post(ctx, "/login", authproto.SignInRequest{
		Email:    email,
		Password: password,
	})
}

// protocolClient prepares credential fields the way the protocol
// expects them: each field RSA-encrypted under the server identity's
// public key, the password additionally signed by the client identity.
type protocolClient struct {
	server     *authkey.Manager
	client     *authkey.Manager
	passphrase string
	baseURL    string
	http       *http.Client
}

func newProtocolClient(opts *ClientOptions) (*protocolClient, error) {
	if opts.Email == "" || opts.Password == "" {
		return nil, fmt.Errorf("-email and -password are required")
	}
	dir := opts.KeysDir
	if dir == "" {
		dir = config.DefaultConfig().Keys.Dir
	}
	passphrase := opts.ClientPassphrase
	if passphrase == "" {
		passphrase = os.Getenv("INDIEBACK_CLIENT_PASSPHRASE")
	}
	return &protocolClient{
		server:     authkey.NewManager(authkey.ServerIdentity, authkey.Config{Dir: dir}),
		client:     authkey.NewManager(authkey.ClientIdentity, authkey.Config{Dir: dir}),
		passphrase: passphrase,
		baseURL:    opts.ServerURL,
		http:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *protocolClient) sealField(value string) (string, error) {
	ciphertext, err := c.server.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}
	return codec.Base64Encode(ciphertext), nil
}

// sealPassword produces "ciphertext:signature", both halves base64.
func (c *protocolClient) sealPassword(password string) (string, error) {
	ciphertext, err := c.sealField(password)
	if err != nil {
		return "", err
	}
	signature, err := c.client.Sign([]byte(password), c.passphrase)
	if err != nil {
		return "", err
	}
	return ciphertext + ":" + codec.Base64Encode(signature), nil
}

func (c *protocolClient) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n%s", resp.Proto, resp.Status, out)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
