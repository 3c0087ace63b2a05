package main

import (
	"context"
	"fmt"
	"os"

	"github.com/indiepub/indieback/authkey"
	"github.com/indiepub/indieback/config"
)

// KeygenOptions configures the keygen mode.
type KeygenOptions struct {
	KeysDir          string
	Bits             int
	Identity         string
	ServerPassphrase string
	ClientPassphrase string
}

// RunKeygen generates the requested identity key pairs. Existing key
// pairs are left untouched.
func RunKeygen(ctx context.Context, opts *KeygenOptions) error {
	dir := opts.KeysDir
	if dir == "" {
		dir = config.DefaultConfig().Keys.Dir
	}
	bits := opts.Bits
	if bits == 0 {
		bits = authkey.DefaultBits
	}

	serverPass := opts.ServerPassphrase
	if serverPass == "" {
		serverPass = os.Getenv("INDIEBACK_SERVER_PASSPHRASE")
	}
	clientPass := opts.ClientPassphrase
	if clientPass == "" {
		clientPass = os.Getenv("INDIEBACK_CLIENT_PASSPHRASE")
	}

	type job struct {
		identity   authkey.Identity
		passphrase string
	}
	var jobs []job
	switch opts.Identity {
	case "server":
		jobs = []job{{authkey.ServerIdentity, serverPass}}
	case "client":
		jobs = []job{{authkey.ClientIdentity, clientPass}}
	case "both":
		jobs = []job{
			{authkey.ServerIdentity, serverPass},
			{authkey.ClientIdentity, clientPass},
		}
	default:
		return fmt.Errorf("unknown identity %q, want server, client, or both", opts.Identity)
	}

	for _, j := range jobs {
		m := authkey.NewManager(j.identity, authkey.Config{Dir: dir, Bits: bits})
		if m.HasKeyPair() {
			fmt.Printf("%s key pair already exists at %s, skipping\n", j.identity, m.PrivateKeyPath())
			continue
		}
		if err := m.Generate(j.passphrase); err != nil {
			return fmt.Errorf("generate %s key pair: %w", j.identity, err)
		}
		sealed := ""
		if j.passphrase != "" {
			sealed = " (sealed)"
		}
		fmt.Printf("generated %d-bit %s key pair%s\n  public:  %s\n  private: %s\n",
			bits, j.identity, sealed, m.PublicKeyPath(), m.PrivateKeyPath())
	}
	return nil
}
