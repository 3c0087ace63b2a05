package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	args := os.Args[2:]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var err error
	switch mode {
	case "serve":
		err = runServeMode(ctx, args)
	case "keygen":
		err = runKeygenMode(ctx, args)
	case "signup":
		err = runSignupMode(ctx, args)
	case "login":
		err = runLoginMode(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: indieback <mode> [options]

Modes:
  serve     Start the authentication server
  keygen    Generate the server and client RSA identity key pairs
  signup    Register a user against a running server
  login     Sign in against a running server

Run 'indieback <mode> -h' for mode-specific options.
`)
}

func runServeMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	opts := &ServeOptions{}
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file (optional)")
	fs.StringVar(&opts.ListenAddr, "listen", "", "Address to listen on (overrides config)")
	fs.StringVar(&opts.StorePath, "store", "", "Path to the bolt database (overrides config)")
	fs.StringVar(&opts.KeysDir, "keys", "", "Directory holding the identity key pairs (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return RunServe(ctx, opts)
}

func runKeygenMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	opts := &KeygenOptions{}
	fs.StringVar(&opts.KeysDir, "keys", "", "Directory to write the key pairs to")
	fs.IntVar(&opts.Bits, "bits", 0, "RSA key size in bits (default 2048)")
	fs.StringVar(&opts.Identity, "identity", "both", "Identity to generate: server, client, or both")
	fs.StringVar(&opts.ServerPassphrase, "server-passphrase", "", "Passphrase sealing the server private key (or INDIEBACK_SERVER_PASSPHRASE)")
	fs.StringVar(&opts.ClientPassphrase, "client-passphrase", "", "Passphrase sealing the client private key (or INDIEBACK_CLIENT_PASSPHRASE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return RunKeygen(ctx, opts)
}

func runSignupMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	opts := &ClientOptions{}
	fs.StringVar(&opts.ServerURL, "server", "http://127.0.0.1:8080", "Server base URL")
	fs.StringVar(&opts.KeysDir, "keys", "", "Directory holding the identity key pairs")
	fs.StringVar(&opts.Email, "email", "", "Email address")
	fs.StringVar(&opts.Password, "password", "", "Password")
	fs.StringVar(&opts.Role, "role", "fan", "Account role")
	fs.StringVar(&opts.ClientPassphrase, "client-passphrase", "", "Passphrase unsealing the client private key (or INDIEBACK_CLIENT_PASSPHRASE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return RunSignup(ctx, opts)
}

func runLoginMode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	opts := &ClientOptions{}
	fs.StringVar(&opts.ServerURL, "server", "http://127.0.0.1:8080", "Server base URL")
	fs.StringVar(&opts.KeysDir, "keys", "", "Directory holding the identity key pairs")
	fs.StringVar(&opts.Email, "email", "", "Email address")
	fs.StringVar(&opts.Password, "password", "", "Password")
	fs.StringVar(&opts.ClientPassphrase, "client-passphrase", "", "Passphrase unsealing the client private key (or INDIEBACK_CLIENT_PASSPHRASE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return RunLogin(ctx, opts)
}
