package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/indiepub/indieback/authhttp"
	"github.com/indiepub/indieback/authkey"
	"github.com/indiepub/indieback/authproto"
	"github.com/indiepub/indieback/authstore"
	"github.com/indiepub/indieback/config"
)

// ServeOptions configures the serve mode. Flag values override the
// config file.
type ServeOptions struct {
	ConfigPath string
	ListenAddr string
	StorePath  string
	KeysDir    string
}

// RunServe starts the authentication server and blocks until ctx is
// canceled.
func RunServe(ctx context.Context, opts *ServeOptions) error {
	cfg := config.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(opts.ConfigPath)
		if err != nil {
			return err
		}
	}
	if opts.ListenAddr != "" {
		cfg.Listen.Addr = opts.ListenAddr
	}
	if opts.StorePath != "" {
		cfg.Store.Path = opts.StorePath
	}
	if opts.KeysDir != "" {
		cfg.Keys.Dir = opts.KeysDir
	}
	if v := os.Getenv("INDIEBACK_SERVER_PASSPHRASE"); v != "" {
		cfg.Keys.ServerPassphrase = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	server := authkey.NewManager(authkey.ServerIdentity, authkey.Config{Dir: cfg.Keys.Dir, Bits: cfg.Keys.Bits})
	client := authkey.NewManager(authkey.ClientIdentity, authkey.Config{Dir: cfg.Keys.Dir, Bits: cfg.Keys.Bits})
	if !server.HasKeyPair() || !client.HasKeyPair() {
		return fmt.Errorf("identity keys not found in %s, run 'indieback keygen' first", cfg.Keys.Dir)
	}

	db, err := authstore.Open(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	svc := &authproto.Service{
		Server:           server,
		Client:           client,
		Users:            db.Users(),
		Creds:            db.Credentials(),
		ServerPassphrase: cfg.Keys.ServerPassphrase,
		Log:              logger,
	}
	auth := &authproto.TokenAuthenticator{
		Creds: db.Credentials(),
		Users: db.Users(),
		Log:   logger,
	}
	api := &authhttp.Server{
		Proto:   svc,
		Auth:    auth,
		Metrics: authhttp.NewMetrics(reg),
		Log:     logger,
	}

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Listen.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Listen.Addr, "store", cfg.Store.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
