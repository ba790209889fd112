package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/spendwise/internal/api"
	"github.com/Veraticus/spendwise/internal/certs"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests get after an interrupt.
const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Long: `Serve transactions, rewards, settings, analytics and CSV import over HTTP.

The server runs until interrupted, then lets in-flight requests finish.
With --tls a self-signed certificate for localhost is generated on first use
and renewed shortly before it expires.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "localhost:8080", "listen address")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().String("cert-dir", "", "certificate directory (default: $HOME/.config/spendwise/certs)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("server.cert_dir", cmd.Flags().Lookup("cert-dir"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	addr := viper.GetString("server.addr")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	publisher := initPublisher()
	defer func() { _ = publisher.Close() }()

	logger := slog.Default().With("component", "api")
	srv := api.NewServer(store, publisher, logger)

	start := func() error { return srv.Start(addr) }
	if viper.GetBool("server.tls") {
		certStore := certs.NewStore(config.CertDir())
		cert, err := certStore.LoadOrCreate()
		if err != nil {
			return common.NewUserError("could not prepare a TLS certificate", err)
		}
		outln(cmd, cli.FormatInfo("Serving HTTPS with "+certStore.CertFile()))
		start = func() error { return srv.StartTLS(addr, cert) }
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "addr", addr, "database", store.Path())
		return start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
