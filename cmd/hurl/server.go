package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foobargirl/hurl/internal/hurls"
	"github.com/foobargirl/hurl/internal/kv"
	"github.com/foobargirl/hurl/internal/logging"
	"github.com/foobargirl/hurl/internal/probe"
	"github.com/foobargirl/hurl/internal/server"
	"github.com/foobargirl/hurl/internal/session"
	"github.com/foobargirl/hurl/internal/user"
	"github.com/spf13/cobra"
)

var serverFlags struct {
	port         int
	dbPath       string
	probeTimeout int
	tlsCert      string
	tlsKey       string
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the hurl API server",
	Long: `Start the hurl JSON API server.

Saved hurls, accounts, and sessions all live in one sqlite-backed
key-value store at --db. Pass --tls-cert and --tls-key to serve TLS;
otherwise the listener is plain HTTP.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVar(&serverFlags.port, "port", getEnvInt("HURL_PORT", 8080), "port to listen on")
	serverCmd.Flags().StringVar(&serverFlags.dbPath, "db", getEnv("HURL_DB", "hurl.db"), "database path")
	serverCmd.Flags().IntVar(&serverFlags.probeTimeout, "probe-timeout", getEnvInt("HURL_PROBE_TIMEOUT", 30), "outbound probe timeout in seconds")
	serverCmd.Flags().StringVar(&serverFlags.tlsCert, "tls-cert", "", "path to TLS certificate file")
	serverCmd.Flags().StringVar(&serverFlags.tlsKey, "tls-key", "", "path to TLS key file")
}

func runServer(cmd *cobra.Command, args []string) error {
	store, err := kv.Open(serverFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	srv := &server.Server{
		Executor: &probe.Executor{
			Timeout: time.Duration(serverFlags.probeTimeout) * time.Second,
			Logger:  logger.Named("probe"),
		},
		Hurls:    &hurls.Store{KV: store, Logger: logger.Named("hurls")},
		Users:    &user.Store{KV: store},
		Sessions: &session.Manager{KV: store},
		Logger:   logger.Named("http"),
	}

	cfg := server.DefaultConfig(fmt.Sprintf(":%d", serverFlags.port), srv.Handler(), logger.Named("http"))

	if serverFlags.tlsCert != "" && serverFlags.tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(serverFlags.tlsCert, serverFlags.tlsKey)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		cfg.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	managed := server.NewManaged("api", cfg)
	managed.Start()
	if err := managed.WaitForStartup(500 * time.Millisecond); err != nil {
		return err
	}
	logger.Info("server started", logging.Component("api"), logging.Addr(cfg.Addr), logging.Port(serverFlags.port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	managed.Shutdown(ctx)

	return nil
}
