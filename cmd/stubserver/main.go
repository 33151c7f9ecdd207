// Command stubserver runs the admin REST API over a local database so the
// console and the examples have something to talk to.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-listsync/catalog"
	"github.com/goliatone/go-listsync/internal/stubapi"
	"github.com/goliatone/go-listsync/internal/stubstore"
)

const devSecret = "listsync-dev-secret-change-me"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "stubserver",
		Short:        "Serve the listing REST API over sqlite or postgres",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			driver, _ := cmd.Flags().GetString("driver")
			dsn, _ := cmd.Flags().GetString("dsn")
			seed, _ := cmd.Flags().GetString("seed")
			secret, _ := cmd.Flags().GetString("secret")
			noAuth, _ := cmd.Flags().GetBool("no-auth")

			logger := log.New(stderr, "stubserver ", log.LstdFlags)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, logger, serveOptions{
				addr:   addr,
				driver: driver,
				dsn:    dsn,
				seed:   seed,
				secret: secret,
				noAuth: noAuth,
			})
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("driver", stubstore.DriverSQLite, "Database driver (sqlite or postgres)")
	cmd.Flags().String("dsn", stubstore.MemoryDSN, "Database DSN")
	cmd.Flags().String("seed", "", "YAML seed file; the bundled catalog is used when empty")
	cmd.PersistentFlags().String("secret", devSecret, "HS256 secret for bearer tokens")
	cmd.Flags().Bool("no-auth", false, "Serve without bearer token checks")

	cmd.AddCommand(newTokenCmd(stdout))
	return cmd
}

func newTokenCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the stub server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			auth, err := stubapi.NewAuthenticator(secret, nil)
			if err != nil {
				return err
			}
			token, err := auth.Mint(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, token)
			return err
		},
	}
	cmd.Flags().String("subject", "admin", "Token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

type serveOptions struct {
	addr   string
	driver string
	dsn    string
	seed   string
	secret string
	noAuth bool
}

func serve(ctx context.Context, logger *log.Logger, opts serveOptions) error {
	handler, cleanup, err := buildHandler(ctx, logger, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (driver=%s)", opts.addr, opts.driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Printf("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func buildHandler(ctx context.Context, logger *log.Logger, opts serveOptions) (http.Handler, func(), error) {
	store, err := stubstore.Open(opts.driver, opts.dsn)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Printf("close store: %v", err)
		}
	}
	if err := store.Init(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	if err := seedIfEmpty(ctx, logger, store, opts.seed); err != nil {
		cleanup()
		return nil, nil, err
	}

	serverOpts := []stubapi.Option{stubapi.WithLogger(logger)}
	if !opts.noAuth {
		auth, err := stubapi.NewAuthenticator(opts.secret, nil)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		serverOpts = append(serverOpts, stubapi.WithAuthenticator(auth))
	}

	return stubapi.NewServer(store, serverOpts...).Handler(), cleanup, nil
}

// seedIfEmpty loads the seed into a database that holds no records yet.
func seedIfEmpty(ctx context.Context, logger *log.Logger, store *stubstore.Store, path string) error {
	for _, resource := range catalog.Resources() {
		n, err := store.Count(ctx, resource)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Printf("database already holds %s, skipping seed", resource)
			return nil
		}
	}

	seed, err := loadSeed(path)
	if err != nil {
		return err
	}
	return store.Apply(ctx, seed)
}

func loadSeed(path string) (stubstore.Seed, error) {
	if path == "" {
		return stubstore.DefaultSeed()
	}
	return stubstore.LoadSeed(path)
}
