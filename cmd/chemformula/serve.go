package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/martinemde/chemformula/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formula parser over HTTP",
		Long:  "Start an HTTP server with POST /formulas, GET /formulas and GET /formulas/{id}.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	_ = v.BindPFlag("addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	ln, err := net.Listen("tcp", v.GetString("addr"))
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	return serve(cmd.Context(), ln, v, cmd.ErrOrStderr())
}

// serve runs the HTTP API on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, v *viper.Viper, stderr io.Writer) error {
	srv := &http.Server{
		Handler:           server.NewFormulaServer(nil).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	verbosef(v, stderr, "[serve] listening on %s\n", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	verbosef(v, stderr, "[serve] stopped\n")
	return nil
}
