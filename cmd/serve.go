package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledef/internal/api"
	"github.com/JonMunkholm/tabledef/internal/config"
	"github.com/JonMunkholm/tabledef/internal/definitions"
	"github.com/JonMunkholm/tabledef/internal/store"
)

func newServeCmd(webFS fs.FS) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the definitions API and shorthand form",
		Long: `Start the HTTP server.

Configuration is read from the environment and an optional .env file:
- STORE_DRIVER      postgres (default) or sqlite
- DATABASE_URL      required for postgres
- SQLITE_PATH       database file for sqlite (default mtable.db)
- PORT              listen port (default 2022)
- RATE_LIMIT        requests per minute per client (default 100)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg, webFS)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, webFS fs.FS) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	handler, err := api.NewHandler(definitions.NewService(backend), webFS, cfg)
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        mux,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	color.Green("tabledef running at http://localhost:%s", cfg.Port)
	return runServer(ctx, server, ln, cfg.ShutdownTimeout, handler.Stop)
}

// runServer serves on ln until ctx is done or SIGINT/SIGTERM arrives. It
// returns only after Shutdown has drained in-flight requests and onShutdown
// has run.
func runServer(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration, onShutdown func()) error {
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		log.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		onShutdown()
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done
	return nil
}
