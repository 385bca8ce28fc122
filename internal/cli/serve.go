package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/router"
	"github.com/crave-grocer/api/internal/service"
	"github.com/crave-grocer/api/internal/session"
	"github.com/crave-grocer/api/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Load the catalog, open the configured ledger backend and serve the
session, customer, recipe and admin endpoints until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	log.Printf("INFO: loaded %d products from %s", idx.Len(), cfg.CatalogPath)

	store, err := ledger.Open(ctx, ledger.Options{
		Backend:     cfg.Ledger.Backend,
		Path:        cfg.Ledger.Path,
		DatabaseURL: cfg.Ledger.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	log.Printf("INFO: ledger backend %q ready", cfg.Ledger.Backend)

	hub := ws.NewHub()
	go hub.Run(ctx)

	sessions := session.NewManager(cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	r := router.New(cfg, router.Deps{
		Sessions: sessions,
		Catalog:  service.NewCatalogService(idx),
		Orders:   service.NewOrderService(idx, store, hub),
		Ledger:   store,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("Server exited gracefully")
	return nil
}
