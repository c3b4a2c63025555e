package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/config"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	addr       string
	dev        bool
}

func (f rootFlags) load() (config.Config, error) {
	var opts []config.Option
	if f.configFile != "" {
		opts = append(opts, config.WithFile(f.configFile))
	}
	if f.addr != "" {
		opts = append(opts, config.WithOverride("server.addr", f.addr))
	}
	if f.dev {
		opts = append(opts, config.WithOverride("server.dev", true))
	}
	return config.Load(opts...)
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "routine-builder",
		Short:         "Product picker and AI routine advisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	root.PersistentFlags().BoolVar(&flags.dev, "dev", false, "reparse templates per request and disable asset caching")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Load the configured catalog and print product counts per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return printCatalog(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	})
	return root
}

func runServe(ctx context.Context, flags rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	logger, closeLog := observability.NewLogger(observability.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = closeLog() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("dev", cfg.Server.Dev),
			zap.String("selection_backend", cfg.Selection.Backend),
			zap.Bool("credential", cfg.HasCredential()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printCatalog(ctx context.Context, out io.Writer, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := catalog.NewLoader(catalog.Options{Source: cfg.Catalog.Source, Timeout: cfg.Catalog.Timeout})
	defer func() { _ = loader.Close() }()
	products, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, p := range products {
		counts[p.Category]++
	}
	cats := catalog.Categories(products)
	fmt.Fprintf(out, "%s: %d products\n", loader.Source(), len(products))
	for _, c := range cats {
		fmt.Fprintf(out, "  %-20s %d\n", c, counts[c])
	}
	return nil
}
