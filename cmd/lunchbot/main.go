package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"lunchbot/internal/bot"
	"lunchbot/internal/config"
	"lunchbot/internal/irc"
	"lunchbot/internal/state"
	"lunchbot/internal/storage"
	filestore "lunchbot/internal/storage/file"
	"lunchbot/internal/storage/sqlite"
	"lunchbot/pkg/logging"
)

func main() {
	logging.Setup()
	slog.Info("starting up")

	cfg, err := config.Parse()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("lunchbot exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	b := &bot.Bot{
		Engine:         state.NewEngine(cfg.Channel),
		Store:          store,
		ExpiryInterval: cfg.ExpiryInterval,
		BackupInterval: cfg.BackupInterval,
	}

	if err := b.Recover(ctx); err != nil {
		// A bad backup should not keep the bot from starting fresh.
		slog.Error("failed to recover state", "error", err)
	}

	go serveMetrics(cfg.MetricsAddr)

	conn, err := irc.Dial(cfg.Addr(), cfg.Nick, cfg.Channel)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Addr(), err)
	}
	b.Conn = conn
	slog.Info("connected", "server", cfg.Addr(), "channel", cfg.Channel, "nick", cfg.Nick)

	runErr := b.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.Shutdown(shutdownCtx)

	return runErr
}

// openStore picks the snapshot backend from the configuration: SQLite wins
// over the flat file; neither configured means backups are disabled.
func openStore(cfg config.Config) (storage.Store, error) {
	switch {
	case cfg.BackupDB != "":
		store, err := sqlite.New(cfg.BackupDB)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		slog.Info("storage initialized", "database", cfg.BackupDB)
		return store, nil
	case cfg.BackupFile != "":
		store, err := filestore.New(cfg.BackupFile)
		if err != nil {
			return nil, fmt.Errorf("open backup file: %w", err)
		}
		slog.Info("storage initialized", "file", cfg.BackupFile)
		return store, nil
	}
	return nil, nil
}

// serveMetrics exposes /metrics and /healthz for operators.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// h2c allows HTTP/2 scrapes without TLS.
	handler := h2c.NewHandler(mux, &http2.Server{})

	slog.Info("metrics server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("metrics server failed", "error", err)
	}
}
