package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"skykeen/internal/adapters/backend"
	emailPkg "skykeen/internal/adapters/email"
	web "skykeen/internal/adapters/http"
	"skykeen/internal/adapters/http/perf"
	"skykeen/internal/adapters/storage"
	auditStore "skykeen/internal/adapters/storage/audit"
	"skykeen/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(ctx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, storage.DefaultSlowQuery)

	api := backend.NewClient(cfg.APIBaseURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithCollector(collector),
	)

	var mailer emailPkg.Sender
	if cfg.ResendKey != "" {
		mailer = emailPkg.NewResendSender(cfg.ResendKey, cfg.MailFrom)
		slog.Info("email_sender", "provider", "resend")
	} else {
		mailer = emailPkg.NewNoopSender()
		if cfg.Production() {
			slog.Warn("email_sender", "provider", "noop", "reason", "SKYKEEN_RESEND_KEY is not set")
		} else {
			slog.Info("email_sender", "provider", "noop")
		}
	}

	deps := web.Deps{
		Backend:   api,
		Audit:     auditStore.NewSQLiteStore(timedDB),
		Mailer:    mailer,
		MailFrom:  cfg.MailFrom,
		ReplyTo:   cfg.ReplyTo,
		Collector: collector,
	}
	opts := web.Options{
		CSRFKey:        cfg.CSRFKey,
		SessionKey:     cfg.SessionKey,
		Secure:         cfg.Production(),
		TrustedOrigins: cfg.TrustedOrigins,
		SlowRequest:    time.Duration(cfg.SlowRequestMS) * time.Millisecond,
		ImageOrigins:   []string{apiOrigin(cfg.APIBaseURL)},
	}

	site := web.NewSiteMux(deps, opts)
	defer site.Close()
	admin := web.NewAdminMux(deps, opts)
	defer admin.Close()

	servers := []*http.Server{
		newServer(cfg.SiteAddr, site),
		newServer(cfg.AdminAddr, admin),
	}

	slog.Info("server_starting",
		"version", version,
		"env", cfg.Env,
		"site_addr", cfg.SiteAddr,
		"admin_addr", cfg.AdminAddr,
		"api", cfg.APIBaseURL,
		"schema", storage.LatestSchemaVersion(),
	)

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("server_stopping")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown_failed", "addr", srv.Addr, "error", err)
		}
	}
	return runErr
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

// apiOrigin returns scheme://host of the backend, where uploaded media is served.
func apiOrigin(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
