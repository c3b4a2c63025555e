package main

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/advisor"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/completion"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/config"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	mw "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/middleware"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/observability"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/selection"
)

// app holds the process-wide collaborators shared by every handler.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	bundle     *i18n.Bundle
	sessions   *mw.Sessions
	catalog    *catalog.Loader
	selections *selection.Registry
	convs      *advisor.Conversations
	advisor    *advisor.Advisor
	completion *completion.Client

	tmplCache *template.Template
	closers   []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{cfg: cfg, logger: logger}

	bundle, err := i18n.Load(cfg.I18n.Dir, cfg.I18n.Fallback, cfg.I18n.Supported)
	if err != nil {
		return nil, fmt.Errorf("load i18n: %w", err)
	}
	a.bundle = bundle

	if !cfg.Server.Dev {
		tc, err := a.parseTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		a.tmplCache = tc
	}

	a.sessions = mw.NewSessions(mw.SessionOptions{
		CookieName: cfg.Session.CookieName,
		HashKey:    []byte(cfg.Session.HashKey),
		BlockKey:   []byte(cfg.Session.BlockKey),
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	})
	if a.sessions.Ephemeral() {
		logger.Warn("session: using ephemeral signing key; set ROUTINE_SESSION_HASH_KEY so sessions survive restarts")
	}

	storage, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.selections = selection.NewRegistry(storage, selection.RegistryOptions{
		KeyPrefix: cfg.Selection.KeyPrefix,
		IdleTTL:   cfg.Selection.IdleTTL,
		Logger:    logger,
	})

	a.catalog = catalog.NewLoader(catalog.Options{
		Source:  cfg.Catalog.Source,
		Timeout: cfg.Catalog.Timeout,
		Logger:  logger,
	})
	a.closers = append(a.closers, a.catalog.Close)

	a.completion = completion.NewClient(completion.Config{
		Endpoint:  cfg.Completion.Endpoint,
		APIKey:    cfg.Completion.APIKey,
		Model:     cfg.Completion.Model,
		MaxTokens: cfg.Completion.MaxTokens,
		Timeout:   cfg.Completion.Timeout,
	})
	a.closers = append(a.closers, a.completion.Close)
	if !a.completion.HasCredential() {
		logger.Warn("completion: no API key configured; chat and routine requests will show the credential error")
	}
	a.advisor = advisor.New(a.completion, logger)
	a.convs = advisor.NewConversations(cfg.Selection.IdleTTL, advisor.ChatInstruction)
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (selection.Storage, error) {
	switch a.cfg.Selection.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", a.cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		return selection.NewRedisStorage(client, selection.RedisOptions{
			KeyPrefix: a.cfg.Redis.KeyPrefix,
			TTL:       a.cfg.Redis.TTL,
			MaxBytes:  a.cfg.Selection.MaxBytes,
		}), nil
	case "sqlite":
		st, err := selection.OpenSQLiteStorage(ctx, a.cfg.SQLite.Path, a.cfg.Selection.MaxBytes)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	default:
		return selection.NewExpiringMemoryStorage(a.cfg.Selection.MaxBytes, a.cfg.Selection.SnapshotTTL), nil
	}
}

// Close releases backend connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(a.logger))
	r.Use(observability.RequestLoggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/assets/*", mw.AssetsWithCache(filepath.Join(a.cfg.Server.PublicDir, "assets"), "/assets", a.cfg.Server.Dev))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF(a.sessions.Secure()))
		r.Use(mw.VaryLocale)

		r.Get("/", a.HomeHandler)
		r.Get("/products", a.ProductsFrag)
		r.Get("/selection", a.SelectionFrag)
		r.Post("/selection/toggle", a.SelectionToggleHandler)
		r.Post("/selection/remove", a.SelectionRemoveHandler)
		r.Post("/selection/clear", a.SelectionClearHandler)
		r.Post("/chat", a.ChatHandler)
		r.Post("/routine", a.RoutineHandler)
	})
	return r
}

// t translates key for lang.
func (a *app) t(lang, key string) string { return a.bundle.T(lang, key) }

// loadCatalog returns the catalog, or nil and the error when it cannot be loaded.
func (a *app) loadCatalog(r *http.Request) ([]catalog.Product, error) {
	products, err := a.catalog.Load(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Warn("catalog unavailable", zap.Error(err))
		return nil, err
	}
	return products, nil
}

// store returns the current visitor's selection.
func (a *app) store(r *http.Request) *selection.Store {
	return a.selections.Store(r.Context(), mw.GetSession(r).ID)
}
