package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
	"resty.dev/v3"
)

const (
	defaultSource  = "data/products.json"
	defaultTimeout = 10 * time.Second
	flightKey      = "catalog"
)

var tracer = otel.Tracer("routine-builder/internal/catalog")

// ErrEmptySource is returned when the loader has no source configured.
var ErrEmptySource = errors.New("catalog: empty source")

// LoadError reports a failed catalog fetch or parse.
type LoadError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog: load %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }

// document is the on-disk/remote catalog shape.
type document struct {
	Products []Product `json:"products" yaml:"products"`
}

// Options configures a Loader.
type Options struct {
	// Source is a local file path or an http(s) URL. Files ending in .yaml/.yml are parsed as YAML.
	Source  string
	Timeout time.Duration
	Logger  *zap.Logger
	// Client overrides the resty client used for URL sources.
	Client *resty.Client
}

// Loader fetches the product catalog once and memoizes it for the process lifetime.
// Concurrent callers during the in-flight fetch share its result.
type Loader struct {
	source string
	client *resty.Client
	logger *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	products []Product
	loaded   bool

	fetches atomic.Int64
}

// NewLoader constructs a Loader.
func NewLoader(opts Options) *Loader {
	source := strings.TrimSpace(opts.Source)
	if source == "" {
		source = defaultSource
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := opts.Client
	if client == nil && isURL(source) {
		client = resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")
	}
	return &Loader{
		source: source,
		client: client,
		logger: logger.With(zap.String("component", "catalog")),
	}
}

// Source returns the configured catalog source.
func (l *Loader) Source() string { return l.source }

// Fetches reports how many fetches the loader has performed.
func (l *Loader) Fetches() int64 { return l.fetches.Load() }

// Close releases the HTTP client used for URL sources.
func (l *Loader) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// Cached returns the memoized catalog without triggering a fetch.
func (l *Loader) Cached() ([]Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return nil, false
	}
	return l.products, true
}

// Load returns the cached catalog, fetching it at most once concurrently.
// Failures are not cached; the caller decides whether a later action retries.
// The returned slice is shared and must not be modified.
func (l *Loader) Load(ctx context.Context) ([]Product, error) {
	if products, ok := l.Cached(); ok {
		return products, nil
	}
	ch := l.group.DoChan(flightKey, func() (any, error) {
		if products, ok := l.Cached(); ok {
			return products, nil
		}
		// the shared fetch must not be cut short by whichever caller started it
		products, err := l.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.products = products
		l.loaded = true
		l.mu.Unlock()
		return products, nil
	})
	select {
	case <-ctx.Done():
		return nil, &LoadError{Source: l.source, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Product), nil
	}
}

func (l *Loader) fetch(ctx context.Context) ([]Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.source", l.source))

	l.fetches.Add(1)
	start := time.Now()
	raw, err := l.read(ctx)
	if err == nil {
		var products []Product
		products, err = decode(l.source, raw)
		if err == nil {
			span.SetAttributes(attribute.Int("catalog.products", len(products)))
			l.logger.Info("catalog loaded",
				zap.String("source", l.source),
				zap.Int("products", len(products)),
				zap.Duration("latency", time.Since(start)),
			)
			return products, nil
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "catalog load failed")
	l.logger.Warn("catalog load failed", zap.String("source", l.source), zap.Error(err))
	return nil, &LoadError{Source: l.source, Err: err}
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if l.source == "" {
		return nil, ErrEmptySource
	}
	if !isURL(l.source) {
		return os.ReadFile(l.source)
	}
	resp, err := l.client.R().
		SetContext(ctx).
		Get(l.source)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode())
	}
	return resp.Bytes(), nil
}

func decode(source string, raw []byte) ([]Product, error) {
	var doc document
	switch strings.ToLower(filepath.Ext(trimQuery(source))) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if doc.Products == nil {
		return nil, errors.New("parse: missing products field")
	}
	return doc.Products, nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func trimQuery(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		return source[:i]
	}
	return source
}
