package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

const sampleCatalog = `{"products":[
  {"id": 1, "name": "Foaming Cleanser", "brand": "CeraVe", "category": "cleanser", "image": "a.png", "description": "Gentle"},
  {"id": "2", "name": "Hydrating Serum", "brand": "L'Oréal Paris", "category": "skincare", "image": "b.png", "description": "Hyaluronic"},
  {"id": 3, "name": "Night Cream", "brand": "Garnier", "category": "skincare", "image": "c.png", "description": "Rich"}
]}`

func writeCatalog(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadFromFileNormalisesIDs(t *testing.T) {
	l := NewLoader(Options{Source: writeCatalog(t, "products.json", sampleCatalog)})
	products, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := make([]ID, 0, len(products))
	for _, p := range products {
		got = append(got, p.ID)
	}
	if diff := cmp.Diff([]ID{"1", "2", "3"}, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLSource(t *testing.T) {
	body := "products:\n  - id: 7\n    name: Toner\n    brand: Thayers\n    category: toner\n"
	l := NewLoader(Options{Source: writeCatalog(t, "products.yaml", body)})
	products, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 1 || products[0].ID != "7" || products[0].Name != "Toner" {
		t.Fatalf("unexpected products %#v", products)
	}
}

func TestLoadConcurrentCallersShareOneFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(Options{Source: writeCatalog(t, "products.json", sampleCatalog)})
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := l.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if got := l.Fetches(); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
}

func TestLoadFromURLFetchesOnce(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	l := NewLoader(Options{Source: srv.URL + "/products.json", Timeout: 5 * time.Second})
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Load(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	products, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one network fetch, got %d", got)
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	l := NewLoader(Options{Source: srv.URL})
	defer l.Close()

	_, err := l.Load(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if _, ok := l.Cached(); ok {
		t.Fatalf("failed load must not populate the cache")
	}

	fail.Store(false)
	products, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products after retry, got %d", len(products))
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	for name, body := range map[string]string{
		"not json":         "<html>",
		"missing products": `{"items": []}`,
		"bad id":           `{"products":[{"id": {"x": 1}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			l := NewLoader(Options{Source: writeCatalog(t, "products.json", body)})
			if _, err := l.Load(context.Background()); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(Options{Source: filepath.Join(t.TempDir(), "absent.json")})
	_, err := l.Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}
