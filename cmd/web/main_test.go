package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/config"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/testutil"
)

const testCatalog = `{"products": [
  {"id": 2, "name": "Cleanser", "brand": "CeraVe", "category": "cleanser", "image": "https://example.com/c.jpg", "description": "Gentle foaming wash."},
  {"id": "5", "name": "Serum", "brand": "L'Oreal Paris", "category": "moisturizer", "image": "https://example.com/s.jpg", "description": "Hyaluronic serum."},
  {"id": 7, "name": "<script>alert(1)</script>", "brand": "<b>Evil</b>", "category": "makeup", "image": "javascript:alert(1)", "description": "\" onmouseover=\"alert(1)"}
]}`

// completionStub counts calls to the completion endpoint and answers with reply.
type completionStub struct {
	calls atomic.Int32
	mu    sync.Mutex
	reply string
	last  []byte
}

func (s *completionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.last = body
	reply := s.reply
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
	})
}

func (s *completionStub) setReply(reply string) {
	s.mu.Lock()
	s.reply = reply
	s.mu.Unlock()
}

func (s *completionStub) lastBody() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.last)
}

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	stub   *completionStub
	csrf   string
}

type envOptions struct {
	apiKey        string
	catalogSource string
}

func testConfig(t *testing.T, opts envOptions, endpoint string) config.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	source := opts.catalogSource
	if source == "" {
		source = filepath.Join(t.TempDir(), "products.json")
		require.NoError(t, os.WriteFile(source, []byte(testCatalog), 0o600))
	}
	cfg, err := config.Load(
		config.WithOverride("server.templates_dir", "../../templates"),
		config.WithOverride("server.public_dir", "../../public"),
		config.WithOverride("i18n.dir", "../../locales"),
		config.WithOverride("catalog.source", source),
		config.WithOverride("completion.endpoint", endpoint),
		config.WithOverride("completion.api_key", opts.apiKey),
		config.WithOverride("log.level", "error"),
	)
	require.NoError(t, err)
	return cfg
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	stub := &completionStub{reply: "Hello there"}
	upstream := httptest.NewServer(stub)
	t.Cleanup(upstream.Close)

	cfg := testConfig(t, opts, upstream.URL)
	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env := &testEnv{t: t, srv: srv, client: &http.Client{Jar: jar}, stub: stub}

	doc := env.getDoc("/")
	token := testutil.Attr(t, doc.Find(`meta[name="csrf-token"]`), "content")
	require.NotEmpty(t, token)
	env.csrf = token
	return env
}

func (e *testEnv) get(path string) (int, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(e.t, err)
	return e.do(req)
}

func (e *testEnv) getDoc(path string) *goquery.Document {
	e.t.Helper()
	code, body := e.get(path)
	require.Equal(e.t, http.StatusOK, code, body)
	return testutil.ParseHTML(e.t, body)
}

func (e *testEnv) post(path string, form url.Values) (int, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if e.csrf != "" {
		req.Header.Set("X-CSRF-Token", e.csrf)
	}
	return e.do(req)
}

func (e *testEnv) do(req *http.Request) (int, string) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, string(body)
}

func TestHomeShowsPlaceholdersWhenNothingSelected(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	doc := env.getDoc("/")

	assert.Equal(t, "No products selected", strings.TrimSpace(doc.Find("#selectedProductsList .placeholder-message").Text()))
	assert.Zero(t, doc.Find("#clearSelectedBtn").Length())
	assert.Equal(t, "Select a category to view products", strings.TrimSpace(doc.Find("#productsContainer .placeholder-message").Text()))
	assert.Equal(t, "Hello! How can I help you today?", strings.TrimSpace(doc.Find("#chatWindow .greeting").Text()))
	assert.Equal(t, []string{"Cleansers", "Makeup", "Moisturizers & Treatments"}, testutil.Texts(doc.Find("#categoryFilter option[value!='']")))
}

func TestProductsFragmentFiltersByCategory(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.get("/products?category=cleanser")
	require.Equal(t, http.StatusOK, code)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, []string{"Cleanser"}, testutil.Texts(doc.Find(".product-card h3")))
	assert.Equal(t, "2", testutil.Attr(t, doc.Find(".product-card"), "data-id"))

	_, body = env.get("/products?category=fragrance")
	assert.Contains(t, body, "No products in this category.")
}

func TestToggleUpdatesGridAndSummary(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.post("/selection/toggle", url.Values{"id": {"2"}, "category": {"cleanser"}})
	require.Equal(t, http.StatusOK, code, body)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, 1, doc.Find(".product-card.is-selected").Length())
	oob := doc.Find(`#selectedProductsList[hx-swap-oob="true"]`)
	require.Equal(t, 1, oob.Length())
	assert.Equal(t, []string{"Cleanser"}, testutil.Texts(oob.Find(".selected-name")))
	assert.Equal(t, 1, oob.Find("#clearSelectedBtn").Length())

	// a second toggle deselects
	_, body = env.post("/selection/toggle", url.Values{"id": {"2"}, "category": {"cleanser"}})
	doc = testutil.ParseHTML(t, body)
	assert.Zero(t, doc.Find(".product-card.is-selected").Length())
	assert.Contains(t, doc.Find("#selectedProductsList").Text(), "No products selected")
}

func TestSummaryKeepsSelectionOrder(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	env.post("/selection/toggle", url.Values{"id": {"2"}, "category": {"cleanser"}})
	env.post("/selection/toggle", url.Values{"id": {"5"}, "category": {"moisturizer"}})

	code, body := env.get("/selection")
	require.Equal(t, http.StatusOK, code)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, []string{"Cleanser", "Serum"}, testutil.Texts(doc.Find(".selected-item .selected-name")))

	// selection survives a full page load
	page := env.getDoc("/?category=moisturizer")
	assert.Equal(t, []string{"Cleanser", "Serum"}, testutil.Texts(page.Find("#selectedProductsList .selected-name")))
	assert.Equal(t, 1, page.Find("#productsContainer .product-card.is-selected").Length())
}

func TestRemoveAndClearAll(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.post("/selection/toggle", url.Values{"id": {"2"}, "category": {"cleanser"}})
	env.post("/selection/toggle", url.Values{"id": {"5"}, "category": {"moisturizer"}})

	_, body := env.post("/selection/remove", url.Values{"id": {"5"}})
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, []string{"Cleanser"}, testutil.Texts(doc.Find(".selected-name")))
	assert.Zero(t, doc.Find(`[hx-swap-oob]`).Length())

	code, body := env.post("/selection/clear", url.Values{"category": {"cleanser"}})
	require.Equal(t, http.StatusOK, code)
	doc = testutil.ParseHTML(t, body)
	assert.Contains(t, doc.Text(), "No products selected")
	assert.Zero(t, doc.Find("#clearSelectedBtn").Length())
	grid := doc.Find(`#productsContainer[hx-swap-oob="true"]`)
	require.Equal(t, 1, grid.Length())
	assert.Equal(t, 1, grid.Find(".product-card").Length())
	assert.Zero(t, grid.Find(".is-selected").Length())
}

func TestToggleRequiresID(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	code, _ := env.post("/selection/toggle", url.Values{"category": {"cleanser"}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCatalogTextIsEscaped(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, body := env.post("/selection/toggle", url.Values{"id": {"7"}, "category": {"makeup"}})

	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			tok := z.Token()
			assert.NotEqual(t, "script", tok.Data)
			assert.NotEqual(t, "b", tok.Data)
			for _, attr := range tok.Attr {
				assert.NotEqual(t, "onmouseover", attr.Key)
				if attr.Key == "src" {
					assert.False(t, strings.HasPrefix(attr.Val, "javascript:"), attr.Val)
				}
			}
		}
	}
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, "<script>alert(1)</script>", strings.TrimSpace(doc.Find(".product-card h3").Text()))
	assert.Equal(t, "<script>alert(1)</script>", strings.TrimSpace(doc.Find(".selected-name").Text()))
}

func TestRoutineWithoutSelectionSendsNothing(t *testing.T) {
	env := newTestEnv(t, envOptions{apiKey: "sk-test"})

	code, body := env.post("/routine", nil)
	require.Equal(t, http.StatusOK, code)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, "Please select at least one product to generate a routine.", strings.TrimSpace(doc.Find(".chat-notice").Text()))
	assert.Zero(t, env.stub.calls.Load())
}

func TestRoutineRendersMarkdownReply(t *testing.T) {
	env := newTestEnv(t, envOptions{apiKey: "sk-test"})
	env.stub.setReply("**Morning**\n\n1. Cleanser\n2. Serum")
	env.post("/selection/toggle", url.Values{"id": {"5"}, "category": {"moisturizer"}})
	env.post("/selection/toggle", url.Values{"id": {"2"}, "category": {"cleanser"}})

	code, body := env.post("/routine", nil)
	require.Equal(t, http.StatusOK, code)
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, "Morning", doc.Find(".routine strong").Text())
	assert.Equal(t, 2, doc.Find(".routine ol li").Length())
	assert.EqualValues(t, 1, env.stub.calls.Load())

	sent := env.stub.lastBody()
	assert.Contains(t, sent, "1. Serum (L'Oreal Paris)")
	assert.Contains(t, sent, "2. Cleanser (CeraVe)")
}

func TestChatWithoutCredential(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code, body := env.post("/chat", url.Values{"message": {"Which cleanser suits dry skin?"}})
	require.Equal(t, http.StatusOK, code)
	doc := testutil.ParseHTML(t, body)
	notice := doc.Find(".chat-notice.error")
	require.Equal(t, 1, notice.Length())
	assert.Contains(t, notice.Text(), "API key is missing")
	assert.Zero(t, env.stub.calls.Load())
}

func TestChatKeepsTranscript(t *testing.T) {
	env := newTestEnv(t, envOptions{apiKey: "sk-test"})
	env.stub.setReply("Try a *gentle* cleanser.")

	_, body := env.post("/chat", url.Values{"message": {"Which cleanser?"}})
	doc := testutil.ParseHTML(t, body)
	assert.Equal(t, 2, doc.Find(".chat-message").Length())
	assert.Equal(t, "gentle", doc.Find(".chat-message.assistant em").Text())

	env.stub.setReply("Twice a day.")
	_, body = env.post("/chat", url.Values{"message": {"How often?"}})
	doc = testutil.ParseHTML(t, body)
	assert.Equal(t, 4, doc.Find(".chat-message").Length())
	assert.EqualValues(t, 2, env.stub.calls.Load())
	assert.Contains(t, env.stub.lastBody(), "Which cleanser?")

	_, body = env.post("/chat", url.Values{"message": {"   "}})
	assert.Contains(t, testutil.ParseHTML(t, body).Find(".chat-notice").Text(), "Please type a question first.")
	assert.EqualValues(t, 2, env.stub.calls.Load())
}

func TestLanguageSwitchSetsDirection(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	doc := env.getDoc("/?hl=ar")
	dir, _ := doc.Find("html").Attr("dir")
	lang, _ := doc.Find("html").Attr("lang")
	assert.Equal(t, "rtl", dir)
	assert.Equal(t, "ar", lang)
	assert.True(t, doc.Find("body").HasClass("rtl"))

	// the choice sticks to the session
	doc = env.getDoc("/")
	dir, _ = doc.Find("html").Attr("dir")
	assert.Equal(t, "rtl", dir)

	doc = env.getDoc("/?hl=xx")
	lang, _ = doc.Find("html").Attr("lang")
	assert.Equal(t, "ar", lang)

	doc = env.getDoc("/?hl=en")
	dir, _ = doc.Find("html").Attr("dir")
	assert.Equal(t, "ltr", dir)
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.csrf = ""
	code, _ := env.post("/selection/toggle", url.Values{"id": {"2"}})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCatalogFailureShowsError(t *testing.T) {
	env := newTestEnv(t, envOptions{catalogSource: filepath.Join(t.TempDir(), "missing.json")})

	code, body := env.get("/products?category=cleanser")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, testutil.ParseHTML(t, body).Find(".error-message").Text(), "Unable to load products")

	_, body = env.get("/selection")
	assert.Contains(t, body, "No products selected")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	code, body := env.get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestPrintCatalog(t *testing.T) {
	cfg := testConfig(t, envOptions{}, "http://127.0.0.1:1")
	var out bytes.Buffer
	require.NoError(t, printCatalog(context.Background(), &out, cfg))
	s := out.String()
	assert.Contains(t, s, "3 products")
	assert.Contains(t, s, "cleanser")
	assert.Contains(t, s, "moisturizer")
}

func TestAdvisorTriggersCarryFailureText(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	doc := env.getDoc("/?hl=fr")
	want := "Une erreur s'est produite. Veuillez recharger la page et réessayer."
	assert.Equal(t, want, testutil.Attr(t, doc.Find("#chatForm"), "data-failed"))
	assert.Equal(t, want, testutil.Attr(t, doc.Find("#generateRoutine"), "data-failed"))

	// a stale token is answered with an error status, which htmx does not swap
	env.csrf = "stale"
	code, _ := env.post("/chat", url.Values{"message": {"hello"}})
	assert.Equal(t, http.StatusForbidden, code)

	script, err := os.ReadFile("../../public/assets/app.js")
	require.NoError(t, err)
	for _, event := range []string{"htmx:responseError", "htmx:sendError"} {
		assert.Contains(t, string(script), `addEventListener("`+event+`", showFailure)`)
	}
}
