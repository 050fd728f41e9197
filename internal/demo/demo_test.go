package demo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/junioryono/wired"
	"github.com/junioryono/wired/guards"
	wiredhttp "github.com/junioryono/wired/http"
	"github.com/junioryono/wired/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*wired.Application, http.Handler) {
	t.Helper()

	adapter := wiredhttp.New(wiredhttp.WithValidatorCompiler(validation.Compiler()))
	app, err := wired.Apply(adapter, wired.Options{RootModule: AppModule(Options{
		Auth: guards.Config{Secret: []byte("demo")},
		Seed: DefaultSeed,
	})})
	require.NoError(t, err)
	return app, adapter
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rec := do(h, http.MethodPost, "/api/auth/token", `{"username":"`+username+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "Bearer", tok.TokenType)
	return tok.AccessToken
}

func TestApp_Routes(t *testing.T) {
	t.Parallel()

	app, _ := newApp(t)

	var urls []string
	for _, r := range app.Routes() {
		urls = append(urls, r.Method+" "+r.URL)
	}
	assert.ElementsMatch(t, []string{
		"GET /api/health",
		"GET /api/products",
		"GET /api/products/item",
		"POST /api/products",
		"POST /api/auth/token",
	}, urls)
}

func TestApp_Health(t *testing.T) {
	t.Parallel()

	_, h := newApp(t)
	rec := do(h, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "192.0.2.1", health.IP)
}

func TestApp_Products(t *testing.T) {
	t.Parallel()

	_, h := newApp(t)

	t.Run("list", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/products?q=mo", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var products []Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		assert.Equal(t, []Product{DefaultSeed[1], DefaultSeed[2]}, products)

		rec = do(h, http.MethodGet, "/api/products?limit=1", "", "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		assert.Len(t, products, 1)

		rec = do(h, http.MethodGet, "/api/products?limit=500", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("show", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/products/item?id=1", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":1,"name":"Keyboard","price":4900}`, rec.Body.String())

		rec = do(h, http.MethodGet, "/api/products/item?id=99", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApp_CreateProduct(t *testing.T) {
	t.Parallel()

	app, h := newApp(t)
	body := `{"name":"Webcam","price":5900}`

	rec := do(h, http.MethodPost, "/api/products", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/api/products", body, issue(t, h, "bob"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := issue(t, h, "admin")
	rec = do(h, http.MethodPost, "/api/products", `{"price":1}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/products", body, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":4,"name":"Webcam","price":5900}`, rec.Body.String())

	store, err := wired.Resolve[*ProductStore](app, ProductStoreClass)
	require.NoError(t, err)
	_, ok := store.Get(4)
	assert.True(t, ok)
}

func TestPaginationPipe(t *testing.T) {
	t.Parallel()

	q := &ListQuery{}
	out, err := PaginationPipe{}.Transform(nil, []any{q})
	require.NoError(t, err)
	assert.Same(t, q, out[0])
	assert.Equal(t, DefaultLimit, q.Limit)

	q = &ListQuery{Limit: 5}
	_, err = PaginationPipe{}.Transform(nil, []any{q})
	require.NoError(t, err)
	assert.Equal(t, 5, q.Limit)
}
