package guards_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/junioryono/wired"
	"github.com/junioryono/wired/guards"
	wiredhttp "github.com/junioryono/wired/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

type accountsController struct{}

func (accountsController) Me(r *http.Request) string { return "me" }

func (accountsController) Purge() string { return "purged" }

func newServer(t *testing.T) http.Handler {
	t.Helper()

	adapter := wiredhttp.New()
	root := wired.NewModule("app",
		wired.Imports(guards.Module(guards.Config{Secret: secret})),
		wired.Providers(wired.UseClass(wired.AppFilter, wired.HTTPExceptionFilterClass)),
		wired.Controllers(wired.Controller[accountsController]("accounts",
			wired.UseGuards(guards.JWTGuardClass, guards.RolesGuardClass),
			wired.Get("me", "Me"),
			wired.Delete("", "Purge", wired.SetMetadata(guards.RolesKey, []string{"admin"})),
		)),
	)
	_, err := wired.Apply(adapter, wired.Options{RootModule: root})
	require.NoError(t, err)
	return adapter
}

func call(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTGuard(t *testing.T) {
	t.Parallel()

	h := newServer(t)
	cfg := &guards.Config{Secret: secret}

	t.Run("missing token", func(t *testing.T) {
		rec := call(h, http.MethodGet, "/accounts/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := guards.Sign(cfg, "user-1")
		require.NoError(t, err)

		rec := call(h, http.MethodGet, "/accounts/me", token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "me", rec.Body.String())
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := guards.Sign(&guards.Config{Secret: []byte("other")}, "user-1")
		require.NoError(t, err)

		rec := call(h, http.MethodGet, "/accounts/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)

		rec := call(h, http.MethodGet, "/accounts/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRolesGuard(t *testing.T) {
	t.Parallel()

	h := newServer(t)
	cfg := &guards.Config{Secret: secret}

	user, err := guards.Sign(cfg, "user-1", "reader")
	require.NoError(t, err)
	admin, err := guards.Sign(cfg, "user-2", "reader", "admin")
	require.NoError(t, err)

	rec := call(h, http.MethodDelete, "/accounts", user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(h, http.MethodDelete, "/accounts", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "purged", rec.Body.String())

	rec = call(h, http.MethodGet, "/accounts/me", user)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	cfg := &guards.Config{Secret: secret, TTL: time.Minute}
	token, err := guards.Sign(cfg, "user-1", "admin")
	require.NoError(t, err)

	claims, err := guards.Verify(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, []any{"admin"}, claims["roles"])

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Minute).Unix()})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = guards.Verify(cfg, raw)
	assert.Error(t, err)

	_, err = guards.Verify(&guards.Config{Secret: secret}, "not-a-token")
	assert.Error(t, err)
}
