package gin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/wired"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type itemsController struct{}

func (itemsController) List() []string { return []string{"a", "b"} }

func (itemsController) Create() (any, error) { return nil, wired.Forbidden() }

func newRoot() *wired.Module {
	return wired.NewModule("app",
		wired.Providers(wired.UseClass(wired.AppFilter, wired.HTTPExceptionFilterClass)),
		wired.Controllers(wired.Controller[itemsController]("items",
			wired.Get("", "List"),
			wired.Post("", "Create"),
		)),
	)
}

func TestAdapter(t *testing.T) {
	t.Parallel()

	adapter := New(WithMiddleware(func(c *gin.Context) {
		c.Header("X-Middleware", "gin")
		c.Next()
	}))
	_, err := wired.Apply(adapter, wired.Options{RootModule: newRoot()})
	require.NoError(t, err)
	assert.NotNil(t, adapter.Engine())

	t.Run("serves registered routes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		adapter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `["a","b"]`, rec.Body.String())
		assert.Equal(t, "gin", rec.Header().Get("X-Middleware"))
	})

	t.Run("writes exceptions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		adapter.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown paths are not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		adapter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdapter_RouteConflict(t *testing.T) {
	t.Parallel()

	adapter := New()
	def := wired.RouteDefinition{
		Method: http.MethodGet,
		URL:    "/items",
		Handler: func(http.ResponseWriter, *http.Request) (any, error) {
			return "ok", nil
		},
	}
	require.NoError(t, adapter.Route(def))

	err := adapter.Route(def)
	assert.True(t, errors.Is(err, wired.ErrRouteConflict))
	assert.Len(t, adapter.Routes(), 1)
}
