package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/domain/account"
	"github.com/chatdeck/chatdeck/internal/domain/recovery"
	"github.com/chatdeck/chatdeck/internal/domain/session"
	"github.com/chatdeck/chatdeck/internal/domain/view"
	"github.com/chatdeck/chatdeck/internal/events"
	"github.com/chatdeck/chatdeck/internal/infrastructure/config"
	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
	"github.com/chatdeck/chatdeck/internal/shared/paths"
	"github.com/chatdeck/chatdeck/internal/shared/types"
	"github.com/chatdeck/chatdeck/internal/surface"
)

// Prometheus collectors register globally, so all tests share one set.
var testMetrics = sync.OnceValue(monitoring.NewMetrics)

type onlineProbe struct{}

func (onlineProbe) Connection(context.Context, string, surface.Surface) (types.ConnectionStatus, error) {
	return types.ConnOnline, nil
}

func (onlineProbe) Login(context.Context, string, surface.Surface) (types.LoginStatus, error) {
	return types.LoginLoggedIn, nil
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	logger := logging.NewNop()
	metrics := testMetrics()
	bus := events.NewBus()

	sessions, err := session.NewProvider(root, logger)
	require.NoError(t, err)
	accounts, err := account.NewStore(paths.AccountsFile(root), logger)
	require.NoError(t, err)

	cfg := config.Default()
	views := view.NewManager(cfg.Lifecycle, sessions, surface.NewFakeFactory(), onlineProbe{}, bus, metrics, logger)
	rec := recovery.NewManager(cfg.Recovery, views, sessions, accounts, metrics, logger)
	t.Cleanup(func() {
		rec.Cleanup()
		views.Close()
		bus.Close()
	})

	h := NewHandlers(views, rec, accounts, sessions, metrics)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/views", h.ListViews)
	r.POST("/views/:accountId", h.CreateView)
	r.POST("/views/:accountId/switch", h.SwitchView)
	r.DELETE("/views/:accountId", h.DestroyView)
	r.GET("/views/:accountId/state", h.GetViewState)
	r.POST("/views/:accountId/reconnect", h.Reconnect)
	r.POST("/views/:accountId/reset", h.ResetAccount)
	r.GET("/memory", h.GetMemory)
	r.POST("/memory/optimize", h.OptimizeMemory)
	r.GET("/perf", h.GetPerf)
	r.GET("/bounds", h.GetBounds)
	r.POST("/bounds/host-size", h.SetHostSize)
	r.POST("/bounds/invalidate", h.InvalidateBounds)
	r.GET("/accounts", h.ListAccounts)
	r.POST("/accounts", h.CreateAccount)
	r.PUT("/accounts/:accountId", h.UpdateAccount)
	r.DELETE("/accounts/:accountId", h.DeleteAccount)
	r.GET("/metrics/json", h.MetricsJSON)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestSwitchAndState(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/views/work/switch", map[string]any{
		"url": "https://chat.example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	v := decode(t, w)["view"].(map[string]any)
	assert.Equal(t, "work", v["account_id"])
	assert.Equal(t, "active", v["state"])
	assert.Equal(t, true, v["is_visible"])

	w = do(t, r, http.MethodGet, "/views/work/state", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/views/ghost/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwitchRejectsBadAccountID(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/views/bad..id/switch", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwitchFallsBackToAccountRecord(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/accounts", types.Account{
		ID: "work", URL: "https://chat.example.com/stored",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/views/work/switch", nil)
	require.Equal(t, http.StatusOK, w.Code)

	v := decode(t, w)["view"].(map[string]any)
	assert.Equal(t, "https://chat.example.com/stored", v["url"])
}

func TestDestroyView(t *testing.T) {
	r := newRouter(t)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/views/work/switch", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/views/work", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodDelete, "/views/work", nil).Code)
}

func TestListViews(t *testing.T) {
	r := newRouter(t)

	do(t, r, http.MethodPost, "/views/a/switch", nil)
	do(t, r, http.MethodPost, "/views/b/switch", nil)

	w := do(t, r, http.MethodGet, "/views", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["views"], 2)
}

func TestReconnectEndpoint(t *testing.T) {
	r := newRouter(t)

	do(t, r, http.MethodPost, "/views/work/switch", nil)

	// The probe reports online, so reconnect is a noop success.
	w := do(t, r, http.MethodPost, "/views/work/reconnect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = do(t, r, http.MethodPost, "/views/ghost/reconnect", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetEndpoint(t *testing.T) {
	r := newRouter(t)

	do(t, r, http.MethodPost, "/views/work/switch", nil)
	w := do(t, r, http.MethodPost, "/views/work/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/views/work/state", nil).Code)
}

func TestMemoryEndpoints(t *testing.T) {
	r := newRouter(t)

	do(t, r, http.MethodPost, "/views/a/switch", nil)
	do(t, r, http.MethodPost, "/views/b/switch", nil)

	w := do(t, r, http.MethodGet, "/memory", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Everything was touched moments ago, so a real threshold spares it.
	w = do(t, r, http.MethodPost, "/memory/optimize", map[string]int{"inactive_threshold_ms": 3600000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["views_freed"])

	w = do(t, r, http.MethodPost, "/memory/optimize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["views_freed"])

	w = do(t, r, http.MethodPost, "/memory/optimize", map[string]int{"inactive_threshold_ms": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoundsEndpoints(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/bounds/host-size", map[string]int{"width": 1280, "height": 800})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/bounds?sidebar=300", nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode(t, w)["bounds"].(map[string]any)
	assert.Equal(t, float64(980), b["width"])
	assert.Equal(t, float64(800), b["height"])

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/bounds?sidebar=oops", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/bounds/invalidate", nil).Code)
}

func TestAccountCRUD(t *testing.T) {
	r := newRouter(t)

	acct := types.Account{ID: "work", Name: "Work", URL: "https://chat.example.com"}
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/accounts", acct).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/accounts", acct).Code)

	w := do(t, r, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["accounts"], 1)

	acct.Name = "Renamed"
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/accounts/work", acct).Code)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/accounts/work", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodDelete, "/accounts/work", nil).Code)
}

func TestCreateAccountRejectsBadProxy(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/accounts", types.Account{
		ID:    "work",
		Proxy: &types.ProxyConfig{Protocol: "ftp", Host: "127.0.0.1", Port: 8080},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsJSON(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "uptime_seconds")
}

func TestEagerCreateDoesNotSwitch(t *testing.T) {
	r := newRouter(t)

	do(t, r, http.MethodPost, "/views/visible/switch", nil)
	time.Sleep(2 * time.Millisecond)

	w := do(t, r, http.MethodPost, "/views/warm", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	v := decode(t, w)["view"].(map[string]any)
	assert.Equal(t, "active", v["state"])
	assert.Equal(t, false, v["is_visible"])
}
