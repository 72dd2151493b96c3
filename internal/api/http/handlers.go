package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatdeck/chatdeck/internal/domain/account"
	"github.com/chatdeck/chatdeck/internal/domain/recovery"
	"github.com/chatdeck/chatdeck/internal/domain/session"
	"github.com/chatdeck/chatdeck/internal/domain/view"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	views    *view.Manager
	recovery *recovery.Manager
	accounts *account.Store
	sessions *session.Provider
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(
	views *view.Manager,
	rec *recovery.Manager,
	accounts *account.Store,
	sessions *session.Provider,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		views:    views,
		recovery: rec,
		accounts: accounts,
		sessions: sessions,
		metrics:  metrics,
	}
}

// statusFor maps error categories onto HTTP status codes.
func statusFor(err error) int {
	switch types.CategoryOf(err) {
	case types.CategoryValidation:
		return http.StatusBadRequest
	case types.CategoryAuth:
		return http.StatusUnauthorized
	case types.CategoryCorruption:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "category": types.CategoryOf(err)})
}

// Root handles basic service identification
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "chatdeck",
		"version": "0.3.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"views":             h.views.Stats(),
		"accounts":          len(h.accounts.ListAccounts()),
		"active_reconnects": h.recovery.ActiveReconnects(),
	})
}

// viewRequest is the optional body for switch and create. Absent
// fields fall back to the stored account record.
type viewRequest struct {
	URL              string             `json:"url"`
	Proxy            *types.ProxyConfig `json:"proxy"`
	TranslationHints map[string]string  `json:"translation_hints"`
}

func (h *Handlers) viewConfig(c *gin.Context, accountID string) (types.ViewConfig, bool) {
	var cfg types.ViewConfig
	if acct, ok := h.accounts.GetAccount(accountID); ok {
		cfg = acct.ViewConfig()
	}

	if c.Request.ContentLength > 0 {
		var req viewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return cfg, false
		}
		if req.URL != "" {
			cfg.URL = req.URL
		}
		if req.Proxy != nil {
			cfg.Proxy = req.Proxy
		}
		if req.TranslationHints != nil {
			cfg.TranslationHints = req.TranslationHints
		}
	}
	return cfg, true
}

// SwitchView makes the account's view visible, creating it lazily
func (h *Handlers) SwitchView(c *gin.Context) {
	accountID := c.Param("accountId")

	cfg, ok := h.viewConfig(c, accountID)
	if !ok {
		return
	}

	v, err := h.views.SwitchView(c.Request.Context(), accountID, cfg)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": v})
}

// CreateView eagerly creates an active view without switching to it
func (h *Handlers) CreateView(c *gin.Context) {
	accountID := c.Param("accountId")

	cfg, ok := h.viewConfig(c, accountID)
	if !ok {
		return
	}

	v, err := h.views.CreateView(c.Request.Context(), accountID, cfg)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"view": v})
}

// DestroyView removes the account's view
func (h *Handlers) DestroyView(c *gin.Context) {
	accountID := c.Param("accountId")

	if err := h.views.DestroyView(accountID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// GetViewState returns the account's view record
func (h *Handlers) GetViewState(c *gin.Context) {
	accountID := c.Param("accountId")

	v, ok := h.views.GetViewState(accountID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no view for account " + accountID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": v})
}

// ListViews returns every live view and aggregate stats
func (h *Handlers) ListViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"views": h.views.ListViews(),
		"stats": h.views.Stats(),
	})
}

// monitorRequest configures status monitoring
type monitorRequest struct {
	IntervalMs int `json:"interval_ms"`
}

// StartMonitoring begins connection and login polling for the account
func (h *Handlers) StartMonitoring(c *gin.Context) {
	accountID := c.Param("accountId")
	if !h.views.HasView(accountID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no view for account " + accountID})
		return
	}

	var req monitorRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	interval := time.Duration(req.IntervalMs) * time.Millisecond

	h.views.StartConnectionMonitoring(accountID, interval)
	h.views.StartLoginStatusMonitoring(accountID, interval)
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// StopMonitoring halts status polling for the account
func (h *Handlers) StopMonitoring(c *gin.Context) {
	accountID := c.Param("accountId")
	h.views.StopConnectionMonitoring(accountID)
	h.views.StopLoginStatusMonitoring(accountID)
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// RefreshStatus runs one immediate connection probe
func (h *Handlers) RefreshStatus(c *gin.Context) {
	accountID := c.Param("accountId")

	status, err := h.views.RefreshConnectionStatus(c.Request.Context(), accountID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "connection_status": status})
}

// Reconnect heals the account's connection
func (h *Handlers) Reconnect(c *gin.Context) {
	accountID := c.Param("accountId")
	res := h.recovery.ReconnectAccount(c.Request.Context(), accountID)
	c.JSON(resultStatus(res), res)
}

// autoReconnectRequest configures the reconnect schedule
type autoReconnectRequest struct {
	IntervalMs  int `json:"interval_ms"`
	MaxAttempts int `json:"max_attempts"`
}

// StartAutoReconnect schedules repeated reconnect attempts
func (h *Handlers) StartAutoReconnect(c *gin.Context) {
	accountID := c.Param("accountId")
	if !h.views.HasView(accountID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no view for account " + accountID})
		return
	}

	var req autoReconnectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h.recovery.StartAutoReconnect(accountID, time.Duration(req.IntervalMs)*time.Millisecond, req.MaxAttempts)
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// StopAutoReconnect cancels the reconnect schedule
func (h *Handlers) StopAutoReconnect(c *gin.Context) {
	accountID := c.Param("accountId")
	h.recovery.StopAutoReconnect(accountID)
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// RecoverSession backs up and resets the account's session data
func (h *Handlers) RecoverSession(c *gin.Context) {
	accountID := c.Param("accountId")
	res := h.recovery.RecoverSessionData(c.Request.Context(), accountID)
	c.JSON(resultStatus(res), res)
}

// ResetAccount wipes the account's view and session data
func (h *Handlers) ResetAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	res := h.recovery.ResetAccount(accountID)
	c.JSON(resultStatus(res), res)
}

func resultStatus(res types.Result) int {
	if res.Success {
		return http.StatusOK
	}
	if res.Category == types.CategoryValidation {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

// GetMemory reports per-account heap and disk usage
func (h *Handlers) GetMemory(c *gin.Context) {
	c.JSON(http.StatusOK, h.views.GetMemoryUsage())
}

// optimizeRequest bounds memory optimization to idle views
type optimizeRequest struct {
	InactiveThresholdMs int `json:"inactive_threshold_ms"`
}

// OptimizeMemory frees views idle longer than the given threshold,
// keeping the visible one. An absent or zero threshold frees every
// non-visible view.
func (h *Handlers) OptimizeMemory(c *gin.Context) {
	var req optimizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.InactiveThresholdMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inactive_threshold_ms must be non-negative"})
		return
	}

	freed := h.views.OptimizeMemory(time.Duration(req.InactiveThresholdMs) * time.Millisecond)
	c.JSON(http.StatusOK, gin.H{"success": true, "views_freed": freed})
}

// GetPerf reports switch latency distribution and pool efficiency
func (h *Handlers) GetPerf(c *gin.Context) {
	c.JSON(http.StatusOK, h.views.PerfStats())
}

// hostSizeRequest carries the host window dimensions
type hostSizeRequest struct {
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

// SetHostSize records the host window size for geometry computation
func (h *Handlers) SetHostSize(c *gin.Context) {
	var req hostSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.views.SetHostSize(req.Width, req.Height)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetBounds computes the content-area rectangle for a sidebar width
func (h *Handlers) GetBounds(c *gin.Context) {
	sidebar, err := strconv.Atoi(c.DefaultQuery("sidebar", "0"))
	if err != nil || sidebar < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sidebar must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bounds": h.views.ComputeBounds(sidebar)})
}

// InvalidateBounds drops all memoized geometry
func (h *Handlers) InvalidateBounds(c *gin.Context) {
	h.views.InvalidateBoundsCache()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListAccounts returns all account records
func (h *Handlers) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": h.accounts.ListAccounts()})
}

// CreateAccount persists a new account record
func (h *Handlers) CreateAccount(c *gin.Context) {
	var acct types.Account
	if err := c.ShouldBindJSON(&acct); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.CreateAccount(acct); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "account_id": acct.ID})
}

// UpdateAccount persists changes to an account record
func (h *Handlers) UpdateAccount(c *gin.Context) {
	var acct types.Account
	if err := c.ShouldBindJSON(&acct); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acct.ID = c.Param("accountId")
	if err := h.accounts.UpdateAccount(acct); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": acct.ID})
}

// DeleteAccount removes an account record
func (h *Handlers) DeleteAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if err := h.accounts.DeleteAccount(accountID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account_id": accountID})
}

// GetDiskUsage reports the account's on-disk partition size
func (h *Handlers) GetDiskUsage(c *gin.Context) {
	accountID := c.Param("accountId")
	size, err := h.sessions.DiskUsage(accountID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "disk_bytes": size})
}

// MetricsJSON returns the metric snapshot for the host UI
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
