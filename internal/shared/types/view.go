package types

import "time"

// ViewState represents rendering unit lifecycle states
type ViewState string

const (
	StateActive    ViewState = "active"
	StatePooled    ViewState = "pooled"
	StateDestroyed ViewState = "destroyed"
)

// ConnectionStatus is the coarse connectivity signal for a view
type ConnectionStatus string

const (
	ConnUnknown ConnectionStatus = "unknown"
	ConnOnline  ConnectionStatus = "online"
	ConnOffline ConnectionStatus = "offline"
	ConnError   ConnectionStatus = "error"
)

// LoginStatus is the coarse authentication signal for a view
type LoginStatus string

const (
	LoginUnknown   LoginStatus = "unknown"
	LoginLoggedIn  LoginStatus = "logged_in"
	LoginLoggedOut LoginStatus = "logged_out"
)

// View represents one rendering unit bound to a single account's
// session context. At most one View exists per account across the
// active set and the pool combined.
type View struct {
	ID               string           `json:"id"`
	AccountID        string           `json:"account_id"`
	State            ViewState        `json:"state"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	LoginStatus      LoginStatus      `json:"login_status"`
	URL              string           `json:"url"`
	CreatedAt        time.Time        `json:"created_at"`
	LastAccess       time.Time        `json:"last_access"`
	PooledAt         time.Time        `json:"pooled_at,omitempty"` // zero unless pooled
	IsVisible        bool             `json:"is_visible"`
}

// ViewConfig carries the caller-supplied creation parameters for a view.
// TranslationHints are passed through verbatim to the remote document;
// this core never interprets them.
type ViewConfig struct {
	URL              string            `json:"url"`
	Proxy            *ProxyConfig      `json:"proxy,omitempty"`
	TranslationHints map[string]string `json:"translation_hints,omitempty"`
}

// Bounds is the rectangle a view occupies inside the host window
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Stats contains lifecycle manager statistics
type Stats struct {
	ActiveViews      int     `json:"active_views"`
	PooledViews      int     `json:"pooled_views"`
	VisibleAccountID *string `json:"visible_account_id,omitempty"`
}

// MemoryStats aggregates per-view memory accounting
type MemoryStats struct {
	TotalHeapBytes int64            `json:"total_heap_bytes"`
	TotalDiskBytes int64            `json:"total_disk_bytes"`
	PerAccountHeap map[string]int64 `json:"per_account_heap"`
	PerAccountDisk map[string]int64 `json:"per_account_disk,omitempty"`
}

// PerfStats reports switch latency distribution and pool efficiency
type PerfStats struct {
	Switches        int64   `json:"switches"`
	PoolHits        int64   `json:"pool_hits"`
	PoolMisses      int64   `json:"pool_misses"`
	PoolHitRatio    float64 `json:"pool_hit_ratio"`
	SwitchMeanMs    float64 `json:"switch_mean_ms"`
	SwitchP50Ms     float64 `json:"switch_p50_ms"`
	SwitchP95Ms     float64 `json:"switch_p95_ms"`
	ColdCreateCount int64   `json:"cold_create_count"`
}
