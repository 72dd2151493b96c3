package view

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/domain/account"
	"github.com/chatdeck/chatdeck/internal/domain/session"
	"github.com/chatdeck/chatdeck/internal/events"
	"github.com/chatdeck/chatdeck/internal/infrastructure/config"
	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
	"github.com/chatdeck/chatdeck/internal/probe"
	"github.com/chatdeck/chatdeck/internal/shared/types"
	"github.com/chatdeck/chatdeck/internal/shared/utils"
	"github.com/chatdeck/chatdeck/internal/surface"
)

// Switch sources, also used as metric labels.
const (
	switchSourceAlreadyActive = "already_active"
	switchSourcePoolHit       = "pool_hit"
	switchSourceColdCreate    = "cold_create"
)

// unit is one live rendering unit: its public view record, the
// execution surface behind it, and the config it was created with.
type unit struct {
	view    types.View
	surface surface.Surface
	config  types.ViewConfig
}

// Notifier is called when a monitored view's connection degrades, so
// the recovery layer can react without polling.
type Notifier func(accountID string, status types.ConnectionStatus)

// Manager orchestrates rendering-unit lifecycle for all accounts.
type Manager struct {
	cfg      config.LifecycleConfig
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	bus      *events.Bus
	sessions *session.Provider
	factory  surface.Factory
	probe    probe.Probe

	mu            sync.RWMutex
	active        map[string]*unit
	creating      map[string]chan struct{}
	visibleID     string
	pool          *Pool
	bounds        *BoundsCache
	perf          *perfTracker
	connMonitors  map[string]*monitorHandle
	loginMonitors map[string]*monitorHandle
	notifier      Notifier
	closed        bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewManager creates a lifecycle manager and starts its pool sweeper.
func NewManager(
	cfg config.LifecycleConfig,
	sessions *session.Provider,
	factory surface.Factory,
	pr probe.Probe,
	bus *events.Bus,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Manager {
	m := &Manager{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		bus:           bus,
		sessions:      sessions,
		factory:       factory,
		probe:         pr,
		active:        make(map[string]*unit),
		creating:      make(map[string]chan struct{}),
		pool:          NewPool(cfg.PoolSize),
		bounds:        NewBoundsCache(),
		perf:          newPerfTracker(),
		connMonitors:  make(map[string]*monitorHandle),
		loginMonitors: make(map[string]*monitorHandle),
	}
	if cfg.PoolSweepInterval > 0 && cfg.PoolMaxAge > 0 {
		m.sweepStop = make(chan struct{})
		m.sweepDone = make(chan struct{})
		go m.sweepLoop()
	}
	return m
}

// SwitchView makes the account's view the visible one, creating it
// lazily on first need. Returns the resulting view record.
func (m *Manager) SwitchView(ctx context.Context, accountID string, cfg types.ViewConfig) (*types.View, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	start := time.Now()

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, fmt.Errorf("lifecycle manager is closed")
		}

		if u := m.active[accountID]; u != nil {
			snapshot := m.finishSwitchLocked(u)
			m.mu.Unlock()
			m.recordSwitch(accountID, switchSourceAlreadyActive, start)
			return &snapshot, nil
		}
		if u, ok := m.pool.Take(accountID); ok {
			m.reactivateLocked(u)
			snapshot := m.finishSwitchLocked(u)
			m.mu.Unlock()
			m.recordSwitch(accountID, switchSourcePoolHit, start)
			return &snapshot, nil
		}
		if ch, ok := m.creating[accountID]; ok {
			m.mu.Unlock()
			if err := waitForCreate(ctx, ch); err != nil {
				return nil, err
			}
			continue
		}

		ch := make(chan struct{})
		m.creating[accountID] = ch
		m.enforceCeilingLocked(accountID)
		m.mu.Unlock()

		u, err := m.buildUnit(ctx, accountID, cfg)

		m.mu.Lock()
		delete(m.creating, accountID)
		close(ch)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		if m.closed {
			m.mu.Unlock()
			u.surface.Close()
			return nil, fmt.Errorf("lifecycle manager is closed")
		}
		m.installUnitLocked(u)
		snapshot := m.finishSwitchLocked(u)
		m.mu.Unlock()
		m.recordSwitch(accountID, switchSourceColdCreate, start)
		return &snapshot, nil
	}
}

// finishSwitchLocked marks the unit's view visible, unmarks the
// previous one and refreshes gauges. Caller holds m.mu.
func (m *Manager) finishSwitchLocked(u *unit) types.View {
	accountID := u.view.AccountID
	if prev := m.visibleID; prev != "" && prev != accountID {
		if pu, ok := m.active[prev]; ok {
			pu.view.IsVisible = false
		}
	}
	m.visibleID = accountID
	u.view.IsVisible = true
	u.view.LastAccess = time.Now()
	m.updateGaugesLocked()
	return u.view
}

func (m *Manager) recordSwitch(accountID, source string, start time.Time) {
	elapsed := time.Since(start)
	m.metrics.RecordSwitch(source, elapsed)
	m.perf.recordSwitch(float64(elapsed.Microseconds())/1000.0, source)

	m.logger.Info("view switched",
		zap.String("account_id", accountID),
		zap.String("source", source),
		zap.Duration("took", elapsed),
	)
}

// waitForCreate blocks until an in-flight creation settles or the
// caller's context expires.
func waitForCreate(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// CreateView ensures an active (not necessarily visible) view exists
// for the account and returns its record.
func (m *Manager) CreateView(ctx context.Context, accountID string, cfg types.ViewConfig) (*types.View, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return nil, err
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, fmt.Errorf("lifecycle manager is closed")
		}

		if u, ok := m.active[accountID]; ok {
			snapshot := u.view
			m.mu.Unlock()
			return &snapshot, nil
		}
		if u, ok := m.pool.Take(accountID); ok {
			m.reactivateLocked(u)
			m.updateGaugesLocked()
			snapshot := u.view
			m.mu.Unlock()
			return &snapshot, nil
		}
		if ch, ok := m.creating[accountID]; ok {
			m.mu.Unlock()
			if err := waitForCreate(ctx, ch); err != nil {
				return nil, err
			}
			continue
		}

		ch := make(chan struct{})
		m.creating[accountID] = ch
		m.enforceCeilingLocked(accountID)
		m.mu.Unlock()

		u, err := m.buildUnit(ctx, accountID, cfg)

		m.mu.Lock()
		delete(m.creating, accountID)
		close(ch)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		if m.closed {
			m.mu.Unlock()
			u.surface.Close()
			return nil, fmt.Errorf("lifecycle manager is closed")
		}
		m.installUnitLocked(u)
		m.updateGaugesLocked()
		snapshot := u.view
		m.mu.Unlock()
		return &snapshot, nil
	}
}

// buildUnit cold-creates the session context and surface for a view.
// Runs without m.mu so one account's document load cannot stall
// operations on other accounts; the caller owns the account's creating
// reservation, which keeps creation single-flight per account.
func (m *Manager) buildUnit(ctx context.Context, accountID string, cfg types.ViewConfig) (*unit, error) {
	sctx, err := m.sessions.GetContext(accountID)
	if err != nil {
		return nil, err
	}
	if cfg.Proxy != nil {
		if err := m.sessions.ConfigureProxy(accountID, cfg.Proxy); err != nil {
			return nil, err
		}
	}

	s, err := m.factory.New(accountID, sctx.StoragePath, m.sessions.Proxy(accountID), cfg.TranslationHints)
	if err != nil {
		return nil, fmt.Errorf("failed to create view for %s: %w", accountID, err)
	}
	if cfg.URL != "" {
		if err := s.Load(ctx, cfg.URL); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load %s for %s: %w", cfg.URL, accountID, err)
		}
	}

	now := time.Now()
	return &unit{
		view: types.View{
			ID:               uuid.NewString(),
			AccountID:        accountID,
			State:            types.StateActive,
			ConnectionStatus: types.ConnUnknown,
			LoginStatus:      types.LoginUnknown,
			URL:              cfg.URL,
			CreatedAt:        now,
			LastAccess:       now,
		},
		surface: s,
		config:  cfg,
	}, nil
}

// installUnitLocked publishes a freshly built unit into the active
// set. Caller holds m.mu.
func (m *Manager) installUnitLocked(u *unit) {
	accountID := u.view.AccountID
	m.active[accountID] = u
	m.metrics.IncViewsCreated()
	m.publishLifecycle(accountID, "", string(types.StateActive))

	m.logger.Info("view created",
		zap.String("account_id", accountID),
		zap.String("view_id", u.view.ID),
	)
}

// reactivateLocked moves a pooled unit back into the active set,
// preserving its connection and login statuses. Caller holds m.mu.
func (m *Manager) reactivateLocked(u *unit) {
	m.enforceCeilingLocked(u.view.AccountID)
	u.view.State = types.StateActive
	u.view.PooledAt = time.Time{}
	u.view.LastAccess = time.Now()
	m.active[u.view.AccountID] = u
	m.publishLifecycle(u.view.AccountID, string(types.StatePooled), string(types.StateActive))
}

// enforceCeilingLocked makes room for one more active unit by moving
// least-recently-accessed non-visible units into the pool. Ties on
// last access break to the lexicographically smaller account id. The
// visible view is never evicted, even when that leaves the active set
// over the ceiling. Caller holds m.mu.
func (m *Manager) enforceCeilingLocked(incoming string) {
	for len(m.active) >= m.cfg.MaxActiveViews {
		victim := m.evictionCandidateLocked(incoming)
		if victim == nil {
			m.logger.Warn("active ceiling exceeded with no evictable view",
				zap.Int("active", len(m.active)),
				zap.Int("ceiling", m.cfg.MaxActiveViews),
			)
			return
		}
		m.deactivateLocked(victim)
	}
}

func (m *Manager) evictionCandidateLocked(incoming string) *unit {
	var victim *unit
	for id, u := range m.active {
		if id == incoming || u.view.IsVisible {
			continue
		}
		if victim == nil {
			victim = u
			continue
		}
		if u.view.LastAccess.Before(victim.view.LastAccess) ||
			(u.view.LastAccess.Equal(victim.view.LastAccess) && id < victim.view.AccountID) {
			victim = u
		}
	}
	return victim
}

// deactivateLocked parks an active unit in the pool; when the pool is
// full its oldest occupant is destroyed. Caller holds m.mu.
func (m *Manager) deactivateLocked(u *unit) {
	delete(m.active, u.view.AccountID)
	u.view.State = types.StatePooled
	u.view.IsVisible = false

	if evicted := m.pool.Put(u); evicted != nil {
		if evicted == u {
			// Zero-capacity pool: nothing stays warm.
			m.destroyLocked(u)
			m.metrics.RecordEviction("destroyed")
			return
		}
		m.destroyLocked(evicted)
		m.metrics.RecordEviction("destroyed")
	}
	m.metrics.RecordEviction("pooled")
	m.publishLifecycle(u.view.AccountID, string(types.StateActive), string(types.StatePooled))

	m.logger.Debug("view pooled", zap.String("account_id", u.view.AccountID))
}

// destroyLocked finalizes a unit that is no longer in the active set
// or pool. Monitors self-terminate on their next tick once the unit is
// gone. Caller holds m.mu.
func (m *Manager) destroyLocked(u *unit) {
	id := u.view.AccountID
	prev := string(u.view.State)
	u.view.State = types.StateDestroyed

	if h, ok := m.connMonitors[id]; ok {
		h.signal()
		delete(m.connMonitors, id)
	}
	if h, ok := m.loginMonitors[id]; ok {
		h.signal()
		delete(m.loginMonitors, id)
	}

	if err := u.surface.Close(); err != nil {
		m.logger.Warn("failed to close surface",
			zap.String("account_id", id), zap.Error(err))
	}
	m.metrics.IncViewsDestroyed()
	m.publishLifecycle(id, prev, string(types.StateDestroyed))

	m.logger.Info("view destroyed", zap.String("account_id", id))
}

// DestroyView removes the account's view from the active set or pool
// and releases its surface. The session partition stays on disk.
func (m *Manager) DestroyView(accountID string) error {
	m.mu.Lock()
	u, ok := m.active[accountID]
	if ok {
		delete(m.active, accountID)
	} else {
		u, ok = m.pool.Take(accountID)
	}
	if !ok {
		m.mu.Unlock()
		return types.Categorize(types.CategoryValidation, fmt.Errorf("no view for account %s", accountID))
	}
	if m.visibleID == accountID {
		m.visibleID = ""
	}
	m.destroyLocked(u)
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.sessions.ReleaseContext(accountID)
	return nil
}

// HasView reports whether a live (active or pooled) view exists.
func (m *Manager) HasView(accountID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(accountID) != nil
}

// GetViewState returns a copy of the account's view record.
func (m *Manager) GetViewState(accountID string) (types.View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u := m.lookupLocked(accountID); u != nil {
		return u.view, true
	}
	return types.View{}, false
}

// ListViews returns every live view record sorted by account id.
func (m *Manager) ListViews() []types.View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.View, 0, len(m.active)+m.pool.Len())
	for _, u := range m.active {
		out = append(out, u.view)
	}
	for _, id := range m.pool.Accounts() {
		if u, ok := m.pool.Get(id); ok {
			out = append(out, u.view)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Stats returns active/pooled counts and the visible account.
func (m *Manager) Stats() types.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := types.Stats{
		ActiveViews: len(m.active),
		PooledViews: m.pool.Len(),
	}
	if m.visibleID != "" {
		id := m.visibleID
		s.VisibleAccountID = &id
	}
	return s
}

// PerfStats returns switch latency distribution and pool efficiency.
func (m *Manager) PerfStats() types.PerfStats {
	return m.perf.stats()
}

// lookupLocked finds a unit in the active set or pool. Caller holds
// m.mu (read or write).
func (m *Manager) lookupLocked(accountID string) *unit {
	if u, ok := m.active[accountID]; ok {
		return u
	}
	if u, ok := m.pool.Get(accountID); ok {
		return u
	}
	return nil
}

// updateGaugesLocked refreshes the active/pooled gauges. Caller holds m.mu.
func (m *Manager) updateGaugesLocked() {
	m.metrics.SetViewsActive(len(m.active))
	m.metrics.SetViewsPooled(m.pool.Len())
}

func (m *Manager) publishLifecycle(accountID, from, to string) {
	m.bus.Publish(types.StatusEvent{
		AccountID: accountID,
		Field:     types.FieldLifecycle,
		Old:       from,
		New:       to,
		At:        time.Now(),
	})
}

// SetRecoveryNotifier registers the callback invoked when a monitored
// connection degrades to offline or error.
func (m *Manager) SetRecoveryNotifier(fn Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = fn
}

// StartConnectionMonitoring begins polling the account's connection
// status. Starting again for the same account replaces the previous
// monitor. A non-positive interval uses the configured default.
func (m *Manager) StartConnectionMonitoring(accountID string, interval time.Duration) {
	if interval <= 0 {
		interval = m.cfg.MonitorInterval
	}
	m.startMonitor(m.connMonitors, accountID, interval, m.pollConnection)
}

// StartLoginStatusMonitoring begins polling the account's login
// status, with the same replace semantics as connection monitoring.
func (m *Manager) StartLoginStatusMonitoring(accountID string, interval time.Duration) {
	if interval <= 0 {
		interval = m.cfg.MonitorInterval
	}
	m.startMonitor(m.loginMonitors, accountID, interval, m.pollLogin)
}

// StopConnectionMonitoring halts the account's connection monitor.
// Safe to call when none is running.
func (m *Manager) StopConnectionMonitoring(accountID string) {
	m.stopMonitor(m.connMonitors, accountID)
}

// StopLoginStatusMonitoring halts the account's login monitor. Safe to
// call when none is running.
func (m *Manager) StopLoginStatusMonitoring(accountID string) {
	m.stopMonitor(m.loginMonitors, accountID)
}

func (m *Manager) startMonitor(monitors map[string]*monitorHandle, accountID string, interval time.Duration, poll func(context.Context, string) bool) {
	h := newMonitorHandle()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if old, ok := monitors[accountID]; ok {
		old.signal()
	}
	monitors[accountID] = h
	m.mu.Unlock()

	go func() {
		runMonitor(h, interval, func(ctx context.Context) bool {
			return poll(ctx, accountID)
		})
		m.mu.Lock()
		if monitors[accountID] == h {
			delete(monitors, accountID)
		}
		m.mu.Unlock()
	}()
}

func (m *Manager) stopMonitor(monitors map[string]*monitorHandle, accountID string) {
	m.mu.Lock()
	h, ok := monitors[accountID]
	if ok {
		delete(monitors, accountID)
	}
	m.mu.Unlock()
	if ok {
		h.halt()
	}
}

// pollConnection performs one connection probe. Returns false when the
// monitored view is gone.
func (m *Manager) pollConnection(ctx context.Context, accountID string) bool {
	m.mu.RLock()
	u := m.lookupLocked(accountID)
	if u == nil {
		m.mu.RUnlock()
		return false
	}
	s := u.surface
	m.mu.RUnlock()

	start := time.Now()
	status, err := m.probe.Connection(ctx, accountID, s)
	m.metrics.RecordProbe("connection", time.Since(start))
	if err != nil {
		m.logger.Debug("connection probe failed",
			zap.String("account_id", accountID), zap.Error(err))
		if status == "" {
			return true
		}
	}
	m.applyConnectionStatus(accountID, status)
	return true
}

// pollLogin performs one login probe. Returns false when the monitored
// view is gone.
func (m *Manager) pollLogin(ctx context.Context, accountID string) bool {
	m.mu.RLock()
	u := m.lookupLocked(accountID)
	if u == nil {
		m.mu.RUnlock()
		return false
	}
	s := u.surface
	m.mu.RUnlock()

	start := time.Now()
	status, err := m.probe.Login(ctx, accountID, s)
	m.metrics.RecordProbe("login", time.Since(start))
	if err != nil {
		m.logger.Debug("login probe failed",
			zap.String("account_id", accountID), zap.Error(err))
		if status == "" {
			return true
		}
	}

	m.mu.Lock()
	u = m.lookupLocked(accountID)
	if u == nil || u.view.LoginStatus == status {
		m.mu.Unlock()
		return u != nil
	}
	old := u.view.LoginStatus
	u.view.LoginStatus = status
	m.mu.Unlock()

	m.metrics.RecordStatusTransition(string(types.FieldLogin), string(status))
	m.bus.Publish(types.StatusEvent{
		AccountID: accountID,
		Field:     types.FieldLogin,
		Old:       string(old),
		New:       string(status),
		At:        time.Now(),
	})
	return true
}

// applyConnectionStatus records a probed connection status, emitting a
// transition event at most once per observed change and nudging the
// recovery notifier when the connection degrades.
func (m *Manager) applyConnectionStatus(accountID string, status types.ConnectionStatus) {
	m.mu.Lock()
	u := m.lookupLocked(accountID)
	if u == nil || u.view.ConnectionStatus == status {
		m.mu.Unlock()
		return
	}
	old := u.view.ConnectionStatus
	u.view.ConnectionStatus = status
	notify := m.notifier
	m.mu.Unlock()

	m.metrics.RecordStatusTransition(string(types.FieldConnection), string(status))
	m.bus.Publish(types.StatusEvent{
		AccountID: accountID,
		Field:     types.FieldConnection,
		Old:       string(old),
		New:       string(status),
		At:        time.Now(),
	})

	if notify != nil && (status == types.ConnOffline || status == types.ConnError) {
		notify(accountID, status)
	}
}

// RefreshConnectionStatus runs one immediate connection probe and
// returns the resulting status.
func (m *Manager) RefreshConnectionStatus(ctx context.Context, accountID string) (types.ConnectionStatus, error) {
	m.mu.RLock()
	u := m.lookupLocked(accountID)
	if u == nil {
		m.mu.RUnlock()
		return types.ConnUnknown, types.Categorize(types.CategoryValidation,
			fmt.Errorf("no view for account %s", accountID))
	}
	s := u.surface
	m.mu.RUnlock()

	start := time.Now()
	status, err := m.probe.Connection(ctx, accountID, s)
	m.metrics.RecordProbe("connection", time.Since(start))
	if err != nil {
		return status, err
	}
	m.applyConnectionStatus(accountID, status)
	return status, nil
}

// Reload performs a full document reload on the account's surface.
func (m *Manager) Reload(ctx context.Context, accountID string) error {
	s, err := m.surfaceFor(accountID)
	if err != nil {
		return err
	}
	return s.Reload(ctx)
}

// Nudge performs the lighter in-page reconnection on the account's
// surface, leaving the document in place.
func (m *Manager) Nudge(ctx context.Context, accountID string) error {
	s, err := m.surfaceFor(accountID)
	if err != nil {
		return err
	}
	return s.Nudge(ctx)
}

func (m *Manager) surfaceFor(accountID string) (surface.Surface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u := m.lookupLocked(accountID)
	if u == nil {
		return nil, types.Categorize(types.CategoryValidation,
			fmt.Errorf("no view for account %s", accountID))
	}
	return u.surface, nil
}

// GetMemoryUsage aggregates heap use across all live surfaces and
// on-disk partition sizes for their accounts.
func (m *Manager) GetMemoryUsage() types.MemoryStats {
	m.mu.RLock()
	surfaces := make(map[string]surface.Surface, len(m.active)+m.pool.Len())
	for id, u := range m.active {
		surfaces[id] = u.surface
	}
	for _, id := range m.pool.Accounts() {
		if u, ok := m.pool.Get(id); ok {
			surfaces[id] = u.surface
		}
	}
	m.mu.RUnlock()

	stats := types.MemoryStats{
		PerAccountHeap: make(map[string]int64, len(surfaces)),
		PerAccountDisk: make(map[string]int64, len(surfaces)),
	}
	for id, s := range surfaces {
		heap := s.HeapUsage()
		stats.PerAccountHeap[id] = heap
		stats.TotalHeapBytes += heap

		if disk, err := m.sessions.DiskUsage(id); err == nil {
			stats.PerAccountDisk[id] = disk
			stats.TotalDiskBytes += disk
		}
	}
	return stats
}

// OptimizeMemory frees units left untouched longer than
// inactiveThreshold, always preserving the visible view. Idle pooled
// units are destroyed; idle active units are pooled while the pool has
// room and destroyed once it is full. A zero threshold frees every
// non-visible unit. Returns how many units were freed.
func (m *Manager) OptimizeMemory(inactiveThreshold time.Duration) int {
	cutoff := time.Now().Add(-inactiveThreshold)

	m.mu.Lock()
	freed := 0
	for _, id := range m.pool.Accounts() {
		u, ok := m.pool.Get(id)
		if !ok || u.view.LastAccess.After(cutoff) {
			continue
		}
		m.pool.Take(id)
		m.destroyLocked(u)
		freed++
	}
	for id, u := range m.active {
		if u.view.IsVisible || u.view.LastAccess.After(cutoff) {
			continue
		}
		if m.pool.FreeSlots() > 0 {
			m.deactivateLocked(u)
		} else {
			delete(m.active, id)
			m.destroyLocked(u)
		}
		freed++
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	if freed > 0 {
		m.logger.Info("memory optimized",
			zap.Int("views_freed", freed),
			zap.Duration("inactive_threshold", inactiveThreshold),
		)
	}
	return freed
}

// SetHostSize records the host window size for geometry computation.
func (m *Manager) SetHostSize(width, height int) {
	m.bounds.SetHostSize(width, height)
}

// ComputeBounds returns the content-area rectangle for the given
// sidebar width, memoized until the host size changes.
func (m *Manager) ComputeBounds(sidebarWidth int) types.Bounds {
	return m.bounds.Compute(sidebarWidth)
}

// InvalidateBoundsCache drops all memoized geometry.
func (m *Manager) InvalidateBoundsCache() {
	m.bounds.Invalidate()
}

// HandleAccountEvent reacts to account store changes: deletion
// destroys the account's view, updates re-apply the proxy rule so the
// next created surface picks it up.
func (m *Manager) HandleAccountEvent(ev account.Event) {
	switch ev.Type {
	case account.EventDeleted:
		if m.HasView(ev.Account.ID) {
			if err := m.DestroyView(ev.Account.ID); err != nil {
				m.logger.Warn("failed to destroy view for deleted account",
					zap.String("account_id", ev.Account.ID), zap.Error(err))
			}
		}
	case account.EventUpdated:
		m.mu.Lock()
		if u := m.lookupLocked(ev.Account.ID); u != nil {
			u.config = ev.Account.ViewConfig()
		}
		m.mu.Unlock()
		if ev.Account.Proxy != nil {
			if err := m.sessions.ConfigureProxy(ev.Account.ID, ev.Account.Proxy); err != nil {
				m.logger.Warn("failed to apply updated proxy",
					zap.String("account_id", ev.Account.ID), zap.Error(err))
			}
		}
	}
}

// sweepLoop periodically destroys pool entries older than the
// configured maximum age.
func (m *Manager) sweepLoop() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.cfg.PoolSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.SweepPool()
		}
	}
}

// SweepPool destroys pool entries older than the configured maximum
// age and returns how many were removed.
func (m *Manager) SweepPool() int {
	stale := m.pool.SweepStale(m.cfg.PoolMaxAge)

	m.mu.Lock()
	for _, u := range stale {
		m.destroyLocked(u)
		m.sessions.ReleaseContext(u.view.AccountID)
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.metrics.IncPoolSweeps()
	if len(stale) > 0 {
		m.logger.Info("stale pool entries swept", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Close stops the sweeper and all monitors and destroys every view.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	handles := make([]*monitorHandle, 0, len(m.connMonitors)+len(m.loginMonitors))
	for id, h := range m.connMonitors {
		handles = append(handles, h)
		delete(m.connMonitors, id)
	}
	for id, h := range m.loginMonitors {
		handles = append(handles, h)
		delete(m.loginMonitors, id)
	}
	for _, h := range handles {
		h.signal()
	}

	units := make([]*unit, 0, len(m.active)+m.pool.Len())
	for id, u := range m.active {
		units = append(units, u)
		delete(m.active, id)
	}
	units = append(units, m.pool.Drain()...)
	m.visibleID = ""
	m.mu.Unlock()

	if m.sweepStop != nil {
		close(m.sweepStop)
		<-m.sweepDone
	}
	for _, h := range handles {
		<-h.done
	}
	for _, u := range units {
		if err := u.surface.Close(); err != nil {
			m.logger.Warn("failed to close surface on shutdown",
				zap.String("account_id", u.view.AccountID), zap.Error(err))
		}
	}

	m.logger.Info("lifecycle manager closed", zap.Int("views_closed", len(units)))
	return nil
}
