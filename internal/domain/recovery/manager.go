package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/infrastructure/config"
	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/monitoring"
	"github.com/chatdeck/chatdeck/internal/infrastructure/resilience"
	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// Views is the slice of the lifecycle manager recovery drives.
type Views interface {
	HasView(accountID string) bool
	GetViewState(accountID string) (types.View, bool)
	Reload(ctx context.Context, accountID string) error
	Nudge(ctx context.Context, accountID string) error
	RefreshConnectionStatus(ctx context.Context, accountID string) (types.ConnectionStatus, error)
	DestroyView(accountID string) error
	SwitchView(ctx context.Context, accountID string, cfg types.ViewConfig) (*types.View, error)
}

// Sessions is the slice of the session provider recovery drives.
type Sessions interface {
	Backup(accountID string, patterns []string) (string, error)
	ClearSessionData(accountID string) error
}

// Accounts resolves the configuration a recreated view should use.
type Accounts interface {
	GetAccount(id string) (types.Account, bool)
}

// reconnectJob is one account's auto-reconnect schedule.
type reconnectJob struct {
	timer    *time.Timer
	attempts int
	max      int
}

// Manager owns retry, reconnection and session reset.
type Manager struct {
	cfg      config.RecoveryConfig
	views    Views
	sessions Sessions
	accounts Accounts
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	jobs   map[string]*reconnectJob
	closed bool
}

// NewManager creates a recovery manager.
func NewManager(
	cfg config.RecoveryConfig,
	views Views,
	sessions Sessions,
	accounts Accounts,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Manager {
	return &Manager{
		cfg:      cfg,
		views:    views,
		sessions: sessions,
		accounts: accounts,
		metrics:  metrics,
		logger:   logger,
		sleep:    sleepCtx,
		jobs:     make(map[string]*reconnectJob),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RetryOperation runs op with bounded exponential backoff and returns
// a structured result carrying the attempt count.
func (m *Manager) RetryOperation(ctx context.Context, name string, op func(ctx context.Context) error) types.Result {
	attempts, err := resilience.Retry(ctx, op, resilience.RetryOptions{
		MaxRetries:   m.cfg.MaxRetries,
		InitialDelay: m.cfg.InitialDelay,
		MaxDelay:     m.cfg.MaxDelay,
	})
	if err != nil {
		m.logger.Warn("operation failed after retries",
			zap.String("operation", name),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		res := types.FailureResult(err)
		res.Attempts = attempts
		return res
	}
	return types.Result{Success: true, Attempts: attempts}
}

// ReconnectAccount heals the account's connection using a strategy
// picked from its current status: errored views get a full reload
// bounded by the reload budget, offline views get the lighter in-page
// nudge and a settling wait, online views are left alone.
func (m *Manager) ReconnectAccount(ctx context.Context, accountID string) types.Result {
	v, ok := m.views.GetViewState(accountID)
	if !ok {
		return types.FailureResult(types.Categorize(types.CategoryValidation,
			fmt.Errorf("no view for account %s", accountID)))
	}

	status := v.ConnectionStatus
	if status == types.ConnUnknown {
		if refreshed, err := m.views.RefreshConnectionStatus(ctx, accountID); err == nil {
			status = refreshed
		}
	}

	switch status {
	case types.ConnOnline:
		m.metrics.RecordReconnect("noop")
		return types.Result{Success: true, Message: "already online"}

	case types.ConnError:
		return m.reconnectResult(ctx, accountID, "reload", func(ctx context.Context) error {
			// ReloadWait caps the reload itself; the load is
			// synchronous, so a completed reload needs no settling.
			rctx, cancel := context.WithTimeout(ctx, m.cfg.ReloadWait)
			defer cancel()
			return m.views.Reload(rctx, accountID)
		})

	default: // offline or still unknown
		return m.reconnectResult(ctx, accountID, "nudge", func(ctx context.Context) error {
			if err := m.views.Nudge(ctx, accountID); err != nil {
				return err
			}
			return m.sleep(ctx, m.cfg.NudgeSettle)
		})
	}
}

func (m *Manager) reconnectResult(ctx context.Context, accountID, strategy string, heal func(ctx context.Context) error) types.Result {
	if err := heal(ctx); err != nil {
		m.metrics.RecordReconnect("failure")
		m.logger.Warn("reconnect strategy failed",
			zap.String("account_id", accountID),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		return types.FailureResult(err)
	}

	status, err := m.views.RefreshConnectionStatus(ctx, accountID)
	if err != nil {
		m.metrics.RecordReconnect("failure")
		return types.FailureResult(err)
	}
	if status != types.ConnOnline {
		m.metrics.RecordReconnect("failure")
		return types.Result{
			Success:  false,
			Message:  fmt.Sprintf("still %s after %s", status, strategy),
			Category: types.CategoryTransient,
		}
	}

	m.metrics.RecordReconnect("success")
	m.logger.Info("account reconnected",
		zap.String("account_id", accountID),
		zap.String("strategy", strategy),
	)
	return types.Result{Success: true, Message: "reconnected via " + strategy}
}

// StartAutoReconnect schedules repeated reconnect attempts for the
// account. maxAttempts zero means unlimited; starting again replaces
// the existing schedule. A non-positive interval uses the configured
// default.
func (m *Manager) StartAutoReconnect(accountID string, interval time.Duration, maxAttempts int) {
	if interval <= 0 {
		interval = m.cfg.ReconnectInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = m.cfg.ReconnectMaxTries
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if job, ok := m.jobs[accountID]; ok {
		job.timer.Stop()
	}

	job := &reconnectJob{max: maxAttempts}
	job.timer = time.AfterFunc(interval, func() {
		m.fireReconnect(accountID, interval)
	})
	m.jobs[accountID] = job

	m.logger.Info("auto-reconnect scheduled",
		zap.String("account_id", accountID),
		zap.Duration("interval", interval),
		zap.Int("max_attempts", maxAttempts),
	)
}

func (m *Manager) fireReconnect(accountID string, interval time.Duration) {
	m.mu.Lock()
	job, ok := m.jobs[accountID]
	if !ok || m.closed {
		m.mu.Unlock()
		return
	}
	job.attempts++
	attempts, max := job.attempts, job.max
	m.mu.Unlock()

	if !m.views.HasView(accountID) {
		m.StopAutoReconnect(accountID)
		return
	}

	res := m.ReconnectAccount(context.Background(), accountID)
	if res.Success {
		m.logger.Info("auto-reconnect succeeded",
			zap.String("account_id", accountID),
			zap.Int("attempts", attempts),
		)
		m.StopAutoReconnect(accountID)
		return
	}
	if max > 0 && attempts >= max {
		m.logger.Warn("auto-reconnect budget exhausted",
			zap.String("account_id", accountID),
			zap.Int("attempts", attempts),
		)
		m.StopAutoReconnect(accountID)
		return
	}

	m.mu.Lock()
	if current, ok := m.jobs[accountID]; ok && current == job && !m.closed {
		job.timer = time.AfterFunc(interval, func() {
			m.fireReconnect(accountID, interval)
		})
	}
	m.mu.Unlock()
}

// StopAutoReconnect cancels the account's reconnect schedule. Safe to
// call when none exists.
func (m *Manager) StopAutoReconnect(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[accountID]; ok {
		job.timer.Stop()
		delete(m.jobs, accountID)
	}
}

// ActiveReconnects returns how many accounts have a reconnect schedule.
func (m *Manager) ActiveReconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// HandleConnectionChange is wired as the lifecycle manager's recovery
// notifier: a degraded connection starts an auto-reconnect schedule
// with the configured defaults.
func (m *Manager) HandleConnectionChange(accountID string, status types.ConnectionStatus) {
	if status != types.ConnOffline && status != types.ConnError {
		return
	}

	m.mu.Lock()
	_, scheduled := m.jobs[accountID]
	m.mu.Unlock()
	if scheduled {
		return
	}

	m.logger.Info("connection degraded, scheduling auto-reconnect",
		zap.String("account_id", accountID),
		zap.String("status", string(status)),
	)
	m.StartAutoReconnect(accountID, 0, 0)
}

// RecoverSessionData heals corrupted session data: best-effort backup,
// partition reset, then view recreation from the account's current
// configuration. A failed backup is logged and does not block the
// reset.
func (m *Manager) RecoverSessionData(ctx context.Context, accountID string) types.Result {
	hadView := m.views.HasView(accountID)

	if archive, err := m.sessions.Backup(accountID, nil); err != nil {
		m.metrics.RecordSessionBackup("failure")
		m.logger.Warn("session backup failed, continuing with reset",
			zap.String("account_id", accountID), zap.Error(err))
	} else {
		m.metrics.RecordSessionBackup("success")
		m.logger.Info("session data backed up",
			zap.String("account_id", accountID), zap.String("archive", archive))
	}

	if hadView {
		if err := m.views.DestroyView(accountID); err != nil {
			return types.FailureResult(err)
		}
	}
	if err := m.sessions.ClearSessionData(accountID); err != nil {
		return types.FailureResult(err)
	}
	m.metrics.IncSessionResets()

	if hadView {
		cfg := types.ViewConfig{}
		if acct, ok := m.accounts.GetAccount(accountID); ok {
			cfg = acct.ViewConfig()
		}
		if _, err := m.views.SwitchView(ctx, accountID, cfg); err != nil {
			return types.FailureResult(err)
		}
	}

	m.logger.Info("session data recovered", zap.String("account_id", accountID))
	return types.Result{Success: true, Message: "session reset"}
}

// ResetAccount destroys the account's view and wipes its session data
// without taking a backup or recreating anything.
func (m *Manager) ResetAccount(accountID string) types.Result {
	m.StopAutoReconnect(accountID)

	if m.views.HasView(accountID) {
		if err := m.views.DestroyView(accountID); err != nil {
			return types.FailureResult(err)
		}
	}
	if err := m.sessions.ClearSessionData(accountID); err != nil {
		return types.FailureResult(err)
	}
	m.metrics.IncSessionResets()

	m.logger.Info("account reset", zap.String("account_id", accountID))
	return types.Result{Success: true, Message: "account reset"}
}

// Cleanup cancels every reconnect schedule and refuses new ones.
// Idempotent.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for id, job := range m.jobs {
		job.timer.Stop()
		delete(m.jobs, id)
	}
	m.logger.Info("recovery manager cleaned up")
}
