package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/shared/paths"
	"github.com/chatdeck/chatdeck/internal/shared/types"
	"github.com/chatdeck/chatdeck/internal/shared/utils"
)

// Context is one account's isolated execution/storage context.
type Context struct {
	AccountID    string
	PartitionKey string
	StoragePath  string
	Proxy        *types.ProxyConfig
	CreatedAt    time.Time
}

// Provider owns the account-to-context mapping.
type Provider struct {
	root   string
	logger *logging.Logger

	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewProvider creates a provider rooted at the given data directory.
func NewProvider(root string, logger *logging.Logger) (*Provider, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	for _, dir := range []string{filepath.Join(root, paths.Profiles), paths.BackupDir(root)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &Provider{
		root:     root,
		logger:   logger,
		contexts: make(map[string]*Context),
	}, nil
}

// Root returns the provider's data root.
func (p *Provider) Root() string { return p.root }

// GetContext returns the context for an account, creating its partition
// on first need. Repeated calls for the same id return a context bound
// to the same on-disk storage.
func (p *Provider) GetContext(accountID string) (*Context, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx, ok := p.contexts[accountID]; ok {
		return ctx, nil
	}

	dir := paths.ProfileDir(p.root, accountID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create partition for %s: %w", accountID, err)
	}

	ctx := &Context{
		AccountID:    accountID,
		PartitionKey: paths.PartitionKey(accountID),
		StoragePath:  dir,
		CreatedAt:    time.Now(),
	}
	p.contexts[accountID] = ctx

	p.logger.Info("session context created",
		zap.String("account_id", accountID),
		zap.String("partition", ctx.PartitionKey),
	)
	return ctx, nil
}

// ConfigureProxy validates and applies a proxy rule to the account's
// context. Validation failures leave state unchanged.
func (p *Provider) ConfigureProxy(accountID string, cfg *types.ProxyConfig) error {
	if err := utils.ValidateProxy(cfg); err != nil {
		return err
	}

	ctx, err := p.GetContext(accountID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg == nil {
		ctx.Proxy = nil
		return nil
	}
	applied := *cfg
	ctx.Proxy = &applied

	p.logger.Info("proxy configured",
		zap.String("account_id", accountID),
		zap.String("protocol", string(cfg.Protocol)),
		zap.String("addr", cfg.Addr()),
	)
	return nil
}

// ClearProxy removes the account's proxy rule.
func (p *Provider) ClearProxy(accountID string) error {
	ctx, err := p.GetContext(accountID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ctx.Proxy = nil
	return nil
}

// Proxy returns a copy of the account's current proxy rule, or nil.
func (p *Provider) Proxy(accountID string) *types.ProxyConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ctx, ok := p.contexts[accountID]
	if !ok || ctx.Proxy == nil {
		return nil
	}
	cp := *ctx.Proxy
	return &cp
}

// VerifyIsolation cross-checks that the account's partition key and
// storage path are unique among live contexts and that the backing
// store exists. Failures are corruption-category errors.
func (p *Provider) VerifyIsolation(accountID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ctx, ok := p.contexts[accountID]
	if !ok {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("no live context for %s", accountID))
	}

	if ctx.PartitionKey != paths.PartitionKey(accountID) {
		return types.Categorize(types.CategoryCorruption,
			fmt.Errorf("partition key %q does not match account %s", ctx.PartitionKey, accountID))
	}

	info, err := os.Stat(ctx.StoragePath)
	if err != nil || !info.IsDir() {
		return types.Categorize(types.CategoryCorruption,
			fmt.Errorf("backing store missing for %s: %v", accountID, err))
	}

	for id, other := range p.contexts {
		if id == accountID {
			continue
		}
		if other.PartitionKey == ctx.PartitionKey || other.StoragePath == ctx.StoragePath {
			return types.Categorize(types.CategoryCorruption,
				fmt.Errorf("accounts %s and %s share a backing store", accountID, id))
		}
	}
	return nil
}

// ReleaseContext drops the in-memory handle. On-disk data stays.
func (p *Provider) ReleaseContext(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.contexts, accountID)
}

// ReleaseAll drops every in-memory handle.
func (p *Provider) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contexts = make(map[string]*Context)
}

// ClearSessionData deletes the account's on-disk partition. If a live
// context exists its directory is recreated empty so the handle stays
// valid.
func (p *Provider) ClearSessionData(accountID string) error {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return err
	}
	dir := paths.ProfileDir(p.root, accountID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear session data for %s: %w", accountID, err)
	}

	p.mu.RLock()
	_, live := p.contexts[accountID]
	p.mu.RUnlock()
	if live {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to recreate partition for %s: %w", accountID, err)
		}
	}

	p.logger.Info("session data cleared", zap.String("account_id", accountID))
	return nil
}

// DiskUsage reports the on-disk size of the account's partition.
func (p *Provider) DiskUsage(accountID string) (int64, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return 0, err
	}

	dir := paths.ProfileDir(p.root, accountID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total.Add(info.Size())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure partition for %s: %w", accountID, err)
	}
	return total.Load(), nil
}

// LiveContexts returns the number of in-memory context handles.
func (p *Provider) LiveContexts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.contexts)
}
