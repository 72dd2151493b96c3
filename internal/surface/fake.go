package surface

import (
	"context"
	"sync"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// Fake is an in-memory Surface for tests and for running the lifecycle
// core without network access.
type Fake struct {
	mu         sync.Mutex
	currentURL string
	Doc        string
	Heap       int64
	LoadErr    error
	ReloadErr  error
	NudgeErr   error
	Loads      int
	Reloads    int
	Nudges     int
	Closed     bool

	// LoadHook, when set, runs during Load after the counter bump,
	// outside the surface lock.
	LoadHook func(ctx context.Context) error
}

// FakeFactory hands out Fake surfaces and records creations.
type FakeFactory struct {
	mu       sync.Mutex
	Surfaces map[string]*Fake
	NewErr   error

	// LoadHook, when set, is installed on every surface the factory
	// creates, with the owning account id bound in.
	LoadHook func(ctx context.Context, accountID string) error
}

// NewFakeFactory creates an empty fake factory.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{Surfaces: make(map[string]*Fake)}
}

// New returns a fresh Fake for the account.
func (f *FakeFactory) New(accountID, profileDir string, proxy *types.ProxyConfig, hints map[string]string) (Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	s := &Fake{}
	if f.LoadHook != nil {
		hook, id := f.LoadHook, accountID
		s.LoadHook = func(ctx context.Context) error { return hook(ctx, id) }
	}
	f.Surfaces[accountID] = s
	return s, nil
}

func (s *Fake) Load(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	s.Loads++
	hook, loadErr := s.LoadHook, s.LoadErr
	s.mu.Unlock()

	if loadErr != nil {
		return loadErr
	}
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.currentURL = rawURL
	s.mu.Unlock()
	return nil
}

func (s *Fake) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reloads++
	return s.ReloadErr
}

func (s *Fake) Nudge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Nudges++
	return s.NudgeErr
}

func (s *Fake) Document(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Doc, nil
}

func (s *Fake) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *Fake) HeapUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Heap
}

func (s *Fake) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}
