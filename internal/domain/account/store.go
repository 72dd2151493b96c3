package account

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/shared/types"
	"github.com/chatdeck/chatdeck/internal/shared/utils"
)

// EventType classifies account lifecycle notifications.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is delivered to subscribers on every account change.
type Event struct {
	Type    EventType
	Account types.Account
}

// fileFormat is the on-disk TOML document shape.
type fileFormat struct {
	Accounts []types.Account `toml:"accounts"`
}

// Store is a TOML file backed account store.
type Store struct {
	path   string
	logger *logging.Logger

	mu       sync.RWMutex
	accounts map[string]types.Account
	subs     []chan Event
}

// NewStore loads (or initializes) the account file at path.
func NewStore(path string, logger *logging.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		logger:   logger,
		accounts: make(map[string]types.Account),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read account store: %w", err)
	}

	var doc fileFormat
	if err := toml.Unmarshal(data, &doc); err != nil {
		return types.Categorize(types.CategoryCorruption, fmt.Errorf("failed to parse account store: %w", err))
	}
	for _, a := range doc.Accounts {
		s.accounts[a.ID] = a
	}
	return nil
}

// save must be called with at least a read lock held.
func (s *Store) save() error {
	doc := fileFormat{Accounts: make([]types.Account, 0, len(s.accounts))}
	for _, a := range s.accounts {
		doc.Accounts = append(doc.Accounts, a)
	}
	sort.Slice(doc.Accounts, func(i, j int) bool { return doc.Accounts[i].ID < doc.Accounts[j].ID })

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode account store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write account store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// GetAccount returns the account record for id.
func (s *Store) GetAccount(id string) (types.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	return a, ok
}

// ListAccounts returns all accounts sorted by id.
func (s *Store) ListAccounts() []types.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateAccount validates and persists a new account record.
func (s *Store) CreateAccount(a types.Account) error {
	if err := utils.ValidateAccountID(a.ID); err != nil {
		return err
	}
	if err := utils.ValidateProxy(a.Proxy); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.accounts[a.ID]; exists {
		s.mu.Unlock()
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account %s already exists", a.ID))
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.ID] = a
	err := s.save()
	if err != nil {
		delete(s.accounts, a.ID)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("account created", zap.String("account_id", a.ID))
	s.notify(Event{Type: EventCreated, Account: a})
	return nil
}

// UpdateAccount validates and persists changes to an existing record.
func (s *Store) UpdateAccount(a types.Account) error {
	if err := utils.ValidateAccountID(a.ID); err != nil {
		return err
	}
	if err := utils.ValidateProxy(a.Proxy); err != nil {
		return err
	}

	s.mu.Lock()
	prev, exists := s.accounts[a.ID]
	if !exists {
		s.mu.Unlock()
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account %s not found", a.ID))
	}
	a.CreatedAt = prev.CreatedAt
	a.UpdatedAt = time.Now()
	s.accounts[a.ID] = a
	err := s.save()
	if err != nil {
		s.accounts[a.ID] = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("account updated", zap.String("account_id", a.ID))
	s.notify(Event{Type: EventUpdated, Account: a})
	return nil
}

// DeleteAccount removes an account record.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	a, exists := s.accounts[id]
	if !exists {
		s.mu.Unlock()
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account %s not found", id))
	}
	delete(s.accounts, id)
	err := s.save()
	if err != nil {
		s.accounts[id] = a
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("account deleted", zap.String("account_id", id))
	s.notify(Event{Type: EventDeleted, Account: a})
	return nil
}

// Subscribe returns a channel of account events and a cancel function.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 16)
	s.subs = append(s.subs, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			for i, c := range s.subs {
				if c == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					close(c)
					break
				}
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Store) notify(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
