package account

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/shared/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "accounts.toml"), logging.NewNop())
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.CreateAccount(types.Account{ID: "work", Name: "Work", URL: "https://chat.example.com"}))

	got, ok := s.GetAccount("work")
	require.True(t, ok)
	assert.Equal(t, "Work", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateDuplicateRejected(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.CreateAccount(types.Account{ID: "work"}))
	err := s.CreateAccount(types.Account{ID: "work"})
	require.Error(t, err)
	assert.True(t, types.IsCategory(err, types.CategoryValidation))
}

func TestCreateValidatesProxy(t *testing.T) {
	s := newStore(t)

	err := s.CreateAccount(types.Account{
		ID:    "work",
		Proxy: &types.ProxyConfig{Protocol: "ftp", Host: "127.0.0.1", Port: 8080},
	})
	require.Error(t, err)
	assert.True(t, types.IsCategory(err, types.CategoryValidation))

	_, ok := s.GetAccount("work")
	assert.False(t, ok, "rejected account must not be stored")
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.CreateAccount(types.Account{ID: "work", Name: "Work"}))
	created, _ := s.GetAccount("work")

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.UpdateAccount(types.Account{ID: "work", Name: "Renamed"}))

	got, _ := s.GetAccount("work")
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateUnknownAccountFails(t *testing.T) {
	s := newStore(t)
	assert.Error(t, s.UpdateAccount(types.Account{ID: "ghost"}))
}

func TestDelete(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.CreateAccount(types.Account{ID: "work"}))
	require.NoError(t, s.DeleteAccount("work"))

	_, ok := s.GetAccount("work")
	assert.False(t, ok)
	assert.Error(t, s.DeleteAccount("work"))
}

func TestListSorted(t *testing.T) {
	s := newStore(t)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.CreateAccount(types.Account{ID: id}))
	}

	list := s.ListAccounts()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Equal(t, "zeta", list[2].ID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.toml")

	first, err := NewStore(path, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.CreateAccount(types.Account{
		ID:    "work",
		Name:  "Work",
		URL:   "https://chat.example.com",
		Proxy: &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 8080},
	}))

	second, err := NewStore(path, logging.NewNop())
	require.NoError(t, err)

	got, ok := second.GetAccount("work")
	require.True(t, ok)
	assert.Equal(t, "Work", got.Name)
	require.NotNil(t, got.Proxy)
	assert.Equal(t, 8080, got.Proxy.Port)
}

func TestCorruptFileSurfacesCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(path, []byte("accounts = not toml"), 0o600))

	_, err := NewStore(path, logging.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsCategory(err, types.CategoryCorruption))
}

func TestSubscribeDeliversEvents(t *testing.T) {
	s := newStore(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.CreateAccount(types.Account{ID: "work"}))
	require.NoError(t, s.UpdateAccount(types.Account{ID: "work", Name: "Work"}))
	require.NoError(t, s.DeleteAccount("work"))

	want := []EventType{EventCreated, EventUpdated, EventDeleted}
	for _, typ := range want {
		select {
		case ev := <-ch:
			assert.Equal(t, typ, ev.Type)
			assert.Equal(t, "work", ev.Account.ID)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s := newStore(t)

	ch, cancel := s.Subscribe()
	cancel()
	cancel() // idempotent

	require.NoError(t, s.CreateAccount(types.Account{ID: "work"}))

	_, open := <-ch
	assert.False(t, open)
}
