package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/shared/types"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(t.TempDir(), logging.NewNop())
	require.NoError(t, err)
	return p
}

func TestGetContextIdempotent(t *testing.T) {
	p := newProvider(t)

	first, err := p.GetContext("acct-1")
	require.NoError(t, err)
	second, err := p.GetContext("acct-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "account_acct-1", first.PartitionKey)
	assert.DirExists(t, first.StoragePath)
}

func TestGetContextPartitionsNeverCollide(t *testing.T) {
	p := newProvider(t)

	a, err := p.GetContext("acct-1")
	require.NoError(t, err)
	b, err := p.GetContext("acct-2")
	require.NoError(t, err)

	assert.NotEqual(t, a.PartitionKey, b.PartitionKey)
	assert.NotEqual(t, a.StoragePath, b.StoragePath)
}

func TestGetContextRejectsBadIDs(t *testing.T) {
	p := newProvider(t)

	for _, id := range []string{"", "../escape", "a b", "x/y"} {
		_, err := p.GetContext(id)
		require.Error(t, err, "id %q should be rejected", id)
		assert.True(t, types.IsCategory(err, types.CategoryValidation))
	}
}

func TestConfigureProxyValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *types.ProxyConfig
		valid bool
	}{
		{"valid http", &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 8080}, true},
		{"valid socks5 with auth", &types.ProxyConfig{Protocol: types.ProxySOCKS5, Host: "proxy.local", Port: 1080, Username: "u", Password: "p"}, true},
		{"valid socks4", &types.ProxyConfig{Protocol: types.ProxySOCKS4, Host: "proxy.local", Port: 1080}, true},
		{"unsupported protocol", &types.ProxyConfig{Protocol: "ftp", Host: "127.0.0.1", Port: 8080}, false},
		{"port zero", &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 0}, false},
		{"port too large", &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 70000}, false},
		{"username without password", &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 8080, Username: "u"}, false},
		{"password without username", &types.ProxyConfig{Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 8080, Password: "p"}, false},
		{"missing host", &types.ProxyConfig{Protocol: types.ProxyHTTP, Port: 8080}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t)
			err := p.ConfigureProxy("acct-1", tt.cfg)
			if tt.valid {
				require.NoError(t, err)
				require.NotNil(t, p.Proxy("acct-1"))
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsCategory(err, types.CategoryValidation))
			assert.Nil(t, p.Proxy("acct-1"), "failed validation must not change state")
		})
	}
}

func TestClearProxy(t *testing.T) {
	p := newProvider(t)

	require.NoError(t, p.ConfigureProxy("acct-1", &types.ProxyConfig{
		Protocol: types.ProxyHTTP, Host: "127.0.0.1", Port: 8080,
	}))
	require.NotNil(t, p.Proxy("acct-1"))

	require.NoError(t, p.ClearProxy("acct-1"))
	assert.Nil(t, p.Proxy("acct-1"))
}

func TestVerifyIsolation(t *testing.T) {
	p := newProvider(t)

	_, err := p.GetContext("acct-1")
	require.NoError(t, err)
	_, err = p.GetContext("acct-2")
	require.NoError(t, err)

	assert.NoError(t, p.VerifyIsolation("acct-1"))
	assert.NoError(t, p.VerifyIsolation("acct-2"))

	err = p.VerifyIsolation("acct-3")
	assert.Error(t, err, "no live context")
}

func TestVerifyIsolationDetectsMissingStore(t *testing.T) {
	p := newProvider(t)

	ctx, err := p.GetContext("acct-1")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(ctx.StoragePath))

	err = p.VerifyIsolation("acct-1")
	require.Error(t, err)
	assert.True(t, types.IsCategory(err, types.CategoryCorruption))
}

func TestClearSessionData(t *testing.T) {
	p := newProvider(t)

	ctx, err := p.GetContext("acct-1")
	require.NoError(t, err)
	file := filepath.Join(ctx.StoragePath, "cookies.json")
	require.NoError(t, os.WriteFile(file, []byte(`[]`), 0o600))

	require.NoError(t, p.ClearSessionData("acct-1"))

	assert.NoFileExists(t, file)
	// Live context keeps a valid (empty) partition.
	assert.DirExists(t, ctx.StoragePath)
}

func TestReleaseContextKeepsDisk(t *testing.T) {
	p := newProvider(t)

	ctx, err := p.GetContext("acct-1")
	require.NoError(t, err)

	p.ReleaseContext("acct-1")
	assert.Equal(t, 0, p.LiveContexts())
	assert.DirExists(t, ctx.StoragePath, "release must not touch disk")

	again, err := p.GetContext("acct-1")
	require.NoError(t, err)
	assert.Equal(t, ctx.StoragePath, again.StoragePath)
}

func TestDiskUsage(t *testing.T) {
	p := newProvider(t)

	ctx, err := p.GetContext("acct-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ctx.StoragePath, "cookies.json"), make([]byte, 1024), 0o600))

	size, err := p.DiskUsage("acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), size)

	size, err = p.DiskUsage("acct-never-seen")
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestBackupSelectsPatternedFiles(t *testing.T) {
	p := newProvider(t)

	ctx, err := p.GetContext("acct-1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ctx.StoragePath, "cookies.json"), []byte(`[]`), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(ctx.StoragePath, "cache"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(ctx.StoragePath, "cache", "blob"), []byte("x"), 0o600))

	archive, err := p.Backup("acct-1", nil)
	require.NoError(t, err)
	assert.FileExists(t, archive)

	info, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBackupMissingPartitionFails(t *testing.T) {
	p := newProvider(t)

	_, err := p.Backup("acct-none", nil)
	assert.Error(t, err)
}
