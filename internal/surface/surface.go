package surface

import (
	"context"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// Surface is one attached-or-pooled execution surface bound to a single
// account's session context.
type Surface interface {
	// Load navigates the surface to the given document URL.
	Load(ctx context.Context, rawURL string) error
	// Reload performs a full document reload of the current URL.
	Reload(ctx context.Context) error
	// Nudge performs the lighter in-page reconnection, leaving the
	// current document in place.
	Nudge(ctx context.Context) error
	// Document returns the current document HTML for status probes.
	Document(ctx context.Context) (string, error)
	// URL returns the current document URL, empty before first Load.
	URL() string
	// HeapUsage reports the surface's resident memory in bytes.
	HeapUsage() int64
	// Close detaches the surface and flushes persistent state.
	Close() error
}

// Factory creates surfaces bound to an account partition.
type Factory interface {
	New(accountID, profileDir string, proxy *types.ProxyConfig, hints map[string]string) (Surface, error)
}
