package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/chatdeck/chatdeck/internal/infrastructure/logging"
	"github.com/chatdeck/chatdeck/internal/infrastructure/resilience"
	"github.com/chatdeck/chatdeck/internal/shared/types"
	"github.com/chatdeck/chatdeck/internal/surface"
)

// Probe inspects a surface for coarse status signals.
type Probe interface {
	Connection(ctx context.Context, accountID string, s surface.Surface) (types.ConnectionStatus, error)
	Login(ctx context.Context, accountID string, s surface.Surface) (types.LoginStatus, error)
}

// Selectors configure the document-structure heuristics.
type Selectors struct {
	// ContentPane is a CSS selector whose presence means the chat
	// document rendered.
	ContentPane string
	// AuthPrompt is an XPath expression whose presence means the
	// account is logged out.
	AuthPrompt string
}

// DefaultSelectors cover the common shape of chat documents: a main
// pane when authenticated, a password field or QR container when not.
func DefaultSelectors() Selectors {
	return Selectors{
		ContentPane: "#main, [data-chat-ready], .chat-pane",
		AuthPrompt:  "//*[@data-auth-prompt] | //form[.//input[@type='password']] | //*[contains(@class,'login-qr')]",
	}
}

// Options configures the document probe.
type Options struct {
	Selectors Selectors
	// Timeout bounds the reachability check; zero means 5s.
	Timeout time.Duration
	// ProbesPerSecond caps probe rate per account; zero means 1/s.
	ProbesPerSecond float64
	// Breaker protects the probe path; nil disables it.
	Breaker *resilience.Breaker
}

// DocumentProbe is the default heuristic Probe.
type DocumentProbe struct {
	opts   Options
	client *retryablehttp.Client
	logger *logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDocumentProbe creates a probe with the given options.
func NewDocumentProbe(opts Options, logger *logging.Logger) *DocumentProbe {
	if opts.Selectors.ContentPane == "" {
		opts.Selectors = DefaultSelectors()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ProbesPerSecond <= 0 {
		opts.ProbesPerSecond = 1
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil

	return &DocumentProbe{
		opts:     opts,
		client:   client,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Connection reports the connectivity signal for the surface.
func (p *DocumentProbe) Connection(ctx context.Context, accountID string, s surface.Surface) (types.ConnectionStatus, error) {
	if err := p.limiter(accountID).Wait(ctx); err != nil {
		return types.ConnUnknown, err
	}

	var status types.ConnectionStatus
	err := p.guarded(func() error {
		var inner error
		status, inner = p.probeConnection(ctx, accountID, s)
		return inner
	})
	if err != nil {
		if err == resilience.ErrBreakerOpen {
			return types.ConnUnknown, err
		}
		return types.ConnError, err
	}
	return status, nil
}

func (p *DocumentProbe) probeConnection(ctx context.Context, accountID string, s surface.Surface) (types.ConnectionStatus, error) {
	if rawURL := s.URL(); rawURL != "" {
		if reachable := p.reachable(ctx, rawURL); !reachable {
			return types.ConnOffline, fmt.Errorf("document host unreachable for %s", accountID)
		}
	}

	html, err := s.Document(ctx)
	if err != nil {
		return types.ConnError, fmt.Errorf("failed to read document for %s: %w", accountID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.ConnError, fmt.Errorf("failed to parse document for %s: %w", accountID, err)
	}

	if doc.Find(p.opts.Selectors.ContentPane).Length() > 0 {
		return types.ConnOnline, nil
	}
	// A parseable document without a content pane usually means the
	// auth screen; the connection itself is up.
	if loggedOut, _ := p.authPromptPresent(html); loggedOut {
		return types.ConnOnline, nil
	}
	return types.ConnOffline, nil
}

// Login reports the authentication signal for the surface.
func (p *DocumentProbe) Login(ctx context.Context, accountID string, s surface.Surface) (types.LoginStatus, error) {
	if err := p.limiter(accountID).Wait(ctx); err != nil {
		return types.LoginUnknown, err
	}

	var status types.LoginStatus
	err := p.guarded(func() error {
		html, inner := s.Document(ctx)
		if inner != nil {
			return fmt.Errorf("failed to read document for %s: %w", accountID, inner)
		}

		loggedOut, inner := p.authPromptPresent(html)
		if inner != nil {
			return inner
		}
		if loggedOut {
			status = types.LoginLoggedOut
			return nil
		}

		doc, inner := goquery.NewDocumentFromReader(strings.NewReader(html))
		if inner != nil {
			return fmt.Errorf("failed to parse document for %s: %w", accountID, inner)
		}
		if doc.Find(p.opts.Selectors.ContentPane).Length() > 0 {
			status = types.LoginLoggedIn
			return nil
		}
		status = types.LoginUnknown
		return nil
	})
	if err != nil {
		return types.LoginUnknown, err
	}
	return status, nil
}

// authPromptPresent evaluates the XPath heuristic for the auth screen.
func (p *DocumentProbe) authPromptPresent(html string) (bool, error) {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse document: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, p.opts.Selectors.AuthPrompt)
	if err != nil {
		return false, fmt.Errorf("bad auth prompt expression: %w", err)
	}
	return len(nodes) > 0, nil
}

// reachable performs a bounded HEAD against the document host.
func (p *DocumentProbe) reachable(ctx context.Context, rawURL string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (p *DocumentProbe) guarded(op func() error) error {
	if p.opts.Breaker == nil {
		return op()
	}
	return p.opts.Breaker.Do(op)
}

func (p *DocumentProbe) limiter(accountID string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[accountID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.opts.ProbesPerSecond), 1)
		p.limiters[accountID] = l
	}
	return l
}
