package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

const (
	defaultLoadTimeout = 30 * time.Second
	cookieFileName     = "cookies.json"
)

// WebFactory builds HTTP-backed surfaces.
type WebFactory struct {
	// LoadTimeout bounds document loads; zero means 30s.
	LoadTimeout time.Duration
}

// NewWebFactory returns a factory with default timeouts.
func NewWebFactory() *WebFactory {
	return &WebFactory{LoadTimeout: defaultLoadTimeout}
}

// New creates a surface with a persistent cookie jar under profileDir
// and an outbound transport honoring the proxy rule.
func (f *WebFactory) New(accountID, profileDir string, proxyCfg *types.ProxyConfig, hints map[string]string) (Surface, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport, err := buildTransport(proxyCfg)
	if err != nil {
		return nil, err
	}

	timeout := f.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}

	client := resty.New().
		SetTransport(transport).
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	s := &webSurface{
		accountID:  accountID,
		profileDir: profileDir,
		client:     client,
		jar:        jar,
		hints:      hints,
	}
	if err := s.restoreCookies(); err != nil {
		// A missing or corrupt cookie file is not fatal; the account
		// simply starts logged out.
		s.cookieRestoreErr = err
	}
	return s, nil
}

// webSurface renders the remote document as fetched HTML.
type webSurface struct {
	accountID  string
	profileDir string
	client     *resty.Client
	jar        http.CookieJar
	hints      map[string]string

	mu               sync.Mutex
	currentURL       string
	document         string
	cookieRestoreErr error
	closed           bool
}

func (s *webSurface) Load(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("invalid document URL %q: %w", rawURL, err))
	}

	// Translation hints ride along verbatim; the remote document owns
	// their meaning.
	q := u.Query()
	for k, v := range s.hints {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	resp, err := s.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return fmt.Errorf("failed to load document for %s: %w", s.accountID, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("document load for %s returned %d", s.accountID, resp.StatusCode())
	}

	s.mu.Lock()
	s.currentURL = rawURL
	s.document = string(resp.Body())
	s.mu.Unlock()

	return s.persistCookies(u)
}

func (s *webSurface) Reload(ctx context.Context) error {
	s.mu.Lock()
	current := s.currentURL
	s.mu.Unlock()

	if current == "" {
		return fmt.Errorf("surface for %s has no document to reload", s.accountID)
	}
	return s.Load(ctx, current)
}

func (s *webSurface) Nudge(ctx context.Context) error {
	s.mu.Lock()
	current := s.currentURL
	s.mu.Unlock()

	if current == "" {
		return fmt.Errorf("surface for %s has no document to nudge", s.accountID)
	}

	// Lightweight connection re-establishment; the document itself is
	// left untouched.
	resp, err := s.client.R().SetContext(ctx).Head(current)
	if err != nil {
		return fmt.Errorf("nudge failed for %s: %w", s.accountID, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("nudge for %s returned %d", s.accountID, resp.StatusCode())
	}
	return nil
}

func (s *webSurface) Document(ctx context.Context) (string, error) {
	s.mu.Lock()
	doc := s.document
	current := s.currentURL
	s.mu.Unlock()

	if doc != "" {
		return doc, nil
	}
	if current == "" {
		return "", fmt.Errorf("surface for %s has no document loaded", s.accountID)
	}
	if err := s.Load(ctx, current); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document, nil
}

func (s *webSurface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *webSurface) HeapUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.document))
}

func (s *webSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	current := s.currentURL
	s.document = ""
	s.mu.Unlock()

	if current == "" {
		return nil
	}
	u, err := url.Parse(current)
	if err != nil {
		return nil
	}
	return s.persistCookies(u)
}

// persistedCookie is the on-disk cookie representation.
type persistedCookie struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
}

func (s *webSurface) cookiePath() string {
	return filepath.Join(s.profileDir, cookieFileName)
}

func (s *webSurface) persistCookies(u *url.URL) error {
	cookies := s.jar.Cookies(u)
	if len(cookies) == 0 {
		return nil
	}

	records := make([]persistedCookie, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, persistedCookie{
			URL:    u.Scheme + "://" + u.Host,
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode cookies for %s: %w", s.accountID, err)
	}
	if err := os.WriteFile(s.cookiePath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to persist cookies for %s: %w", s.accountID, err)
	}
	return nil
}

func (s *webSurface) restoreCookies() error {
	data, err := os.ReadFile(s.cookiePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var records []persistedCookie
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("corrupt cookie store for %s: %w", s.accountID, err)
	}

	byURL := make(map[string][]*http.Cookie)
	for _, r := range records {
		byURL[r.URL] = append(byURL[r.URL], &http.Cookie{
			Name:   r.Name,
			Value:  r.Value,
			Path:   r.Path,
			Domain: r.Domain,
		})
	}
	for raw, cookies := range byURL {
		if u, err := url.Parse(raw); err == nil {
			s.jar.SetCookies(u, cookies)
		}
	}
	return nil
}

// buildTransport constructs the outbound transport for a proxy rule.
// SOCKS4 rules validate at the configuration layer but the outbound
// dialer only speaks SOCKS5; attachment reports that as a failure the
// caller may retry against an updated rule.
func buildTransport(cfg *types.ProxyConfig) (*http.Transport, error) {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg == nil {
		return transport, nil
	}

	switch cfg.Protocol {
	case types.ProxyHTTP, types.ProxyHTTPS:
		proxyURL, err := url.Parse(cfg.URL())
		if err != nil {
			return nil, types.Categorize(types.CategoryValidation, fmt.Errorf("invalid proxy rule: %w", err))
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	case types.ProxySOCKS5:
		var auth *proxy.Auth
		if cfg.Username != "" {
			auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.Addr(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to build socks5 dialer: %w", err)
		}
		if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = ctxDialer.DialContext
		}
	case types.ProxySOCKS4:
		return nil, fmt.Errorf("socks4 proxy %s is not supported by the outbound dialer", cfg.Addr())
	default:
		return nil, types.Categorize(types.CategoryValidation, fmt.Errorf("unsupported proxy protocol %q", cfg.Protocol))
	}
	return transport, nil
}
