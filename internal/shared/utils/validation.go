package utils

import (
	"fmt"
	"regexp"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// String length limits
const (
	MaxAccountIDLength = 128
	MaxNameLength      = 256
	MaxHostLength      = 255
)

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// hostPattern is a permissive hostname/IP check; the dialer does the
// authoritative resolution.
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

var proxyProtocols = map[types.ProxyProtocol]bool{
	types.ProxyHTTP:   true,
	types.ProxyHTTPS:  true,
	types.ProxySOCKS4: true,
	types.ProxySOCKS5: true,
}

// ValidateAccountID validates an account identifier
func ValidateAccountID(id string) error {
	if id == "" {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account id is required"))
	}
	if len(id) > MaxAccountIDLength {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account id exceeds %d characters", MaxAccountIDLength))
	}
	if !SafeIDPattern.MatchString(id) {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("account id contains invalid characters (only alphanumeric, hyphens, and underscores allowed)"))
	}
	return nil
}

// ValidateProxy validates a proxy rule against the protocol, host, port
// and both-or-neither credential invariants. A nil config is valid and
// means direct connection.
func ValidateProxy(cfg *types.ProxyConfig) error {
	if cfg == nil {
		return nil
	}
	if !proxyProtocols[cfg.Protocol] {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("unsupported proxy protocol %q", cfg.Protocol))
	}
	if cfg.Host == "" {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("proxy host is required"))
	}
	if len(cfg.Host) > MaxHostLength || !hostPattern.MatchString(cfg.Host) {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("invalid proxy host %q", cfg.Host))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("proxy port %d out of range 1-65535", cfg.Port))
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return types.Categorize(types.CategoryValidation, fmt.Errorf("proxy username and password must be provided together"))
	}
	return nil
}
