package types

import "fmt"

// ProxyProtocol enumerates supported outbound proxy protocols
type ProxyProtocol string

const (
	ProxyHTTP   ProxyProtocol = "http"
	ProxyHTTPS  ProxyProtocol = "https"
	ProxySOCKS4 ProxyProtocol = "socks4"
	ProxySOCKS5 ProxyProtocol = "socks5"
)

// ProxyConfig is a per-account outbound proxy rule. Username and
// password are both-or-neither.
type ProxyConfig struct {
	Protocol ProxyProtocol `json:"protocol" toml:"protocol"`
	Host     string        `json:"host" toml:"host"`
	Port     int           `json:"port" toml:"port"`
	Username string        `json:"username,omitempty" toml:"username,omitempty"`
	Password string        `json:"password,omitempty" toml:"password,omitempty"`
}

// URL renders the proxy rule as a URL string usable by transports
func (p ProxyConfig) URL() string {
	if p.Username != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", p.Protocol, p.Username, p.Password, p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", p.Protocol, p.Host, p.Port)
}

// Addr returns the host:port pair
func (p ProxyConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
