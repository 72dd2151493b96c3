package types

import "time"

// Account is the external account-configuration record this core
// consumes. The account store owns persistence; the lifecycle core only
// reads these fields.
type Account struct {
	ID               string            `json:"id" toml:"id"`
	Name             string            `json:"name" toml:"name"`
	URL              string            `json:"url" toml:"url"`
	Proxy            *ProxyConfig      `json:"proxy,omitempty" toml:"proxy,omitempty"`
	TranslationHints map[string]string `json:"translation_hints,omitempty" toml:"translation_hints,omitempty"`
	SessionDir       string            `json:"session_dir,omitempty" toml:"session_dir,omitempty"`
	CreatedAt        time.Time         `json:"created_at" toml:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" toml:"updated_at"`
}

// ViewConfig derives the view creation parameters from the account record
func (a Account) ViewConfig() ViewConfig {
	return ViewConfig{
		URL:              a.URL,
		Proxy:            a.Proxy,
		TranslationHints: a.TranslationHints,
	}
}
