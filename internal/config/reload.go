package config

import "time"

// ReloadConfig configures the optional reload round-trip against the Steam
// client's CEF remote debugger.
type ReloadConfig struct {
	// DiscoveryURL lists debuggable contexts as a JSON array.
	DiscoveryURL string `yaml:"discovery_url"`

	// ContextTitle selects the shared scriptable context by exact title.
	ContextTitle string `yaml:"context_title"`

	// Expression is evaluated once in the selected context.
	Expression string `yaml:"expression"`

	// ResponseTimeout bounds the wait for the correlated response.
	ResponseTimeout string `yaml:"response_timeout"`
}

// GetResponseTimeout returns the response timeout as a duration.
func (r *ReloadConfig) GetResponseTimeout() time.Duration {
	d, err := time.ParseDuration(r.ResponseTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
