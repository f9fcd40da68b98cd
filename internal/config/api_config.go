package config

// APIConfig defines configuration for the REST status API.
type APIConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
}

// NewDefaultAPIConfig creates default API configuration
func NewDefaultAPIConfig() APIConfig {
	return APIConfig{
		Enabled:       true,
		ListenAddress: DefaultAPIListenAddress,
	}
}
