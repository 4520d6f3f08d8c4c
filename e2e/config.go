package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL and E2E_API_URL point at a running server. When empty
	// the suite starts an in-process one.
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	APIURL    string `envconfig:"E2E_API_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool          `envconfig:"E2E_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
