package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

// mainConfig is filled from defaults, then the optional YAML file, then the environment.
type mainConfig struct {
	EnvVars  `yaml:"server"`
	OAuth    `yaml:"reddit"`
	Security `yaml:"session"`
	Storage  `yaml:"storage"`
}

var _ Config = (*mainConfig)(nil)

// New returns the default configuration with environment overrides applied.
func New() (Config, error) {
	return Load("")
}

// Load reads the YAML file at path (if any) and merges environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(b))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *mainConfig {
	return &mainConfig{
		EnvVars: EnvVars{
			Port:    "8080",
			AppName: "Reddit Auth",
			Env:     "DEV",
			BaseURL: "http://localhost:8080",
		},
		OAuth: OAuth{
			AuthURL:         DefaultAuthURL,
			TokenURL:        DefaultTokenURL,
			APIBaseURL:      DefaultAPIBaseURL,
			Duration:        "permanent",
			Scope:           "identity,mysubreddits,read",
			UserAgent:       "go:reddit-auth:v1.0",
			RequestTimeout:  DefaultRequestTimeout,
			ErrorRedirect:   "/?login=error",
			SuccessRedirect: "/me",
		},
		Security: Security{
			SessionMaxAge:      DefaultSessionMaxAge,
			DefaultPermissions: []string{"view"},
		},
	}
}

// Validate checks the settings the sign-in flow cannot run without.
func (c *mainConfig) Validate() error {
	var missing []string
	if c.OAuth.ClientID == "" {
		missing = append(missing, "reddit.client_id")
	}
	if c.OAuth.ClientSecret == "" {
		missing = append(missing, "reddit.client_secret")
	}
	if c.OAuth.RedirectURI == "" {
		missing = append(missing, "reddit.redirect_uri")
	}
	if c.Security.SessionSecret == "" {
		missing = append(missing, "session.secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	// Reddit expects a comma separated scope list rather than the space separated oAuth form.
	if strings.ContainsAny(c.OAuth.Scope, " \t") {
		return fmt.Errorf("config: reddit.scope must be comma separated, got %q", c.OAuth.Scope)
	}
	return nil
}
