package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultIssuanceEndpoint = "https://verifiedid.did.msidentity.com/v1.0/verifiableCredentials/createIssuanceRequest"
	DefaultClientName       = "Cyber Practitioner Evaluation"
	DefaultQuizID           = "cyber-practitioner"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		PublicURL      string   `yaml:"publicURL"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Identity struct {
		AuthorityHost string   `yaml:"authorityHost"`
		TenantID      string   `yaml:"tenantID"`
		ClientID      string   `yaml:"clientID"`
		ClientSecret  string   `yaml:"clientSecret"`
		Scopes        []string `yaml:"scopes"`
		Timeout       string   `yaml:"timeout"`
	} `yaml:"identity"`
	Issuance struct {
		Authority      string `yaml:"authority"`
		CredentialType string `yaml:"credentialType"`
		Manifest       string `yaml:"manifest"`
		Endpoint       string `yaml:"endpoint"`
		ClientName     string `yaml:"clientName"`
		IncludeQRCode  *bool  `yaml:"includeQRCode"`
		Timeout        string `yaml:"timeout"`
	} `yaml:"issuance"`
	Callback struct {
		APIKey string `yaml:"apiKey"`
	} `yaml:"callback"`
	Session struct {
		Secret       string `yaml:"secret"`
		TTL          string `yaml:"ttl"`
		CookieName   string `yaml:"cookieName"`
		SecureCookie bool   `yaml:"secureCookie"`
	} `yaml:"session"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error: everything can come from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"AZURE_AD_TENANT_ID":              &c.Identity.TenantID,
		"AZURE_AD_CLIENT_ID":              &c.Identity.ClientID,
		"AZURE_AD_CLIENT_SECRET":          &c.Identity.ClientSecret,
		"VERIFIABLE_CREDENTIAL_AUTHORITY": &c.Issuance.Authority,
		"VERIFIABLE_CREDENTIAL_TYPE":      &c.Issuance.CredentialType,
		"VERIFIABLE_CREDENTIAL_MANIFEST":  &c.Issuance.Manifest,
		"VERIFIABLE_CREDENTIAL_ENDPOINT":  &c.Issuance.Endpoint,
		"CALLBACK_API_KEY":                &c.Callback.APIKey,
		"SESSION_SECRET":                  &c.Session.Secret,
		"PUBLIC_URL":                      &c.Server.PublicURL,
		"REDIS_ADDR":                      &c.Redis.Addr,
		"DATABASE_URL":                    &c.Postgres.URL,
	}
	for name, field := range overrides {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Quiz.ID == "" {
		c.Quiz.ID = DefaultQuizID
	}
	if c.Issuance.Endpoint == "" {
		c.Issuance.Endpoint = DefaultIssuanceEndpoint
	}
	if c.Issuance.ClientName == "" {
		c.Issuance.ClientName = DefaultClientName
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "cyber_eval_session"
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
}

// IncludeQRCode defaults to true when not set.
func (c Config) IncludeQRCode() bool {
	return c.Issuance.IncludeQRCode == nil || *c.Issuance.IncludeQRCode
}

// CallbackURL is where the issuance service posts notifications, empty without a public URL.
func (c Config) CallbackURL() string {
	if c.Server.PublicURL == "" {
		return ""
	}
	return c.Server.PublicURL + "/callback"
}

// SignInRedirectURL is the OAuth2 redirect registered with the identity provider.
func (c Config) SignInRedirectURL() string {
	return c.Server.PublicURL + "/auth/callback/azure-ad"
}

// Validate reports every missing setting needed to issue credentials.
func (c Config) Validate() error {
	var missing []string
	required := []struct {
		name, value string
	}{
		{"AZURE_AD_TENANT_ID", c.Identity.TenantID},
		{"AZURE_AD_CLIENT_ID", c.Identity.ClientID},
		{"AZURE_AD_CLIENT_SECRET", c.Identity.ClientSecret},
		{"VERIFIABLE_CREDENTIAL_AUTHORITY", c.Issuance.Authority},
		{"VERIFIABLE_CREDENTIAL_TYPE", c.Issuance.CredentialType},
		{"VERIFIABLE_CREDENTIAL_MANIFEST", c.Issuance.Manifest},
		{"SESSION_SECRET", c.Session.Secret},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
