// Package config loads the TOML configuration document shared by all
// reports. Known top-level sections decode into typed structs; report
// sections stay in a raw tree and are validated at the point of use.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrConfigMissing is returned when the config file, or a required key,
// is absent.
var ErrConfigMissing = errors.New("configuration missing")

// ErrConfigParse is returned when the config file cannot be decoded.
var ErrConfigParse = errors.New("configuration parse error")

// ErrUnknownVO is returned by CheckVO for a VO that is not configured.
var ErrUnknownVO = errors.New("unknown VO")

// Contact is an email address with a display name.
type Contact struct {
	Email string `toml:"email"`
	Name  string `toml:"name"`
}

// Testers is the tester recipient list, always present in the final
// recipients and the only recipients in a dry run.
type Testers struct {
	Emails []string `toml:"emails"`
	Names  []string `toml:"names"`
}

// EmailSection holds delivery settings.
type EmailSection struct {
	From     Contact `toml:"from"`
	SMTPHost string  `toml:"smtphost"`
	Test     Testers `toml:"test"`
}

// StoreSection holds metrics-store connection settings.
type StoreSection struct {
	Hostname           string   `toml:"hostname"`
	OKStatuses         []string `toml:"ok_statuses"`
	InsecureSkipVerify bool     `toml:"insecure_skip_verify"`
}

// Config is the parsed configuration document.
type Config struct {
	Email         EmailSection `toml:"email"`
	Elasticsearch StoreSection `toml:"elasticsearch"`
	DefaultLogdir string       `toml:"default_logdir"`
	ConfiguredVOs []string     `toml:"configured_vos"`

	// raw is the full document for per-report dynamic lookup.
	raw map[string]any
}

// Load reads and decodes the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigMissing, path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	if err := toml.Unmarshal(data, &cfg.raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	cfg.overrideWithEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideWithEnv applies environment overrides for the settings that
// differ between deployments of the same config file.
func (c *Config) overrideWithEnv() {
	if host := os.Getenv("GRACC_SMTP_HOST"); host != "" {
		c.Email.SMTPHost = host
	}
	if host := os.Getenv("GRACC_ES_HOSTNAME"); host != "" {
		c.Elasticsearch.Hostname = host
	}
}

// validate checks the keys every report requires.
func (c *Config) validate() error {
	switch {
	case c.Email.From.Email == "":
		return fmt.Errorf("%w: email.from", ErrConfigMissing)
	case c.Email.SMTPHost == "":
		return fmt.Errorf("%w: email.smtphost", ErrConfigMissing)
	case len(c.Email.Test.Emails) == 0:
		return fmt.Errorf("%w: email.test.emails", ErrConfigMissing)
	case len(c.Email.Test.Names) == 0:
		return fmt.Errorf("%w: email.test.names", ErrConfigMissing)
	}
	return nil
}

// Lookup walks the raw tree by key path.
func (c *Config) Lookup(path ...string) (any, bool) {
	var cur any = c.raw
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns a string value from the raw tree.
func (c *Config) String(path ...string) (string, bool) {
	v, ok := c.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns a numeric value from the raw tree. TOML integers and
// floats both qualify.
func (c *Config) Float(path ...string) (float64, bool) {
	v, ok := c.Lookup(path...)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Int returns an integer value from the raw tree.
func (c *Config) Int(path ...string) (int, bool) {
	v, ok := c.Lookup(path...)
	if !ok {
		return 0, false
	}
	if x, ok := v.(int64); ok {
		return int(x), true
	}
	return 0, false
}

// Bool returns a boolean value from the raw tree.
func (c *Config) Bool(path ...string) (bool, bool) {
	v, ok := c.Lookup(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Strings returns a string-list value from the raw tree.
func (c *Config) Strings(path ...string) ([]string, bool) {
	v, ok := c.Lookup(path...)
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// AltHostname returns elasticsearch.<key> when a report declares an
// alternate host key, falling back to elasticsearch.hostname.
func (c *Config) AltHostname(key string) string {
	if key != "" {
		if host, ok := c.String("elasticsearch", key); ok && host != "" {
			return host
		}
	}
	return c.Elasticsearch.Hostname
}

// CheckVO verifies that vo is permitted to run the named report: it
// must appear in configured_vos and have a <report>.<vo> section.
func (c *Config) CheckVO(report, vo string) error {
	found := false
	for _, configured := range c.ConfiguredVOs {
		if configured == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q not in configured_vos", ErrUnknownVO, vo)
	}
	if _, ok := c.Lookup(report, vo); !ok {
		return fmt.Errorf("%w: no %s.%s section", ErrUnknownVO, report, vo)
	}
	return nil
}
