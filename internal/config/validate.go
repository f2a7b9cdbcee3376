package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the structure of cfg. It does not parse janitor schedules;
// the janitor owns that grammar.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	base := strings.TrimSpace(cfg.Server.BaseURL)
	if base == "" {
		return errors.New("server.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url: unsupported scheme %q", u.Scheme)
	}
	if _, err := ParseDurationField("server.timeout", cfg.Server.Timeout); err != nil {
		return err
	}
	if cfg.Server.RatePerSec < 0 {
		return errors.New("server.rate_per_sec must be >= 0")
	}

	if j := cfg.Journal; j != nil {
		switch strings.ToLower(strings.TrimSpace(j.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(j.Path) == "" {
				return fmt.Errorf("journal.path is required for driver %q", j.Driver)
			}
		default:
			return fmt.Errorf("journal.driver: unknown driver %q", j.Driver)
		}
		if _, err := ParseDurationField("journal.busy_timeout", j.BusyTimeout); err != nil {
			return err
		}
	}

	if j := cfg.Janitor; j != nil {
		if _, err := ParseDurationField("janitor.retention", j.Retention); err != nil {
			return err
		}
		if tz := strings.TrimSpace(j.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("janitor.timezone: %w", err)
			}
		}
	}
	return nil
}
