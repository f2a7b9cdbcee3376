package config

// Config is the notifyctl configuration file.
//
// Example (YAML):
//
//	server:
//	  base_url: "http://127.0.0.1:8080"
//	  timeout: "10s"
//	logging: { level: info, console: true }
//	journal: { driver: sqlite, path: "./notifyctl.db" }
//	janitor: { enabled: true, schedule: "@daily", retention: "720h" }
type Config struct {
	Server  ServerConfig   `json:"server"`
	Logging LoggingConfig  `json:"logging"`
	Journal *JournalConfig `json:"journal,omitempty"`
	Janitor *JanitorConfig `json:"janitor,omitempty"`
}

// ServerConfig points the client at a notification server.
type ServerConfig struct {
	// BaseURL is "http(s)://host:port", without a trailing command path.
	BaseURL string `json:"base_url"`
	// Timeout is a Go duration string bounding one request.
	// Empty or "0s" leaves requests unbounded.
	Timeout string `json:"timeout,omitempty"`
	// RatePerSec caps outgoing requests. 0 disables the limiter.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// JournalConfig controls the optional local operation journal.
//
// Driver values: "none" (or empty), "file", "sqlite".
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// JanitorConfig controls scheduled server housekeeping.
//
// Defaults (when fields are omitted/zero):
//   - schedule: "@every 1h"
//   - retention: "720h"
//   - force: false (use /clear, which keeps pending jobs)
type JanitorConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron expression ("0 3 * * *", "@daily") or an interval
	// ("55m", "02:30").
	Schedule string `json:"schedule,omitempty"`
	// Retention is how old a job must be before it is cleared.
	Retention string `json:"retention,omitempty"`
	Force     bool   `json:"force,omitempty"`
	// Timezone for cron schedules (IANA name). Empty means local time.
	Timezone string `json:"timezone,omitempty"`
}
