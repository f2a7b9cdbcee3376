package app

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"notifyclient/internal/config"
	"notifyclient/internal/janitor"
	"notifyclient/internal/journal"
	"notifyclient/pkg/logx"
	"notifyclient/pkg/notify"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapJournal(cfg *config.Config) (journal.Config, error) {
	if cfg.Journal == nil {
		return journal.Config{}, nil
	}
	busy, err := config.ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout)
	if err != nil {
		return journal.Config{}, err
	}
	return journal.Config{
		Driver:      strings.TrimSpace(cfg.Journal.Driver),
		Path:        strings.TrimSpace(cfg.Journal.Path),
		BusyTimeout: busy,
	}, nil
}

func mapJanitor(cfg *config.Config) (janitor.Config, error) {
	if cfg.Janitor == nil {
		return janitor.Config{}, nil
	}
	j := cfg.Janitor
	ret, err := config.ParseDurationOrDefault("janitor.retention", j.Retention, janitor.DefaultRetention)
	if err != nil {
		return janitor.Config{}, err
	}
	return janitor.Config{
		Enabled:   j.Enabled,
		Schedule:  strings.TrimSpace(j.Schedule),
		Retention: ret,
		Force:     j.Force,
		Timezone:  strings.TrimSpace(j.Timezone),
	}, nil
}

// newClient builds a client for the server section. override, when set,
// replaces server.base_url.
func newClient(sc config.ServerConfig, override string, log logx.Logger) (*notify.Client, error) {
	timeout, err := config.ParseDurationField("server.timeout", sc.Timeout)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(sc.BaseURL)
	if o := strings.TrimSpace(override); o != "" {
		base = o
	}

	opts := []notify.Option{
		notify.WithHTTPClient(&http.Client{Timeout: timeout}),
		notify.WithLogger(log),
	}
	if n := sc.RatePerSec; n > 0 {
		opts = append(opts, notify.WithLimiter(rate.NewLimiter(rate.Limit(n), n)))
	}
	return notify.New(base, opts...), nil
}
