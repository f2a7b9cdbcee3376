package config

import (
	"strings"

	logx "notifyclient/pkg/logx"
)

// SummarizeChange returns the sections that differ between oldCfg and newCfg,
// plus structured fields describing the new values for logging.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if strings.TrimSpace(oldCfg.Server.BaseURL) != strings.TrimSpace(newCfg.Server.BaseURL) ||
		strings.TrimSpace(oldCfg.Server.Timeout) != strings.TrimSpace(newCfg.Server.Timeout) ||
		oldCfg.Server.RatePerSec != newCfg.Server.RatePerSec {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.String("server.base_url", strings.TrimSpace(newCfg.Server.BaseURL)),
			logx.String("server.timeout", strings.TrimSpace(newCfg.Server.Timeout)),
			logx.Int("server.rate_per_sec", newCfg.Server.RatePerSec),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oj, nj := derefJournal(oldCfg.Journal), derefJournal(newCfg.Journal)
	if oj != nj {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", nj.Driver),
			logx.String("journal.path", nj.Path),
		)
	}

	oa, na := derefJanitor(oldCfg.Janitor), derefJanitor(newCfg.Janitor)
	if oa != na {
		changed = append(changed, "janitor")
		attrs = append(attrs,
			logx.Bool("janitor.enabled", na.Enabled),
			logx.String("janitor.schedule", na.Schedule),
			logx.String("janitor.retention", na.Retention),
			logx.Bool("janitor.force", na.Force),
		)
	}

	return changed, attrs
}

func derefJournal(j *JournalConfig) JournalConfig {
	if j == nil {
		return JournalConfig{}
	}
	return *j
}

func derefJanitor(j *JanitorConfig) JanitorConfig {
	if j == nil {
		return JanitorConfig{}
	}
	return *j
}
