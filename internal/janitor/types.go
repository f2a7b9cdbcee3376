package janitor

import (
	"context"
	"time"
)

const (
	DefaultSchedule  = "@every 1h"
	DefaultRetention = 30 * 24 * time.Hour
)

// Config controls the janitor.
type Config struct {
	Enabled   bool
	Schedule  string
	Retention time.Duration
	// Force selects forceClear, which also drops pending jobs.
	Force    bool
	Timezone string
}

func (c Config) schedule() string {
	if s := c.Schedule; s != "" {
		return s
	}
	return DefaultSchedule
}

func (c Config) retention() time.Duration {
	if c.Retention > 0 {
		return c.Retention
	}
	return DefaultRetention
}

// Clearer is the part of notify.Client the janitor needs.
type Clearer interface {
	Clear(ctx context.Context, before time.Time) bool
	ForceClear(ctx context.Context, before time.Time) bool
}

// Result describes one tick.
type Result struct {
	Command string
	Before  time.Time
	OK      bool
	Took    time.Duration
	Skipped bool
}
