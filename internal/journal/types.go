package journal

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal.
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one client operation.
type Entry struct {
	At      time.Time `json:"at"`
	Command string    `json:"command"`
	// ID is the notification id, or the clear cutoff for clear/forceClear.
	ID     string `json:"id,omitempty"`
	Driver string `json:"driver,omitempty"`
	OK     bool   `json:"ok"`
	TookMS int64  `json:"took_ms"`
	Error  string `json:"error,omitempty"`
}

// Store is the persistence API used by the CLI and the janitor.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
