package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
server:
  base_url: "http://127.0.0.1:8080"
  timeout: "5s"
logging:
  level: debug
  console: true
journal:
  driver: file
  path: ./journal.jsonl
janitor:
  enabled: true
  schedule: "@daily"
  retention: "48h"
`

const sampleJSON = `{
  "server": {"base_url": "http://127.0.0.1:8080", "timeout": "5s"},
  "logging": {"level": "debug", "console": true},
  "journal": {"driver": "file", "path": "./journal.jsonl"},
  "janitor": {"enabled": true, "schedule": "@daily", "retention": "48h"}
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestYAMLAndJSONAgree(t *testing.T) {
	y, err := NewManager(writeFile(t, "c.yaml", sampleYAML)).Load()
	if err != nil {
		t.Fatalf("yaml load: %v", err)
	}
	j, err := NewManager(writeFile(t, "c.json", sampleJSON)).Load()
	if err != nil {
		t.Fatalf("json load: %v", err)
	}
	if !reflect.DeepEqual(y, j) {
		t.Fatalf("configs differ:\n yaml=%+v\n json=%+v", y, j)
	}
	if y.Janitor == nil || y.Janitor.Schedule != "@daily" || y.Journal.Driver != "file" {
		t.Fatalf("unexpected config: %+v", y)
	}
}

func TestParseStrict(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown key", file: "c.json", body: `{"server":{"base_url":"http://x","token":"t"}}`},
		{name: "unknown yaml key", file: "c.yml", body: "server:\n  base_url: http://x\nplugins: {}\n"},
		{name: "trailing data", file: "c.json", body: `{"server":{"base_url":"http://x"}} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(writeFile(t, tt.file, tt.body)).Parse(); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := func() *Config {
		return &Config{Server: ServerConfig{BaseURL: "https://notify.example.com"}}
	}
	if err := Validate(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "missing base", mutate: func(c *Config) { c.Server.BaseURL = " " }, want: "base_url is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.Server.BaseURL = "ftp://x" }, want: "unsupported scheme"},
		{name: "bad timeout", mutate: func(c *Config) { c.Server.Timeout = "soon" }, want: "server.timeout"},
		{name: "negative rate", mutate: func(c *Config) { c.Server.RatePerSec = -1 }, want: "rate_per_sec"},
		{name: "journal driver", mutate: func(c *Config) { c.Journal = &JournalConfig{Driver: "redis"} }, want: "unknown driver"},
		{name: "journal path", mutate: func(c *Config) { c.Journal = &JournalConfig{Driver: "sqlite"} }, want: "journal.path"},
		{name: "retention", mutate: func(c *Config) { c.Janitor = &JanitorConfig{Retention: "-1h"} }, want: ">= 0"},
		{name: "timezone", mutate: func(c *Config) { c.Janitor = &JanitorConfig{Timezone: "Mars/Base"} }, want: "janitor.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadRunsValidator(t *testing.T) {
	m := NewManager(writeFile(t, "c.json", sampleJSON))
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		return errors.New("nope")
	})
	if _, err := m.Load(); err == nil || err.Error() != "nope" {
		t.Fatalf("Load() = %v, want validator error", err)
	}
	if m.Get() != nil {
		t.Fatal("rejected config must not be committed")
	}
}

func TestOverrideRunsBeforeValidate(t *testing.T) {
	m := NewManager(writeFile(t, "c.yaml", "logging: {level: warn}\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("missing base_url should be rejected")
	}

	m.SetOverride(func(cfg *Config) { cfg.Server.BaseURL = "http://127.0.0.1:9" })
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load() with override: %v", err)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:9" || m.Get() != cfg {
		t.Fatalf("override not applied: %+v", cfg.Server)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	path := writeFile(t, "c.json", sampleJSON)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	updated := strings.Replace(sampleJSON, `"level": "debug"`, `"level": "warn"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "warn" {
			t.Fatalf("published level = %q, want warn", cfg.Logging.Level)
		}
		if m.Get().Logging.Level != "warn" {
			t.Fatal("published config was not committed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after file change")
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Server: ServerConfig{BaseURL: "http://a"}}
	newCfg := &Config{
		Server:  ServerConfig{BaseURL: "http://a"},
		Logging: LoggingConfig{Level: "debug"},
		Janitor: &JanitorConfig{Enabled: true},
	}
	changed, attrs := SummarizeChange(oldCfg, newCfg)
	if !reflect.DeepEqual(changed, []string{"logging", "janitor"}) {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected log attrs for changed sections")
	}
	if changed, _ := SummarizeChange(newCfg, newCfg); len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}
}
