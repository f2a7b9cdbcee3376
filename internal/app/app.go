package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"notifyclient/internal/config"
	"notifyclient/internal/janitor"
	"notifyclient/internal/journal"
	"notifyclient/internal/runtime/supervisor"
	logx "notifyclient/pkg/logx"
	"notifyclient/pkg/notify"
)

type App struct {
	cfgm     *config.Manager // nil when built from an in-memory config
	override string

	sup *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store journal.Store
	jan   *janitor.Service

	client atomic.Pointer[notify.Client]
}

type Option func(*App)

// WithServer overrides server.base_url, including across reloads.
func WithServer(base string) Option {
	return func(a *App) { a.override = strings.TrimSpace(base) }
}

// New loads cfgPath and wires every component. Nothing runs until Start.
func New(cfgPath string, opts ...Option) (*App, error) {
	a := &App{cfgm: config.NewManager(cfgPath)}
	for _, o := range opts {
		o(a)
	}
	if base := a.override; base != "" {
		a.cfgm.SetOverride(func(cfg *config.Config) { cfg.Server.BaseURL = base })
	}
	a.cfgm.SetValidator(validateComponents)
	cfg, err := a.cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := a.build(cfg); err != nil {
		return nil, err
	}
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	return a, nil
}

// NewFromConfig wires an app around cfg without a backing file.
// Start will not watch for changes.
func NewFromConfig(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{}
	for _, o := range opts {
		o(a)
	}
	if a.override != "" {
		c := *cfg
		c.Server.BaseURL = a.override
		cfg = &c
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := validateComponents(context.Background(), cfg); err != nil {
		return nil, err
	}
	if err := a.build(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// validateComponents checks what config.Validate leaves to the components.
func validateComponents(_ context.Context, cfg *config.Config) error {
	jc, err := mapJanitor(cfg)
	if err != nil {
		return err
	}
	if err := janitor.Validate(jc); err != nil {
		return fmt.Errorf("janitor: %w", err)
	}
	if _, err := mapJournal(cfg); err != nil {
		return err
	}
	return nil
}

func (a *App) build(cfg *config.Config) error {
	logSvc, log := logx.New(mapLogging(cfg))
	a.logs = logSvc
	a.log = log.With(logx.String("comp", "app"))

	c, err := newClient(cfg.Server, a.override, log.With(logx.String("comp", "notify")))
	if err != nil {
		return err
	}
	a.client.Store(c)

	jc, err := mapJournal(cfg)
	if err != nil {
		return err
	}
	st, err := journal.Open(jc, log.With(logx.String("comp", "journal")))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if st != nil {
		a.store = st
		a.log.Debug("journal enabled", logx.String("driver", jc.Driver), logx.String("path", jc.Path))
	}

	janCfg, err := mapJanitor(cfg)
	if err != nil {
		return err
	}
	a.jan = janitor.New(janCfg, c, a.store, log.With(logx.String("comp", "janitor")))
	return nil
}

func (a *App) Logger() logx.Logger       { return a.log }
func (a *App) Client() *notify.Client    { return a.client.Load() }
func (a *App) Janitor() *janitor.Service { return a.jan }

// Journal returns the operation journal, or nil when disabled.
func (a *App) Journal() journal.Store { return a.store }

// Record appends e to the journal, if any.
func (a *App) Record(ctx context.Context, e journal.Entry) {
	if a.store == nil {
		return
	}
	if err := a.store.Append(ctx, e); err != nil {
		a.log.Warn("journal append failed", logx.String("command", e.Command), logx.Err(err))
	}
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the janitor and, for file-backed apps, the config watcher.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	if err := a.jan.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("janitor: %w", err)
	}

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			lastApplied := a.cfgm.Get()
			for {
				select {
				case <-c.Done():
					return
				case newCfg, ok := <-sub:
					if !ok {
						return
					}
				drain:
					for {
						select {
						case newer := <-sub:
							if newer != nil {
								newCfg = newer
							}
						default:
							break drain
						}
					}
					a.apply(c, lastApplied, newCfg)
					lastApplied = newCfg
				}
			}
		})
		a.sup.GoRestart("config.watch", time.Second, 30*time.Second, a.cfgm.Watch)
	}

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("app started", logx.String("server", a.Client().BaseAddress()), logx.Bool("janitor", a.jan.Enabled()))
	return nil
}

func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) {
	sdNotify(a.log, daemon.SdNotifyReloading)
	defer sdNotify(a.log, daemon.SdNotifyReady)

	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	for _, s := range sections {
		switch s {
		case "logging":
			a.logs.Apply(mapLogging(newCfg))
		case "server":
			c, err := newClient(newCfg.Server, a.override, a.logs.Logger().With(logx.String("comp", "notify")))
			if err != nil {
				a.log.Warn("invalid server config; keeping previous", logx.Err(err))
				continue
			}
			a.client.Store(c)
			a.jan.SetClient(c)
		case "journal":
			a.log.Warn("journal config changed; restart required for changes to take effect")
		case "janitor":
			jc, err := mapJanitor(newCfg)
			if err == nil {
				applyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err = a.jan.Apply(applyCtx, jc)
				cancel()
			}
			if err != nil {
				a.log.Warn("invalid janitor config; keeping previous", logx.Err(err))
			}
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in reverse order, each step bounded by ctx.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	start := time.Now()
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	var errs []error
	a.jan.Stop(ctx)
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
		if n := a.sup.Active(); n > 0 {
			a.log.Warn("goroutines still running after stop", logx.Int64("active", n))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal close: %w", err))
		}
	}
	a.log.Info("stopped", logx.Duration("took", time.Since(start)))
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases resources for an app that was never started.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logs.Close())
	return errors.Join(errs...)
}
