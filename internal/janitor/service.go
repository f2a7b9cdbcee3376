package janitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"notifyclient/internal/journal"
	logx "notifyclient/pkg/logx"
)

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Service struct {
	log   logx.Logger
	store journal.Store // optional
	now   func() time.Time

	mu     sync.Mutex
	cfg    Config
	client Clearer
	c      *cron.Cron
	loc    *time.Location
	base   context.Context // set by Start
	cancel context.CancelFunc

	running atomic.Bool
}

func New(cfg Config, client Clearer, store journal.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

// Validate reports whether cfg describes a schedule the janitor can run.
func Validate(cfg Config) error {
	_, err := buildSchedule(cfg.schedule())
	if err != nil {
		return err
	}
	if cfg.Retention < 0 {
		return errors.New("retention must be >= 0")
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	return nil
}

func buildSchedule(raw string) (cron.Schedule, error) {
	ps, err := ParseSchedule(raw)
	if err != nil {
		return nil, err
	}
	switch ps.Kind {
	case SpecCron:
		sched, err := parser.Parse(ps.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", ps.Cron, err)
		}
		return sched, nil
	case SpecInterval:
		if ps.Every < time.Second {
			return nil, fmt.Errorf("interval must be at least 1s")
		}
		return cron.Every(ps.Every), nil
	default:
		return nil, fmt.Errorf("unsupported schedule kind")
	}
}

// Enabled reports the current config flag.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// SetClient swaps the client used by later ticks.
func (s *Service) SetClient(c Clearer) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// Start begins scheduled ticks if the janitor is enabled.
// A later Apply may enable or disable it without another Start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base != nil {
		return nil
	}
	s.base, s.cancel = context.WithCancel(ctx)
	if !s.cfg.Enabled {
		s.log.Info("janitor disabled")
		return nil
	}
	return s.startLocked()
}

func (s *Service) startLocked() error {
	sched, err := buildSchedule(s.cfg.schedule())
	if err != nil {
		return err
	}
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(loc))
	s.c.Schedule(sched, cron.FuncJob(s.tick))
	s.c.Start()

	next := sched.Next(s.now().In(loc))
	s.log.Info("janitor started",
		logx.String("schedule", s.cfg.schedule()),
		logx.Duration("retention", s.cfg.retention()),
		logx.Bool("force", s.cfg.Force),
		logx.String("tz", loc.String()),
		logx.String("next", next.Format("2006-01-02 15:04:05")),
	)
	return nil
}

func (s *Service) stopLocked() *cron.Cron {
	c := s.c
	s.c = nil
	return c
}

// Stop halts scheduling and waits for a running tick up to ctx.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.stopLocked()
	cancel := s.cancel
	s.base, s.cancel = nil, nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("janitor stopped", logx.Duration("took", time.Since(start)))
}

// Apply swaps the configuration. A started janitor reschedules when the
// schedule, timezone or enabled flag changed; retention and force take
// effect on the next tick. A tick still in flight is waited for up to ctx;
// after that the new schedule starts anyway and the overlap guard keeps the
// two from running together.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	if cfg.Enabled {
		if err := Validate(cfg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	if s.base == nil {
		s.mu.Unlock()
		return nil
	}
	resched := old.Enabled != cfg.Enabled ||
		old.schedule() != cfg.schedule() ||
		strings.TrimSpace(old.Timezone) != strings.TrimSpace(cfg.Timezone)
	if !resched {
		s.mu.Unlock()
		return nil
	}
	c := s.stopLocked()
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			s.log.Warn("janitor tick still running; rescheduling without waiting", logx.Err(ctx.Err()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == nil || s.c != nil || !s.cfg.Enabled {
		if !s.cfg.Enabled {
			s.log.Info("janitor disabled")
		}
		return nil
	}
	return s.startLocked()
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	_ = s.RunOnce(ctx)
}

// RunOnce performs a single clear using the current config, whether or not
// the janitor is enabled. It is skipped if another run is in flight.
func (s *Service) RunOnce(ctx context.Context) Result {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("janitor tick skipped; previous run still in flight")
		return Result{Skipped: true}
	}
	defer s.running.Store(false)

	s.mu.Lock()
	cfg := s.cfg
	client := s.client
	s.mu.Unlock()

	res := Result{Command: "clear", Before: s.now().Add(-cfg.retention())}
	if cfg.Force {
		res.Command = "forceClear"
	}
	if client == nil {
		s.log.Warn("janitor has no client")
		s.record(ctx, res, "no client")
		return res
	}

	start := time.Now()
	if cfg.Force {
		res.OK = client.ForceClear(ctx, res.Before)
	} else {
		res.OK = client.Clear(ctx, res.Before)
	}
	res.Took = time.Since(start)

	fields := []logx.Field{
		logx.String("command", res.Command),
		logx.Time("before", res.Before),
		logx.Duration("took", res.Took),
	}
	if res.OK {
		s.log.Info("janitor tick", fields...)
		s.record(ctx, res, "")
	} else {
		s.log.Warn("janitor tick failed", fields...)
		s.record(ctx, res, "request failed")
	}
	return res
}

func (s *Service) record(ctx context.Context, res Result, msg string) {
	if s.store == nil {
		return
	}
	err := s.store.Append(ctx, journal.Entry{
		At:      s.now(),
		Command: res.Command,
		ID:      strconv.FormatInt(res.Before.Unix(), 10),
		OK:      res.OK,
		TookMS:  res.Took.Milliseconds(),
		Error:   msg,
	})
	if err != nil {
		s.log.Warn("journal append failed", logx.Err(err))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
