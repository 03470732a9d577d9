package supervisor

import (
	"context"
	"errors"
	"time"

	"vixfix-trading-bot/internal/id"
	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/journal"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/notify"
	"vixfix-trading-bot/internal/types"
)

type State int

const (
	Connecting State = iota
	Scanning
	Executing
	CoolingDown
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Scanning:
		return "SCANNING"
	case Executing:
		return "EXECUTING"
	case CoolingDown:
		return "COOLING_DOWN"
	}
	return "UNKNOWN"
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type clockSleeper struct{}

func (clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deps are the collaborators of the loop. Notifier may be nil.
type Deps struct {
	Venue    interfaces.Venue
	Detector interfaces.Detector
	Executor interfaces.Executor
	Mirror   *journal.Mirror
	Notifier interfaces.Notifier
	Sleeper  Sleeper
}

type Options struct {
	Symbol      string
	Credentials types.Credentials
	Interval    time.Duration
	Backoff     time.Duration
	// OnNewDay runs between cycles when the UTC date changes, with the day
	// that just ended.
	OnNewDay func(ctx context.Context, day time.Time)
}

// Supervisor drives Connecting -> Scanning -> Executing -> CoolingDown on a
// single goroutine.
type Supervisor struct {
	d    Deps
	opts Options

	state    State
	restored bool
	lastDay  time.Time
	now      func() time.Time
}

func New(d Deps, opts Options) *Supervisor {
	if d.Sleeper == nil {
		d.Sleeper = clockSleeper{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 300 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 15 * time.Second
	}
	return &Supervisor{d: d, opts: opts, now: time.Now}
}

func (s *Supervisor) State() State { return s.state }

func (s *Supervisor) enter(ctx context.Context, st State) {
	if st != s.state {
		logger.Debug(ctx, "State transition", "from", s.state.String(), "to", st.String())
	}
	s.state = st
}

// Run restores the journal, then cycles until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "Supervisor started",
		"symbol", s.opts.Symbol,
		"interval", s.opts.Interval.String(),
		"trades", s.d.Mirror.Journal().Len(),
	)
	for {
		if err := s.RunCycle(ctx); err != nil {
			return err
		}
		if err := s.d.Sleeper.Sleep(ctx, s.opts.Interval); err != nil {
			return err
		}
		s.rollDay(ctx)
	}
}

func (s *Supervisor) restore(ctx context.Context) error {
	if s.restored {
		return nil
	}
	if _, err := s.d.Mirror.Restore(ctx); err != nil {
		return err
	}
	s.restored = true
	s.lastDay = s.now().UTC()
	return nil
}

// RunCycle runs one pass from Connecting to CoolingDown, without the
// cool-down sleep. It only fails when ctx is done or the journal cannot be
// restored.
func (s *Supervisor) RunCycle(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return err
	}
	ctx = logger.WithCycle(ctx, id.New())

	if err := s.connect(ctx); err != nil {
		return err
	}

	s.enter(ctx, Scanning)
	dec, err := s.d.Detector.Detect(ctx)
	if err == nil && dec.Signal != types.SignalNone {
		s.enter(ctx, Executing)
		s.execute(ctx, dec)
	}

	s.enter(ctx, CoolingDown)
	s.d.Venue.Disconnect(ctx)
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Supervisor) connect(ctx context.Context) error {
	s.enter(ctx, Connecting)
	for {
		err := s.d.Venue.Connect(ctx, s.opts.Credentials)
		if err == nil {
			return nil
		}
		logger.ErrorWithErr(ctx, "Venue connect failed, retrying", err, "backoff", s.opts.Backoff.String())
		if err := s.d.Sleeper.Sleep(ctx, s.opts.Backoff); err != nil {
			return err
		}
	}
}

func (s *Supervisor) execute(ctx context.Context, dec types.Decision) {
	tag := dec.Tag(s.opts.Symbol)
	if s.d.Mirror.Journal().Contains(tag) {
		logger.Warn(ctx, "Decision already journaled, skipping", "tag", tag)
		return
	}

	rec, err := s.d.Executor.Execute(ctx, dec)
	if err != nil {
		var rej *types.OrderRejectedError
		switch {
		case errors.As(err, &rej):
			logger.Warn(ctx, "Order rejected by venue", "tag", tag, "code", rej.Code)
		default:
			logger.ErrorWithErr(ctx, "Execution failed", err, "tag", tag)
		}
		return
	}

	// the position is open at the venue whether or not the save succeeds
	if err := s.d.Mirror.Commit(ctx, *rec); err != nil {
		logger.ErrorWithErr(ctx, "Trade executed but not journaled", err, "tag", tag)
	}
	if err := s.d.Notifier.Send(ctx, notify.TradeMessage(s.opts.Symbol, *rec)); err != nil {
		logger.ErrorWithErr(ctx, "Trade notification failed", err, "tag", tag)
	}
}

func (s *Supervisor) rollDay(ctx context.Context) {
	today := s.now().UTC()
	if sameDay(today, s.lastDay) {
		return
	}
	prev := s.lastDay
	s.lastDay = today
	if s.opts.OnNewDay != nil {
		s.opts.OnNewDay(ctx, prev)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
