package signal

import (
	"context"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/store"
	"vixfix-trading-bot/internal/ta"
	"vixfix-trading-bot/internal/tradelog"
	"vixfix-trading-bot/internal/types"
)

// Options holds the detector thresholds.
type Options struct {
	Symbol          string
	Bars            int
	Timeframes      []types.Timeframe
	HigherTimeframe types.Timeframe
	HigherBars      int
	Params          ta.Params
	Margin          float64
	Oversold        float64
	Overbought      float64
	TrendFast       int
	TrendSlow       int
}

func OptionsFromConfig(c *store.Config) Options {
	return Options{
		Symbol:          c.Symbol,
		Bars:            c.Bars,
		Timeframes:      c.Timeframes,
		HigherTimeframe: c.HigherTimeframe,
		HigherBars:      c.HigherBars,
		Params:          c.IndicatorParams(),
		Margin:          c.Indicators.WVFMargin,
		Oversold:        c.Indicators.Oversold,
		Overbought:      c.Indicators.Overbought,
		TrendFast:       c.Indicators.TrendFast,
		TrendSlow:       c.Indicators.TrendSlow,
	}
}

type Detector struct {
	venue interfaces.Venue
	opts  Options
}

var _ interfaces.Detector = (*Detector)(nil)

func New(venue interfaces.Venue, opts Options) *Detector {
	return &Detector{venue: venue, opts: opts}
}

// trendCache fetches the higher timeframe trend at most once per scan.
type trendCache struct {
	d       *Detector
	fetched bool
	trend   ta.Trend
}

func (c *trendCache) get(ctx context.Context) ta.Trend {
	if c.fetched {
		return c.trend
	}
	c.fetched = true
	o := c.d.opts
	bars, err := c.d.venue.LatestBars(ctx, o.Symbol, o.HigherTimeframe, o.HigherBars)
	if err != nil {
		logger.ErrorWithErr(ctx, "Higher timeframe fetch failed, trend unknown", err,
			"symbol", o.Symbol, "timeframe", o.HigherTimeframe)
		return c.trend
	}
	t, err := ta.TrendFilter(bars, o.TrendFast, o.TrendSlow)
	if err != nil {
		logger.Warn(ctx, "Trend filter undefined", "timeframe", o.HigherTimeframe, "error", err)
	}
	c.trend = t
	return t
}

// Detect scans the timeframes finest first and returns the first Buy or
// Sell. Data problems on a timeframe count as no signal; only a cancelled
// context is returned as an error.
func (d *Detector) Detect(ctx context.Context) (types.Decision, error) {
	trend := &trendCache{d: d}
	for _, tf := range d.opts.Timeframes {
		if err := ctx.Err(); err != nil {
			return types.Decision{Signal: types.SignalNone}, err
		}
		dec := d.evaluate(ctx, tf, trend)
		if dec.Signal != types.SignalNone {
			return dec, nil
		}
	}
	return types.Decision{Signal: types.SignalNone}, nil
}

func (d *Detector) evaluate(ctx context.Context, tf types.Timeframe, trend *trendCache) types.Decision {
	none := types.Decision{Signal: types.SignalNone, Timeframe: tf}
	entry := tradelog.DecisionEntry{Symbol: d.opts.Symbol, Timeframe: string(tf), Signal: types.SignalNone.String()}
	defer func() {
		if err := tradelog.AppendDecision(entry); err != nil {
			logger.ErrorWithErr(ctx, "Failed to write decision log", err)
		}
	}()

	bars, err := d.venue.LatestBars(ctx, d.opts.Symbol, tf, d.opts.Bars)
	if err != nil {
		entry.Reason = "fetch: " + err.Error()
		logger.ErrorWithErr(ctx, "Bar fetch failed, skipping timeframe", err, "symbol", d.opts.Symbol, "timeframe", tf)
		return none
	}
	frame, err := ta.Compute(bars, d.opts.Params)
	if err != nil {
		entry.Reason = err.Error()
		logger.Debug(ctx, "Skipping timeframe", "timeframe", tf, "reason", err)
		return none
	}
	snap, err := frame.Latest()
	if err != nil {
		entry.Reason = err.Error()
		logger.Debug(ctx, "Skipping timeframe", "timeframe", tf, "reason", err)
		return none
	}
	entry.Price = snap.Bar.Close
	entry.Indicators = map[string]float64{"wvf": snap.WVF, "wvf_mean": snap.WVFMean, "stoch_slow": snap.Slow}

	var t ta.Trend
	if d.exhausted(snap) {
		t = trend.get(ctx)
		entry.Reason = "trend " + t.String()
	} else {
		entry.Reason = "no volatility spike"
	}

	sig := d.Classify(snap, t)
	entry.Signal = sig.String()
	logger.Signal(ctx, d.opts.Symbol, string(tf), sig.String(),
		"wvf", snap.WVF, "wvf_mean", snap.WVFMean, "stoch_slow", snap.Slow, "trend", t.String())
	return types.Decision{Signal: sig, Timeframe: tf, BarTime: snap.Bar.OpenTime}
}

func (d *Detector) exhausted(s ta.Snapshot) bool {
	return s.WVF > s.WVFMean+d.opts.Margin
}

// Classify applies the entry rule to the latest indicator row. An unknown
// trend never confirms either direction.
func (d *Detector) Classify(s ta.Snapshot, trend ta.Trend) types.Signal {
	if !d.exhausted(s) {
		return types.SignalNone
	}
	switch {
	case s.Slow < d.opts.Oversold && trend == ta.TrendBullish:
		return types.SignalBuy
	case s.Slow > d.opts.Overbought && trend == ta.TrendBearish:
		return types.SignalSell
	}
	return types.SignalNone
}
