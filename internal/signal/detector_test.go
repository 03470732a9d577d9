package signal

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"vixfix-trading-bot/internal/store"
	"vixfix-trading-bot/internal/ta"
	"vixfix-trading-bot/internal/tradelog"
	"vixfix-trading-bot/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type barVenue struct {
	bars  map[types.Timeframe][]types.Bar
	errs  map[types.Timeframe]error
	calls map[types.Timeframe]int
}

func newBarVenue() *barVenue {
	return &barVenue{
		bars:  map[types.Timeframe][]types.Bar{},
		errs:  map[types.Timeframe]error{},
		calls: map[types.Timeframe]int{},
	}
}

func (v *barVenue) Connect(context.Context, types.Credentials) error { return nil }
func (v *barVenue) AccountBalance(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (v *barVenue) LatestBars(_ context.Context, _ string, tf types.Timeframe, count int) ([]types.Bar, error) {
	v.calls[tf]++
	if err := v.errs[tf]; err != nil {
		return nil, err
	}
	b := v.bars[tf]
	if len(b) > count {
		b = b[len(b)-count:]
	}
	return b, nil
}
func (v *barVenue) LatestTick(context.Context, string) (types.Tick, error) { return types.Tick{}, nil }
func (v *barVenue) SymbolMeta(context.Context, string) (types.SymbolMeta, error) {
	return types.SymbolMeta{}, nil
}
func (v *barVenue) SubmitOrder(context.Context, types.OrderRequest) (types.OrderResult, error) {
	return types.OrderResult{}, nil
}
func (v *barVenue) Disconnect(context.Context) {}

var t0 = time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)

// washout closes flat well above its lows, then the last five bars each
// close on a fresh low: a volatility spike with the stochastic pinned at 0.
func washout(n int, tf types.Timeframe) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{OpenTime: t0.Add(time.Duration(i) * tf.Duration()), Open: 103, High: 104, Low: 100, Close: 103}
	}
	for j := 0; j < 5; j++ {
		low := 99 - float64(j)
		bars[n-5+j] = types.Bar{OpenTime: bars[n-5+j].OpenTime, Open: low + 1, High: low + 1, Low: low, Close: low}
	}
	return bars
}

// blowoff has long lower wicks, then five tight bars closing on their highs:
// the spike condition holds while the stochastic stays above 70.
func blowoff(n int, tf types.Timeframe) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{OpenTime: t0.Add(time.Duration(i) * tf.Duration()), Open: 103, High: 104, Low: 90, Close: 103}
	}
	for j := 0; j < 5; j++ {
		bars[n-5+j] = types.Bar{OpenTime: bars[n-5+j].OpenTime, Open: 100, High: 101, Low: 100, Close: 101}
	}
	return bars
}

func flat(n int, tf types.Timeframe) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{OpenTime: t0.Add(time.Duration(i) * tf.Duration()), Open: 100, High: 100, Low: 100, Close: 100}
	}
	return bars
}

func trending(n int, step float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := 2000 + step*float64(i)
		bars[i] = types.Bar{OpenTime: t0.Add(time.Duration(i) * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

func testDetector(t *testing.T, v *barVenue) *Detector {
	t.Helper()
	tradelog.SetDir(t.TempDir())
	return New(v, OptionsFromConfig(store.Default()))
}

func TestClassify(t *testing.T) {
	d := New(nil, OptionsFromConfig(store.Default()))
	spike := ta.Snapshot{WVF: 40, WVFMean: 30}

	buy := spike
	buy.Slow = 20
	assert.Equal(t, types.SignalBuy, d.Classify(buy, ta.TrendBullish))
	assert.Equal(t, types.SignalNone, d.Classify(buy, ta.TrendBearish))
	assert.Equal(t, types.SignalNone, d.Classify(buy, ta.TrendUnknown))

	sell := spike
	sell.Slow = 80
	assert.Equal(t, types.SignalSell, d.Classify(sell, ta.TrendBearish))
	assert.Equal(t, types.SignalNone, d.Classify(sell, ta.TrendBullish))

	// spike must clear the mean by more than the margin
	weak := ta.Snapshot{WVF: 31, WVFMean: 30, Slow: 20}
	assert.Equal(t, types.SignalNone, d.Classify(weak, ta.TrendBullish))

	mid := spike
	mid.Slow = 50
	assert.Equal(t, types.SignalNone, d.Classify(mid, ta.TrendBullish))
	assert.Equal(t, types.SignalNone, d.Classify(mid, ta.TrendBearish))
}

func TestClassifyNeverEmitsBoth(t *testing.T) {
	d := New(nil, OptionsFromConfig(store.Default()))
	for _, slow := range []float64{0, 10, 29.9, 30, 50, 70, 70.1, 90, 100} {
		for _, tr := range []ta.Trend{ta.TrendUnknown, ta.TrendBullish, ta.TrendBearish} {
			s := d.Classify(ta.Snapshot{WVF: 10, WVFMean: 0, Slow: slow}, tr)
			switch s {
			case types.SignalBuy:
				assert.Less(t, slow, 30.0)
				assert.Equal(t, ta.TrendBullish, tr)
			case types.SignalSell:
				assert.Greater(t, slow, 70.0)
				assert.Equal(t, ta.TrendBearish, tr)
			}
		}
	}
}

func TestDetectBuyOnFinestTimeframe(t *testing.T) {
	v := newBarVenue()
	v.bars[types.M5] = washout(150, types.M5)
	v.bars[types.M15] = blowoff(150, types.M15)
	v.bars[types.H1] = trending(200, 1)
	d := testDetector(t, v)

	dec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.SignalBuy, dec.Signal)
	assert.Equal(t, types.M5, dec.Timeframe)
	assert.Equal(t, v.bars[types.M5][149].OpenTime, dec.BarTime)
	assert.Equal(t, 0, v.calls[types.M15], "coarser timeframe not consulted after a signal")
}

func TestDetectFallsBackToCoarserTimeframe(t *testing.T) {
	v := newBarVenue()
	// oversold on M5 but the trend is bearish, so M5 yields nothing
	v.bars[types.M5] = washout(150, types.M5)
	v.bars[types.M15] = blowoff(150, types.M15)
	v.bars[types.H1] = trending(200, -1)
	d := testDetector(t, v)

	dec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.SignalSell, dec.Signal)
	assert.Equal(t, types.M15, dec.Timeframe)
	assert.Equal(t, 1, v.calls[types.H1], "trend fetched once per scan")
}

func TestDetectSkipsTrendWithoutSpike(t *testing.T) {
	v := newBarVenue()
	v.bars[types.M5] = trending(150, 0.5)
	v.bars[types.M15] = trending(150, 0.5)
	v.bars[types.H1] = trending(200, 1)
	d := testDetector(t, v)

	dec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.SignalNone, dec.Signal)
	assert.Equal(t, 0, v.calls[types.H1])
}

func TestDetectTreatsDataProblemsAsNone(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *barVenue)
	}{
		{"too few bars", func(v *barVenue) {
			v.bars[types.M5] = washout(30, types.M5)
			v.bars[types.M15] = washout(30, types.M15)
		}},
		{"flat market", func(v *barVenue) {
			v.bars[types.M5] = flat(150, types.M5)
			v.bars[types.M15] = flat(150, types.M15)
		}},
		{"fetch errors", func(v *barVenue) {
			v.errs[types.M5] = types.ErrConnectivity
			v.errs[types.M15] = errors.New("timeout")
		}},
		{"short trend history", func(v *barVenue) {
			v.bars[types.M5] = washout(150, types.M5)
			v.bars[types.M15] = washout(150, types.M15)
			v.bars[types.H1] = trending(120, 1)
		}},
		{"trend fetch error", func(v *barVenue) {
			v.bars[types.M5] = washout(150, types.M5)
			v.bars[types.M15] = washout(150, types.M15)
			v.errs[types.H1] = types.ErrConnectivity
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newBarVenue()
			tt.setup(v)
			dec, err := testDetector(t, v).Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, types.SignalNone, dec.Signal)
			assert.Equal(t, 1, v.calls[types.M5])
			assert.Equal(t, 1, v.calls[types.M15])
			assert.LessOrEqual(t, v.calls[types.H1], 1)
		})
	}
}

func TestDetectHonoursCancellation(t *testing.T) {
	v := newBarVenue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec, err := testDetector(t, v).Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.SignalNone, dec.Signal)
	assert.Equal(t, 0, v.calls[types.M5])
}

func TestWashoutFixtureShape(t *testing.T) {
	f, err := ta.Compute(washout(150, types.M5), ta.DefaultParams())
	require.NoError(t, err)
	s, err := f.Latest()
	require.NoError(t, err)
	assert.InDelta(t, 0, s.WVF, 1e-9)
	assert.InDelta(t, -3.0*17/22, s.WVFMean, 1e-9)
	assert.InDelta(t, 0, s.Slow, 1e-9)
	assert.False(t, math.IsNaN(s.K))
}

func TestOptionsFromConfig(t *testing.T) {
	c := store.Default()
	o := OptionsFromConfig(c)
	assert.Equal(t, ta.DefaultParams(), o.Params)
	assert.Equal(t, []types.Timeframe{types.M5, types.M15}, o.Timeframes)
	assert.Equal(t, types.H1, o.HigherTimeframe)
	assert.GreaterOrEqual(t, o.Bars, o.Params.MinBars())
}
