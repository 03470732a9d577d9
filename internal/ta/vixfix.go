package ta

import (
	"fmt"
	"math"

	"vixfix-trading-bot/internal/types"
)

// Params sizes the indicator windows.
type Params struct {
	WVFPeriod     int
	WVFMeanPeriod int
	StochK        int
	StochD        int
	StochSlowing  int
}

func DefaultParams() Params {
	return Params{WVFPeriod: 22, WVFMeanPeriod: 22, StochK: 5, StochD: 3, StochSlowing: 3}
}

// MinBars is the shortest bar series for which the latest row of every
// column is defined.
func (p Params) MinBars() int {
	wvf := p.WVFPeriod + p.WVFMeanPeriod - 1
	stoch := p.StochK + p.StochD + p.StochSlowing - 2
	if stoch > wvf {
		return stoch
	}
	return wvf
}

// Frame is a bar series with its derived columns, one row per bar.
type Frame struct {
	Bars    []types.Bar
	WVF     []float64
	WVFMean []float64
	K       []float64
	D       []float64
	Slow    []float64
}

// Snapshot is the latest row of a Frame.
type Snapshot struct {
	Bar     types.Bar
	WVF     float64
	WVFMean float64
	K       float64
	D       float64
	Slow    float64
}

// VixFix is the Williams Vix Fix variant ((lowest low - close) / lowest low) * 100
// over a trailing window of lows.
func VixFix(bars []types.Bar, window int) []float64 {
	lows := make([]float64, len(bars))
	for i, b := range bars {
		lows[i] = b.Low
	}
	minLow := RollingMin(lows, window)
	out := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(minLow[i]) || minLow[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (minLow[i] - b.Close) / minLow[i] * 100
	}
	return out
}

// Stochastic returns %K, %D and the smoothed %D. A zero high-low range leaves
// %K undefined (NaN) for that row.
func Stochastic(bars []types.Bar, kPeriod, dPeriod, slowing int) (k, d, slow []float64) {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	lowMin := RollingMin(lows, kPeriod)
	highMax := RollingMax(highs, kPeriod)

	k = make([]float64, len(bars))
	for i, b := range bars {
		rng := highMax[i] - lowMin[i]
		if math.IsNaN(rng) || rng == 0 {
			k[i] = math.NaN()
			continue
		}
		k[i] = 100 * (b.Close - lowMin[i]) / rng
	}
	d = RollingMean(k, dPeriod)
	slow = RollingMean(d, slowing)
	return k, d, slow
}

// Compute builds the indicator frame for bars. It returns ErrInsufficientData
// when bars is too short for the latest row to be defined.
func Compute(bars []types.Bar, p Params) (*Frame, error) {
	if need := p.MinBars(); len(bars) < need {
		return nil, fmt.Errorf("%w: need %d bars, got %d", types.ErrInsufficientData, need, len(bars))
	}
	f := &Frame{Bars: bars}
	f.WVF = VixFix(bars, p.WVFPeriod)
	f.WVFMean = RollingMean(f.WVF, p.WVFMeanPeriod)
	f.K, f.D, f.Slow = Stochastic(bars, p.StochK, p.StochD, p.StochSlowing)
	return f, nil
}

// Latest returns the last row, or ErrInsufficientData if any of its columns
// is undefined (for example a flat market leaving %K without a range).
func (f *Frame) Latest() (Snapshot, error) {
	if len(f.Bars) == 0 {
		return Snapshot{}, types.ErrInsufficientData
	}
	i := len(f.Bars) - 1
	s := Snapshot{
		Bar:     f.Bars[i],
		WVF:     f.WVF[i],
		WVFMean: f.WVFMean[i],
		K:       f.K[i],
		D:       f.D[i],
		Slow:    f.Slow[i],
	}
	if hasNaN([]float64{s.WVF, s.WVFMean, s.Slow}) {
		return s, fmt.Errorf("%w: undefined indicator at %s", types.ErrInsufficientData, s.Bar.OpenTime.Format("2006-01-02 15:04"))
	}
	return s, nil
}
