package ta

import (
	"fmt"

	"vixfix-trading-bot/internal/types"
)

type Trend int

const (
	TrendUnknown Trend = iota
	TrendBullish
	TrendBearish
)

func (t Trend) String() string {
	switch t {
	case TrendBullish:
		return "bullish"
	case TrendBearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// TrendFilter compares the fast and slow simple means of close. With fewer
// than slow bars the trend is unknown, which is neither bullish nor bearish.
func TrendFilter(bars []types.Bar, fast, slow int) (Trend, error) {
	if len(bars) < slow || len(bars) < fast {
		return TrendUnknown, fmt.Errorf("%w: trend filter needs %d bars, got %d", types.ErrInsufficientData, slow, len(bars))
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	f, s := SMA(closes, fast), SMA(closes, slow)
	switch {
	case f > s:
		return TrendBullish, nil
	case f < s:
		return TrendBearish, nil
	}
	return TrendUnknown, nil
}
