package engine

import (
	"errors"
	"fmt"

	"vixfix-trading-bot/internal/types"

	"github.com/shopspring/decimal"
)

// MinLot is the smallest tradable volume regardless of what the venue reports.
const MinLot = 0.01

var ErrStopDistance = errors.New("stop distance must be positive")

// RiskSizer turns account balance and stop distance into a volume that
// risks a fixed percentage of the balance.
type RiskSizer struct {
	riskPct decimal.Decimal
}

func NewRiskSizer(riskPercent float64) *RiskSizer {
	return &RiskSizer{riskPct: decimal.NewFromFloat(riskPercent)}
}

// Size returns round2(balance*pct/100 / (stopTicks*tickValue)), cut down to
// a multiple of the venue's volume step and never below the venue minimum or
// MinLot. A venue that reports no tick value is treated as 1 per point.
func (rs *RiskSizer) Size(balance decimal.Decimal, stopTicks float64, meta types.SymbolMeta) (float64, error) {
	vol, _, err := rs.size(balance, stopTicks, meta)
	return vol, err
}

// size also reports whether the risk budget fell below the minimum volume
// and was raised to it.
func (rs *RiskSizer) size(balance decimal.Decimal, stopTicks float64, meta types.SymbolMeta) (float64, bool, error) {
	if stopTicks <= 0 {
		return 0, false, fmt.Errorf("%w: %v", ErrStopDistance, stopTicks)
	}
	tickValue := meta.TickValue
	if tickValue <= 0 {
		tickValue = 1
	}

	risk := balance.Mul(rs.riskPct).Div(decimal.NewFromInt(100))
	perLot := decimal.NewFromFloat(stopTicks).Mul(decimal.NewFromFloat(tickValue))
	size := risk.Div(perLot).Round(2)
	if meta.VolumeStep > 0 {
		step := decimal.NewFromFloat(meta.VolumeStep)
		size = size.Div(step).Floor().Mul(step)
	}
	vol, _ := size.Float64()

	floor := MinLot
	if meta.MinVolume > floor {
		floor = meta.MinVolume
	}
	if vol < floor {
		return floor, true, nil
	}
	return vol, false, nil
}
