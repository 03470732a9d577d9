package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

func roundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	// snapped through decimal to drop float residue
	steps := math.Round(price / tick)
	f, _ := decimal.NewFromFloat(steps).Mul(decimal.NewFromFloat(tick)).Float64()
	return f
}
