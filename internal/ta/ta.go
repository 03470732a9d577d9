package ta

import "math"

// SMA is the mean of the last n values, NaN if fewer than n are available.
func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

// RollingMin returns the trailing minimum over window values ending at each
// index. Indexes before the window fills, and windows holding a NaN, are NaN.
func RollingMin(vals []float64, window int) []float64 {
	return rolling(vals, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v < m {
				m = v
			}
		}
		return m
	})
}

func RollingMax(vals []float64, window int) []float64 {
	return rolling(vals, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}

func RollingMean(vals []float64, window int) []float64 {
	return rolling(vals, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

func rolling(vals []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		w := vals[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = fn(w)
	}
	return out
}

func hasNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
