package eod

import (
	"vixfix-trading-bot/internal/interfaces"
)

// NewSummarizer writes summaries under dir/eod.
func NewSummarizer(dir string) interfaces.EodSummarizer {
	if dir == "" {
		dir = "logs"
	}
	return &eodSummarizer{dir: dir}
}
