package interfaces

import (
	"time"

	"vixfix-trading-bot/internal/types"
)

type EodSummarizer interface {
	SummarizeDay(records []types.TradeRecord, day time.Time) (csvPath string, err error)
}
