package interfaces

import (
	"context"

	"vixfix-trading-bot/internal/types"
)

type Detector interface {
	Detect(ctx context.Context) (types.Decision, error)
}

type Executor interface {
	Execute(ctx context.Context, d types.Decision) (*types.TradeRecord, error)
}
