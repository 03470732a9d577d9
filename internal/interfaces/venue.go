package interfaces

import (
	"context"

	"vixfix-trading-bot/internal/types"

	"github.com/shopspring/decimal"
)

// Venue is the execution venue: market data, account state and order entry.
type Venue interface {
	// Connect opens a session with the venue
	Connect(ctx context.Context, creds types.Credentials) error

	// AccountBalance returns the account balance in account currency
	AccountBalance(ctx context.Context) (decimal.Decimal, error)

	// LatestBars returns up to count completed bars, oldest first
	LatestBars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error)

	// LatestTick returns the current bid/ask
	LatestTick(ctx context.Context, symbol string) (types.Tick, error)

	// SymbolMeta returns tick value, point and minimum volume for a symbol
	SymbolMeta(ctx context.Context, symbol string) (types.SymbolMeta, error)

	// SubmitOrder sends a market order. A venue rejection is reported through
	// OrderResult.Accepted=false, transport failures through err.
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)

	// Disconnect releases the session
	Disconnect(ctx context.Context)
}
