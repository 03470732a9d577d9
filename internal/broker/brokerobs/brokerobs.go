package brokerobs

import (
	"context"
	"fmt"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/trace"
	"vixfix-trading-bot/internal/types"

	"github.com/shopspring/decimal"
)

// observableVenue wraps a Venue with observability (logging & tracing)
type observableVenue struct {
	venue interfaces.Venue
}

// Compile-time interface check
var _ interfaces.Venue = (*observableVenue)(nil)

// Wrap wraps a venue with observability middleware
func Wrap(venue interfaces.Venue) interfaces.Venue {
	return &observableVenue{
		venue: venue,
	}
}

func (ov *observableVenue) Connect(ctx context.Context, creds types.Credentials) error {
	ctx, span := trace.StartSpan(ctx, "venue.Connect")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Connecting to venue", "account", creds.AccountID)

	if err := ov.venue.Connect(ctx, creds); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to connect to venue", err, "account", creds.AccountID)
		return fmt.Errorf("venue connect failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Venue connected", "account", creds.AccountID)
	return nil
}

func (ov *observableVenue) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := trace.StartSpan(ctx, "venue.AccountBalance")
	defer span.End()

	bal, err := ov.venue.AccountBalance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err)
		return bal, err
	}

	logger.DebugSkip(ctx, 1, "Balance fetched", "balance", bal.String())
	return bal, nil
}

// LatestBars fetches bars with observability
func (ov *observableVenue) LatestBars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "venue.LatestBars")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching bars", "symbol", symbol, "timeframe", tf, "count", count)

	bars, err := ov.venue.LatestBars(ctx, symbol, tf, count)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch bars", err, "symbol", symbol, "timeframe", tf)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Bars fetched successfully", "symbol", symbol, "timeframe", tf, "count", len(bars))
	return bars, nil
}

func (ov *observableVenue) LatestTick(ctx context.Context, symbol string) (types.Tick, error) {
	ctx, span := trace.StartSpan(ctx, "venue.LatestTick")
	defer span.End()

	tick, err := ov.venue.LatestTick(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return tick, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "bid", tick.Bid, "ask", tick.Ask)
	return tick, nil
}

func (ov *observableVenue) SymbolMeta(ctx context.Context, symbol string) (types.SymbolMeta, error) {
	ctx, span := trace.StartSpan(ctx, "venue.SymbolMeta")
	defer span.End()

	meta, err := ov.venue.SymbolMeta(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch symbol meta", err, "symbol", symbol)
		return meta, err
	}
	return meta, nil
}

// SubmitOrder places an order with observability
func (ov *observableVenue) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.SubmitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting order",
		"symbol", req.Symbol,
		"direction", req.Direction,
		"lot", req.Volume,
		"entry", req.Entry,
		"sl", req.StopLoss,
		"tp", req.TakeProfit,
		"tag", req.Tag,
	)

	res, err := ov.venue.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err,
			"symbol", req.Symbol,
			"direction", req.Direction,
			"lot", req.Volume,
		)
		return res, err
	}

	logger.InfoSkip(ctx, 1, "Order answered",
		"symbol", req.Symbol,
		"accepted", res.Accepted,
		"order_id", res.OrderID,
		"code", res.Code,
	)
	return res, nil
}

// Disconnect closes the session with observability
func (ov *observableVenue) Disconnect(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "venue.Disconnect")
	defer span.End()

	ov.venue.Disconnect(ctx)
	logger.InfoSkip(ctx, 1, "Venue disconnected")
}
