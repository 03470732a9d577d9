package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/types"
)

var (
	ErrNoSignal    = errors.New("decision carries no signal")
	ErrBracketSide = errors.New("stop loss or take profit on the wrong side of entry")
)

type Options struct {
	Symbol      string
	StopTicks   float64
	RewardRisk  float64
	RiskPercent float64
}

// Gateway sizes and submits the order for a decision and returns the
// journal record once the venue confirms it.
type Gateway struct {
	venue  interfaces.Venue
	opts   Options
	sizer  *RiskSizer
	orders *orderExecutor
	now    func() time.Time
}

var _ interfaces.Executor = (*Gateway)(nil)

func NewGateway(venue interfaces.Venue, opts Options) *Gateway {
	return &Gateway{
		venue:  venue,
		opts:   opts,
		sizer:  NewRiskSizer(opts.RiskPercent),
		orders: newOrderExecutor(venue),
		now:    time.Now,
	}
}

func (g *Gateway) Execute(ctx context.Context, d types.Decision) (*types.TradeRecord, error) {
	dir, ok := d.Signal.Direction()
	if !ok {
		return nil, ErrNoSignal
	}
	sym := g.opts.Symbol

	balance, err := g.venue.AccountBalance(ctx)
	if err != nil {
		return nil, connectivity("account balance", err)
	}
	meta, err := g.venue.SymbolMeta(ctx, sym)
	if err != nil {
		return nil, connectivity("symbol meta", err)
	}
	tick, err := g.venue.LatestTick(ctx, sym)
	if err != nil {
		return nil, connectivity("tick", err)
	}

	req, err := g.buildRequest(dir, tick, meta)
	if err != nil {
		return nil, err
	}
	req.Tag = d.Tag(sym)
	var floored bool
	req.Volume, floored, err = g.sizer.size(balance, g.opts.StopTicks, meta)
	if err != nil {
		return nil, err
	}
	if floored {
		logger.Risk(ctx, sym, "LOT_FLOORED",
			"balance", balance.String(), "risk_pct", g.opts.RiskPercent,
			"stop_ticks", g.opts.StopTicks, "min_volume", meta.MinVolume, "lot", req.Volume)
	} else {
		logger.Info(ctx, "Position sized",
			"symbol", sym, "balance", balance.String(), "risk_pct", g.opts.RiskPercent,
			"stop_ticks", g.opts.StopTicks, "tick_value", meta.TickValue, "lot", req.Volume)
	}

	res, err := g.orders.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	fill := res.FillPrice
	if fill <= 0 {
		fill = req.Entry
	}
	return &types.TradeRecord{
		Timestamp: g.now().UTC().Format(time.RFC3339),
		Entry:     fill,
		SL:        req.StopLoss,
		TP:        req.TakeProfit,
		Direction: dir,
		Lot:       req.Volume,
		Tag:       req.Tag,
	}, nil
}

// buildRequest prices the bracket off the quote: Buy enters at the ask with
// the stop below, Sell at the bid with the stop above.
func (g *Gateway) buildRequest(dir types.Direction, tick types.Tick, meta types.SymbolMeta) (types.OrderRequest, error) {
	point := meta.Point
	if point <= 0 {
		point = 0.01
	}
	stop := g.opts.StopTicks * point
	target := g.opts.StopTicks * g.opts.RewardRisk * point

	req := types.OrderRequest{Symbol: g.opts.Symbol, Direction: dir}
	switch dir {
	case types.Buy:
		req.Entry = tick.Ask
		req.StopLoss = roundToTick(req.Entry-stop, point)
		req.TakeProfit = roundToTick(req.Entry+target, point)
	case types.Sell:
		req.Entry = tick.Bid
		req.StopLoss = roundToTick(req.Entry+stop, point)
		req.TakeProfit = roundToTick(req.Entry-target, point)
	}
	if err := validateBracket(req); err != nil {
		return req, err
	}
	return req, nil
}

func validateBracket(r types.OrderRequest) error {
	if r.Entry <= 0 {
		return fmt.Errorf("%w: no quote (entry %v)", ErrBracketSide, r.Entry)
	}
	ok := false
	switch r.Direction {
	case types.Buy:
		ok = r.StopLoss < r.Entry && r.Entry < r.TakeProfit
	case types.Sell:
		ok = r.TakeProfit < r.Entry && r.Entry < r.StopLoss
	}
	if !ok {
		return fmt.Errorf("%w: %s entry=%v sl=%v tp=%v", ErrBracketSide, r.Direction, r.Entry, r.StopLoss, r.TakeProfit)
	}
	return nil
}

func connectivity(what string, err error) error {
	if errors.Is(err, types.ErrConnectivity) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %v", what, types.ErrConnectivity, err)
}
