package paper

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vixfix-trading-bot/internal/id"
	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"

	"github.com/shopspring/decimal"
)

type Params struct {
	Balance float64
	// Base is the price the random walk starts from.
	Base   float64
	Spread float64
	Seed   int64
}

// Venue is the DRY_RUN stand-in: synthetic bars and fills at the quote.
type Venue struct {
	p Params

	mu      sync.Mutex
	rng     *rand.Rand
	last    float64
	now     func() time.Time
	orders  []types.OrderRequest
	balance decimal.Decimal
}

var _ interfaces.Venue = (*Venue)(nil)

func New(p Params) *Venue {
	if p.Base <= 0 {
		p.Base = 3000
	}
	if p.Spread <= 0 {
		p.Spread = 0.3
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	return &Venue{
		p:       p,
		rng:     rand.New(rand.NewSource(p.Seed)),
		last:    p.Base,
		now:     time.Now,
		balance: decimal.NewFromFloat(p.Balance),
	}
}

func (v *Venue) Connect(ctx context.Context, creds types.Credentials) error { return nil }
func (v *Venue) Disconnect(ctx context.Context)                            {}

func (v *Venue) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

// LatestBars walks count bars backwards from the last closed bar boundary
// and ends them at the current synthetic price.
func (v *Venue) LatestBars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	step := tf.Duration()
	if step <= 0 {
		step = time.Minute
	}
	end := v.now().UTC().Truncate(step)

	bars := make([]types.Bar, count)
	c := v.last
	for i := count - 1; i >= 0; i-- {
		o := c - (v.rng.Float64()-0.5)*2
		h := maxf(o, c) + v.rng.Float64()*1.5
		l := minf(o, c) - v.rng.Float64()*1.5
		bars[i] = types.Bar{
			OpenTime: end.Add(-time.Duration(count-i) * step),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			Volume:   v.rng.Float64() * 1000,
		}
		c = o
	}
	v.last += (v.rng.Float64() - 0.5) * 2
	return bars, nil
}

func (v *Venue) LatestTick(ctx context.Context, symbol string) (types.Tick, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	half := v.p.Spread / 2
	return types.Tick{Bid: round2(v.last - half), Ask: round2(v.last + half), Time: v.now()}, nil
}

func (v *Venue) SymbolMeta(ctx context.Context, symbol string) (types.SymbolMeta, error) {
	return types.SymbolMeta{TickValue: 1, Point: 0.01, MinVolume: 0.01, VolumeStep: 0.01}, nil
}

// SubmitOrder fills every order at its entry price.
func (v *Venue) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if req.Volume <= 0 {
		return types.OrderResult{Accepted: false, Code: "INVALID_VOLUME"}, nil
	}
	for _, o := range v.orders {
		if req.Tag != "" && o.Tag == req.Tag {
			return types.OrderResult{Accepted: false, Code: "CLIENT_ORDER_ID_ALREADY_EXISTS"}, nil
		}
	}
	v.orders = append(v.orders, req)
	return types.OrderResult{Accepted: true, FillPrice: req.Entry, OrderID: "SIM-" + id.New()}, nil
}

// Orders returns the accepted orders in submission order.
func (v *Venue) Orders() []types.OrderRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]types.OrderRequest(nil), v.orders...)
}

func round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
