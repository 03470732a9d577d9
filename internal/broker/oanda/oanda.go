package oanda

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	PracticeURL = "https://api-fxpractice.oanda.com"
	LiveURL     = "https://api-fxtrade.oanda.com"
)

var errNotConnected = errors.New("venue session not open")

type Params struct {
	// BaseURL overrides the environment's REST host.
	BaseURL     string
	Environment string
	// LotSize is the number of units in one lot (100 oz for XAU_USD).
	LotSize float64
	Timeout time.Duration
}

// Client talks to the OANDA v20 REST API.
type Client struct {
	p Params

	mu        sync.Mutex
	http      *resty.Client
	accountID string
}

var _ interfaces.Venue = (*Client)(nil)

func New(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = PracticeURL
		if p.Environment == "live" {
			p.BaseURL = LiveURL
		}
	}
	if p.LotSize <= 0 {
		p.LotSize = 100
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &Client{p: p}
}

// Connect opens the session and checks the credentials against the
// account summary.
func (c *Client) Connect(ctx context.Context, creds types.Credentials) error {
	if creds.AccountID == "" || creds.Token == "" {
		return fmt.Errorf("%w: missing account id or token", types.ErrConnectivity)
	}
	hc := resty.New().
		SetBaseURL(c.p.BaseURL).
		SetTimeout(c.p.Timeout).
		SetAuthToken(creds.Token).
		SetHeader("Accept-Datetime-Format", "RFC3339")

	c.mu.Lock()
	c.http, c.accountID = hc, creds.AccountID
	c.mu.Unlock()

	if _, err := c.AccountBalance(ctx); err != nil {
		c.Disconnect(ctx)
		return err
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = nil
}

func (c *Client) session() (*resty.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		return nil, "", fmt.Errorf("%w: %v", types.ErrConnectivity, errNotConnected)
	}
	return c.http, c.accountID, nil
}

type apiError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// get issues a GET and decodes a 2xx body into out. Anything else is a
// connectivity problem from the bot's point of view.
func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	hc, _, err := c.session()
	if err != nil {
		return err
	}
	var apiErr apiError
	resp, err := hc.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", types.ErrConnectivity, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: GET %s: %d %s %s", types.ErrConnectivity, path, resp.StatusCode(), apiErr.ErrorCode, apiErr.ErrorMessage)
	}
	return nil
}

type summaryResponse struct {
	Account struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	} `json:"account"`
}

func (c *Client) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	_, acct, err := c.session()
	if err != nil {
		return decimal.Zero, err
	}
	var out summaryResponse
	if err := c.get(ctx, "/v3/accounts/"+acct+"/summary", nil, &out); err != nil {
		return decimal.Zero, err
	}
	bal, err := decimal.NewFromString(out.Account.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance %q: %v", types.ErrConnectivity, out.Account.Balance, err)
	}
	return bal, nil
}

type candle struct {
	Complete bool      `json:"complete"`
	Volume   float64   `json:"volume"`
	Time     time.Time `json:"time"`
	Mid      struct {
		O, H, L, C string
	} `json:"mid"`
}

type candlesResponse struct {
	Candles []candle `json:"candles"`
}

// LatestBars returns up to count completed mid-price bars, oldest first.
// The still-forming bar is dropped.
func (c *Client) LatestBars(ctx context.Context, symbol string, tf types.Timeframe, count int) ([]types.Bar, error) {
	var out candlesResponse
	q := map[string]string{
		"granularity": string(tf),
		"count":       strconv.Itoa(count + 1),
		"price":       "M",
	}
	if err := c.get(ctx, "/v3/instruments/"+symbol+"/candles", q, &out); err != nil {
		return nil, err
	}
	bars := make([]types.Bar, 0, len(out.Candles))
	for _, k := range out.Candles {
		if !k.Complete {
			continue
		}
		b, err := k.bar()
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (k candle) bar() (types.Bar, error) {
	var vals [4]float64
	for i, s := range []string{k.Mid.O, k.Mid.H, k.Mid.L, k.Mid.C} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("%w: candle %s: %v", types.ErrConnectivity, k.Time.Format(time.RFC3339), err)
		}
		vals[i] = v
	}
	return types.Bar{OpenTime: k.Time.UTC(), Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: k.Volume}, nil
}

type priceBucket struct {
	Price string `json:"price"`
}

type pricingResponse struct {
	Prices []struct {
		Instrument string        `json:"instrument"`
		Time       time.Time     `json:"time"`
		Bids       []priceBucket `json:"bids"`
		Asks       []priceBucket `json:"asks"`
	} `json:"prices"`
}

func (c *Client) LatestTick(ctx context.Context, symbol string) (types.Tick, error) {
	_, acct, err := c.session()
	if err != nil {
		return types.Tick{}, err
	}
	var out pricingResponse
	if err := c.get(ctx, "/v3/accounts/"+acct+"/pricing", map[string]string{"instruments": symbol}, &out); err != nil {
		return types.Tick{}, err
	}
	if len(out.Prices) == 0 || len(out.Prices[0].Bids) == 0 || len(out.Prices[0].Asks) == 0 {
		return types.Tick{}, fmt.Errorf("%w: no price for %s", types.ErrConnectivity, symbol)
	}
	p := out.Prices[0]
	bid, err1 := strconv.ParseFloat(p.Bids[0].Price, 64)
	ask, err2 := strconv.ParseFloat(p.Asks[0].Price, 64)
	if err := errors.Join(err1, err2); err != nil {
		return types.Tick{}, fmt.Errorf("%w: price for %s: %v", types.ErrConnectivity, symbol, err)
	}
	return types.Tick{Bid: bid, Ask: ask, Time: p.Time}, nil
}

type instrumentsResponse struct {
	Instruments []struct {
		Name                string `json:"name"`
		PipLocation         int    `json:"pipLocation"`
		TradeUnitsPrecision int    `json:"tradeUnitsPrecision"`
		MinimumTradeSize    string `json:"minimumTradeSize"`
	} `json:"instruments"`
}

// SymbolMeta reports volumes in lots. The tick value is the account
// currency value of one point for one lot, assuming a USD-quoted
// instrument on a USD account.
func (c *Client) SymbolMeta(ctx context.Context, symbol string) (types.SymbolMeta, error) {
	_, acct, err := c.session()
	if err != nil {
		return types.SymbolMeta{}, err
	}
	var out instrumentsResponse
	if err := c.get(ctx, "/v3/accounts/"+acct+"/instruments", map[string]string{"instruments": symbol}, &out); err != nil {
		return types.SymbolMeta{}, err
	}
	if len(out.Instruments) == 0 {
		return types.SymbolMeta{}, fmt.Errorf("%w: unknown instrument %s", types.ErrConnectivity, symbol)
	}
	in := out.Instruments[0]
	point := math.Pow10(in.PipLocation)
	minUnits, _ := strconv.ParseFloat(in.MinimumTradeSize, 64)
	return types.SymbolMeta{
		TickValue:  point * c.p.LotSize,
		Point:      point,
		MinVolume:  math.Max(minUnits/c.p.LotSize, 0.01),
		VolumeStep: math.Pow10(-in.TradeUnitsPrecision) / c.p.LotSize,
	}, nil
}

type priceOnFill struct {
	Price string `json:"price"`
}

type orderBody struct {
	Order struct {
		Type             string      `json:"type"`
		Instrument       string      `json:"instrument"`
		Units            string      `json:"units"`
		TimeInForce      string      `json:"timeInForce"`
		PositionFill     string      `json:"positionFill"`
		StopLossOnFill   priceOnFill `json:"stopLossOnFill"`
		TakeProfitOnFill priceOnFill `json:"takeProfitOnFill"`
		ClientExtensions struct {
			ID      string `json:"id,omitempty"`
			Comment string `json:"comment,omitempty"`
		} `json:"clientExtensions"`
	} `json:"order"`
}

type orderResponse struct {
	OrderFillTransaction *struct {
		ID      string `json:"id"`
		OrderID string `json:"orderID"`
		Price   string `json:"price"`
	} `json:"orderFillTransaction"`
	OrderCancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
	OrderRejectTransaction *struct {
		RejectReason string `json:"rejectReason"`
	} `json:"orderRejectTransaction"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// SubmitOrder places a fill-or-kill market order with the bracket attached.
// 4xx answers and cancelled fills come back as rejections; network and 5xx
// failures as ErrConnectivity.
func (c *Client) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	hc, acct, err := c.session()
	if err != nil {
		return types.OrderResult{}, err
	}

	units := decimal.NewFromFloat(req.Volume).Mul(decimal.NewFromFloat(c.p.LotSize)).Round(0)
	if req.Direction == types.Sell {
		units = units.Neg()
	}
	var body orderBody
	body.Order.Type = "MARKET"
	body.Order.Instrument = req.Symbol
	body.Order.Units = units.String()
	body.Order.TimeInForce = "FOK"
	body.Order.PositionFill = "DEFAULT"
	body.Order.StopLossOnFill.Price = decimal.NewFromFloat(req.StopLoss).String()
	body.Order.TakeProfitOnFill.Price = decimal.NewFromFloat(req.TakeProfit).String()
	body.Order.ClientExtensions.ID = req.Tag
	body.Order.ClientExtensions.Comment = "vixfix"

	var out orderResponse
	resp, err := hc.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/v3/accounts/" + acct + "/orders")
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("%w: submit order: %v", types.ErrConnectivity, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusUnauthorized {
		return types.OrderResult{}, fmt.Errorf("%w: submit order: %d %s", types.ErrConnectivity, resp.StatusCode(), out.ErrorMessage)
	}

	if !resp.IsError() && out.OrderFillTransaction != nil {
		fill, _ := strconv.ParseFloat(out.OrderFillTransaction.Price, 64)
		id := out.OrderFillTransaction.OrderID
		if id == "" {
			id = out.OrderFillTransaction.ID
		}
		return types.OrderResult{Accepted: true, FillPrice: fill, OrderID: id}, nil
	}
	return types.OrderResult{Accepted: false, Code: out.reason(resp.StatusCode())}, nil
}

func (o orderResponse) reason(status int) string {
	switch {
	case o.OrderRejectTransaction != nil && o.OrderRejectTransaction.RejectReason != "":
		return o.OrderRejectTransaction.RejectReason
	case o.OrderCancelTransaction != nil && o.OrderCancelTransaction.Reason != "":
		return o.OrderCancelTransaction.Reason
	case o.ErrorCode != "":
		return o.ErrorCode
	}
	return "HTTP_" + strconv.Itoa(status)
}
