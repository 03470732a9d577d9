package types

import (
	"fmt"
	"strings"
	"time"
)

type Bar struct {
	OpenTime                       time.Time
	Open, High, Low, Close, Volume float64
}

// Timeframe uses OANDA granularity names (M5, M15, H1, ...).
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D   Timeframe = "D"
)

var timeframeDurations = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D:   24 * time.Hour,
}

func (tf Timeframe) Duration() time.Duration { return timeframeDurations[tf] }

func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Direction returns the order direction for a Buy or Sell signal.
func (s Signal) Direction() (Direction, bool) {
	switch s {
	case SignalBuy:
		return Buy, true
	case SignalSell:
		return Sell, true
	}
	return "", false
}

type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

func (d *Direction) UnmarshalText(b []byte) error {
	switch v := Direction(strings.ToLower(string(b))); v {
	case Buy, Sell:
		*d = v
		return nil
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
}

// Decision is the detector's verdict for one scan. BarTime is the open time
// of the bar the signal was computed on.
type Decision struct {
	Signal    Signal
	Timeframe Timeframe
	BarTime   time.Time
}

// Tag identifies the decision for duplicate-submission checks. The same bar
// producing the same signal on a later cycle yields the same tag.
func (d Decision) Tag(symbol string) string {
	dir, _ := d.Signal.Direction()
	return fmt.Sprintf("%s:%s:%s:%d", symbol, d.Timeframe, dir, d.BarTime.Unix())
}

type Tick struct {
	Bid, Ask float64
	Time     time.Time
}

type SymbolMeta struct {
	TickValue  float64
	Point      float64
	MinVolume  float64
	VolumeStep float64
}

type Credentials struct {
	AccountID string
	Token     string
}

type OrderRequest struct {
	Symbol     string
	Direction  Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
	Tag        string
}

type OrderResult struct {
	Accepted  bool
	FillPrice float64
	OrderID   string
	Code      string
}

type TradeRecord struct {
	Timestamp string    `json:"timestamp"`
	Entry     float64   `json:"entry"`
	SL        float64   `json:"sl"`
	TP        float64   `json:"tp"`
	Direction Direction `json:"direction"`
	Lot       float64   `json:"lot"`
	Tag       string    `json:"tag,omitempty"`
}
