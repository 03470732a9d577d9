package notify

import (
	"context"
	"fmt"
	"strconv"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"
)

// TradeMessage renders the text sent after a confirmed trade.
func TradeMessage(symbol string, rec types.TradeRecord) string {
	icon := "📈"
	if rec.Direction == types.Sell {
		icon = "📉"
	}
	dir := "BUY"
	if rec.Direction == types.Sell {
		dir = "SELL"
	}
	return fmt.Sprintf("%s %s %s\nEntry: %.2f\nTP: %.2f\nSL: %.2f\nLot: %s",
		icon, dir, symbol, rec.Entry, rec.TP, rec.SL, strconv.FormatFloat(rec.Lot, 'f', -1, 64))
}

// Noop drops every message.
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) Send(ctx context.Context, text string) error { return nil }
