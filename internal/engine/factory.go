package engine

import (
	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/store"
)

func New(cfg *store.Config, venue interfaces.Venue) interfaces.Executor {
	return NewGateway(venue, Options{
		Symbol:      cfg.Symbol,
		StopTicks:   cfg.StopTicks,
		RewardRisk:  cfg.RewardRisk,
		RiskPercent: cfg.RiskPercent,
	})
}
