package engine

import (
	"context"
	"errors"
	"fmt"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/tradelog"
	"vixfix-trading-bot/internal/types"
)

// orderExecutor submits an order once and records the attempt.
type orderExecutor struct {
	venue interfaces.Venue
}

func newOrderExecutor(venue interfaces.Venue) *orderExecutor {
	return &orderExecutor{venue: venue}
}

// submit returns the venue result for an accepted order. A rejection comes
// back as *types.OrderRejectedError and a transport failure wraps
// types.ErrConnectivity.
func (oe *orderExecutor) submit(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	entry := tradelog.OrderEntry{
		Symbol:    req.Symbol,
		Direction: string(req.Direction),
		Tag:       req.Tag,
		Lot:       req.Volume,
		Entry:     req.Entry,
		SL:        req.StopLoss,
		TP:        req.TakeProfit,
	}
	defer func() {
		if err := tradelog.Append(entry); err != nil {
			logger.ErrorWithErr(ctx, "Failed to write order log", err, "tag", req.Tag)
		}
	}()

	res, err := oe.venue.SubmitOrder(ctx, req)
	if err != nil {
		entry.Status, entry.Code = "ERROR", err.Error()
		if !errors.Is(err, types.ErrConnectivity) {
			err = fmt.Errorf("%w: %v", types.ErrConnectivity, err)
		}
		logger.ErrorWithErr(ctx, "Order submission failed", err,
			"symbol", req.Symbol, "direction", req.Direction, "lot", req.Volume)
		return types.OrderResult{}, err
	}
	entry.OrderID, entry.Code, entry.Fill = res.OrderID, res.Code, res.FillPrice

	if !res.Accepted {
		entry.Status = "REJECTED"
		logger.Error(ctx, "Order rejected",
			"symbol", req.Symbol, "direction", req.Direction, "lot", req.Volume, "code", res.Code)
		return res, &types.OrderRejectedError{Code: res.Code}
	}
	entry.Status = "ACCEPTED"
	logger.Trade(ctx, req.Symbol, string(req.Direction), req.Volume, res.FillPrice, res.OrderID,
		"sl", req.StopLoss, "tp", req.TakeProfit, "tag", req.Tag)
	return res, nil
}
