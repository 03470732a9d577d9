package engineobs

import (
	"context"
	"time"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/trace"
	"vixfix-trading-bot/internal/types"
)

type observableExecutor struct {
	exec interfaces.Executor
}

var _ interfaces.Executor = (*observableExecutor)(nil)

func Wrap(exec interfaces.Executor) interfaces.Executor {
	return &observableExecutor{
		exec: exec,
	}
}

func (oe *observableExecutor) Execute(ctx context.Context, d types.Decision) (*types.TradeRecord, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Execute")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Executing decision",
		"signal", d.Signal.String(),
		"timeframe", d.Timeframe,
		"bar_time", d.BarTime,
	)

	rec, err := oe.exec.Execute(ctx, d)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Execution failed", err,
			"signal", d.Signal.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Execution completed",
		"direction", rec.Direction,
		"entry", rec.Entry,
		"lot", rec.Lot,
		"tag", rec.Tag,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

type observableDetector struct {
	det interfaces.Detector
}

var _ interfaces.Detector = (*observableDetector)(nil)

func WrapDetector(det interfaces.Detector) interfaces.Detector {
	return &observableDetector{det: det}
}

func (od *observableDetector) Detect(ctx context.Context) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "signal.Detect")
	defer span.End()

	start := time.Now()
	d, err := od.det.Detect(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Scan aborted", err)
		return d, err
	}
	logger.InfoSkip(ctx, 1, "Scan completed",
		"signal", d.Signal.String(),
		"timeframe", d.Timeframe,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return d, nil
}
