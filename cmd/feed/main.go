// Command feed drives the matching engine from a line-oriented order
// feed read from stdin, logging every trade and shutting down cleanly
// on SIGINT/SIGTERM. It is the interactive counterpart to cmd/bench's
// synthetic replay.
//
// Each line is one of:
//
//	ADD <BUY|SELL> <price> <quantity> <orderID> <participantID>
//	CANCEL <orderID>
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fleetmatch/limitbook/config"
	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/fleetmatch/limitbook/pkg/engine"
	"github.com/fleetmatch/limitbook/pkg/logging"
	"github.com/fleetmatch/limitbook/pkg/metrics"
	"github.com/fleetmatch/limitbook/pkg/sink/console"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger := log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := console.New(logger)
	_, meter := metrics.NewManualReader()
	engineMetrics, err := metrics.New(meter)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	e, err := engine.New(engine.Config{
		Capacity:       cfg.Engine.Capacity,
		MaxPriceLevels: cfg.Engine.MaxPriceLevels,
		Debug:          cfg.Engine.Debug,
		Logger:         &logger,
		Metrics:        engineMetrics,
	}, sink.Trade)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start engine")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runFeed(ctx, e, logger)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case <-done:
	}
}

func runFeed(ctx context.Context, e *engine.Engine, logger zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := applyLine(e, line); err != nil {
			logger.Error().Err(err).Str("line", line).Msg("failed to apply feed line")
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("feed read error")
	}
}

func applyLine(e *engine.Engine, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToUpper(fields[0]) {
	case "ADD":
		return applyAdd(e, fields[1:])
	case "CANCEL":
		if len(fields) != 2 {
			return fmt.Errorf("CANCEL requires exactly one order id, got %d fields", len(fields)-1)
		}
		orderID, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q: %w", fields[1], err)
		}
		e.CancelOrder(orderID)
		return nil
	default:
		return fmt.Errorf("unrecognized command %q", fields[0])
	}
}

func applyAdd(e *engine.Engine, fields []string) error {
	if len(fields) != 5 {
		return fmt.Errorf("ADD requires 5 fields, got %d", len(fields))
	}

	var side core.Side
	switch strings.ToUpper(fields[0]) {
	case "BUY":
		side = core.Buy
	case "SELL":
		side = core.Sell
	default:
		return fmt.Errorf("unrecognized side %q", fields[0])
	}

	price, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", fields[1], err)
	}
	if price == 0 {
		return fmt.Errorf("price must be positive, got %q", fields[1])
	}
	quantity, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", fields[2], err)
	}
	if quantity == 0 {
		return fmt.Errorf("quantity must be positive, got %q", fields[2])
	}
	orderID, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", fields[3], err)
	}
	participantID, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid participant id %q: %w", fields[4], err)
	}

	e.AddLimitOrder(side, uint32(price), uint32(quantity), orderID, participantID)
	return nil
}
