// Command bench replays a synthetic stream of random limit orders
// against a single in-process engine and reports submission latency
// percentiles. The engine is single-threaded by design, so unlike a
// network load test this drives one goroutine at a configurable rate
// rather than fanning out workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"
	"github.com/fleetmatch/limitbook/pkg/core"
	"github.com/fleetmatch/limitbook/pkg/engine"
	"golang.org/x/time/rate"
)

func main() {
	capacity := flag.Int("capacity", 200000, "engine arena capacity")
	numOrders := flag.Int("orders", 200000, "number of orders to submit")
	ratePerSec := flag.Float64("rate", 50000, "maximum orders submitted per second")
	priceSpread := flag.Uint("spread", 20, "number of distinct prices around the midpoint")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tradeCount int64
	e, err := engine.New(engine.Config{Capacity: *capacity}, func(core.Trade) {
		tradeCount++
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Limit(*ratePerSec), int(*ratePerSec))
	hist := hdrhistogram.New(1, 10_000_000, 4) // nanoseconds, up to 10ms

	rng := rand.New(rand.NewSource(1))
	const midpoint = 10_000

	start := time.Now()
	submitted := 0
	for submitted = 0; submitted < *numOrders; submitted++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		side := core.Buy
		if rng.Intn(2) == 1 {
			side = core.Sell
		}
		price := uint32(midpoint + rng.Intn(int(*priceSpread)) - int(*priceSpread)/2)
		quantity := uint32(1 + rng.Intn(100))
		orderID := uint64(submitted + 1)
		participantID := uint64(rng.Intn(1000))

		opStart := time.Now()
		e.AddLimitOrder(side, price, quantity, orderID, participantID)
		_ = hist.RecordValue(time.Since(opStart).Nanoseconds())
	}
	elapsed := time.Since(start)

	printSummary(submitted, tradeCount, elapsed, hist)
}

func printSummary(submitted int, trades int64, elapsed time.Duration, hist *hdrhistogram.Histogram) {
	bold := color.New(color.Bold)
	bold.Println("bench summary")

	fmt.Printf("  orders submitted:  %d\n", submitted)
	fmt.Printf("  trades emitted:    %d\n", trades)
	fmt.Printf("  wall time:         %s\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("  throughput:        %.0f orders/sec\n", float64(submitted)/elapsed.Seconds())
	}

	color.New(color.FgCyan).Println("  submission latency (ns):")
	fmt.Printf("    p50:  %d\n", hist.ValueAtQuantile(50))
	fmt.Printf("    p90:  %d\n", hist.ValueAtQuantile(90))
	fmt.Printf("    p99:  %d\n", hist.ValueAtQuantile(99))
	fmt.Printf("    p999: %d\n", hist.ValueAtQuantile(99.9))
	fmt.Printf("    max:  %d\n", hist.Max())
}
