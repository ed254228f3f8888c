// FILE: lixenwraith/logpipe/cmd/logpipe-stress/burst.go
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/logpipe"
)

var (
	totalBursts    int
	logsPerBurst   int
	maxMessageSize int
	numWorkers     int
)

var burstCmd = &cobra.Command{
	Use:   "burst",
	Short: "Log bursts of random events from concurrent producers",
	Long: `Submit bursts of random-sized events from a pool of producers into a
rolling file sink sized to force frequent rotation.`,
	RunE: runBurst,
}

func init() {
	flags := burstCmd.Flags()
	flags.IntVar(&totalBursts, "bursts", 100, "number of bursts")
	flags.IntVar(&logsPerBurst, "per-burst", 500, "events per burst")
	flags.IntVar(&maxMessageSize, "max-message", 10000, "maximum message size in bytes")
	flags.IntVar(&numWorkers, "workers", 64, "concurrent producers")
	rootCmd.AddCommand(burstCmd)
}

var levels = []int64{
	logpipe.LevelDebug,
	logpipe.LevelInfo,
	logpipe.LevelWarn,
	logpipe.LevelError,
}

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.IntN(len(chars))])
	}
	return sb.String()
}

// logBurst submits one burst, returning how many events the queue refused
func logBurst(ctx context.Context, logger *logpipe.Logger, burstID int) int {
	refused := 0
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.IntN(len(levels))]
		msg := generateRandomMessage(rand.IntN(maxMessageSize) + 10)
		err := logger.Submit(ctx, level, msg,
			"wkr", burstID%numWorkers,
			"bst", burstID,
			"seq", i,
			"rnd", rand.Int64(),
		)
		if err != nil {
			refused++
		}
	}
	return refused
}

func runBurst(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := newHarness(ctx,
		"level=debug",
		"name=stress",
		"enable_console=false",
		"enable_file=true",
		"file_path=./logs/stress.log",
		"buffer_size=500",
		"max_size_kb=1024",
		"max_files=20",
		"compression=gzip",
		"flush_interval_ms=50",
	)
	if err != nil {
		return err
	}

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n", numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Press Ctrl+C to stop early.")

	var completed, refused atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	startTime := time.Now()
	for i := 1; i <= totalBursts && gctx.Err() == nil; i++ {
		burstID := i
		g.Go(func() error {
			refused.Add(int64(logBurst(gctx, h.logger, burstID)))
			if n := completed.Add(1); n%10 == 0 || n == int64(totalBursts) {
				fmt.Printf("\rProgress: %d/%d bursts completed", n, totalBursts)
			}
			return nil
		})
	}
	_ = g.Wait()
	duration := time.Since(startTime)

	finalCompleted := completed.Load()
	fmt.Printf("\nCompleted %d/%d bursts in %v, %d events refused\n",
		finalCompleted, totalBursts, duration.Round(time.Millisecond), refused.Load())
	if finalCompleted > 0 && duration.Seconds() > 0 {
		fmt.Printf("Approximate logs/sec: %.2f\n", float64(finalCompleted*int64(logsPerBurst))/duration.Seconds())
	}

	fmt.Println("Shutting down logger (allowing up to 10s)...")
	return h.close(10 * time.Second)
}
