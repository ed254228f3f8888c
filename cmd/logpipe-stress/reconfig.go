// FILE: lixenwraith/logpipe/cmd/logpipe-stress/reconfig.go
package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var reconfigRounds int

var reconfigCmd = &cobra.Command{
	Use:   "reconfig",
	Short: "Reconfigure the logger rapidly while producers log",
	RunE:  runReconfig,
}

func init() {
	reconfigCmd.Flags().IntVar(&reconfigRounds, "rounds", 10, "number of reconfigurations")
	rootCmd.AddCommand(reconfigCmd)
}

func runReconfig(cmd *cobra.Command, args []string) error {
	h, err := newHarness(cmd.Context(), "enable_console=false", "enable_file=true", "file_path=./logs/reconfig.log")
	if err != nil {
		return err
	}

	var count atomic.Int64
	ctx, cancel := context.WithCancel(cmd.Context())
	g, gctx := errgroup.WithContext(ctx)

	// Log constantly
	g.Go(func() error {
		for i := 0; gctx.Err() == nil; i++ {
			h.logger.Info("Test log", i)
			count.Add(1)
			time.Sleep(time.Millisecond)
		}
		return nil
	})

	// Different buffer sizes restart the pipeline; formats swap appenders live
	g.Go(func() error {
		defer cancel()
		formats := []string{"txt", "json", "raw"}
		for i := 0; i < reconfigRounds; i++ {
			err := h.logger.ApplyConfigString(
				fmt.Sprintf("buffer_size=%d", 100*(i+1)),
				"format="+formats[i%len(formats)],
			)
			if err != nil {
				return err
			}
			time.Sleep(10 * time.Millisecond)
		}
		time.Sleep(500 * time.Millisecond)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		_ = h.close(time.Second)
		return err
	}
	fmt.Printf("Total logs attempted: %d\n", count.Load())
	return h.close(time.Second)
}
