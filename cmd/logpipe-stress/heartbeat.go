// FILE: lixenwraith/logpipe/cmd/logpipe-stress/heartbeat.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/status"
)

var heartbeatWait time.Duration

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Cycle heartbeat levels and print the heartbeat reports",
	RunE:  runHeartbeat,
}

func init() {
	heartbeatCmd.Flags().DurationVar(&heartbeatWait, "wait", 6*time.Second, "time spent at each level")
	rootCmd.AddCommand(heartbeatCmd)
}

func runHeartbeat(cmd *cobra.Command, args []string) error {
	h, err := newHarness(cmd.Context(),
		"level=debug",
		"enable_console=false",
		"enable_file=true",
		"file_path=./logs/heartbeat.log",
		"heartbeat_interval_s=5",
	)
	if err != nil {
		return err
	}

	h.logger.Status().SetEcho(false)
	unsubscribe := h.logger.Status().Subscribe(status.ListenerFunc(func(e status.Entry) {
		if e.Source == "heartbeat" {
			fmt.Println(e.String())
		}
	}))
	defer unsubscribe()

	// disable -> PROC -> PROC+DISK -> PROC+DISK+SYS -> back down
	steps := []struct {
		level       int64
		description string
	}{
		{0, "Heartbeats disabled"},
		{1, "PROC heartbeats only"},
		{2, "PROC+DISK heartbeats"},
		{3, "PROC+DISK+SYS heartbeats"},
		{2, "PROC+DISK heartbeats (reducing from 3)"},
		{1, "PROC heartbeats only (reducing from 2)"},
		{0, "Heartbeats disabled (final)"},
	}

	for _, step := range steps {
		err := h.logger.Reconfigure(func(cfg *logpipe.Config) {
			cfg.HeartbeatLevel = step.level
		})
		if err != nil {
			_ = h.close(time.Second)
			return err
		}

		fmt.Printf("\n--- Testing heartbeat level %d: %s ---\n", step.level, step.description)
		for j := 0; j < 10; j++ {
			h.logger.Debug("Debug test log", "iteration", j, "level_test", step.level)
			h.logger.Info("Info test log", "iteration", j, "level_test", step.level)
			h.logger.Warn("Warning test log", "iteration", j, "level_test", step.level)
			h.logger.Error("Error test log", "iteration", j, "level_test", step.level)
		}
		time.Sleep(heartbeatWait)
	}

	return h.close(2 * time.Second)
}
