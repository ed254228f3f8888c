// FILE: lixenwraith/logpipe/example/sink/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/appender"
	"github.com/lixenwraith/logpipe/event"
)

const logDirectory = "./temp_logs"

func main() {
	if err := os.RemoveAll(logDirectory); err != nil {
		fmt.Printf("Warning: could not remove old log directory: %v\n", err)
	}

	fmt.Println("--- SCENARIO 1: Sinks in isolation ---")
	runIsolated("1.1: File-Only", "enable_console=false", "enable_file=true", "file_path="+filepath.Join(logDirectory, "file_only.log"))
	runIsolated("1.2: Stdout-Only", "enable_console=true", "console_target=stdout")
	runIsolated("1.3: Stderr-Only", "enable_console=true", "console_target=stderr")
	runIsolated("1.4: Split", "enable_console=true", "console_target=split")
	runIsolated("1.5: No-Output (events reach no appender)", "enable_console=false")

	fmt.Println("\n--- SCENARIO 2: Sink transitions on one logger ---")
	testTransitions()

	fmt.Println("\n--- Sink Suite Complete ---")
	fmt.Printf("Check the '%s' directory for log files.\n", logDirectory)
}

func runIsolated(phaseName string, overrides ...string) {
	logger := logpipe.NewLogger()
	runPhase(logger, phaseName, overrides...)
	shutdownLogger(logger, phaseName)
}

// testTransitions swaps sinks live; events in flight finish on the old set
func testTransitions() {
	logger := logpipe.NewLogger()
	filePath := filepath.Join(logDirectory, "reconfig.log")

	runPhase(logger, "2.1: Dual File+Stdout", "enable_console=true", "enable_file=true", "file_path="+filePath)
	runPhase(logger, "2.2: Stdout-Only", "enable_file=false")
	runPhase(logger, "2.3: Back to Dual", "enable_file=true", "file_path="+filePath)

	// A programmatic appender survives config changes
	errorsOnly := appender.NewWriterAppender("errors", os.Stderr, appender.LayoutFunc(func(dst []byte, ev *event.Event) []byte {
		return append(dst, fmt.Sprintf("!! %s %v\n", ev.Level, ev.Args)...)
	}))
	if err := logger.Install(logpipe.Delivery{Refs: []logpipe.AppenderRef{{Appender: errorsOnly, Level: event.LevelError}}}); err != nil {
		fmt.Printf("  ERROR: install failed: %v\n", err)
	}
	runPhase(logger, "2.4: Json with extra error sink", "format=json")

	fmt.Println("\n[Phase 2.5: Levels on the final state]")
	logger.Debug("final-state", "This is a debug message.")
	logger.Info("final-state", "This is an info message.")
	logger.Warn("final-state", "This is a warning message.")
	logger.Error("final-state", "This is an error message.")
	_ = logger.Flush(time.Second)

	shutdownLogger(logger, "2: Transitions")
}

func runPhase(logger *logpipe.Logger, phaseName string, overrides ...string) {
	fmt.Printf("\n[Phase %s]\n", phaseName)
	fmt.Println("  Config:", overrides)

	if err := logger.ApplyConfigString(append(overrides, "level=debug")...); err != nil {
		fmt.Printf("  ERROR: Failed to configure logger: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Start(); err != nil {
		fmt.Printf("  ERROR: Failed to start logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("event", "start_phase", "name", phaseName)
	logger.Info("event", "end_phase", "name", phaseName)
	_ = logger.Flush(time.Second)
}

func shutdownLogger(l *logpipe.Logger, phaseName string) {
	s := l.Stats()
	fmt.Printf("  processed=%d dropped=%d\n", s.Processed, s.Dropped)
	if err := l.Shutdown(500 * time.Millisecond); err != nil {
		fmt.Printf("  WARNING: Shutdown error in phase '%s': %v\n", phaseName, err)
	}
}
