// FILE: lixenwraith/logpipe/cmd/simple/main.go
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lixenwraith/logpipe"
)

const configFile = "simple_config.toml"

// Example TOML content; keys left out keep their defaults
var tomlContent = `
[logpipe]
  level = -4 # Debug
  name = "simple"
  format = "txt"
  enable_file = true
  file_path = "./simple_logs/simple.log"
  max_size_kb = 512
  rollover_strategy = "fixed"
  max_files = 3
  compression = "gzip"
  buffer_size = 1024
  flush_interval_ms = 100
  trace_depth = 0
  capture_location = true
`

func main() {
	fmt.Println("--- Simple Logger Example ---")

	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created example config file: %s\n", configFile)

	// The package-level functions use the default logger
	if err := logpipe.LoadConfig(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logpipe.Default().Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logger initialized.")

	// Writes the merged configuration (defaults + file) back
	if err := logpipe.Default().SaveConfig(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save configuration to '%s': %v\n", configFile, err)
	} else {
		fmt.Printf("Configuration saved to: %s\n", configFile)
	}

	logpipe.Debug("This is a debug message.", "user_id", 123)
	logpipe.Info("Application starting...")
	logpipe.Warn("Potential issue detected.", "threshold", 0.95)
	logpipe.Error("An error occurred!", "code", 500)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logpipe.Info("Goroutine started", "id", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logpipe.InfoTrace(1, "Goroutine finished", "id", id)
		}(i)
	}
	wg.Wait()
	fmt.Println("Goroutines finished.")

	fmt.Println("Shutting down logger...")
	if err := logpipe.Shutdown(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}

	fmt.Println("--- Example Finished ---")
	fmt.Printf("Check log files in './simple_logs' and the saved config '%s'.\n", configFile)
}
