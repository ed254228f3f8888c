// FILE: lixenwraith/logpipe/example/raw/main.go
package main

import (
	"fmt"
	"time"

	"github.com/lixenwraith/logpipe"
)

// TestPayload defines a struct for testing complex type serialization.
type TestPayload struct {
	RequestID uint64
	User      string
	Metrics   map[string]float64
}

func newConsoleLogger(overrides ...string) *logpipe.Logger {
	logger := logpipe.NewLogger()
	if err := logger.ApplyConfigString(append([]string{"enable_console=true"}, overrides...)...); err != nil {
		panic(err)
	}
	if err := logger.Start(); err != nil {
		panic(err)
	}
	return logger
}

func main() {
	fmt.Println("--- Logger Raw Format Test ---")

	// Newline, tab, and null
	byteRecord := []byte("binary\ndata\twith\x00null")

	structRecord := TestPayload{
		RequestID: 9223372036854775807,
		User:      "test_user",
		Metrics: map[string]float64{
			"latency_ms":  15.7,
			"cpu_percent": 88.2,
		},
	}

	// Write produces raw output regardless of the format setting
	fmt.Println("\n[1] On-demand raw output via Logger.Write()")
	logger1 := newConsoleLogger()
	logger1.Write("Byte Record ->", byteRecord)
	logger1.Write("Struct Record ->", structRecord)
	_ = logger1.Shutdown(time.Second)

	// format=raw makes every method raw
	fmt.Println("\n[2] Instance-wide raw output via format=\"raw\"")
	logger2 := newConsoleLogger("format=raw")
	logger2.Info("Byte Record ->", byteRecord)
	logger2.Info("Struct Record ->", structRecord)
	_ = logger2.Shutdown(time.Second)

	// The shell sanitizer escapes control bytes for terminals
	fmt.Println("\n[3] Text output with shell sanitization")
	logger3 := newConsoleLogger("sanitization=shell")
	logger3.Info("Byte Record ->", byteRecord)
	_ = logger3.Shutdown(time.Second)

	fmt.Println("\n--- Test Complete ---")
}
