// FILE: lixenwraith/logpipe/cmd/logpipe-stress/main.go
// Command logpipe-stress drives a logpipe.Logger under load, live
// reconfiguration, and heartbeat cycling.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
