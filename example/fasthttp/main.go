// FILE: lixenwraith/logpipe/example/fasthttp/main.go
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/compat"
)

func main() {
	logger := logpipe.NewLogger()
	err := logger.ApplyConfigString(
		"enable_file=true",
		"file_path=/var/log/fasthttp/server.log",
		"level=info",
		"buffer_size=2048",
		"rollover_interval=1",
		"rollover_unit=day",
		"compression=gzip",
	)
	if err != nil {
		panic(err)
	}
	if err := logger.Start(); err != nil {
		panic(err)
	}
	defer logger.Shutdown()

	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(logpipe.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  fasthttpAdapter,

		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

// customLevelDetector knows fasthttp's own connection messages
func customLevelDetector(msg string) (int64, bool) {
	if strings.Contains(msg, "connection cannot be served") {
		return logpipe.LevelWarn, true
	}
	if strings.Contains(msg, "error when serving connection") {
		return logpipe.LevelError, true
	}
	return compat.DetectLogLevel(msg)
}
