// FILE: lixenwraith/logpipe/example/gnet/main.go
package main

import (
	"github.com/panjf2000/gnet/v2"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/compat"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	_, _ = c.Write(buf)
	return gnet.None
}

func main() {
	logger := logpipe.NewLogger()
	err := logger.ApplyConfigString(
		"enable_file=true",
		"file_path=/var/log/gnet/gnet.log",
		"level=debug",
		"format=json",
	)
	if err != nil {
		panic(err)
	}
	if err := logger.Start(); err != nil {
		panic(err)
	}
	defer logger.Shutdown()

	// "key=%v" verbs in gnet's messages become structured fields
	gnetAdapter := compat.NewGnetAdapter(logger, compat.WithFieldExtraction())

	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
