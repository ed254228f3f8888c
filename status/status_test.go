package status

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelHistoryAndCounts(t *testing.T) {
	c := NewChannel(3)

	c.Info("dispatch", "started")
	c.Warn("queue", "events dropped", nil, "count", 4)
	c.Error("rolling", "rename failed", errors.New("permission denied"), "path", "/var/log/app.log")
	c.Error("appender", "append failed", errors.New("broken pipe"))

	recent := c.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "queue", recent[0].Source)
	assert.Equal(t, "appender", recent[2].Source)

	assert.Equal(t, uint64(1), c.Count(SeverityInfo))
	assert.Equal(t, uint64(1), c.Count(SeverityWarn))
	assert.Equal(t, uint64(2), c.Count(SeverityError))

	assert.Equal(t, "error - rolling: rename failed: permission denied path=/var/log/app.log", recent[1].String())
}

func TestChannelListeners(t *testing.T) {
	c := NewChannel(0)

	var got []Entry
	unsubscribe := c.Subscribe(ListenerFunc(func(e Entry) { got = append(got, e) }))

	buffered := NewChannelListener(1)
	c.Subscribe(buffered)

	c.Warn("queue", "first", nil)
	c.Warn("queue", "second", nil)

	assert.Len(t, got, 2)
	assert.Equal(t, "first", (<-buffered.C).Message)
	assert.Equal(t, uint64(1), buffered.Dropped())

	unsubscribe()
	c.Info("queue", "third")
	assert.Len(t, got, 2)
}

func TestChannelEcho(t *testing.T) {
	c := NewChannel(4)
	var buf bytes.Buffer
	c.SetOutput(&buf)

	c.Info("dispatch", "quiet")
	assert.Empty(t, buf.String())

	c.SetEcho(true)
	c.Error("dispatch", "loud", nil, "odd")
	assert.Equal(t, "logpipe: error - dispatch: loud !BADKEY=odd\n", buf.String())
}

func TestNilChannelReport(t *testing.T) {
	var c *Channel
	assert.NotPanics(t, func() { c.Report(Entry{Message: "ignored"}) })
}
