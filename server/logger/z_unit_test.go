package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDev, ParseMode("ModeDev"))
	assert.Equal(t, ModeProd, ParseMode("ModeProd"))
	assert.Equal(t, ModeProd, ParseMode("prod"))
	assert.Equal(t, ModeSilence, ParseMode("ModeSilence"))
	assert.Equal(t, ModeDev, ParseMode("whatever"))
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(ModeProd, &buf).Info("hello", slog.Int("disks", 3))
	assert.Contains(t, buf.String(), `"disks":3`)

	buf.Reset()
	NewWriterLogger(ModeSilence, &buf).Error("nope")
	assert.Zero(t, buf.Len())
}

type syncBuf struct {
	ch chan string
}

func (s *syncBuf) Write(p []byte) (int, error) {
	s.ch <- string(p)
	return len(p), nil
}

func TestAsyncHandlerForwards(t *testing.T) {
	sink := &syncBuf{ch: make(chan string, 4)}
	ah := NewAsyncHandler(slog.NewTextHandler(sink, nil), 16)
	defer ah.Close()
	assert.True(t, ah.Ready())

	slog.New(ah).LogAttrs(context.Background(), slog.LevelInfo, "moved", slog.Int("pole", 2))
	select {
	case line := <-sink.ch:
		assert.True(t, strings.Contains(line, "pole=2"), line)
	case <-time.After(2 * time.Second):
		t.Fatal("async handler did not forward the record")
	}
}

// blockingSink 第一筆寫入卡住，直到 release 關閉
type blockingSink struct {
	mu      sync.Mutex
	release chan struct{}
	lines   []string
}

func (b *blockingSink) Write(p []byte) (int, error) {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, string(p))
	return len(p), nil
}

func TestAsyncHandlerDropsAndReports(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	ah := NewAsyncHandler(slog.NewTextHandler(sink, nil), 1)
	log := slog.New(ah)
	for i := range 10 {
		log.Info("move", slog.Int("n", i))
	}
	assert.NotZero(t, ah.Dropped(), "queue of one cannot hold ten records")

	close(sink.release)
	ah.Close()
	ah.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.lines)
	last := sink.lines[len(sink.lines)-1]
	assert.Contains(t, last, "log records dropped")

	before := ah.Dropped()
	log.Info("after close")
	assert.Equal(t, before+1, ah.Dropped())
}
