package logging

import (
	"sync"
)

// DefaultBufferLines is how many lines a Buffer keeps by default.
const DefaultBufferLines = 1000

// Buffer keeps the most recent log lines in memory so the server can
// expose them. It is an io.Writer meant to sit beside the real output.
type Buffer struct {
	lines []string
	max   int
	mu    sync.Mutex
}

// NewBuffer creates a buffer holding at most size lines.
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = DefaultBufferLines
	}
	return &Buffer{
		lines: make([]string, 0, size),
		max:   size,
	}
}

func (lb *Buffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))
	if len(lb.lines) > lb.max {
		lb.lines = lb.lines[len(lb.lines)-lb.max:]
	}

	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first.
func (lb *Buffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
