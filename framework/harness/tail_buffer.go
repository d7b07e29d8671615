package harness

import "sync"

// tailBuffer keeps the last maxBytes written to it. It always reports success so that the pipe
// it is attached to keeps draining.
type tailBuffer struct {
	maxBytes  int
	buf       []byte
	truncated bool
	lock      sync.Mutex
}

func newTailBuffer(maxBytes int) *tailBuffer {
	return &tailBuffer{maxBytes: maxBytes}
}

func (tb *tailBuffer) Write(p []byte) (int, error) {
	tb.lock.Lock()
	defer tb.lock.Unlock()
	if len(p) >= tb.maxBytes {
		tb.buf = append(tb.buf[:0], p[len(p)-tb.maxBytes:]...)
		tb.truncated = true
		return len(p), nil
	}
	tb.buf = append(tb.buf, p...)
	if over := len(tb.buf) - tb.maxBytes; over > 0 {
		tb.buf = append(tb.buf[:0], tb.buf[over:]...)
		tb.truncated = true
	}
	return len(p), nil
}

// String returns the retained text, marked with a leading "..." if earlier output was dropped.
func (tb *tailBuffer) String() string {
	tb.lock.Lock()
	defer tb.lock.Unlock()
	if tb.truncated {
		return "..." + string(tb.buf)
	}
	return string(tb.buf)
}
