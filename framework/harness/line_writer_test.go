package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineWriterSplitsLines(t *testing.T) {
	var lines []string
	w := newLineWriter(func(line []byte) { lines = append(lines, string(line)) })
	_, _ = w.Write([]byte("{\"type\":\"ready\"}\n{\"type\":\"status\"}\n"))
	assert.Equal(t, []string{`{"type":"ready"}`, `{"type":"status"}`}, lines)
}

func TestLineWriterJoinsPartialLines(t *testing.T) {
	var lines []string
	w := newLineWriter(func(line []byte) { lines = append(lines, string(line)) })
	for _, chunk := range []string{`{"ty`, `pe":"re`, "ady\"}\n{\"type\"", ":\"error\"}\r\n"} {
		_, _ = w.Write([]byte(chunk))
	}
	assert.Equal(t, []string{`{"type":"ready"}`, `{"type":"error"}`}, lines)
}

func TestLineWriterSkipsBlankLinesAndFlushesRemainder(t *testing.T) {
	var lines []string
	w := newLineWriter(func(line []byte) { lines = append(lines, string(line)) })
	_, _ = w.Write([]byte("\n\r\n   \nfirst\nunterminated"))
	assert.Equal(t, []string{"first"}, lines)

	w.Flush()
	assert.Equal(t, []string{"first", "unterminated"}, lines)

	w.Flush()
	assert.Len(t, lines, 2)
}

func TestLineWriterDoesNotRetainCallerBuffer(t *testing.T) {
	var lines [][]byte
	w := newLineWriter(func(line []byte) { lines = append(lines, line) })
	buf := []byte("abc\n")
	_, _ = w.Write(buf)
	buf[0] = 'x'
	assert.Equal(t, "abc", string(lines[0]))
}
