package harness

import (
	"bytes"
	"sync"
)

// lineWriter is an io.Writer that splits whatever is written to it into lines, calling a
// function for each complete line. A line may arrive in any number of writes, and one write may
// contain any number of lines. A trailing "\r" is removed. Text after the last newline is held
// until more data arrives or Flush is called.
type lineWriter struct {
	onLine  func(line []byte)
	partial []byte
	lock    sync.Mutex
}

func newLineWriter(onLine func(line []byte)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	data := p
	for {
		pos := bytes.IndexByte(data, '\n')
		if pos < 0 {
			break
		}
		var line []byte
		if len(w.partial) > 0 {
			line = append(w.partial, data[:pos]...)
			w.partial = nil
		} else {
			line = append([]byte(nil), data[:pos]...)
		}
		w.emit(line)
		data = data[pos+1:]
	}
	if len(data) > 0 {
		w.partial = append(w.partial, data...)
	}
	return len(p), nil
}

// Flush delivers any incomplete final line.
func (w *lineWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if len(w.partial) > 0 {
		line := w.partial
		w.partial = nil
		w.emit(line)
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.onLine(line)
}
