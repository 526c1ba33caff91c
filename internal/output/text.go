package output

import (
	"bufio"
	"fmt"
	"io"
)

// TextWriter writes one line per item: the item's String form, or its
// default formatting when it has none.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// Write writes item on its own line and flushes, so pipelines see results
// as they are produced.
func (w *TextWriter) Write(item any) error {
	var line string
	switch v := item.(type) {
	case fmt.Stringer:
		line = v.String()
	case string:
		line = v
	default:
		line = fmt.Sprint(v)
	}
	if _, err := w.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.w.Flush()
}
