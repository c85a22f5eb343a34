package ioptrond

import (
	"bufio"
	"bytes"
	"io"
)

// ReadSSE returns the data of the next event of the stream.
// Multi-line data is joined with '\n', other fields and comments are ignored.
func ReadSSE(r *bufio.Reader) ([]byte, error) {
	var data []byte
	var lines int
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return data, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			return data, nil // End of event
		}

		v, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		if lines > 0 {
			data = append(data, '\n')
		}
		data = append(data, bytes.TrimPrefix(v, []byte(" "))...)
		lines++
	}
}

// WriteSSE writes payload as one event.
func WriteSSE(w io.Writer, event string, payload []byte) error {
	var buf bytes.Buffer
	if event != "" {
		buf.WriteString("event: " + event + "\n")
	}
	for line := range bytes.SplitSeq(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())
	return err
}
