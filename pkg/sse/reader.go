package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxLine = 1024 * 1024

// Reader parses SSE events from a stream. It is not safe for concurrent use.
type Reader struct {
	scanner *bufio.Scanner

	current Event
	hasData bool

	// OnFrame, when set, is called for every raw line, comments and blank
	// lines included. The chat client uses it to reset inactivity timers.
	OnFrame func()
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{scanner: scanner}
}

// Next blocks until a complete event is available. It returns nil, nil when
// the source is exhausted. A trailing event without a closing blank line is
// still returned.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if r.OnFrame != nil {
			r.OnFrame()
		}

		if line == "" {
			if r.hasData {
				return r.take(), nil
			}
			continue
		}

		// Comment lines are keep-alives.
		if strings.HasPrefix(line, ":") {
			continue
		}

		r.field(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasData {
		return r.take(), nil
	}
	return nil, nil
}

func (r *Reader) field(line string) {
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch name {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	case "retry":
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			r.current.Retry = time.Duration(ms) * time.Millisecond
		}
	}
}

func (r *Reader) take() *Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return &ev
}
