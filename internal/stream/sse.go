package stream

import (
	"bufio"
	"io"
	"strings"
)

// Message is one Server-Sent Event.
type Message struct {
	// Event is the "event:" field; empty for the default event type.
	Event string
	// Data joins every "data:" line of the event with newlines.
	Data string
}

// Scanner reads Server-Sent Events from a response body.
//
// Events end at a blank line. Comment lines (leading ":") and fields other
// than data and event are skipped.
type Scanner struct {
	r       *bufio.Reader
	current Message
	err     error
	done    bool
}

// NewScanner returns a scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false at end of stream or on
// a read error; Err tells the two apart.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}
	s.current = Message{}

	var data []string
	var event string
	hasData := false

	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			s.done = true
			if err != io.EOF {
				s.err = err
				return false
			}
			// Flush an event the server did not terminate with a blank line.
			if hasData {
				s.current = Message{Event: event, Data: strings.Join(data, "\n")}
				return true
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				s.current = Message{Event: event, Data: strings.Join(data, "\n")}
				return true
			}
			event = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if ok {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			event = value
		}
	}
}

// Message returns the event read by the last successful Next.
func (s *Scanner) Message() Message {
	return s.current
}

// Err returns the read error that stopped the scanner, or nil at clean EOF.
func (s *Scanner) Err() error {
	return s.err
}
