// Package scanner splits a TeleInfo byte stream into label/payload fields.
// Both wire variants share the grammar: one field per line, tokens separated
// by a variant specific delimiter, optional trailing checksum.
package scanner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
)

var (
	ErrEndOfStream    = errors.New("end of stream")
	ErrMalformedField = errors.New("malformed field")
)

// Longest accepted line. Standard frames stay well below 128 bytes.
const maxLineLength = 512

const (
	stx = 0x02
	etx = 0x03
	eot = 0x04
)

// Scanner produces the fields of a stream until it ends.
// It is not restartable: a reopened device needs a new Scanner.
type Scanner struct {
	r         *bufio.Reader
	delimiter byte
	horodated func(label string) bool
	line      []byte
	ended     bool
}

// New returns a scanner reading r. horodated tells, per label, whether a
// horodate token follows the payload. It may be nil.
func New(r io.Reader, delimiter byte, horodated func(label string) bool) *Scanner {
	if horodated == nil {
		horodated = func(string) bool { return false }
	}
	return &Scanner{
		r:         bufio.NewReader(r),
		delimiter: delimiter,
		horodated: horodated,
		line:      make([]byte, 0, 128),
	}
}

// Next returns the next field.
// ErrMalformedField is recoverable: the line is dropped and the next call
// resumes at the following line. Any error wrapping ErrEndOfStream is final.
func (s *Scanner) Next() (types.Field, error) {
	for {
		line, err := s.readLine()
		if err != nil {
			return types.Field{}, err
		}
		if len(line) == 0 {
			continue
		}
		return s.parse(line)
	}
}

// Sync discards fields until one labelled start is found and returns it.
func (s *Scanner) Sync(start string) (types.Field, error) {
	for {
		f, err := s.Next()
		if errors.Is(err, ErrMalformedField) {
			continue
		}
		if err != nil {
			return types.Field{}, err
		}
		if f.Label == start {
			return f, nil
		}
	}
}

// readLine returns the next line without its terminator and framing bytes.
// A partial line cut by the end of stream is dropped.
func (s *Scanner) readLine() ([]byte, error) {
	if s.ended {
		return nil, ErrEndOfStream
	}
	s.line = s.line[:0]
	overflow := false
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			s.ended = true
			if errors.Is(err, io.EOF) {
				return nil, ErrEndOfStream
			}
			return nil, errors.Join(ErrEndOfStream, err)
		}
		if b == '\n' || b == '\r' {
			break
		}
		if len(s.line) >= maxLineLength {
			overflow = true
			continue
		}
		s.line = append(s.line, b)
	}
	if overflow {
		return nil, fmt.Errorf("%w: line longer than %d bytes", ErrMalformedField, maxLineLength)
	}
	return trimFraming(s.line, s.delimiter), nil
}

func (s *Scanner) parse(line []byte) (types.Field, error) {
	tokens := bytes.Split(line, []byte{s.delimiter})
	label := tokens[0]
	if !validLabel(label) {
		return types.Field{}, fmt.Errorf("%w: bad label %q", ErrMalformedField, label)
	}
	if len(tokens) < 2 {
		return types.Field{}, fmt.Errorf("%w: %s has no payload", ErrMalformedField, label)
	}

	f := types.Field{Label: string(label)}
	payload := tokens[1]
	if !s.horodated(f.Label) {
		if len(payload) == 0 {
			return types.Field{}, fmt.Errorf("%w: %s has an empty payload", ErrMalformedField, label)
		}
		f.Payload = string(payload)
		return f, nil
	}

	// a lone trailing byte is the checksum, so value and horodate need
	// two tokens ahead of it
	if len(tokens) < 3 || (len(tokens) == 3 && len(tokens[2]) == 1) {
		return types.Field{}, fmt.Errorf("%w: %s misses its value or horodate", ErrMalformedField, label)
	}
	horodate := tokens[2]
	// Linky meters send the horodate before the value.
	if IsHorodate(payload) && !IsHorodate(horodate) {
		payload, horodate = horodate, payload
	}
	if len(horodate) == 0 {
		return types.Field{}, fmt.Errorf("%w: %s has an empty horodate", ErrMalformedField, label)
	}
	f.Payload = string(payload)
	f.Horodate = string(horodate)
	f.HasHorodate = true
	return f, nil
}

// IsHorodate reports whether b has the SAAMMJJhhmmss shape: a season letter
// followed by twelve digits.
func IsHorodate(b []byte) bool {
	if len(b) != 13 {
		return false
	}
	switch b[0] {
	case 'E', 'e', 'H', 'h', ' ':
	default:
		return false
	}
	for _, c := range b[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validLabel(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '+' || c == '-':
		default:
			return false
		}
	}
	return true
}

// trimFraming strips STX/ETX/EOT and other control bytes around a line,
// keeping the delimiter which is significant.
func trimFraming(line []byte, delimiter byte) []byte {
	isFraming := func(c byte) bool {
		return c == stx || c == etx || c == eot || (c < 0x20 && c != delimiter)
	}
	for len(line) > 0 && isFraming(line[0]) {
		line = line[1:]
	}
	for len(line) > 0 && isFraming(line[len(line)-1]) {
		line = line[:len(line)-1]
	}
	return line
}
