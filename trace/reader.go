package trace

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxLineLength bounds a single trace record.
const maxLineLength = 1 << 20

const whitespace = " \t\r\v\f"

// A Source yields trace events in order. Next returns io.EOF after the last
// event, a *FormatError when a record does not parse, and a *SourceError
// when the underlying input fails.
type Source interface {
	Next() (Event, error)
}

// Reader parses trace records from text.
type Reader struct {
	scanner *bufio.Scanner
	path    string
	line    int
	err     error
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	return &Reader{scanner: scanner}
}

// Next returns the next event. Blank lines are skipped. Once Next has
// returned an error it keeps returning the same error.
func (r *Reader) Next() (Event, error) {
	if r.err != nil {
		return Event{}, r.err
	}

	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if strings.TrimLeft(text, whitespace) == "" {
			continue
		}

		event, err := ParseRecord(text)
		if err != nil {
			var formatErr *FormatError
			if errors.As(err, &formatErr) {
				formatErr.Line = r.line
			}
			r.err = err
			return Event{}, err
		}

		event.Line = r.line
		return event, nil
	}

	r.err = r.scanErr()
	return Event{}, r.err
}

func (r *Reader) scanErr() error {
	err := r.scanner.Err()
	switch {
	case err == nil:
		return io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return &FormatError{
			Line:   r.line + 1,
			Reason: "record too long",
		}
	default:
		return &SourceError{Path: r.path, Err: err}
	}
}

// FileReader is a Reader over an open trace file.
type FileReader struct {
	*Reader
	file *os.File
}

// Open opens the trace file at path. The returned error is a *SourceError.
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	r := NewReader(f)
	r.path = path

	return &FileReader{Reader: r, file: f}, nil
}

// Path returns the path the trace was opened from.
func (r *FileReader) Path() string {
	return r.path
}

// Close closes the trace file.
func (r *FileReader) Close() error {
	return r.file.Close()
}

// ParseRecord parses one trace record. Leading whitespace is ignored, the
// address may carry a 0x prefix, and the comma must follow the address
// directly. The returned error is a *FormatError without a line number.
func ParseRecord(text string) (Event, error) {
	fail := func(reason string) (Event, error) {
		return Event{}, &FormatError{Text: text, Reason: reason}
	}

	rest := strings.TrimLeft(text, whitespace)
	if rest == "" {
		return fail("empty record")
	}

	op := Op(rest[0])
	if !op.Valid() {
		return fail("unknown operation")
	}
	rest = strings.TrimLeft(rest[1:], whitespace)

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return fail("missing comma")
	}

	addrText := rest[:comma]
	if strings.HasPrefix(addrText, "0x") || strings.HasPrefix(addrText, "0X") {
		addrText = addrText[2:]
	}
	if addrText == "" {
		return fail("missing address")
	}
	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return fail("invalid address")
	}

	sizeText := strings.Trim(rest[comma+1:], whitespace)
	if sizeText == "" {
		return fail("missing size")
	}
	size, err := strconv.ParseUint(sizeText, 10, 64)
	if err != nil {
		return fail("invalid size")
	}

	return Event{Op: op, Address: addr, Size: size}, nil
}
