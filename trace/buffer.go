package trace

import (
	"errors"
	"io"
)

// Buffer holds a fully read trace so that several sessions can replay it.
type Buffer struct {
	events    []Event
	truncated *FormatError
}

// NewBuffer wraps already decoded events.
func NewBuffer(events ...Event) *Buffer {
	return &Buffer{events: events}
}

// ReadAll drains src into a Buffer. A format error ends reading and is kept
// as the truncation point; any other error is returned.
func ReadAll(src Source) (*Buffer, error) {
	b := &Buffer{}

	for {
		event, err := src.Next()
		if err == nil {
			b.events = append(b.events, event)
			continue
		}

		if errors.Is(err, io.EOF) {
			return b, nil
		}

		var formatErr *FormatError
		if errors.As(err, &formatErr) {
			b.truncated = formatErr
			return b, nil
		}

		return nil, err
	}
}

// Events returns the buffered events.
func (b *Buffer) Events() []Event {
	return b.events
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Truncated returns the record that stopped reading, if any.
func (b *Buffer) Truncated() *FormatError {
	return b.truncated
}

// Source returns an independent cursor over the buffer. After the last event
// it reports the truncation error, if any, and io.EOF otherwise.
func (b *Buffer) Source() Source {
	return &cursor{buffer: b}
}

type cursor struct {
	buffer *Buffer
	next   int
}

func (c *cursor) Next() (Event, error) {
	if c.next < len(c.buffer.events) {
		e := c.buffer.events[c.next]
		c.next++
		return e, nil
	}

	if c.buffer.truncated != nil {
		return Event{}, c.buffer.truncated
	}

	return Event{}, io.EOF
}
