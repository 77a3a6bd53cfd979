// Package replay drives a cache model with the events of a trace.
package replay

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/trace"
)

// An Observer is notified of every event that reached the cache, together
// with the outcome of each access it caused. The outcomes slice is reused
// and must not be retained after Observe returns.
type Observer interface {
	Observe(event trace.Event, outcomes []cache.Outcome)
}

// Summary is the result of a replay.
type Summary struct {
	cache.Statistics

	// Events counts every record consumed, including I records.
	Events uint64

	// Accesses counts the cache accesses performed.
	Accesses uint64

	// Truncated is the record that ended the replay early, if any.
	Truncated *trace.FormatError
}

// String formats the totals as hits:<H> misses:<M> evictions:<E>.
func (s Summary) String() string {
	return fmt.Sprintf("hits:%d misses:%d evictions:%d",
		s.Hits, s.Misses, s.Evictions)
}

// Option configures a Driver.
type Option func(*Driver)

// WithVerbose echoes every data event and its outcomes to w.
func WithVerbose(w io.Writer) Option {
	return func(d *Driver) {
		d.verbose = w
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observers = append(d.observers, o)
	}
}

// Driver replays trace events against one cache model. A Driver and its
// model belong to a single session.
type Driver struct {
	model     cache.Model
	verbose   io.Writer
	observers []Observer

	events   uint64
	accesses uint64
	outcomes []cache.Outcome

	// err is the first verbose write failure.
	err error
}

// NewDriver creates a Driver for model.
func NewDriver(model cache.Model, opts ...Option) *Driver {
	d := &Driver{
		model:    model,
		outcomes: make([]cache.Outcome, 0, 2),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run consumes src until it is exhausted. A malformed record stops the
// replay quietly and is reported through Summary.Truncated; records before
// it stay applied. Any other source failure is returned as is, and so is a
// failure to write the verbose echo.
func (d *Driver) Run(src trace.Source) (Summary, error) {
	for {
		if d.err != nil {
			return d.Summary(), d.err
		}

		event, err := src.Next()
		if err != nil {
			return d.finish(err)
		}

		d.Apply(event)
	}
}

// Err returns the first verbose write failure, if any.
func (d *Driver) Err() error {
	return d.err
}

func (d *Driver) finish(err error) (Summary, error) {
	summary := d.Summary()

	if errors.Is(err, io.EOF) {
		return summary, nil
	}

	var formatErr *trace.FormatError
	if errors.As(err, &formatErr) {
		summary.Truncated = formatErr
		return summary, nil
	}

	return summary, err
}

// Apply performs the accesses of a single event.
func (d *Driver) Apply(event trace.Event) {
	d.events++

	n := event.Op.Accesses()
	if n == 0 {
		return
	}

	d.outcomes = d.outcomes[:0]
	for i := 0; i < n; i++ {
		d.outcomes = append(d.outcomes, d.model.Access(event.Address))
	}
	d.accesses += uint64(n)

	if d.verbose != nil {
		d.echo(event)
	}

	for _, o := range d.observers {
		o.Observe(event, d.outcomes)
	}
}

func (d *Driver) echo(event trace.Event) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d %d", event.Op, event.Address, event.Size)
	for _, o := range d.outcomes {
		for _, token := range o.Tokens() {
			b.WriteByte(' ')
			b.WriteString(token)
		}
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(d.verbose, b.String()); err != nil && d.err == nil {
		d.err = fmt.Errorf("failed to write verbose output: %w", err)
	}
}

// Summary returns the totals so far.
func (d *Driver) Summary() Summary {
	return Summary{
		Statistics: d.model.Stats(),
		Events:     d.events,
		Accesses:   d.accesses,
	}
}
