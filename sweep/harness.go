// Package sweep evaluates many cache geometries over the same trace.
package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/replay"
	"github.com/sarchlab/csim/trace"
)

// Result holds the totals of one geometry.
type Result struct {
	// Name identifies the geometry
	Name string `json:"name"`

	SetIndexBits    int          `json:"s"`
	LinesPerSet     int          `json:"E"`
	BlockOffsetBits int          `json:"b"`
	Policy          cache.Policy `json:"policy"`

	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`

	// WallTime is the actual time taken to replay the trace
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the sweep harness.
type HarnessConfig struct {
	// Workers bounds how many sessions replay at once. Default: GOMAXPROCS.
	Workers int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Workers: runtime.GOMAXPROCS(0),
		Output:  os.Stdout,
	}
}

// Harness replays one trace against a list of geometries. Every geometry
// gets its own session and its own cache.
type Harness struct {
	config  HarnessConfig
	entries []Entry
}

// NewHarness creates a new sweep harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Harness{
		config: config,
	}
}

// AddEntry adds a geometry to the sweep.
func (h *Harness) AddEntry(e Entry) {
	h.entries = append(h.entries, e)
}

// AddEntries adds several geometries to the sweep.
func (h *Harness) AddEntries(entries []Entry) {
	h.entries = append(h.entries, entries...)
}

// Run replays buf against every entry. Results keep the order the entries
// were added in. Run fails before replaying anything if an entry cannot build
// a cache.
func (h *Harness) Run(ctx context.Context, buf *trace.Buffer) ([]Result, error) {
	models := make([]cache.Model, len(h.entries))
	for i, e := range h.entries {
		m, err := cache.NewModel(e.Geometry, e.Policy)
		if err != nil {
			return nil, fmt.Errorf("sweep entry %q: %w", e.DisplayName(), err)
		}
		models[i] = m
	}

	results := make([]Result, len(h.entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Workers)

	for i := range h.entries {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r, err := h.runEntry(h.entries[i], models[i], buf)
			if err != nil {
				return err
			}
			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (h *Harness) runEntry(e Entry, m cache.Model, buf *trace.Buffer) (Result, error) {
	start := time.Now()

	summary, err := replay.NewDriver(m).Run(buf.Source())
	if err != nil {
		return Result{}, fmt.Errorf("sweep entry %q: %w", e.DisplayName(), err)
	}

	policy := e.Policy
	if policy == "" {
		policy = cache.PolicyCounter
	}

	return Result{
		Name:            e.DisplayName(),
		SetIndexBits:    e.SetIndexBits,
		LinesPerSet:     e.LinesPerSet,
		BlockOffsetBits: e.BlockOffsetBits,
		Policy:          policy,
		Hits:            summary.Hits,
		Misses:          summary.Misses,
		Evictions:       summary.Evictions,
		HitRate:         summary.HitRate(),
		WallTime:        time.Since(start),
	}, nil
}

// PrintResults outputs results in a human-readable table.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output

	_, _ = fmt.Fprintf(out, "%-24s %4s %4s %4s %-8s %12s %12s %12s %8s\n",
		"name", "s", "E", "b", "policy", "hits", "misses", "evictions", "hit%")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%-24s %4d %4d %4d %-8s %12d %12d %12d %7.2f%%\n",
			r.Name,
			r.SetIndexBits,
			r.LinesPerSet,
			r.BlockOffsetBits,
			r.Policy,
			r.Hits,
			r.Misses,
			r.Evictions,
			100*r.HitRate,
		)
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,s,E,b,policy,hits,misses,evictions,hit_rate")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%s,%d,%d,%d,%.4f\n",
			r.Name,
			r.SetIndexBits,
			r.LinesPerSet,
			r.BlockOffsetBits,
			r.Policy,
			r.Hits,
			r.Misses,
			r.Evictions,
			r.HitRate,
		)
	}
}

// Report is the JSON output format of a sweep.
type Report struct {
	// Timestamp when the sweep was run
	Timestamp string `json:"timestamp"`

	// Trace is the path of the replayed trace
	Trace string `json:"trace"`

	// Events is the number of trace records replayed per geometry
	Events int `json:"events"`

	// TruncatedLine is the malformed record that ended the trace, or 0
	TruncatedLine int `json:"truncated_line,omitempty"`

	Results []Result `json:"results"`
}

// PrintJSON outputs results as an indented JSON report.
func (h *Harness) PrintJSON(tracePath string, buf *trace.Buffer, results []Result) error {
	report := Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Trace:     tracePath,
		Events:    buf.Len(),
		Results:   results,
	}
	if t := buf.Truncated(); t != nil {
		report.TruncatedLine = t.Line
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
