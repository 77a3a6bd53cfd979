// Package config holds the options of a simulation run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/csim/cache"
)

// Options holds everything needed to run one simulation session.
type Options struct {
	// SetIndexBits is the number of set index bits (s). Required, >= 1.
	SetIndexBits int `json:"s"`

	// LinesPerSet is the associativity (E). Required, >= 1.
	LinesPerSet int `json:"E"`

	// BlockOffsetBits is the number of block offset bits (b). Required, >= 1.
	BlockOffsetBits int `json:"b"`

	// TracePath is the trace file to replay. Required.
	TracePath string `json:"trace"`

	// Verbose echoes every data access and its outcome.
	Verbose bool `json:"verbose"`

	// Policy is the replacement policy. Default: counter.
	Policy cache.Policy `json:"policy,omitempty"`

	// RecordPath, when set, records the session into <RecordPath>.sqlite3.
	RecordPath string `json:"record,omitempty"`
}

// DefaultOptions returns Options with nothing required filled in.
func DefaultOptions() *Options {
	return &Options{
		Policy: cache.PolicyCounter,
	}
}

// LoadConfig loads Options from a JSON file on top of the defaults.
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	opts := DefaultOptions()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return opts, nil
}

// SaveConfig writes the Options to a JSON file.
func (o *Options) SaveConfig(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports every missing or unusable option at once.
func (o *Options) Validate() error {
	e := &Error{}

	if o.SetIndexBits <= 0 {
		e.Missing = append(e.Missing, "s")
	}
	if o.LinesPerSet <= 0 {
		e.Missing = append(e.Missing, "E")
	}
	if o.BlockOffsetBits <= 0 {
		e.Missing = append(e.Missing, "b")
	}
	if o.TracePath == "" {
		e.Missing = append(e.Missing, "t")
	}

	if _, err := cache.ParsePolicy(string(o.Policy)); err != nil {
		e.Invalid = append(e.Invalid, err.Error())
	}

	if len(e.Missing) == 0 {
		if err := o.Geometry().Validate(); err != nil {
			e.Invalid = append(e.Invalid, err.Error())
		}
	}

	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}

	return e
}

// Geometry returns the cache geometry the options describe.
func (o *Options) Geometry() cache.Geometry {
	return cache.Geometry{
		SetIndexBits:    o.SetIndexBits,
		LinesPerSet:     o.LinesPerSet,
		BlockOffsetBits: o.BlockOffsetBits,
	}
}

// Clone returns a copy of the Options.
func (o *Options) Clone() *Options {
	c := *o
	return &c
}

// Error is a configuration error. The cache is never built when one occurs.
type Error struct {
	// Missing lists required options that are absent or not positive.
	Missing []string

	// Invalid describes options that are present but unusable.
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		parts = append(parts, "Missing Required Command Line Argument: -"+
			strings.Join(e.Missing, ", -"))
	}
	parts = append(parts, e.Invalid...)

	return strings.Join(parts, "; ")
}
