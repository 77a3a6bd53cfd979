package sweep

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/csim/cache"
)

// Entry is one geometry of a sweep.
type Entry struct {
	// Name labels the entry in reports. Default: the geometry and policy.
	Name string `json:"name,omitempty"`

	cache.Geometry

	// Policy is the replacement policy. Default: counter.
	Policy cache.Policy `json:"policy,omitempty"`
}

// DisplayName returns Name, or a label derived from the geometry.
func (e Entry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}

	policy := e.Policy
	if policy == "" {
		policy = cache.PolicyCounter
	}

	return fmt.Sprintf("s%d-E%d-b%d-%s",
		e.SetIndexBits, e.LinesPerSet, e.BlockOffsetBits, policy)
}

// Config lists the geometries of a sweep.
type Config struct {
	// Workers bounds concurrent sessions. 0 keeps the harness default.
	Workers int `json:"workers,omitempty"`

	Entries []Entry `json:"geometries"`
}

// LoadConfig loads a sweep Config from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep config file: %w", err)
	}

	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse sweep config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a sweep Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize sweep config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sweep config file: %w", err)
	}

	return nil
}

// Validate checks that every entry can build a cache.
func (c *Config) Validate() error {
	if len(c.Entries) == 0 {
		return errors.New("sweep config lists no geometries")
	}

	for _, e := range c.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("sweep entry %q: %w", e.DisplayName(), err)
		}
		if _, err := cache.ParsePolicy(string(e.Policy)); err != nil {
			return fmt.Errorf("sweep entry %q: %w", e.DisplayName(), err)
		}
	}

	return nil
}

// Grid builds the cross product of the given bit widths and associativities
// under one policy.
func Grid(setBits, lines, blockBits []int, policy cache.Policy) []Entry {
	entries := make([]Entry, 0, len(setBits)*len(lines)*len(blockBits))

	for _, s := range setBits {
		for _, e := range lines {
			for _, b := range blockBits {
				entries = append(entries, Entry{
					Geometry: cache.Geometry{
						SetIndexBits:    s,
						LinesPerSet:     e,
						BlockOffsetBits: b,
					},
					Policy: policy,
				})
			}
		}
	}

	return entries
}
