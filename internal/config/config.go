// Package config defines the run configuration: the simulation grid, the
// worker pool sizing and the persistence location.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unitroot/adfz/internal/adf"
)

// Run holds every knob for one simulation run. Zero values are not usable
// directly; start from Default and override.
type Run struct {
	// PollSeconds is how long the driver sleeps between pool polls.
	PollSeconds float64 `yaml:"poll_seconds"`
	// Replications is the number of independent experiments per cell.
	Replications int `yaml:"replications"`
	// DrawsPerReplication is the number of statistic draws per experiment.
	DrawsPerReplication int `yaml:"draws_per_replication"`
	// MaxMemoryMiB bounds each worker's transient simulation state.
	MaxMemoryMiB int `yaml:"max_memory_mib"`
	// MasterSeed fixes the whole run's seed sequence.
	MasterSeed uint64 `yaml:"master_seed"`
	// Workers bounds concurrent units; zero selects the CPU count.
	Workers int `yaml:"workers"`
	// OutputDir receives one artifact per trend specification.
	OutputDir string `yaml:"output_dir"`
	// Resume adopts matching artifacts instead of restarting trends.
	Resume bool `yaml:"resume"`
	// Retries is how many times a failed replication is resubmitted with a
	// freshly derived seed before its cell is abandoned.
	Retries int `yaml:"retries"`

	SampleSizes []int       `yaml:"sample_sizes"`
	Trends      []adf.Trend `yaml:"trends"`
	Percentiles []float64   `yaml:"percentiles"`
}

// Default returns the standard large-run configuration: four trend
// specifications, thirty-one sample lengths from 2000 down to 20 and five
// hundred replications of two hundred thousand draws each.
func Default() *Run {
	return &Run{
		PollSeconds:         10,
		Replications:        500,
		DrawsPerReplication: 200000,
		MaxMemoryMiB:        adf.DefaultMaxMemoryMiB,
		MasterSeed:          0,
		Workers:             0,
		OutputDir:           ".",
		Resume:              false,
		Retries:             1,
		SampleSizes: []int{
			2000, 1400, 1200, 1000, 900, 800, 700, 600, 500, 450,
			400, 350, 300, 250, 200, 180, 160, 140, 120, 100,
			90, 80, 70, 60, 50, 45, 40, 35, 30, 25, 20,
		},
		Trends:      adf.Trends(),
		Percentiles: adf.DefaultPercentiles(),
	}
}

// Load reads a YAML run configuration. Omitted fields keep their defaults.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	run := Default()
	if err := yaml.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return run, nil
}

// Validate checks the configuration field by field.
func (r *Run) Validate() error {
	if r.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive")
	}
	if r.Replications <= 0 {
		return fmt.Errorf("replications must be positive")
	}
	if r.DrawsPerReplication <= 0 {
		return fmt.Errorf("draws_per_replication must be positive")
	}
	if r.MaxMemoryMiB <= 0 {
		return fmt.Errorf("max_memory_mib must be positive")
	}
	if r.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if r.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if r.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}

	if len(r.SampleSizes) == 0 {
		return fmt.Errorf("no sample_sizes provided")
	}
	for i, n := range r.SampleSizes {
		if n < 2 {
			return fmt.Errorf("sample_sizes[%d] = %d is too short to difference", i, n)
		}
		if i > 0 && n >= r.SampleSizes[i-1] {
			return fmt.Errorf("sample_sizes must be strictly descending")
		}
	}

	if len(r.Trends) == 0 {
		return fmt.Errorf("no trends provided")
	}
	seen := make(map[adf.Trend]bool, len(r.Trends))
	for _, tr := range r.Trends {
		if !tr.Valid() {
			return fmt.Errorf("unknown trend %q", tr)
		}
		if seen[tr] {
			return fmt.Errorf("duplicate trend %q", tr)
		}
		seen[tr] = true
	}

	if len(r.Percentiles) == 0 {
		return fmt.Errorf("no percentiles provided")
	}
	for i, p := range r.Percentiles {
		if p <= 0 || p >= 100 {
			return fmt.Errorf("percentiles[%d] = %v must be strictly between 0 and 100", i, p)
		}
		if i > 0 && p <= r.Percentiles[i-1] {
			return fmt.Errorf("percentiles must be strictly increasing")
		}
	}

	// The smallest sample length must leave enough observations for the
	// widest trend in the run.
	maxK := 0
	for _, tr := range r.Trends {
		if k := tr.NumRegressors(); k > maxK {
			maxK = k
		}
	}
	if minN := r.SampleSizes[len(r.SampleSizes)-1]; minN < maxK+2 {
		return fmt.Errorf("smallest sample size %d cannot support %d trend regressors", minN, maxK)
	}
	return nil
}

// PollInterval converts poll_seconds into a duration.
func (r *Run) PollInterval() time.Duration {
	return time.Duration(r.PollSeconds * float64(time.Second))
}
