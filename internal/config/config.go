// Package config handles lighting subsystem configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// Dynamic edge recomputation policies.
const (
	PolicyAlways    = "always"
	PolicyThreshold = "threshold"
)

// Snapshot image formats.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// Sampling methods.
const (
	SamplingPercent = "percent"
	SamplingRandom  = "random"
)

// Config holds all lighting settings.
type Config struct {
	Lighting LightingConfig `yaml:"lighting"`
	Octree   OctreeConfig   `yaml:"octree"`
	Sampling SamplingConfig `yaml:"sampling"`
	Graph    GraphConfig    `yaml:"graph"`
	Dynamic  DynamicConfig  `yaml:"dynamic"`
	Debug    DebugConfig    `yaml:"debug"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LightingConfig holds propagation settings.
type LightingConfig struct {
	// PropagationCycles is the number of light "reflections" between objects.
	PropagationCycles int `yaml:"propagation_cycles"`
	Workers           int `yaml:"workers"` // 0 = GOMAXPROCS
}

// OctreeConfig holds voxel octree settings.
// More depth = more precision = more memory usage.
type OctreeConfig struct {
	Depth    int `yaml:"depth"`
	PageSize int `yaml:"page_size"` // slots per page side, rounded up to a power of 2
	MaxPages int `yaml:"max_pages"`
}

// SamplingConfig holds surface sampling settings.
type SamplingConfig struct {
	Method  string  `yaml:"method"`
	Percent float64 `yaml:"percent"` // also the probability for the random method
	Seed    int64   `yaml:"seed"`
}

// GraphConfig holds visibility graph settings.
type GraphConfig struct {
	MaxEdgeLength      float32 `yaml:"max_edge_length"`
	MinEdgeWeight      float32 `yaml:"min_edge_weight"`
	MaxEdgeLengthLight float32 `yaml:"max_edge_length_light"`
	MinEdgeWeightLight float32 `yaml:"min_edge_weight_light"`
	CheckVisibility    bool    `yaml:"check_visibility"`
	UseNormals         bool    `yaml:"use_normals"`
}

// DynamicConfig controls when moved objects get their edges recomputed.
type DynamicConfig struct {
	Policy string `yaml:"policy"`
	// MovementThreshold is the translation, in world units, a dynamic object
	// may drift before the threshold policy recomputes its edges. Rotation
	// and scale changes always trigger a recompute.
	MovementThreshold float32 `yaml:"movement_threshold"`
}

// DebugConfig holds debug snapshot toggles.
type DebugConfig struct {
	ShowEdges  bool `yaml:"show_edges"`
	ShowOctree bool `yaml:"show_octree"`
	// SnapshotDir enables a top-down energy image after each run when set.
	SnapshotDir    string `yaml:"snapshot_dir"`
	SnapshotFormat string `yaml:"snapshot_format"` // png or bmp
	SnapshotSize   int    `yaml:"snapshot_size"`   // pixels per side
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Lighting: LightingConfig{
			PropagationCycles: 5,
			Workers:           0,
		},
		Octree: OctreeConfig{
			Depth:    7,
			PageSize: 1024,
			MaxPages: 4,
		},
		Sampling: SamplingConfig{
			Method:  SamplingPercent,
			Percent: 0.1,
			Seed:    1,
		},
		Graph: GraphConfig{
			MaxEdgeLength:      10,
			MinEdgeWeight:      0.001,
			MaxEdgeLengthLight: 50,
			MinEdgeWeightLight: 0.0001,
			CheckVisibility:    true,
			UseNormals:         true,
		},
		Dynamic: DynamicConfig{
			Policy:            PolicyThreshold,
			MovementThreshold: 0.25,
		},
		Debug: DebugConfig{
			ShowEdges:      false,
			ShowOctree:     false,
			SnapshotFormat: FormatPNG,
			SnapshotSize:   512,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Lighting.PropagationCycles < 0 {
		err = multierr.Append(err, fmt.Errorf("lighting.propagation_cycles must be >= 0, got %d", c.Lighting.PropagationCycles))
	}
	if c.Lighting.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("lighting.workers must be >= 0, got %d", c.Lighting.Workers))
	}
	if c.Octree.Depth < 1 || c.Octree.Depth > 16 {
		err = multierr.Append(err, fmt.Errorf("octree.depth must be in [1, 16], got %d", c.Octree.Depth))
	}
	if c.Octree.PageSize < 8 {
		err = multierr.Append(err, fmt.Errorf("octree.page_size must be >= 8, got %d", c.Octree.PageSize))
	}
	if c.Octree.MaxPages < 1 {
		err = multierr.Append(err, fmt.Errorf("octree.max_pages must be >= 1, got %d", c.Octree.MaxPages))
	}
	switch c.Sampling.Method {
	case SamplingPercent, SamplingRandom:
	default:
		err = multierr.Append(err, fmt.Errorf("sampling.method must be %q or %q, got %q", SamplingPercent, SamplingRandom, c.Sampling.Method))
	}
	if c.Sampling.Percent <= 0 || c.Sampling.Percent > 1 {
		err = multierr.Append(err, fmt.Errorf("sampling.percent must be in (0, 1], got %g", c.Sampling.Percent))
	}
	if c.Graph.MaxEdgeLength <= 0 {
		err = multierr.Append(err, fmt.Errorf("graph.max_edge_length must be > 0, got %g", c.Graph.MaxEdgeLength))
	}
	if c.Graph.MaxEdgeLengthLight <= 0 {
		err = multierr.Append(err, fmt.Errorf("graph.max_edge_length_light must be > 0, got %g", c.Graph.MaxEdgeLengthLight))
	}
	if c.Graph.MinEdgeWeight < 0 || c.Graph.MinEdgeWeightLight < 0 {
		err = multierr.Append(err, fmt.Errorf("graph min edge weights must be >= 0"))
	}
	switch c.Dynamic.Policy {
	case PolicyAlways, PolicyThreshold:
	default:
		err = multierr.Append(err, fmt.Errorf("dynamic.policy must be %q or %q, got %q", PolicyAlways, PolicyThreshold, c.Dynamic.Policy))
	}
	switch c.Debug.SnapshotFormat {
	case FormatPNG, FormatBMP:
	default:
		err = multierr.Append(err, fmt.Errorf("debug.snapshot_format must be %q or %q, got %q", FormatPNG, FormatBMP, c.Debug.SnapshotFormat))
	}
	if c.Debug.SnapshotSize < 16 {
		err = multierr.Append(err, fmt.Errorf("debug.snapshot_size must be >= 16, got %d", c.Debug.SnapshotSize))
	}
	if c.Dynamic.MovementThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("dynamic.movement_threshold must be >= 0, got %g", c.Dynamic.MovementThreshold))
	}
	return err
}
