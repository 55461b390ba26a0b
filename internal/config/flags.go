package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagCycles     = flag.Int("cycles", -1, "Number of light propagation cycles")
	flagDepth      = flag.Int("depth", 0, "Voxel octree depth")
	flagSeed       = flag.Int64("seed", 0, "Seed for random surface sampling")
	flagWorkers    = flag.Int("workers", -1, "Worker goroutines (0 = GOMAXPROCS)")
	flagShowEdges  = flag.Bool("show-edges", false, "Emit the light edge debug snapshot")
	flagShowOctree = flag.Bool("show-octree", false, "Emit the octree debug snapshot")
	flagSnapshot   = flag.String("snapshot", "", "Directory for the energy snapshot image")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagCycles >= 0 {
		cfg.Lighting.PropagationCycles = *flagCycles
	}
	if *flagDepth > 0 {
		cfg.Octree.Depth = *flagDepth
	}
	if *flagSeed != 0 {
		cfg.Sampling.Seed = *flagSeed
	}
	if *flagWorkers >= 0 {
		cfg.Lighting.Workers = *flagWorkers
	}
	if *flagShowEdges {
		cfg.Debug.ShowEdges = true
	}
	if *flagShowOctree {
		cfg.Debug.ShowOctree = true
	}
	if *flagSnapshot != "" {
		cfg.Debug.SnapshotDir = *flagSnapshot
	}
}
