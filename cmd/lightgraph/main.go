// lightgraph runs the indirect lighting pipeline over a YAML scene and
// prints the energy that reached each object.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/lightgraph/internal/config"
	"github.com/Faultbox/lightgraph/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		JSON:    cfg.Logging.JSON,
		Console: true,
		File:    logFile(cfg.Logging.LogFile),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, rest := args[0], args[1:]
	switch command {
	case "run":
		err = cmdRun(ctx, cfg, rest)
	case "stats":
		err = cmdStats(ctx, cfg, rest)
	case "occluded":
		err = cmdOccluded(ctx, cfg, rest)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

func printUsage() {
	fmt.Println(`lightgraph - indirect lighting over a sparse voxel octree and light graph

Usage:
  lightgraph [flags] <command> <scene.yaml> [args]

Commands:
  run <scene.yaml> [id=x,y,z ...]       Propagate light and print per-object energy;
                                        each move is applied and propagated in turn
  stats <scene.yaml>                    Show node, edge and octree statistics
  occluded <scene.yaml> x,y,z x,y,z     Test a segment against the static geometry

Flags:
  -config <file>    Config file (default ./lightgraph.yaml)
  -cycles <n>       Propagation cycles
  -depth <n>        Octree depth
  -seed <n>         Random sampling seed
  -workers <n>      Worker goroutines (0 = GOMAXPROCS)
  -show-edges       Print the edge debug snapshot size
  -show-octree      Print the octree debug snapshot size
  -snapshot <dir>   Write a top-down energy image after run
  -debug            Debug logging

Examples:
  lightgraph run scenes/room.yaml
  lightgraph -cycles 8 run scenes/room.yaml crate=-2,0.5,-2
  lightgraph occluded scenes/room.yaml 1,-1,1 1,1,1`)
}
