package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/lightgraph/internal/config"
	"github.com/Faultbox/lightgraph/internal/debug"
	"github.com/Faultbox/lightgraph/internal/gi"
	"github.com/Faultbox/lightgraph/internal/logger"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

func activate(ctx context.Context, cfg *config.Config, args []string) (*gi.Coordinator, *scene.Scene, error) {
	if len(args) < 1 {
		return nil, nil, errors.New("missing scene file")
	}
	s, err := scene.LoadFile(args[0])
	if err != nil {
		return nil, nil, err
	}

	c := gi.New(cfg, logger.For("gi"))
	if err := c.Activate(ctx, s); err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	c, s, err := activate(ctx, cfg, args)
	if err != nil {
		return err
	}
	defer c.Deactivate()

	sink := scene.NewEnergyMap()
	if _, err := c.Propagate(ctx, sink); err != nil {
		return err
	}
	fmt.Printf("Cycles: %d\n", cfg.Lighting.PropagationCycles)
	printEnergy(s, sink)

	for _, arg := range args[1:] {
		id, pos, err := parseMove(arg)
		if err != nil {
			return err
		}
		obj, ok := s.Object(id)
		if !ok {
			return fmt.Errorf("unknown object %q", id)
		}

		t := obj.Transform
		t[12], t[13], t[14] = pos.X, pos.Y, pos.Z
		moved, err := c.NotifyTransformed(id, t)
		if err != nil {
			return err
		}
		if moved {
			obj.Transform = t
		}
		if _, err := c.Propagate(ctx, sink); err != nil {
			return err
		}
		fmt.Printf("\nAfter moving %s to %v (edges recomputed: %v)\n", id, pos, moved)
		printEnergy(s, sink)
	}

	if err := printDebug(c); err != nil {
		return err
	}
	return writeSnapshot(c, cfg)
}

func cmdStats(ctx context.Context, cfg *config.Config, args []string) error {
	c, _, err := activate(ctx, cfg, args)
	if err != nil {
		return err
	}
	defer c.Deactivate()

	stats, _ := c.Stats()
	p := message.NewPrinter(language.English)
	p.Printf("Scene:   %s\n", args[0])
	p.Printf("Objects: %d\n", stats.Objects)
	p.Printf("Lights:  %d\n", stats.Sources)
	p.Printf("Nodes:   %d\n", stats.Nodes)
	p.Printf("Edges:   %d\n", stats.Edges)
	p.Println()
	p.Println("Octree:")
	p.Printf("  Depth:     %d\n", cfg.Octree.Depth)
	p.Printf("  Nodes:     %d\n", stats.Octree.Nodes)
	p.Printf("  Opaque:    %d\n", stats.Octree.OpaqueLeaves)
	p.Printf("  Truncated: %d\n", stats.Octree.Truncated)
	p.Printf("  Memory:    %.2f KB\n", float64(stats.Octree.Bytes)/1024)
	return printDebug(c)
}

func cmdOccluded(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: occluded <scene.yaml> x,y,z x,y,z")
	}
	a, err := parseVec(args[1])
	if err != nil {
		return err
	}
	b, err := parseVec(args[2])
	if err != nil {
		return err
	}

	c, _, err := activate(ctx, cfg, args[:1])
	if err != nil {
		return err
	}
	defer c.Deactivate()

	fmt.Printf("%v -> %v occluded: %v\n", a, b, c.IsOccluded(a, b))
	return nil
}

func printEnergy(s *scene.Scene, sink *scene.EnergyMap) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBJECT\tNODES\tR\tG\tB")
	for _, obj := range s.Objects {
		n := sink.NodeCount(obj.ID)
		e := sink.Total(obj.ID)
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%.4f\n", obj.ID, n, e.X, e.Y, e.Z)
	}
	_ = w.Flush()
}

func printDebug(c *gi.Coordinator) error {
	f, err := c.Debug()
	if err != nil {
		return err
	}
	if f.Cells > 0 {
		fmt.Printf("Octree debug: %d cells, %d line vertices\n", f.Cells, len(f.Octree)/3)
	}
	if len(f.Edges) > 0 {
		fmt.Printf("Edge debug:   %d lines\n", len(f.Edges))
	}
	return nil
}

func writeSnapshot(c *gi.Coordinator, cfg *config.Config) error {
	if cfg.Debug.SnapshotDir == "" {
		return nil
	}
	img, err := c.EnergyImage(cfg.Debug.SnapshotSize)
	if err != nil {
		return err
	}
	name, err := debug.NewImageWriter(cfg.Debug.SnapshotDir, "energy", cfg.Debug.SnapshotFormat).Write(img)
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot:     %s\n", name)
	return nil
}

// parseMove parses "id=x,y,z".
func parseMove(arg string) (string, math.Vec3, error) {
	id, coords, ok := strings.Cut(arg, "=")
	if !ok || id == "" {
		return "", math.Vec3{}, fmt.Errorf("invalid move %q, want id=x,y,z", arg)
	}
	v, err := parseVec(coords)
	return id, v, err
}

// parseVec parses "x,y,z".
func parseVec(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("invalid vector %q, want x,y,z", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("invalid vector %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return math.FromArray(v), nil
}
