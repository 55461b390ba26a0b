package scene

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// File is the YAML description of a scene built from procedural primitives.
type File struct {
	Objects []ObjectSpec `yaml:"objects"`
	Lights  []LightSpec  `yaml:"lights"`
}

// ObjectSpec describes one renderable.
type ObjectSpec struct {
	ID           string     `yaml:"id"`
	Static       *bool      `yaml:"static"` // defaults to true
	Primitive    string     `yaml:"primitive"`
	Size         [3]float32 `yaml:"size"`
	Subdivisions int        `yaml:"subdivisions"`
	Position     [3]float32 `yaml:"position"`
	Yaw          float32    `yaml:"yaw"` // radians
	Scale        [3]float32 `yaml:"scale"`
	Color        [4]float32 `yaml:"color"`
}

// LightSpec describes one point emitter.
type LightSpec struct {
	ID        string     `yaml:"id"`
	Position  [3]float32 `yaml:"position"`
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`
}

// LoadFile reads and builds a scene from a YAML file.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a scene from YAML bytes.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Build()
}

// Build turns the description into renderables and emitters.
func (f *File) Build() (*Scene, error) {
	s := &Scene{}
	seen := make(map[string]bool)

	for i, spec := range f.Objects {
		obj, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		if seen[obj.ID] {
			return nil, fmt.Errorf("object %d: duplicate id %q", i, obj.ID)
		}
		seen[obj.ID] = true
		s.Objects = append(s.Objects, obj)
	}

	for _, l := range f.Lights {
		s.Lights = append(s.Lights, lighting.Emitter{
			ID:        l.ID,
			Position:  math.FromArray(l.Position),
			Color:     math.FromArray(l.Color),
			Intensity: l.Intensity,
			Range:     l.Range,
		})
	}
	return s, nil
}

func (spec ObjectSpec) build() (*Renderable, error) {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	size := math.FromArray(spec.Size)
	if size.IsZero() {
		size = math.Splat(1)
	}
	scale := math.FromArray(spec.Scale)
	if scale.IsZero() {
		scale = math.Splat(1)
	}
	color := Color{spec.Color[0], spec.Color[1], spec.Color[2], spec.Color[3]}
	if color == (Color{}) {
		color = White
	}
	color = color.Clamp()

	var mesh *Mesh
	switch spec.Primitive {
	case "plane":
		mesh = Plane(size.X, spec.Subdivisions, color)
	case "box":
		mesh = Box(size, spec.Subdivisions, color)
	case "":
		return nil, errors.New("missing primitive")
	default:
		return nil, fmt.Errorf("unknown primitive %q", spec.Primitive)
	}

	static := true
	if spec.Static != nil {
		static = *spec.Static
	}

	return &Renderable{
		ID:        id,
		Mesh:      mesh,
		Transform: math.TRS(math.FromArray(spec.Position), spec.Yaw, scale),
		Static:    static,
	}, nil
}
