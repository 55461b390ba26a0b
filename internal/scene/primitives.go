package scene

import (
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Plane builds a square grid in the XZ plane centered on the origin, facing +Y.
// subdivisions is the number of cells per side (minimum 1).
func Plane(size float32, subdivisions int, color Color) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}
	m := &Mesh{}
	half := size / 2
	step := size / float32(subdivisions)
	row := uint32(subdivisions + 1)

	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			m.Positions = append(m.Positions, math.Vec3{
				X: -half + float32(x)*step,
				Y: 0,
				Z: -half + float32(z)*step,
			})
			m.Normals = append(m.Normals, math.Vec3{X: 0, Y: 1, Z: 0})
			m.Colors = append(m.Colors, color)
		}
	}

	for z := uint32(0); z < uint32(subdivisions); z++ {
		for x := uint32(0); x < uint32(subdivisions); x++ {
			i := z*row + x
			m.Indices = append(m.Indices, i, i+row, i+1, i+1, i+row, i+row+1)
		}
	}
	return m
}

// Box builds an axis-aligned box centered on the origin with outward normals.
// Each face is a subdivided grid, so vertices are not shared between faces.
func Box(size math.Vec3, subdivisions int, color Color) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}
	half := size.Scale(0.5)
	m := &Mesh{}

	// normal, u axis, v axis for each face
	faces := [6][3]math.Vec3{
		{{X: 1}, {Z: -1}, {Y: 1}},
		{{X: -1}, {Z: 1}, {Y: 1}},
		{{Y: 1}, {X: 1}, {Z: -1}},
		{{Y: -1}, {X: 1}, {Z: 1}},
		{{Z: 1}, {X: 1}, {Y: 1}},
		{{Z: -1}, {X: -1}, {Y: 1}},
	}

	row := uint32(subdivisions + 1)
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		center := n.Mul(half)
		uLen := absVec(u).Dot(half)
		vLen := absVec(v).Dot(half)
		base := uint32(len(m.Positions))

		for j := 0; j <= subdivisions; j++ {
			for i := 0; i <= subdivisions; i++ {
				su := -uLen + 2*uLen*float32(i)/float32(subdivisions)
				sv := -vLen + 2*vLen*float32(j)/float32(subdivisions)
				m.Positions = append(m.Positions, center.Add(u.Scale(su)).Add(v.Scale(sv)))
				m.Normals = append(m.Normals, n)
				m.Colors = append(m.Colors, color)
			}
		}
		for j := uint32(0); j < uint32(subdivisions); j++ {
			for i := uint32(0); i < uint32(subdivisions); i++ {
				k := base + j*row + i
				m.Indices = append(m.Indices, k, k+1, k+row, k+1, k+row+1, k+row)
			}
		}
	}
	return m
}

func absVec(v math.Vec3) math.Vec3 {
	if v.X < 0 {
		v.X = -v.X
	}
	if v.Y < 0 {
		v.Y = -v.Y
	}
	if v.Z < 0 {
		v.Z = -v.Z
	}
	return v
}
