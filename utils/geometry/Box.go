package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned box. Walls are the thin boxes that bound the
// arena, all other boxes are interior obstacles.
type Box struct {
	Center r3.Vec `json:"center"`
	Size   r3.Vec `json:"size"`
	IsWall bool   `json:"isWall"`
}

// NewBox returns a new interior obstacle
func NewBox(center, size r3.Vec) Box {
	return Box{Center: center, Size: size}
}

// NewWall returns a new boundary wall
func NewWall(center, size r3.Vec) Box {
	return Box{Center: center, Size: size, IsWall: true}
}

// HalfExtents returns half of the box size along each axis
func (b Box) HalfExtents() r3.Vec {
	return b.Size.Scale(0.5)
}

// Min returns the corner of the box with the smallest coordinates
func (b Box) Min() r3.Vec {
	return b.Center.Sub(b.HalfExtents())
}

// Max returns the corner of the box with the largest coordinates
func (b Box) Max() r3.Vec {
	return b.Center.Add(b.HalfExtents())
}

// Radius returns the bounding radius used when placing obstacles: twice
// the largest half extent.
func (b Box) Radius() float64 {
	h := b.HalfExtents()
	return 2 * math.Max(h.X, math.Max(h.Y, h.Z))
}

// Overlaps returns whether two boxes intersect. Touching boxes overlap.
func Overlaps(a, b Box) bool {
	aMin, aMax := a.Min(), a.Max()
	bMin, bMax := b.Min(), b.Max()

	return aMin.X <= bMax.X && aMax.X >= bMin.X &&
		aMin.Y <= bMax.Y && aMax.Y >= bMin.Y &&
		aMin.Z <= bMax.Z && aMax.Z >= bMin.Z
}

// Faces returns the six rectangular faces of the box in the order
// front (+z), back (-z), left (-x), right (+x), top (+y), bottom (-y).
func (b Box) Faces() [6]Face {
	c := b.Center
	h := b.HalfExtents()
	x0, x1 := c.X-h.X, c.X+h.X
	y0, y1 := c.Y-h.Y, c.Y+h.Y
	z0, z1 := c.Z-h.Z, c.Z+h.Z

	return [6]Face{
		{ // front
			TopLeft:     r3.Vec{X: x1, Y: y1, Z: z1},
			TopRight:    r3.Vec{X: x0, Y: y1, Z: z1},
			BottomLeft:  r3.Vec{X: x1, Y: y0, Z: z1},
			BottomRight: r3.Vec{X: x0, Y: y0, Z: z1},
		},
		{ // back
			TopLeft:     r3.Vec{X: x0, Y: y1, Z: z0},
			TopRight:    r3.Vec{X: x1, Y: y1, Z: z0},
			BottomLeft:  r3.Vec{X: x0, Y: y0, Z: z0},
			BottomRight: r3.Vec{X: x1, Y: y0, Z: z0},
		},
		{ // left
			TopLeft:     r3.Vec{X: x0, Y: y1, Z: z1},
			TopRight:    r3.Vec{X: x0, Y: y1, Z: z0},
			BottomLeft:  r3.Vec{X: x0, Y: y0, Z: z1},
			BottomRight: r3.Vec{X: x0, Y: y0, Z: z0},
		},
		{ // right
			TopLeft:     r3.Vec{X: x1, Y: y1, Z: z0},
			TopRight:    r3.Vec{X: x1, Y: y1, Z: z1},
			BottomLeft:  r3.Vec{X: x1, Y: y0, Z: z0},
			BottomRight: r3.Vec{X: x1, Y: y0, Z: z1},
		},
		{ // top
			TopLeft:     r3.Vec{X: x0, Y: y1, Z: z0},
			TopRight:    r3.Vec{X: x1, Y: y1, Z: z0},
			BottomLeft:  r3.Vec{X: x0, Y: y1, Z: z1},
			BottomRight: r3.Vec{X: x1, Y: y1, Z: z1},
		},
		{ // bottom
			TopLeft:     r3.Vec{X: x0, Y: y0, Z: z1},
			TopRight:    r3.Vec{X: x1, Y: y0, Z: z1},
			BottomLeft:  r3.Vec{X: x0, Y: y0, Z: z0},
			BottomRight: r3.Vec{X: x1, Y: y0, Z: z0},
		},
	}
}
