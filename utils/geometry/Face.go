package geometry

import (
	"github.com/samuelfneumann/dronerl/utils/floatutils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a rectangular face of a box, described by its four corners.
// The face's local right axis runs from BottomLeft to BottomRight and
// its up axis runs from BottomLeft to TopLeft.
type Face struct {
	TopLeft     r3.Vec
	TopRight    r3.Vec
	BottomLeft  r3.Vec
	BottomRight r3.Vec
}

// Center returns the centroid of the face
func (f Face) Center() r3.Vec {
	sum := f.TopLeft.Add(f.TopRight).Add(f.BottomLeft).Add(f.BottomRight)
	return sum.Scale(0.25)
}

// Normal returns the unit normal of the face, right × up. A degenerate
// face has a zero normal.
func (f Face) Normal() r3.Vec {
	right := f.BottomRight.Sub(f.BottomLeft)
	up := f.TopLeft.Sub(f.BottomLeft)
	return Unit(right.Cross(up))
}

// ClosestPointOnFace returns the point on face f closest to p.
//
// The point is projected onto the plane of the face and expressed in
// the face's local (right, up) coordinates. If the projection falls
// inside the face it is returned, otherwise it is clamped onto the
// nearest edge.
func ClosestPointOnFace(p r3.Vec, f Face) r3.Vec {
	center := f.Center()
	right := f.BottomRight.Sub(f.BottomLeft)
	up := f.TopLeft.Sub(f.BottomLeft)

	halfWidth := Norm(right) / 2
	halfHeight := Norm(up) / 2
	rightDir := Unit(right)
	upDir := Unit(up)

	// Local coordinates of the projection; the normal component is
	// dropped
	d := p.Sub(center)
	x := floatutils.Clip(d.Dot(rightDir), -halfWidth, halfWidth)
	y := floatutils.Clip(d.Dot(upDir), -halfHeight, halfHeight)

	return center.Add(rightDir.Scale(x)).Add(upDir.Scale(y))
}
