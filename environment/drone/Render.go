package drone

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	floorColour    = color.RGBA{R: 0x22, G: 0x22, B: 0x2b, A: 0xff}
	wallColour     = color.RGBA{R: 0x88, G: 0x88, B: 0x99, A: 0xff}
	obstacleColour = color.RGBA{R: 0x55, G: 0x66, B: 0x88, A: 0xc0}
	droneColour    = color.RGBA{R: 0xdd, G: 0xdd, B: 0xff, A: 0xff}
	goalColour     = color.RGBA{R: 0x33, G: 0xcc, B: 0x55, A: 0xff}
	sensorColour   = color.RGBA{R: 0xff, G: 0x44, B: 0x44, A: 0xff}
)

// Render draws a top-down view of the arena (x to the right, z down)
// into a square image of the given width in pixels
func (d *Drone) Render(width int) image.Image {
	size := d.config.ArenaSize
	scale := float64(width) / size

	// worldToPixel maps arena (x, z) to image coordinates
	worldToPixel := func(v r3.Vec) (float64, float64) {
		return (v.X + size/2) * scale, (v.Z + size/2) * scale
	}

	dc := gg.NewContext(width, width)
	dc.SetColor(floorColour)
	dc.Clear()

	// Obstacles, walls last so that they frame the arena
	for _, walls := range []bool{false, true} {
		for _, o := range d.obstacles {
			if o.IsWall != walls {
				continue
			}
			x, y := worldToPixel(o.Min())
			dc.DrawRectangle(x, y, o.Size.X*scale, o.Size.Z*scale)
			if o.IsWall {
				dc.SetColor(wallColour)
			} else {
				dc.SetColor(obstacleColour)
			}
			dc.Fill()
		}
	}

	// Goal threshold
	gx, gy := worldToPixel(d.goal)
	dc.DrawCircle(gx, gy, d.config.GoalThreshold*scale)
	dc.SetColor(goalColour)
	dc.Fill()

	// Drone and horizontal sensors, each drawn with a length that grows
	// with proximity
	px, py := worldToPixel(d.position)
	half := d.config.DroneSize * scale / 2
	dc.DrawRectangle(px-half, py-half, 2*half, 2*half)
	dc.SetColor(droneColour)
	dc.Fill()

	dc.SetColor(sensorColour)
	dc.SetLineWidth(2)
	for _, s := range []Sensor{Left, Right, Front, Back} {
		reading := d.sensors[s]
		if reading == 0 {
			continue
		}
		ax, ay := worldToPixel(s.Anchor(d.position, d.config.DroneSize))
		tip := s.Anchor(d.position, d.config.DroneSize).Add(
			s.Direction().Scale(reading * d.config.MaxSensorDistance))
		tx, ty := worldToPixel(tip)
		dc.DrawLine(ax, ay, tx, ty)
	}
	dc.Stroke()

	return dc.Image()
}

// EncodePNG renders the arena and writes it to w as a PNG image
func (d *Drone) EncodePNG(w io.Writer, width int) error {
	return png.Encode(w, d.Render(width))
}
