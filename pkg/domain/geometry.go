package domain

import "time"

// Rect is an axis-aligned box in screen pixels, (X1,Y1) top-left and (X2,Y2) bottom-right.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Grow expands the box by d pixels on every side (negative d shrinks it).
func (r Rect) Grow(d float64) Rect {
	return Rect{X1: r.X1 - d, Y1: r.Y1 - d, X2: r.X2 + d, Y2: r.Y2 + d}
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float64, float64) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// ContainsOval reports whether (x, y) lies inside the ellipse inscribed in the box.
func (r Rect) ContainsOval(x, y float64) bool {
	cx, cy := r.Center()
	rx, ry := (r.X2-r.X1)/2, (r.Y2-r.Y1)/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx, dy := (x-cx)/rx, (y-cy)/ry
	return dx*dx+dy*dy <= 1
}

// Shape is the drawing primitive of a stimulus.
type Shape string

const (
	ShapeCircle Shape = "circle"
	// ShapeCross is a filled circle with a cross drawn over it in CrossColor.
	ShapeCross Shape = "cross"
)

// CrossColor is the color of the bars of a ShapeCross key.
const CrossColor = "purple"

// Region is a named area of the screen. Bounds is the drawn key; touches are
// accepted anywhere inside HitBounds, which is usually a little larger.
type Region struct {
	Name      string `json:"name"`
	Bounds    Rect   `json:"bounds"`
	HitBounds Rect   `json:"hit_bounds"`
}

// Hit reports whether a touch at (x, y) falls on the region.
func (r Region) Hit(x, y float64) bool {
	hb := r.HitBounds
	if hb == (Rect{}) {
		hb = r.Bounds
	}
	return hb.ContainsOval(x, y)
}

// Touch is a single peck reported by a display.
type Touch struct {
	Region string    `json:"region"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	At     time.Time `json:"at"`
}
