package world

// AABB is an axis-aligned box anchored at its top-left corner, used for the
// player body (fluid-coverage overlap, spec 4.4) and for explosion/contact
// checks against entities.
type AABB struct {
	Vec2f
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func AABBFrom(x, y, width, height float32) AABB {
	return AABB{
		Vec2f:  Vec2f{X: x, Y: y},
		Width:  width,
		Height: height,
	}
}

// Intersects reports whether a and b overlap.
func (a AABB) Intersects(b AABB) bool {
	return a.X+a.Width >= b.X && a.X <= b.X+b.Width && a.Y+a.Height >= b.Y && a.Y <= b.Height+b.Y
}

// OverlapArea returns the area of intersection between a and b (0 if disjoint).
func (a AABB) OverlapArea(b AABB) float32 {
	x0 := max(a.X, b.X)
	x1 := min(a.X+a.Width, b.X+b.Width)
	y0 := max(a.Y, b.Y)
	y1 := min(a.Y+a.Height, b.Y+b.Height)
	w := x1 - x0
	h := y1 - y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
