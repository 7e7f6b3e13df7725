package world

func min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func clamp(val, minimum, maximum float32) float32 {
	return min(max(val, minimum), maximum)
}

func clampMagnitude(val, mag float32) float32 {
	return clamp(val, -mag, mag)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// wrapDelta returns the wrap-shortest signed delta a-b on a torus of circumference w.
func wrapDelta(a, b, w float32) float32 {
	d := a - b
	half := w * 0.5
	for d > half {
		d -= w
	}
	for d < -half {
		d += w
	}
	return d
}

func wrapFloat(x, w float32) float32 {
	x = float32(int(x)%int(w)) + (x - float32(int(x)))
	if x < 0 {
		x += w
	}
	for x >= w {
		x -= w
	}
	for x < 0 {
		x += w
	}
	return x
}

func wrapInt(x, w int) int {
	x %= w
	if x < 0 {
		x += w
	}
	return x
}
