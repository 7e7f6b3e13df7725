// Package noise generates the deterministic terrain heightmap and cave mask
// consumed by world.Generate. It wraps two perlin.Perlin streams, the same
// dependency and layering approach the teacher's terrain generator uses for
// its land/water heightmaps, repurposed here for a surface-height curve plus
// a two-octave cave-carving mask.
package noise

import (
	"github.com/aquilax/go-perlin"
)

const (
	surfaceFrequency = 0.01
	caveFrequencyHi  = 0.05
	caveFrequencyLo  = 0.11
)

// Generator produces deterministic height and cave values for a given seed.
type Generator struct {
	surface *perlin.Perlin
	caveHi  *perlin.Perlin
	caveLo  *perlin.Perlin
}

func New(seed int64) *Generator {
	return &Generator{
		surface: perlin.NewPerlin(2, 2, 3, seed),
		caveHi:  perlin.NewPerlin(2, 2, 3, seed+1),
		caveLo:  perlin.NewPerlin(2, 2, 3, seed+2),
	}
}

// SurfaceHeight returns the grass-line row for column x, oscillating gently
// around baseline.
func (g *Generator) SurfaceHeight(x int, baseline, amplitude float64) int {
	h := g.surface.Noise2D(float64(x)*surfaceFrequency, 0)
	return baselineInt(baseline + h*amplitude)
}

func baselineInt(v float64) int {
	if v < 0 {
		return int(v - 1)
	}
	return int(v)
}

// Cave reports whether (x,y) should be carved into a cave: true when both
// octaves of noise agree the point is in a low-density pocket. Combining two
// frequencies (instead of one) avoids the large, perfectly round caverns a
// single octave produces.
func (g *Generator) Cave(x, y int) bool {
	hi := g.caveHi.Noise2D(float64(x)*caveFrequencyHi, float64(y)*caveFrequencyHi)
	lo := g.caveLo.Noise2D(float64(x)*caveFrequencyLo, float64(y)*caveFrequencyLo)
	return hi > 0.25 && lo > 0.05
}

// DirtDensity returns a pseudo-random-but-deterministic value in [0,1) used
// to thin the dirt/stone mix band; derived from the same surface stream at a
// much higher frequency so it doesn't correlate with the surface curve.
func (g *Generator) DirtDensity(x, y int) float64 {
	v := g.surface.Noise2D(float64(x)*0.2, float64(y)*0.2)
	return (v + 1) / 2
}
