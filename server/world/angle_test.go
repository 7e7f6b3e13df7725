package world

import (
	"github.com/chewxy/math32"
	"math/rand"
	"testing"
)

func BenchmarkAngle_Diff(b *testing.B) {
	const count = 1024
	angles := make([]Angle, count)
	for i := range angles {
		angles[i] = Angle(rand.Float32() * math32.Pi * 2)
	}
	b.ResetTimer()

	var acc Angle
	for i := 0; i < b.N; i++ {
		a := angles[i&(count-1)]
		b := angles[(i+count/2)&(count-1)]
		acc += a.Diff(b)
	}
	_ = acc
}

func BenchmarkAngle_Vec2f(b *testing.B) {
	const count = 1024
	angles := make([]Angle, count)
	for i := range angles {
		angles[i] = Angle(rand.Float32() * math32.Pi * 2)
	}
	b.ResetTimer()

	var acc Vec2f
	for i := 0; i < b.N; i++ {
		a := angles[i&(count-1)]
		acc = acc.Add(a.Vec2f())
	}
	_ = acc
}

func TestAngle_Diff(t *testing.T) {
	for step := float32(0.01); step < math32.Pi; step += 0.01 {
		s := ToAngle(step)
		for f := -math32.Pi * 2; f < math32.Pi*2; f += step {
			i := ToAngle(f)
			if !approx(float32(i.Diff(i-s)), float32(s)) {
				t.Errorf("%v expected %v, found %v", i, s, i.Diff(i-s))
			}
		}

		for f := -math32.Pi * 2; f < math32.Pi*2; f += step {
			i := ToAngle(f)
			if !approx(float32(i.Diff(i+s)), float32(-s)) {
				t.Errorf("%v expected %v, found %v", i, -s, i.Diff(i+s))
			}
		}
	}
}
