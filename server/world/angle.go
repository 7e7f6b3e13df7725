package world

import (
	"encoding/json"
	"fmt"
	"github.com/chewxy/math32"
)

const Pi Angle = 32768

// Angle is a 2-byte fixed-point representation of a direction, used for the
// wire-facing aimAngle field so a full float32 never has to cross the socket.
type Angle uint16

func ToAngle(x float32) Angle {
	return Angle(x * (float32(Pi) / math32.Pi))
}

func (angle Angle) Float() float32 {
	return float32(int16(angle)) * (math32.Pi * 2 / 65536)
}

func (angle Angle) Vec2f() Vec2f {
	f := angle.Float()
	return Vec2f{X: math32.Cos(f), Y: math32.Sin(f)}
}

func (angle Angle) ClampMagnitude(m Angle) Angle {
	if int16(angle) < -int16(m) {
		return -m
	}
	if int16(angle) > int16(m) {
		return m
	}
	return angle
}

func (angle Angle) Diff(otherAngle Angle) (difference Angle) {
	return angle - otherAngle
}

func (angle Angle) Lerp(otherAngle Angle, factor float32) Angle {
	return angle + ToAngle(otherAngle.Diff(angle).Float()*factor)
}

func (angle Angle) Abs() float32 {
	return math32.Abs(angle.Float())
}

func (angle Angle) Inv() Angle {
	return angle + Pi
}

func (angle Angle) String() string {
	return fmt.Sprintf("%.01f degrees", angle.Float()*(180/math32.Pi))
}

func (angle Angle) MarshalJSON() ([]byte, error) {
	return json.Marshal(angle.Float())
}

func (angle *Angle) UnmarshalJSON(b []byte) error {
	var f float32
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*angle = ToAngle(f)
	return nil
}

// AngleTo returns the direction from `from` facing `target`, using the
// wrap-shortest delta on the torus of circumference w.
func AngleTo(from, target Vec2f, w float32) Angle {
	d := target.WrapSub(from, w)
	return d.Angle()
}
