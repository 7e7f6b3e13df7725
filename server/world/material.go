package world

// Material identifies the contents of a single terrain pixel or sand
// particle. Ordering is arbitrary except that EMPTY must be zero so a
// zero-valued chunk array reads as empty.
type Material uint8

const (
	Empty Material = iota
	Stone
	Dirt
	Grass
	Bedrock
	LiquidWater
	LiquidLava
	materialCount
)

// materialProps mirrors the {solid?, granular?, liquid?, density, palette}
// table from the spec, indexed by Material.
type materialProps struct {
	solid    bool
	granular bool
	liquid   bool
	density  float32
	palette  uint32 // packed 0xRRGGBB, used only to fill the client's color field
}

var properties = [materialCount]materialProps{
	Empty:       {},
	Stone:       {solid: true, granular: true, density: 2.6, palette: 0x7a7a7a},
	Dirt:        {solid: true, granular: true, density: 1.3, palette: 0x6b4423},
	Grass:      {solid: true, granular: true, density: 1.1, palette: 0x3d8b3d},
	Bedrock:     {solid: true, density: 10, palette: 0x1a1a1a},
	LiquidWater: {solid: true, liquid: true, density: 1.0, palette: 0x2266cc},
	LiquidLava:  {solid: true, liquid: true, density: 3.1, palette: 0xcc4400},
}

func (m Material) Solid() bool    { return m != Empty && properties[m].solid }
func (m Material) Granular() bool { return properties[m].granular }
func (m Material) Liquid() bool   { return properties[m].liquid }
func (m Material) Density() float32 {
	return properties[m].density
}
func (m Material) Palette() uint32 { return properties[m].palette }

// Destructible reports whether destroy() is permitted to clear this
// material; bedrock is the one hard exception (spec 4.2, invariant: pixels
// at y<0 or y>=H are conceptually bedrock).
func (m Material) Destructible() bool {
	return m != Bedrock
}
