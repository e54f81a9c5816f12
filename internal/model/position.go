package model

// Position is the unit exposure held over one period.
// Keep these values stable; they are intended for CSV output and arithmetic.
type Position int8

const (
	Short Position = -1
	Flat  Position = 0
	Long  Position = 1
)

func (p Position) String() string {
	switch {
	case p < 0:
		return "SHORT"
	case p > 0:
		return "LONG"
	default:
		return "FLAT"
	}
}

// Float returns the position as a signed multiplier.
func (p Position) Float() float64 { return float64(p) }
