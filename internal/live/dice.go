package live

import "math/rand/v2"

var dieSides = map[string]int{
	"d4":   4,
	"d6":   6,
	"d8":   8,
	"d10":  10,
	"d12":  12,
	"d20":  20,
	"d100": 100,
}

// Dice lists the supported dice in display order.
var Dice = []string{"d4", "d6", "d8", "d10", "d12", "d20", "d100"}

// Sides reports the number of faces; an empty die (no die selected) is valid
// and has no upper bound.
func Sides(die string) (int, bool) {
	if die == "" {
		return 0, true
	}
	sides, ok := dieSides[die]
	return sides, ok
}

func ValidDie(die string) bool {
	_, ok := Sides(die)
	return ok
}

// Roller returns a value in [1, sides].
type Roller func(sides int) int

func DefaultRoller(sides int) int {
	if sides <= 0 {
		return 0
	}
	return rand.IntN(sides) + 1
}
