// Package dice provides the dice engine behind sheet and item rolls:
// formula parsing, roll-data substitution, and Arianrhod critical/fumble
// detection.
package dice

import "fmt"

// RollResult holds the full audit trail for a single formula evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string `json:"expression"` // formula as rolled, after roll-data substitution, e.g. "3D6+7"
	Dice       []int  `json:"dice"`       // individual die results; dice from subtracted terms are negative
	Modifier   int    `json:"modifier"`   // sum of flat terms (may be negative)
	Critical   bool   `json:"critical"`   // two or more dice of a term showed their highest face
	Fumble     bool   `json:"fumble"`     // every added die showed 1
}

// Total is the sum of the dice and the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"3D6+7 → [4 6 6] +7 = 23 (critical)"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	s := fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
	switch {
	case r.Critical:
		s += " (critical)"
	case r.Fumble:
		s += " (fumble)"
	}
	return s
}
