package dice

// criticalThreshold is how many dice of a term must show their highest face
// for the roll to be a critical.
const criticalThreshold = 2

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Dice) == sum of term counts;
// result.Total() == sum(result.Dice) + result.Modifier.
func Roll(expr Expression, src Source) (RollResult, error) {
	res := RollResult{Expression: expr.Raw, Modifier: expr.Modifier}
	added := 0
	ones := 0
	for _, term := range expr.Terms {
		highest := 0
		for i := 0; i < term.Count; i++ {
			face := src.Intn(term.Sides) + 1
			if term.Negative {
				res.Dice = append(res.Dice, -face)
				continue
			}
			res.Dice = append(res.Dice, face)
			added++
			if face == term.Sides {
				highest++
			}
			if face == 1 {
				ones++
			}
		}
		if highest >= criticalThreshold {
			res.Critical = true
		}
	}
	res.Fumble = !res.Critical && added > 0 && ones == added
	return res, nil
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: expr must be a valid dice expression string; src must be non-nil.
// Postcondition: Returns a RollResult or a parse/roll error.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}
