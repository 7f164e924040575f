package dice

import "go.uber.org/zap"

// Roller is the dice entry point shared by the sheet, chat and macro
// surfaces. Every roll it makes is logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller returns a Roller drawing faces from src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// RollExpr parses and rolls a literal expression such as "3D6+7".
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	res, err := Roll(e, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("total", res.Total()),
		zap.Bool("critical", res.Critical),
		zap.Bool("fumble", res.Fumble),
	)
	return res, nil
}

// RollFormula replaces each "@path" reference in formula with its value in
// data and rolls the result.
//
// Postcondition: On success the result's Expression contains no '@'.
func (r *Roller) RollFormula(formula string, data map[string]int) (RollResult, error) {
	expanded, err := Expand(formula, data)
	if err != nil {
		return RollResult{}, err
	}
	return r.RollExpr(expanded)
}
