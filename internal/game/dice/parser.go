package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxDice bounds the number of dice a single term may roll.
const MaxDice = 100

// Term is one dice term of a formula, e.g. the "3D6" of "3D6+7".
type Term struct {
	Count    int  // number of dice
	Sides    int  // faces per die
	Negative bool // term is subtracted
}

// Expression represents a parsed formula ready to be rolled.
//
// Invariant: every term has 1 <= Count <= MaxDice and Sides >= 2.
type Expression struct {
	Raw      string // original input string
	Terms    []Term // dice terms in formula order
	Modifier int    // sum of flat terms
}

// Parse parses a formula made of dice terms and integer terms joined by
// '+' and '-'. Supported forms include "2D6", "3d6+7", "d20", "2D6+1D6-2"
// and "2D6+-1" (a negative flat term). '@' references must be substituted
// with Expand first.
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns an Expression with at least one term, or a descriptive error.
func Parse(expr string) (Expression, error) {
	if strings.TrimSpace(expr) == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	raw := expr
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if strings.Contains(s, "@") {
		return Expression{}, fmt.Errorf("dice: unresolved roll data reference in %q", raw)
	}

	out := Expression{Raw: raw}
	negative := false
	i := 0
	for i < len(s) {
		// Collapse any run of signs: "+-" is minus, "--" is plus.
		sawSign := false
		for i < len(s) && (s[i] == '+' || s[i] == '-') {
			if s[i] == '-' {
				negative = !negative
			}
			sawSign = true
			i++
		}
		if i > 0 && !sawSign {
			return Expression{}, fmt.Errorf("dice: missing operator in %q", raw)
		}
		j := i
		for j < len(s) && s[j] != '+' && s[j] != '-' {
			j++
		}
		tok := s[i:j]
		if tok == "" {
			return Expression{}, fmt.Errorf("dice: dangling operator in %q", raw)
		}
		if err := out.addTerm(tok, negative, raw); err != nil {
			return Expression{}, err
		}
		negative = false
		i = j
	}
	if len(out.Terms) == 0 {
		return Expression{}, fmt.Errorf("dice: no dice term in %q", raw)
	}
	return out, nil
}

func (e *Expression) addTerm(tok string, negative bool, raw string) error {
	dIdx := strings.Index(tok, "d")
	if dIdx < 0 {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return fmt.Errorf("dice: invalid term %q in %q: %w", tok, raw, err)
		}
		if negative {
			n = -n
		}
		e.Modifier += n
		return nil
	}

	count := 1
	if countStr := tok[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 || count > MaxDice {
			return fmt.Errorf("dice: invalid die count in %q: must be 1-%d", raw, MaxDice)
		}
	}
	sides, err := strconv.Atoi(tok[dIdx+1:])
	if err != nil {
		return fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}
	e.Terms = append(e.Terms, Term{Count: count, Sides: sides, Negative: negative})
	return nil
}

var referencePattern = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_.]*`)

// Expand substitutes every "@path" token in formula with data[path].
//
// Postcondition: Returns formula with no '@' tokens, or an error naming the
// first reference absent from data.
func Expand(formula string, data map[string]int) (string, error) {
	var missing string
	out := referencePattern.ReplaceAllStringFunc(formula, func(tok string) string {
		path := strings.TrimSuffix(tok[1:], ".")
		v, ok := data[path]
		if !ok {
			if missing == "" {
				missing = path
			}
			return tok
		}
		return strconv.Itoa(v) + tok[1+len(path):]
	})
	if missing != "" {
		return "", fmt.Errorf("dice: unknown roll data reference %q in %q", "@"+missing, formula)
	}
	return out, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
