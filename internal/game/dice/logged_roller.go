package dice

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Modifier is one labelled flat term of a check, e.g. {"Diplomacy", 3}.
type Modifier struct {
	Label string
	Value int
}

// Check describes a d20 test: a single d20 plus zero or more labelled modifiers.
type Check struct {
	// Title names the test for logs and chat, e.g. "Diplomacy Test: House Veyra".
	Title     string
	Modifiers []Modifier
}

// Formula renders the check as a dice expression, e.g. "1d20+3+2".
// Zero-valued modifiers are omitted.
func (c Check) Formula() string {
	var b strings.Builder
	b.WriteString("1d20")
	for _, m := range c.Modifiers {
		if m.Value == 0 {
			continue
		}
		fmt.Fprintf(&b, "%+d", m.Value)
	}
	return b.String()
}

// Bonus returns the sum of all modifiers.
func (c Check) Bonus() int {
	total := 0
	for _, m := range c.Modifiers {
		total += m.Value
	}
	return total
}

// CheckResult pairs a Check with the roll that resolved it.
type CheckResult struct {
	Check Check
	Roll  RollResult
}

// Total returns the check's final value.
func (c CheckResult) Total() int { return c.Roll.Total() }

// Natural returns the face shown on the d20.
func (c CheckResult) Natural() int {
	if len(c.Roll.Dice) == 0 {
		return 0
	}
	return c.Roll.Dice[0]
}

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result at debug level.
//
// Postcondition: Rejects expressions with no dice or fewer than two sides.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	if expr.Count < 1 || expr.Sides < 2 {
		return RollResult{}, fmt.Errorf("dice: cannot roll %dd%d", expr.Count, expr.Sides)
	}
	result := roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid dice expression string.
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e)
}

// RollDie rolls a single die with the given number of sides.
//
// Precondition: sides >= 2.
// Postcondition: The returned total is in [1, sides].
func (r *Roller) RollDie(sides int) (RollResult, error) {
	if sides < 2 {
		return RollResult{}, fmt.Errorf("dice: die must have at least 2 sides, got %d", sides)
	}
	return r.Roll(Expression{Raw: fmt.Sprintf("1d%d", sides), Count: 1, Sides: sides})
}

// Check rolls a d20 test for c.
//
// Postcondition: result.Total() == d20 + c.Bonus().
func (r *Roller) Check(c Check) (CheckResult, error) {
	roll, err := r.Roll(Expression{Raw: c.Formula(), Count: 1, Sides: 20, Modifier: c.Bonus()})
	if err != nil {
		return CheckResult{}, err
	}
	r.logger.Debug("check rolled",
		zap.String("title", c.Title),
		zap.Int("natural", roll.Dice[0]),
		zap.Int("total", roll.Total()),
	)
	return CheckResult{Check: c, Roll: roll}, nil
}
