// Package dice is the dice engine behind organization and warfare tests: a
// randomness Source, a small expression parser, and a logging Roller that
// assembles d20 checks from labelled modifiers.
package dice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// RollResult is the audit trail of one evaluated expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // as written, e.g. "1d20+3"
	Dice       []int  // faces rolled, before the modifier
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d20+3 → [14] +3 = 17". A result without an
// expression names its dice count instead.
func (r RollResult) String() string {
	expr := r.Expression
	if expr == "" {
		expr = fmt.Sprintf("%d dice", len(r.Dice))
	}
	faces := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		faces[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s → [%s] %+d = %d", expr, strings.Join(faces, " "), r.Modifier, r.Total())
}

// Source is the randomness provider for dice rolls. Implementations must be
// safe for concurrent use.
type Source interface {
	// Intn returns a value in [0, n). n is always > 0.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns the production Source, backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn panics when n <= 0 or the system entropy source fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("dice: Intn(%d)", n))
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// roll draws expr.Count faces of expr.Sides from src.
//
// Precondition: expr came from Parse or has Count >= 1 and Sides >= 2.
func roll(expr Expression, src Source) RollResult {
	faces := make([]int, expr.Count)
	for i := range faces {
		faces[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: faces, Modifier: expr.Modifier}
}
