// Package dice implements the dice-notation evaluator used by combat and
// narrative resolution.
package dice

import (
	"math/rand"
	"regexp"
	"strconv"
	"time"
)

// Result captures the outcome of evaluating a dice expression.
//
// Rolls holds every individual die value in the order rolled. Total is the
// sum of all rolls plus any +K/-K modifiers. Valid is false only when no
// usable dice term was found in the expression.
type Result struct {
	Rolls []int `json:"rolls"`
	Total int   `json:"total"`
	Valid bool  `json:"valid"`
}

// Per-term bounds. Terms outside these limits are skipped rather than
// failing the whole expression.
const (
	maxDiceCount = 20
	maxDieSides  = 100
)

var termPattern = regexp.MustCompile(`(\d*)[dD](\d+)([+-]\d+)?`)

// Evaluate scans expr for dice terms of the form [N]dM[+K|-K].
//
// The scan is permissive: terms may be separated by arbitrary text and every
// matched term contributes to one running total. A missing count N defaults
// to 1. Terms with N > 20, M > 100, N < 1, or M < 1 are skipped silently.
//
// rng supplies the randomness so callers can make rolls deterministic in
// tests; a nil rng falls back to a time-seeded source.
func Evaluate(expr string, rng *rand.Rand) Result {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	result := Result{Rolls: []int{}}
	for _, match := range termPattern.FindAllStringSubmatch(expr, -1) {
		count := 1
		if match[1] != "" {
			parsed, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			count = parsed
		}
		sides, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		if count < 1 || count > maxDiceCount || sides < 1 || sides > maxDieSides {
			continue
		}

		for i := 0; i < count; i++ {
			roll := rng.Intn(sides) + 1
			result.Rolls = append(result.Rolls, roll)
			result.Total += roll
		}
		if match[3] != "" {
			modifier, err := strconv.Atoi(match[3])
			if err != nil {
				continue
			}
			result.Total += modifier
		}
		result.Valid = true
	}

	if !result.Valid {
		return Result{Rolls: []int{}}
	}
	return result
}
