// Package fuzzy provides the pure operator families (T-norms, T-conorms,
// negations, hedges) that the rule engine's inference driver builds on.
package fuzzy

import "math"

// TNorm computes a fuzzy AND over two degrees in [0,1].
type TNorm func(a, b float64) float64

// TConorm computes a fuzzy OR over two degrees in [0,1].
type TConorm func(a, b float64) float64

// Negation computes a fuzzy complement of a degree in [0,1].
type Negation func(a float64) float64

// Hedge is a unary modifier on a degree in [0,1].
type Hedge func(a float64) float64

// MinTNorm is the standard (Zadeh) T-norm: min(a,b).
func MinTNorm(a, b float64) float64 { return math.Min(a, b) }

// ProductTNorm is the algebraic product T-norm: a*b.
func ProductTNorm(a, b float64) float64 { return a * b }

// LukasiewiczTNorm is the bounded-difference T-norm: max(0, a+b-1).
func LukasiewiczTNorm(a, b float64) float64 { return math.Max(0, a+b-1) }

// MaxTConorm is the standard (Zadeh) T-conorm: max(a,b).
func MaxTConorm(a, b float64) float64 { return math.Max(a, b) }

// ProbabilisticTConorm is the probabilistic-sum T-conorm: a+b-a*b.
func ProbabilisticTConorm(a, b float64) float64 { return a + b - a*b }

// BoundedTConorm is the bounded-sum T-conorm: min(1, a+b).
func BoundedTConorm(a, b float64) float64 { return math.Min(1, a+b) }

// StandardNegation is the usual fuzzy complement: 1-a.
func StandardNegation(a float64) float64 { return 1 - a }

// SugenoNegation returns a negation parameterized by lambda (lambda > -1).
// At lambda=0 it reduces to StandardNegation.
func SugenoNegation(lambda float64) Negation {
	return func(a float64) float64 {
		return (1 - a) / (1 + lambda*a)
	}
}

// YagerNegation returns a negation parameterized by w (w > 0).
// At w=1 it reduces to StandardNegation.
func YagerNegation(w float64) Negation {
	return func(a float64) float64 {
		return math.Pow(1-math.Pow(a, w), 1/w)
	}
}

// Very is the "very" power hedge: a^2.
func Very(a float64) float64 { return math.Pow(a, 2) }

// Somewhat is the "somewhat" power hedge: a^0.5.
func Somewhat(a float64) float64 { return math.Pow(a, 0.5) }

// Extremely is the "extremely" power hedge: a^3.
func Extremely(a float64) float64 { return math.Pow(a, 3) }

// PowerHedge builds an arbitrary power hedge a^p.
func PowerHedge(p float64) Hedge {
	return func(a float64) float64 { return math.Pow(a, p) }
}

// TNorms is a lookup table of named T-norms, keyed by the name a caller
// (merge strategy, rule author) might use to select an alternate operator.
var TNorms = map[string]TNorm{
	"min":          MinTNorm,
	"product":      ProductTNorm,
	"lukasiewicz":  LukasiewiczTNorm,
}

// TConorms is a lookup table of named T-conorms.
var TConorms = map[string]TConorm{
	"max":           MaxTConorm,
	"probabilistic": ProbabilisticTConorm,
	"bounded":       BoundedTConorm,
}

// Hedges is a lookup table of named power hedges.
var Hedges = map[string]Hedge{
	"very":     Very,
	"somewhat": Somewhat,
	"extremely": Extremely,
}

// Clamp restricts a degree to the closed interval [0,1].
func Clamp(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
