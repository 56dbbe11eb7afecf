// Package mathx provides the probability representations and angle helpers
// shared by the occupancy grid mapper, the ICP engine, and the motion model.
//
// Three interconvertible forms of a probability are kept distinct so callers
// cannot accidentally average log-odds or sum plain probabilities: Probability
// for a value in [0,1], LogProbability for numerically stable products, and
// LogOdds for the additive accumulation the occupancy grid needs. The
// canonical log-odds formula is ln(p/(1-p)) with inverse 1/(1+e^-x); one of
// the reference modules this package is grounded on states it the other way
// around, which is why the invariant is pinned down by TestLogOddsRoundTrip.
package mathx

import (
	"fmt"
	"math"
)

// Probability is a probability in the closed range [0, 1].
type Probability struct{ v float64 }

// NewProbability constructs a Probability, panicking if v is outside [0,1].
// Out-of-range construction is a programmer error, not a recoverable one.
func NewProbability(v float64) Probability {
	if v < 0.0 || v > 1.0 {
		panic("mathx: probability must be in [0,1], got " + floatStr(v))
	}
	return Probability{v}
}

// NewProbabilityUnchecked skips the range assertion, for compile-time
// constants already known to be valid (mirrors Probability::new_unchecked in
// the reference implementation).
func NewProbabilityUnchecked(v float64) Probability { return Probability{v} }

// Value returns the underlying probability in [0,1].
func (p Probability) Value() float64 { return p.v }

// Mul multiplies two probabilities directly (not log-space).
func (p Probability) Mul(o Probability) Probability { return Probability{p.v * o.v} }

// LogOdds converts p to its log-odds representation: ln(p/(1-p)).
func (p Probability) LogOdds() LogOdds { return LogOdds{math.Log(p.v / (1.0 - p.v))} }

// Log converts p to a LogProbability.
func (p Probability) Log() LogProbability { return LogProbability{math.Log(p.v)} }

// LogProbability is a probability represented in log space. Multiplying
// probabilities becomes addition here, which avoids the underflow that
// multiplying many small probabilities together in linear space would cause.
type LogProbability struct{ v float64 }

// NewLogProbability constructs a LogProbability from a linear-space value in
// [0,1], panicking if out of range.
func NewLogProbability(v float64) LogProbability {
	if v < 0.0 || v > 1.0 {
		panic("mathx: probability must be in [0,1], got " + floatStr(v))
	}
	return LogProbability{math.Log(v)}
}

// NewLogProbabilityUnchecked wraps an already-logged value directly, for
// callers (such as a PDF evaluation) that are not themselves a probability in
// [0,1] but still want log-space accumulation semantics.
func NewLogProbabilityUnchecked(logValue float64) LogProbability {
	return LogProbability{logValue}
}

// Mul multiplies two probabilities in log space (addition).
func (lp LogProbability) Mul(o LogProbability) LogProbability {
	return LogProbability{lp.v + o.v}
}

// MulLinear multiplies by a plain linear-space scalar, as used when
// accumulating the grid-map observation likelihood (spec §4.4).
func (lp LogProbability) MulLinear(factor float64) LogProbability {
	return LogProbability{lp.v + math.Log(factor)}
}

// Add combines two log-probabilities as if their linear-space values had been
// summed, using the numerically stable log-sum-exp identity:
// log(e^x + e^y) = max(x,y) + log1p(e^-|x-y|).
func (lp LogProbability) Add(o LogProbability) LogProbability {
	x, y := lp.v, o.v
	if y > x {
		x, y = y, x
	}
	return LogProbability{x + math.Log1p(math.Exp(y-x))}
}

// Prob converts back to a linear-space Probability.
func (lp LogProbability) Prob() Probability { return Probability{math.Exp(lp.v)} }

// Value returns the raw log-space value.
func (lp LogProbability) Value() float64 { return lp.v }

// LogOdds is a probability in log-odds representation: ln(p/(1-p)), in the
// range (-inf, inf). This is the canonical accumulator for occupancy grid
// cells: repeated sensor updates sum directly with no renormalization.
type LogOdds struct{ v float64 }

// NewLogOdds wraps a raw log-odds value.
func NewLogOdds(v float64) LogOdds { return LogOdds{v} }

// Add accumulates two log-odds values.
func (lo LogOdds) Add(o LogOdds) LogOdds { return LogOdds{lo.v + o.v} }

// Sub removes a previously accumulated log-odds contribution.
func (lo LogOdds) Sub(o LogOdds) LogOdds { return LogOdds{lo.v - o.v} }

// Value returns the raw log-odds value.
func (lo LogOdds) Value() float64 { return lo.v }

// Probability converts back to linear space: 1/(1+e^-x).
func (lo LogOdds) Probability() Probability {
	return Probability{1.0 / (1.0 + math.Exp(-lo.v))}
}

func floatStr(v float64) string {
	return fmt.Sprintf("%v", v)
}
