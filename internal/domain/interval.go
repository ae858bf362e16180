package domain

import (
	"fmt"
	"math"
)

// Interval is a closed [L, U] subset of [0, 1]. All constructors clamp
// their inputs; an interval that would collapse (L > U after clamping)
// is treated as "no information" rather than silently narrowed.
type Interval struct {
	L, U float64
}

// Unknown is the absent-fact interval: total ignorance.
var Unknown = Interval{L: 0, U: 1}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// NewInterval builds an Interval from raw bounds, clamping to [0,1] and
// collapsing to Unknown if the clamped bounds are inverted.
func NewInterval(l, u float64) Interval {
	l, u = clamp01(l), clamp01(u)
	if l > u {
		return Unknown
	}
	return Interval{L: l, U: u}
}

// Meet computes the interval intersection, collapsing to Unknown when
// the two intervals do not overlap.
func Meet(a, b Interval) Interval {
	l := math.Max(a.L, b.L)
	u := math.Min(a.U, b.U)
	if l > u {
		return Unknown
	}
	return Interval{L: l, U: u}
}

// Width returns U - L.
func (i Interval) Width() float64 { return i.U - i.L }

// Narrower reports whether a is strictly narrower than b, with the
// §3 tie-break: smaller width wins; ties broken by smaller L, then
// smaller U, then identity (a is not narrower than an equal b).
func Narrower(a, b Interval) bool {
	aw, bw := a.Width(), b.Width()
	if aw != bw {
		return aw < bw
	}
	if a.L != b.L {
		return a.L < b.L
	}
	if a.U != b.U {
		return a.U < b.U
	}
	return false
}

// Op is a threshold comparison operator.
type Op int

const (
	OpGE Op = iota
	OpLE
	OpEQ
)

// ContainsThreshold evaluates a clause threshold against an interval:
// ">=x" iff i.L >= x; "<=x" iff i.U <= x; "=x" iff i.L == i.U == x.
func ContainsThreshold(i Interval, op Op, x float64) bool {
	switch op {
	case OpGE:
		return i.L >= x
	case OpLE:
		return i.U <= x
	case OpEQ:
		return i.L == x && i.U == x
	default:
		return false
	}
}

// Equal is bit-exact bound comparison, used by tests and by support
// soundness checks (§8 property 5).
func (i Interval) Equal(o Interval) bool { return i.L == o.L && i.U == o.U }

// Valid reports the §8 bounded-bounds invariant.
func (i Interval) Valid() bool { return i.L >= 0 && i.U <= 1 && i.L <= i.U }

// MarshalJSON renders the interval as a two-element array of decimals
// fixed at 6 fractional digits, rounded half-to-even, so exports are
// byte-for-byte reproducible across runs and platforms (§4.11).
func (i Interval) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%s,%s]", round6String(i.L), round6String(i.U))), nil
}

// round6String rounds x (assumed within [0,1]) to 6 fractional digits
// using round-half-to-even, formatted as a fixed-point decimal.
func round6String(x float64) string {
	scaled := x * 1e6
	floor := math.Floor(scaled)
	diff := scaled - floor
	const eps = 1e-9

	var n int64
	switch {
	case diff > 0.5+eps:
		n = int64(floor) + 1
	case diff < 0.5-eps:
		n = int64(floor)
	default:
		fl := int64(floor)
		if fl%2 == 0 {
			n = fl
		} else {
			n = fl + 1
		}
	}
	return fmt.Sprintf("%d.%06d", n/1000000, n%1000000)
}
