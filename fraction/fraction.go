// Package fraction implements the exact rational arithmetic used by the
// clap (clean aperture) property: sums of fractions must not lose precision
// the way a naive float64 conversion would.
package fraction

import "math/big"

// Fraction is an exact numerator/denominator pair. The zero value has a
// zero denominator and is not a valid fraction; build values with New.
type Fraction struct {
	Num, Den int64
}

// New returns a normalized Fraction; it panics on a zero denominator, which
// never occurs for well-formed clap boxes (callers validate first).
func New(num, den int64) Fraction {
	if den == 0 {
		panic("fraction: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	return Fraction{Num: num, Den: den}
}

func (f Fraction) bigNum() *big.Int { return big.NewInt(f.Num) }
func (f Fraction) bigDen() *big.Int { return big.NewInt(f.Den) }

// Add returns f+g, computed over arbitrary-precision integers so that a long
// chain of additions (as clap arithmetic can produce) never overflows or
// rounds early.
func (f Fraction) Add(g Fraction) Fraction {
	if f.Den == g.Den {
		return Fraction{Num: f.Num + g.Num, Den: f.Den}
	}
	n := new(big.Int).Add(
		new(big.Int).Mul(f.bigNum(), g.bigDen()),
		new(big.Int).Mul(g.bigNum(), f.bigDen()),
	)
	d := new(big.Int).Mul(f.bigDen(), g.bigDen())
	return reduce(n, d)
}

// Sub returns f-g.
func (f Fraction) Sub(g Fraction) Fraction {
	return f.Add(Fraction{Num: -g.Num, Den: g.Den})
}

// DivScalar returns f/k.
func (f Fraction) DivScalar(k int64) Fraction {
	return New(f.Num, f.Den*k)
}

func reduce(n, d *big.Int) Fraction {
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Sign() != 0 {
		n.Quo(n, g)
		d.Quo(d, g)
	}
	return Fraction{Num: n.Int64(), Den: d.Int64()}
}

// RoundDown returns floor(Num/Den).
func (f Fraction) RoundDown() int64 {
	n, d := big.NewInt(f.Num), big.NewInt(f.Den)
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(n, d, r)
	if r.Sign() != 0 && (r.Sign() < 0) != (d.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q.Int64()
}

// RoundUp returns ceil(Num/Den).
func (f Fraction) RoundUp() int64 {
	down := f.RoundDown()
	if (Fraction{Num: down, Den: 1}).Equal(f) {
		return down
	}
	return down + 1
}

// RoundNearest rounds to the nearest integer, ties away from zero.
func (f Fraction) RoundNearest() int64 {
	if f.Den == 1 {
		return f.Num
	}
	half := Fraction{Num: 1, Den: 2}
	if f.Num < 0 {
		return -Fraction{Num: -f.Num, Den: f.Den}.Add(half).RoundDown()
	}
	return f.Add(half).RoundDown()
}

// Equal reports exact equality after reduction.
func (f Fraction) Equal(g Fraction) bool {
	a := reduce(f.bigNum(), f.bigDen())
	b := reduce(g.bigNum(), g.bigDen())
	return a.Num == b.Num && a.Den == b.Den
}

// Float64 is a lossy conversion, useful only for logging/debugging.
func (f Fraction) Float64() float64 {
	return float64(f.Num) / float64(f.Den)
}
