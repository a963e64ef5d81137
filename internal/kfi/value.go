package kfi

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value is a number that may be undefined. Arithmetic on an undefined
// operand, division by zero and non-finite results all yield Undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the sentinel for a ratio with no meaningful value
var Undefined = Value{}

// Defined wraps v, mapping NaN and infinities to Undefined
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{v: v, ok: true}
}

// IsDefined reports whether the value holds a finite number
func (a Value) IsDefined() bool { return a.ok }

// Float returns the number and whether it is defined
func (a Value) Float() (float64, bool) { return a.v, a.ok }

func (a Value) Add(b Value) Value {
	if !a.ok || !b.ok {
		return Undefined
	}
	return Defined(a.v + b.v)
}

func (a Value) Sub(b Value) Value {
	if !a.ok || !b.ok {
		return Undefined
	}
	return Defined(a.v - b.v)
}

func (a Value) Mul(b Value) Value {
	if !a.ok || !b.ok {
		return Undefined
	}
	return Defined(a.v * b.v)
}

func (a Value) Div(b Value) Value {
	if !a.ok || !b.ok || b.v == 0 {
		return Undefined
	}
	return Defined(a.v / b.v)
}

func (a Value) Abs() Value {
	if !a.ok {
		return Undefined
	}
	return Defined(math.Abs(a.v))
}

// Round rounds half-to-even to the given number of decimal places
func (a Value) Round(places int32) Value {
	if !a.ok {
		return Undefined
	}
	r := decimal.NewFromFloat(a.v).RoundBank(places).InexactFloat64()
	if r == 0 {
		r = 0 // no negative zero in output
	}
	return Defined(r)
}

// Format renders the value in its shortest form, or token when undefined
func (a Value) Format(token string) string {
	if !a.ok {
		return token
	}
	return strconv.FormatFloat(a.v, 'f', -1, 64)
}
