// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package fixedpoint implements the signed 17.14 fixed-point format used by
// the MLFQS scheduler for load-average and recent-CPU arithmetic.
//
// A value of type T represents the real number x/2^14, where x is the
// underlying int64. Addition and subtraction between two T values, or
// between a T and an int, are native integer operations; multiplication
// and division widen to 64 bits before rescaling so that intermediate
// products never lose precision relative to the 17.14 split.
package fixedpoint

// shift is the number of fractional bits (the ".14" in 17.14).
const shift = 14

// scale is 2^14, the conversion factor between an int and a T.
const scale = 1 << shift

// T is a signed 17.14 fixed-point value.
type T int64

// Zero is the fixed-point representation of 0.
const Zero T = 0

// FromInt converts an integer to fixed-point.
func FromInt(n int) T {
	return T(n) * scale
}

// ToIntTrunc converts a fixed-point value to an integer, truncating toward zero.
func (x T) ToIntTrunc() int {
	return int(x / scale)
}

// ToIntRound converts a fixed-point value to an integer, rounding to the
// nearest integer with ties broken away from zero.
func (x T) ToIntRound() int {
	if x >= 0 {
		return int((x + scale/2) / scale)
	}
	return int((x - scale/2) / scale)
}

// Add returns x+y.
func (x T) Add(y T) T {
	return x + y
}

// Sub returns x-y.
func (x T) Sub(y T) T {
	return x - y
}

// AddInt returns x+n.
func (x T) AddInt(n int) T {
	return x + FromInt(n)
}

// SubInt returns x-n.
func (x T) SubInt(n int) T {
	return x - FromInt(n)
}

// Mul returns x*y, widening to 64 bits before rescaling.
//
// x and y are both already scaled by 2^14, so their raw product is scaled
// by 2^28; dividing back down by 2^14 restores a 17.14 result.
func (x T) Mul(y T) T {
	return T((int64(x) * int64(y)) / scale)
}

// MulInt returns x*n (n is a plain integer, not fixed-point).
func (x T) MulInt(n int) T {
	return x * T(n)
}

// Div returns x/y, widening to 64 bits before rescaling.
func (x T) Div(y T) T {
	return T((int64(x) * scale) / int64(y))
}

// DivInt returns x/n (n is a plain integer, not fixed-point).
func (x T) DivInt(n int) T {
	return x / T(n)
}

// Neg returns -x.
func (x T) Neg() T {
	return -x
}
