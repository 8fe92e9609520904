// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package numcodec implements the canonical lexicographic encoding of
// numbers described in spec §4.3: byte-wise `<` on the encoded form
// must equal mathematical `<` on the value, across Int, Float and
// Decimal alike, so that index keys built by concatenating encoded
// numbers sort correctly without a secondary comparator.
//
// Layout per non-zero finite value, after the 1-byte class marker:
//
//	[2-byte biased scale][packed base-10 digit bytes...][0x00 terminator][0x00 trailing]
//
// For negative values every byte after the class marker is bitwise
// complemented (XOR 0xff): this both reverses the scale/digit
// comparison (larger magnitude => smaller encoded bytes, matching
// "more negative sorts first") and turns the terminator into the
// correct prefix sentinel under the reversed order, as derived in
// DESIGN.md.
package numcodec

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// classes, in ascending sort order. NaN is pinned as the smallest
// possible value (an arbitrary but fixed choice, recorded in
// DESIGN.md) and +Inf as the largest.
const (
	classNaN byte = iota
	classNegInf
	classNeg
	classZero
	classPos
	classPosInf
)

// scaleBias centers the 2-byte scale field so small negative scales
// (fractions) still encode to a non-negative uint16.
const scaleBias = 1 << 15

// digitShift offsets every packed digit-pair byte by 1 so that 0x00 is
// never a legal digit byte and can serve as the unambiguous
// end-of-digits terminator (see package doc).
const digitShift = 1

// Kind distinguishes which Go representation a Number was built from.
// Encoding never preserves Kind (spec §4.3); it exists only so callers
// can construct a Number without picking a union member by hand.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindDecimal
)

// Number is the tagged value numcodec encodes and decodes. Exactly one
// of I, F, D is meaningful, selected by Kind.
type Number struct {
	Kind Kind
	I    int64
	F    float64
	D    decimal.Decimal
}

func FromInt(i int64) Number    { return Number{Kind: KindInt, I: i} }
func FromFloat(f float64) Number { return Number{Kind: KindFloat, F: f} }
func FromDecimal(d decimal.Decimal) Number { return Number{Kind: KindDecimal, D: d} }

// AsDecimal converts the Number to its decimal.Decimal equivalent,
// also reporting NaN/+Inf/-Inf for the Float variant since decimal has
// no such states. Callers needing an int64 back out of a decoded
// Number (e.g. keycodec's RecordIdKey.Int) use AsDecimal().IntPart().
func (n Number) AsDecimal() (d decimal.Decimal, nan, posInf, negInf bool) {
	return n.asDecimal()
}

func (n Number) asDecimal() (d decimal.Decimal, nan, posInf, negInf bool) {
	switch n.Kind {
	case KindInt:
		return decimal.NewFromInt(n.I), false, false, false
	case KindFloat:
		switch {
		case math.IsNaN(n.F):
			return decimal.Zero, true, false, false
		case math.IsInf(n.F, 1):
			return decimal.Zero, false, true, false
		case math.IsInf(n.F, -1):
			return decimal.Zero, false, false, true
		default:
			return decimal.NewFromFloat(n.F), false, false, false
		}
	case KindDecimal:
		return n.D, false, false, false
	default:
		return decimal.Zero, false, false, false
	}
}

// Encode produces the order-preserving byte encoding of n.
func Encode(n Number) []byte {
	d, nan, posInf, negInf := n.asDecimal()
	switch {
	case nan:
		return []byte{classNaN}
	case posInf:
		return []byte{classPosInf}
	case negInf:
		return []byte{classNegInf}
	case d.IsZero():
		return []byte{classZero}
	}

	neg := d.Sign() < 0
	digits, scale := normalize(d)

	body := make([]byte, 0, 2+len(digits)/2+2)
	biased := uint16(scale + scaleBias)
	body = append(body, byte(biased>>8), byte(biased))
	body = append(body, packDigits(digits)...)
	body = append(body, 0x00, 0x00) // terminator + trailing zero

	if neg {
		for i := range body {
			body[i] ^= 0xff
		}
		return append([]byte{classNeg}, body...)
	}
	return append([]byte{classPos}, body...)
}

// Decode recovers a Number from its encoded form. Finite values
// decode to KindDecimal (exact, since our biased scale comfortably
// fits decimal's int32 exponent); NaN and +-Inf decode to KindFloat.
func Decode(enc []byte) (Number, error) {
	if len(enc) == 0 {
		return Number{}, errInvalid("empty encoding")
	}
	switch enc[0] {
	case classNaN:
		return FromFloat(math.NaN()), nil
	case classPosInf:
		return FromFloat(math.Inf(1)), nil
	case classNegInf:
		return FromFloat(math.Inf(-1)), nil
	case classZero:
		return FromDecimal(decimal.Zero), nil
	case classPos, classNeg:
		body := append([]byte(nil), enc[1:]...)
		neg := enc[0] == classNeg
		if neg {
			for i := range body {
				body[i] ^= 0xff
			}
		}
		if len(body) < 4 {
			return Number{}, errInvalid("truncated numeric body")
		}
		biased := uint16(body[0])<<8 | uint16(body[1])
		scale := int(biased) - scaleBias
		digits, err := unpackDigits(body[2:])
		if err != nil {
			return Number{}, err
		}
		exp := scale - len(digits)
		coeff := new(big.Int)
		coeff.SetString(digits, 10)
		if neg {
			coeff.Neg(coeff)
		}
		if exp < math.MinInt32 || exp > math.MaxInt32 {
			f, _ := decimal.NewFromBigInt(coeff, int32(0)).Float64()
			return FromFloat(f * math.Pow10(exp)), nil
		}
		return FromDecimal(decimal.NewFromBigInt(coeff, int32(exp))), nil
	default:
		return Number{}, errInvalid("unknown class marker")
	}
}

// Less reports whether a sorts before b, purely by comparing their
// encodings byte-wise, matching the guarantee the index keys rely on.
func Less(a, b Number) bool {
	ea, eb := Encode(a), Encode(b)
	for i := 0; i < len(ea) && i < len(eb); i++ {
		if ea[i] != eb[i] {
			return ea[i] < eb[i]
		}
	}
	return len(ea) < len(eb)
}

// Equal reports numeric equality across variants (spec §3: Int 0,
// Float 0.0, Decimal 0 are equal).
func Equal(a, b Number) bool {
	ea, eb := Encode(a), Encode(b)
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false
		}
	}
	return true
}

// normalize strips trailing zero digits from d's coefficient (so two
// representations of the same value, e.g. 1 and 1.00, encode
// identically) and returns the digit string plus the power-of-ten
// position of its most significant digit.
func normalize(d decimal.Decimal) (digits string, scale int) {
	coeff := new(big.Int).Abs(d.Coefficient())
	s := coeff.String()
	exp := int(d.Exponent())
	end := len(s)
	for end > 1 && s[end-1] == '0' {
		end--
		exp++
	}
	s = s[:end]
	return s, exp + len(s)
}

func packDigits(digits string) []byte {
	if len(digits)%2 != 0 {
		digits += "0"
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v := int(digits[i]-'0')*10 + int(digits[i+1]-'0')
		out = append(out, byte(v)+digitShift)
	}
	return out
}

func unpackDigits(body []byte) (string, error) {
	buf := make([]byte, 0, len(body)*2)
	for _, b := range body {
		if b == 0x00 {
			// terminator (+ trailing zero byte, ignored)
			return string(buf), nil
		}
		v := int(b) - digitShift
		if v < 0 || v > 99 {
			return "", errInvalid("digit byte out of range")
		}
		buf = append(buf, byte('0'+v/10), byte('0'+v%10))
	}
	return "", errInvalid("missing terminator")
}

type invalidEncodingError string

func (e invalidEncodingError) Error() string { return "numcodec: invalid encoding: " + string(e) }

func errInvalid(msg string) error { return invalidEncodingError(msg) }
