// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package constant

import (
	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// promoted is a constant after unary numeric promotion: byte, short,
// and char widen to int, so only four numeric carriers remain.
type promoted struct {
	kind sym.PrimKind // Int, Long, Float, or Double
	i    int64        // value for Int (as int32) and Long
	f    float64      // value for Float (as float32) and Double
}

// promote applies unary numeric promotion. ok is false for
// non-numeric constants.
func promote(c sym.Const) (promoted, bool) {
	switch v := c.(type) {
	case sym.ByteConst:
		return promoted{kind: sym.Int, i: int64(v)}, true
	case sym.ShortConst:
		return promoted{kind: sym.Int, i: int64(v)}, true
	case sym.CharConst:
		return promoted{kind: sym.Int, i: int64(v)}, true
	case sym.IntConst:
		return promoted{kind: sym.Int, i: int64(v)}, true
	case sym.LongConst:
		return promoted{kind: sym.Long, i: int64(v)}, true
	case sym.FloatConst:
		return promoted{kind: sym.Float, f: float64(v)}, true
	case sym.DoubleConst:
		return promoted{kind: sym.Double, f: float64(v)}, true
	default:
		return promoted{}, false
	}
}

// widen converts a promoted value to a wider numeric kind.
func (p promoted) widen(kind sym.PrimKind) promoted {
	if p.kind == kind {
		return p
	}
	out := promoted{kind: kind}
	switch kind {
	case sym.Long:
		out.i = p.i
	case sym.Float, sym.Double:
		if p.kind == sym.Float || p.kind == sym.Double {
			out.f = p.f
		} else {
			out.f = float64(p.i)
		}
		if kind == sym.Float {
			out.f = float64(float32(out.f))
		}
	}
	return out
}

// value materializes the promoted result as a Const.
func (p promoted) value() sym.Const {
	switch p.kind {
	case sym.Int:
		return sym.IntConst(int32(p.i))
	case sym.Long:
		return sym.LongConst(p.i)
	case sym.Float:
		return sym.FloatConst(float32(p.f))
	default:
		return sym.DoubleConst(p.f)
	}
}

func (p promoted) isFloating() bool {
	return p.kind == sym.Float || p.kind == sym.Double
}

// binaryKind is the binary numeric promotion rule: the wider of the
// two operand kinds, floating beating integral.
func binaryKind(a, b sym.PrimKind) sym.PrimKind {
	rank := func(k sym.PrimKind) int {
		switch k {
		case sym.Double:
			return 3
		case sym.Float:
			return 2
		case sym.Long:
			return 1
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// Coerce applies assignment conversion of a constant to a declared
// primitive or String type: identity, widening, and the narrowing of
// int-kind constants whose value fits the target. ok is false when no
// conversion applies.
func Coerce(c sym.Const, target sym.Type) (sym.Const, bool) {
	switch t := target.(type) {
	case sym.PrimTy:
		return coercePrim(c, t.Kind)
	case sym.ClassTy:
		if t.Sym() == sym.StringClass {
			s, ok := c.(sym.StringConst)
			return s, ok
		}
	}
	return nil, false
}

func coercePrim(c sym.Const, kind sym.PrimKind) (sym.Const, bool) {
	if b, ok := c.(sym.BoolConst); ok {
		return b, kind == sym.Boolean
	}
	p, ok := promote(c)
	if !ok || kind == sym.Boolean {
		return nil, false
	}
	switch kind {
	case sym.Byte:
		if p.kind == sym.Int && p.i >= -128 && p.i <= 127 {
			return sym.ByteConst(int8(p.i)), true
		}
	case sym.Short:
		if p.kind == sym.Int && p.i >= -32768 && p.i <= 32767 {
			return sym.ShortConst(int16(p.i)), true
		}
	case sym.Char:
		if p.kind == sym.Int && p.i >= 0 && p.i <= 0xFFFF {
			return sym.CharConst(uint16(p.i)), true
		}
	case sym.Int:
		if p.kind == sym.Int {
			return sym.IntConst(int32(p.i)), true
		}
	case sym.Long:
		if p.kind == sym.Int || p.kind == sym.Long {
			return sym.LongConst(p.i), true
		}
	case sym.Float:
		switch p.kind {
		case sym.Int, sym.Long:
			return sym.FloatConst(float32(p.i)), true
		case sym.Float:
			return sym.FloatConst(float32(p.f)), true
		}
	case sym.Double:
		switch p.kind {
		case sym.Int, sym.Long:
			return sym.DoubleConst(float64(p.i)), true
		case sym.Float, sym.Double:
			return sym.DoubleConst(p.f), true
		}
	}
	// Re-coercing an already-narrow constant to its own kind.
	switch v := c.(type) {
	case sym.ByteConst:
		if kind == sym.Byte {
			return v, true
		}
	case sym.ShortConst:
		if kind == sym.Short {
			return v, true
		}
	case sym.CharConst:
		if kind == sym.Char {
			return v, true
		}
	}
	return nil, false
}

// castPrim applies a constant cast to a primitive kind: the explicit
// narrowing conversions that wrap in two's complement, plus the
// float-to-integral saturating conversions.
func castPrim(c sym.Const, kind sym.PrimKind, pos ast.Pos) (sym.Const, error) {
	if b, ok := c.(sym.BoolConst); ok {
		if kind == sym.Boolean {
			return b, nil
		}
		return nil, notConst(pos, "cannot cast boolean to %s", kind)
	}
	p, ok := promote(c)
	if !ok {
		return nil, notConst(pos, "cannot cast %T to %s", c, kind)
	}
	if kind == sym.Boolean {
		return nil, notConst(pos, "cannot cast %s to boolean", p.kind)
	}

	var i int64
	if p.isFloating() {
		i = floatToLong(p.f)
		if kind == sym.Int || kind == sym.Byte || kind == sym.Short || kind == sym.Char {
			i = int64(floatToInt(p.f))
		}
	} else {
		i = p.i
	}

	switch kind {
	case sym.Byte:
		return sym.ByteConst(int8(i)), nil
	case sym.Short:
		return sym.ShortConst(int16(i)), nil
	case sym.Char:
		return sym.CharConst(uint16(i)), nil
	case sym.Int:
		return sym.IntConst(int32(i)), nil
	case sym.Long:
		return sym.LongConst(i), nil
	case sym.Float:
		if p.isFloating() {
			return sym.FloatConst(float32(p.f)), nil
		}
		return sym.FloatConst(float32(p.i)), nil
	case sym.Double:
		if p.isFloating() {
			return sym.DoubleConst(p.f), nil
		}
		return sym.DoubleConst(float64(p.i)), nil
	}
	return nil, notConst(pos, "unsupported cast target %s", kind)
}

// floatToInt implements the platform's float-to-int conversion: NaN
// maps to zero, out-of-range values saturate.
func floatToInt(f float64) int32 {
	switch {
	case f != f:
		return 0
	case f >= 2147483647:
		return 2147483647
	case f <= -2147483648:
		return -2147483648
	default:
		return int32(f)
	}
}

// floatToLong is the long-width counterpart of floatToInt.
func floatToLong(f float64) int64 {
	switch {
	case f != f:
		return 0
	case f >= 9223372036854775807:
		return 9223372036854775807
	case f <= -9223372036854775808:
		return -9223372036854775808
	default:
		return int64(f)
	}
}
