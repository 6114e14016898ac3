// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// fakeEnv resolves names from a fixed table and types from a fixed
// mapping of simple names.
type fakeEnv struct {
	consts  map[string]sym.Const
	blocked map[string]sym.FieldSymbol
}

func (f *fakeEnv) ResolveConst(pos ast.Pos, parts []string) (sym.Const, error) {
	key := parts[len(parts)-1]
	if dep, ok := f.blocked[key]; ok {
		return nil, &BlockedError{Dep: dep}
	}
	if v, ok := f.consts[key]; ok {
		return v, nil
	}
	return nil, notConst(pos, "cannot resolve %s", key)
}

func (f *fakeEnv) ResolveTy(t ast.Ty) (sym.Type, error) {
	switch v := t.(type) {
	case *ast.PrimT:
		switch v.Kind {
		case ast.PrimByte:
			return sym.PrimTy{Kind: sym.Byte}, nil
		case ast.PrimChar:
			return sym.PrimTy{Kind: sym.Char}, nil
		case ast.PrimShort:
			return sym.PrimTy{Kind: sym.Short}, nil
		case ast.PrimInt:
			return sym.PrimTy{Kind: sym.Int}, nil
		case ast.PrimLong:
			return sym.PrimTy{Kind: sym.Long}, nil
		case ast.PrimFloat:
			return sym.PrimTy{Kind: sym.Float}, nil
		case ast.PrimDouble:
			return sym.PrimTy{Kind: sym.Double}, nil
		default:
			return sym.PrimTy{Kind: sym.Boolean}, nil
		}
	case *ast.ClassT:
		if v.Segments[len(v.Segments)-1].Name == "String" {
			return sym.AsNonParameterizedClassTy(sym.StringClass), nil
		}
	}
	return sym.ErrTy{}, nil
}

func (f *fakeEnv) ResolveAnno(a *ast.Anno) (sym.AnnoInfo, error) {
	return sym.AnnoInfo{Sym: "test/Anno"}, nil
}

func lit(kind ast.LitKind, text string) *ast.Literal {
	return &ast.Literal{Kind: kind, Text: text}
}

func intLit(text string) *ast.Literal { return lit(ast.LitInt, text) }

func bin(op ast.BinOp, l, r ast.Expr) *ast.Binary {
	return &ast.Binary{Op: op, L: l, R: r}
}

func mustEval(t *testing.T, e ast.Expr) sym.Const {
	t.Helper()
	v, err := Evaluate(e, &fakeEnv{})
	require.NoError(t, err)
	return v
}

func TestLiteralNormalization(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want sym.Const
	}{
		{"decimal", intLit("42"), sym.IntConst(42)},
		{"hex", intLit("0xFF"), sym.IntConst(255)},
		{"hex_wrap", intLit("0xFFFFFFFF"), sym.IntConst(-1)},
		{"octal", intLit("0777"), sym.IntConst(511)},
		{"binary", intLit("0b1010"), sym.IntConst(10)},
		{"underscores", intLit("1_000_000"), sym.IntConst(1000000)},
		{"long_suffix", intLit("9999999999L"), sym.LongConst(9999999999)},
		{"float_suffix", lit(ast.LitFloat, "1.5f"), sym.FloatConst(1.5)},
		{"double", lit(ast.LitFloat, "2.5"), sym.DoubleConst(2.5)},
		{"double_suffix", lit(ast.LitFloat, "2.5d"), sym.DoubleConst(2.5)},
		{"char", lit(ast.LitChar, `'a'`), sym.CharConst('a')},
		{"char_escape", lit(ast.LitChar, `'\n'`), sym.CharConst('\n')},
		{"char_unicode", lit(ast.LitChar, "'\\u0041'"), sym.CharConst('A')},
		{"string", lit(ast.LitString, `"hi"`), sym.StringConst("hi")},
		{"string_escape", lit(ast.LitString, `"a\tb"`), sym.StringConst("a\tb")},
		{"bool", lit(ast.LitBool, "true"), sym.BoolConst(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustEval(t, tt.expr))
		})
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		want sym.Const
	}{
		{"precedence_folds", bin(ast.BinAdd, intLit("1"), bin(ast.BinMul, intLit("2"), intLit("3"))), sym.IntConst(7)},
		{"int_overflow_wraps", bin(ast.BinAdd, intLit("2147483647"), intLit("1")), sym.IntConst(-2147483648)},
		{"int_mul_wraps", bin(ast.BinMul, intLit("65536"), intLit("65536")), sym.IntConst(0)},
		{"long_promotion", bin(ast.BinAdd, intLit("2147483647"), intLit("1L")), sym.LongConst(2147483648)},
		{"division", bin(ast.BinDiv, intLit("7"), intLit("2")), sym.IntConst(3)},
		{"modulo_sign", bin(ast.BinMod, &ast.Unary{Op: ast.UnNeg, E: intLit("7")}, intLit("2")), sym.IntConst(-1)},
		{"neg", &ast.Unary{Op: ast.UnNeg, E: intLit("5")}, sym.IntConst(-5)},
		{"bitnot", &ast.Unary{Op: ast.UnBitNot, E: intLit("0")}, sym.IntConst(-1)},
		{"double_div", bin(ast.BinDiv, lit(ast.LitFloat, "1.0"), lit(ast.LitFloat, "4.0")), sym.DoubleConst(0.25)},
		{"mixed_float", bin(ast.BinMul, intLit("2"), lit(ast.LitFloat, "1.5f")), sym.FloatConst(3)},
		{"char_arith", bin(ast.BinAdd, lit(ast.LitChar, `'a'`), intLit("1")), sym.IntConst('b')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustEval(t, tt.expr))
		})
	}
}

func TestShiftsMaskTheCount(t *testing.T) {
	assert.Equal(t, sym.IntConst(2), mustEval(t, bin(ast.BinShl, intLit("1"), intLit("33"))))
	assert.Equal(t, sym.LongConst(2), mustEval(t, bin(ast.BinShl, intLit("1L"), intLit("65"))))
	assert.Equal(t, sym.IntConst(2147483647), mustEval(t, bin(ast.BinUshr, intLit("0xFFFFFFFF"), intLit("1"))))
	assert.Equal(t, sym.IntConst(-1), mustEval(t, bin(ast.BinShr, intLit("0xFFFFFFFF"), intLit("1"))))
}

func TestBooleansAndComparisons(t *testing.T) {
	assert.Equal(t, sym.BoolConst(true), mustEval(t, bin(ast.BinLt, intLit("1"), intLit("2"))))
	assert.Equal(t, sym.BoolConst(false), mustEval(t, bin(ast.BinLogAnd, lit(ast.LitBool, "true"), lit(ast.LitBool, "false"))))
	assert.Equal(t, sym.BoolConst(true), mustEval(t, bin(ast.BinXor, lit(ast.LitBool, "true"), lit(ast.LitBool, "false"))))
	assert.Equal(t, sym.BoolConst(true), mustEval(t, bin(ast.BinEq, lit(ast.LitString, `"a"`), lit(ast.LitString, `"a"`))))
	assert.Equal(t, sym.BoolConst(true), mustEval(t, bin(ast.BinNe, lit(ast.LitString, `"a"`), lit(ast.LitString, `"b"`))))
}

func TestTernary(t *testing.T) {
	cond := &ast.Cond{
		C: bin(ast.BinGt, intLit("2"), intLit("1")),
		T: intLit("10"),
		F: intLit("20"),
	}
	assert.Equal(t, sym.IntConst(10), mustEval(t, cond))
}

func TestStringConcat(t *testing.T) {
	concat := bin(ast.BinAdd, lit(ast.LitString, `"n="`), intLit("42"))
	assert.Equal(t, sym.StringConst("n=42"), mustEval(t, concat))

	longConcat := bin(ast.BinAdd, lit(ast.LitString, `"v="`), intLit("7L"))
	assert.Equal(t, sym.StringConst("v=7"), mustEval(t, longConcat))

	charConcat := bin(ast.BinAdd, lit(ast.LitChar, `'x'`), lit(ast.LitString, `"!"`))
	assert.Equal(t, sym.StringConst("x!"), mustEval(t, charConcat))

	boolConcat := bin(ast.BinAdd, lit(ast.LitString, `"b="`), lit(ast.LitBool, "true"))
	assert.Equal(t, sym.StringConst("b=true"), mustEval(t, boolConcat))
}

func TestCasts(t *testing.T) {
	cast := &ast.Cast{Type: &ast.PrimT{Kind: ast.PrimByte}, E: intLit("300")}
	assert.Equal(t, sym.ByteConst(44), mustEval(t, cast))

	toChar := &ast.Cast{Type: &ast.PrimT{Kind: ast.PrimChar}, E: intLit("65")}
	assert.Equal(t, sym.CharConst('A'), mustEval(t, toChar))

	truncate := &ast.Cast{Type: &ast.PrimT{Kind: ast.PrimInt}, E: lit(ast.LitFloat, "3.9")}
	assert.Equal(t, sym.IntConst(3), mustEval(t, truncate))
}

func TestBlockedDependencySurfaces(t *testing.T) {
	env := &fakeEnv{blocked: map[string]sym.FieldSymbol{
		"OTHER": {Owner: "p/C", Name: "OTHER"},
	}}
	_, err := Evaluate(bin(ast.BinAdd, intLit("1"), &ast.NameRef{Parts: []string{"OTHER"}}), env)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, sym.FieldSymbol{Owner: "p/C", Name: "OTHER"}, blocked.Dep)
}

func TestNonConstReports(t *testing.T) {
	_, err := Evaluate(&ast.NonConst{Desc: "method invocation"}, &fakeEnv{})
	var nc *NotConstantError
	require.ErrorAs(t, err, &nc)
	assert.Contains(t, nc.Desc, "method invocation")

	_, err = Evaluate(bin(ast.BinDiv, intLit("1"), intLit("0")), &fakeEnv{})
	require.ErrorAs(t, err, &nc)
}

func TestCoerce(t *testing.T) {
	v, ok := Coerce(sym.IntConst(7), sym.PrimTy{Kind: sym.Byte})
	require.True(t, ok)
	assert.Equal(t, sym.ByteConst(7), v)

	_, ok = Coerce(sym.IntConst(300), sym.PrimTy{Kind: sym.Byte})
	assert.False(t, ok)

	v, ok = Coerce(sym.IntConst(7), sym.PrimTy{Kind: sym.Long})
	require.True(t, ok)
	assert.Equal(t, sym.LongConst(7), v)

	v, ok = Coerce(sym.StringConst("s"), sym.AsNonParameterizedClassTy(sym.StringClass))
	require.True(t, ok)
	assert.Equal(t, sym.StringConst("s"), v)
}
