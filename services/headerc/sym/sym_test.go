// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassSymbolNames(t *testing.T) {
	s := ClassSymbol("com/example/Outer$Inner")
	assert.Equal(t, "Inner", s.Simple())
	assert.Equal(t, "com/example", s.PackageName())
	assert.Equal(t, "com.example.Outer.Inner", s.Dotted())
	assert.Equal(t, ClassSymbol("com/example/Outer$Inner$Deep"), s.Nest("Deep"))

	top := ClassSymbol("Unpackaged")
	assert.Equal(t, "Unpackaged", top.Simple())
	assert.Equal(t, "", top.PackageName())
}

func TestSymbolsAreValueEqual(t *testing.T) {
	a := FieldSymbol{Owner: "p/C", Name: "f"}
	b := FieldSymbol{Owner: "p/C", Name: "f"}
	assert.Equal(t, a, b)

	m1 := MethodSymbol{Owner: "p/C", Name: "f", Key: "()V"}
	m2 := MethodSymbol{Owner: "p/C", Name: "f", Key: "(I)V"}
	assert.NotEqual(t, m1, m2, "overloads are distinct by key")
}

func TestClassTyFactories(t *testing.T) {
	raw := AsNonParameterizedClassTy("java/lang/String")
	assert.Len(t, raw.Segments, 1)
	assert.Equal(t, ClassSymbol("java/lang/String"), raw.Sym())
	assert.False(t, raw.IsParameterized())

	nested := AsClassTy(
		ClassTySeg{Sym: "p/Outer", Args: []Type{AsNonParameterizedClassTy("java/lang/String")}},
		ClassTySeg{Sym: "p/Outer$Inner"},
	)
	assert.Equal(t, ClassSymbol("p/Outer$Inner"), nested.Sym())
	assert.True(t, nested.IsParameterized())
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "int", PrimTy{Kind: Int}.String())
	assert.Equal(t, "void", VoidTy{}.String())
	assert.Equal(t, "java.lang.String[]", ArrayTy{Elem: AsNonParameterizedClassTy("java/lang/String")}.String())
	assert.Equal(t, "?", WildTy{}.String())
	assert.Equal(t, "? extends java.lang.Number",
		WildTy{Kind: WildExtendsBound, Bound: AsNonParameterizedClassTy("java/lang/Number")}.String())
	assert.Equal(t, "T", TyVar{Sym: TyVarSymbol{Owner: "p/C", Name: "T"}}.String())
}

func TestConstStrings(t *testing.T) {
	assert.Equal(t, "42", IntConst(42).String())
	assert.Equal(t, "9L", LongConst(9).String())
	assert.Equal(t, "true", BoolConst(true).String())
	assert.Equal(t, "2.5", DoubleConst(2.5).String())
	assert.Equal(t, "1.0", DoubleConst(1).String(), "whole doubles keep a decimal point")
	assert.Equal(t, "p.E.X", EnumConst{Sym: "p/E", Name: "X"}.String())
	assert.Equal(t, "{1, 2}", ArrayConst{Elems: []Const{IntConst(1), IntConst(2)}}.String())
}

func TestAnnoInfoElement(t *testing.T) {
	info := AnnoInfo{
		Sym: "p/R",
		Elements: []AnnoElement{
			{Name: "value", Value: IntConst(1)},
			{Name: "count", Value: IntConst(2)},
		},
	}
	v, ok := info.Element("count")
	assert.True(t, ok)
	assert.Equal(t, IntConst(2), v)
	_, ok = info.Element("missing")
	assert.False(t, ok)
}
