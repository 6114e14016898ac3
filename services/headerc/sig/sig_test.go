// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headwindhq/headwind/services/headerc/sym"
)

// boundsEnv erases variables to fixed bounds.
type boundsEnv map[string]sym.Type

func (e boundsEnv) Erasure(v sym.TyVarSymbol) sym.Type {
	return e[v.Name]
}

func number() sym.Type { return sym.AsNonParameterizedClassTy("java/lang/Number") }

func TestDescriptors(t *testing.T) {
	tests := []struct {
		name string
		ty   sym.Type
		want string
	}{
		{"int", sym.PrimTy{Kind: sym.Int}, "I"},
		{"boolean", sym.PrimTy{Kind: sym.Boolean}, "Z"},
		{"long", sym.PrimTy{Kind: sym.Long}, "J"},
		{"void", sym.VoidTy{}, "V"},
		{"class", sym.AsNonParameterizedClassTy("java/lang/String"), "Ljava/lang/String;"},
		{"array", sym.ArrayTy{Elem: sym.PrimTy{Kind: sym.Byte}}, "[B"},
		{"array_of_array", sym.ArrayTy{Elem: sym.ArrayTy{Elem: sym.PrimTy{Kind: sym.Int}}}, "[[I"},
		{
			"parameterized_erases_raw",
			sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/List", Args: []sym.Type{sym.AsNonParameterizedClassTy("java/lang/String")}}),
			"Ljava/util/List;",
		},
		{"unbounded_tyvar", sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/C", Name: "T"}}, "Ljava/lang/Object;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Descriptor(tt.ty, nil))
		})
	}
}

func TestTyVarErasesToLeftmostBound(t *testing.T) {
	env := boundsEnv{"T": number()}
	got := Descriptor(sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/L", Name: "T"}}, env)
	assert.Equal(t, "Ljava/lang/Number;", got)
}

func TestMethodDescriptor(t *testing.T) {
	got := MethodDescriptor(
		[]sym.Type{sym.PrimTy{Kind: sym.Int}, sym.AsNonParameterizedClassTy("java/lang/String")},
		sym.VoidTy{},
		nil,
	)
	assert.Equal(t, "(ILjava/lang/String;)V", got)
}

func TestClassSignature(t *testing.T) {
	// class L<T extends Number> extends Object
	got := ClassSignature(
		[]TyParamInfo{{Name: "T", ClassBound: number()}},
		sym.AsNonParameterizedClassTy(sym.ObjectClass),
		nil,
	)
	assert.Equal(t, "<T:Ljava/lang/Number;>Ljava/lang/Object;", got)
}

func TestClassSignatureInterfaceBound(t *testing.T) {
	// <T::Ljava/lang/Runnable;> — empty class bound before interface bounds.
	got := ClassSignature(
		[]TyParamInfo{{Name: "T", IntfBounds: []sym.Type{sym.AsNonParameterizedClassTy("java/lang/Runnable")}}},
		sym.AsNonParameterizedClassTy(sym.ObjectClass),
		nil,
	)
	assert.Equal(t, "<T::Ljava/lang/Runnable;>Ljava/lang/Object;", got)
}

func TestFieldSignature(t *testing.T) {
	tv := sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/L", Name: "T"}}
	assert.Equal(t, "TT;", FieldSignature(tv))

	list := sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/List", Args: []sym.Type{tv}})
	assert.Equal(t, "Ljava/util/List<TT;>;", FieldSignature(list))

	wild := sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/List", Args: []sym.Type{sym.WildTy{Kind: sym.WildExtendsBound, Bound: number()}}})
	assert.Equal(t, "Ljava/util/List<+Ljava/lang/Number;>;", FieldSignature(wild))
}

func TestInnerClassSignature(t *testing.T) {
	// Outer<String>.Inner keeps the argument on the outer segment.
	ty := sym.AsClassTy(
		sym.ClassTySeg{Sym: "p/Outer", Args: []sym.Type{sym.AsNonParameterizedClassTy("java/lang/String")}},
		sym.ClassTySeg{Sym: "p/Outer$Inner"},
	)
	assert.Equal(t, "Lp/Outer<Ljava/lang/String;>.Inner;", FieldSignature(ty))
}

func TestNeedsSignature(t *testing.T) {
	assert.False(t, NeedsSignature(sym.PrimTy{Kind: sym.Int}))
	assert.False(t, NeedsSignature(sym.AsNonParameterizedClassTy("java/lang/String")))
	assert.True(t, NeedsSignature(sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/C", Name: "T"}}))
	assert.True(t, NeedsSignature(sym.ArrayTy{Elem: sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/C", Name: "T"}}}))
	assert.True(t, NeedsSignature(sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/List", Args: []sym.Type{number()}})))
}

func TestSignatureRoundTrip(t *testing.T) {
	owner := sym.ClassSymbol("p/L")
	tests := []sym.Type{
		sym.TyVar{Sym: sym.TyVarSymbol{Owner: owner, Name: "T"}},
		sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/List", Args: []sym.Type{sym.TyVar{Sym: sym.TyVarSymbol{Owner: owner, Name: "T"}}}}),
		sym.ArrayTy{Elem: sym.AsClassTy(sym.ClassTySeg{Sym: "java/util/Map", Args: []sym.Type{
			sym.AsNonParameterizedClassTy("java/lang/String"),
			sym.WildTy{Kind: sym.WildSuperBound, Bound: sym.AsNonParameterizedClassTy("java/lang/Integer")},
		}})},
		sym.AsClassTy(
			sym.ClassTySeg{Sym: "p/Outer", Args: []sym.Type{sym.AsNonParameterizedClassTy("java/lang/String")}},
			sym.ClassTySeg{Sym: "p/Outer$Inner"},
		),
	}
	for _, ty := range tests {
		encoded := FieldSignature(ty)
		decoded, err := ParseFieldSignature(encoded, owner)
		require.NoError(t, err, encoded)
		assert.Equal(t, ty, decoded, encoded)
	}
}

func TestParseClassSignature(t *testing.T) {
	cs, err := ParseClassSignature("<T:Ljava/lang/Number;>Ljava/lang/Object;Ljava/lang/Runnable;", "p/L")
	require.NoError(t, err)
	require.Len(t, cs.TyParams, 1)
	assert.Equal(t, "T", cs.TyParams[0].Name)
	assert.Equal(t, number(), cs.TyParams[0].ClassBound)
	assert.Equal(t, sym.AsNonParameterizedClassTy(sym.ObjectClass), cs.Super)
	require.Len(t, cs.Interfaces, 1)
}

func TestParseMethodDescriptor(t *testing.T) {
	params, ret, err := ParseMethodDescriptor("(I[Ljava/lang/String;J)V")
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, sym.PrimTy{Kind: sym.Int}, params[0])
	assert.Equal(t, sym.ArrayTy{Elem: sym.AsNonParameterizedClassTy("java/lang/String")}, params[1])
	assert.Equal(t, sym.PrimTy{Kind: sym.Long}, params[2])
	assert.Equal(t, sym.VoidTy{}, ret)
}

func TestMethodSignature(t *testing.T) {
	tv := sym.TyVar{Sym: sym.TyVarSymbol{Owner: "p/C", Name: "X"}}
	got := MethodSignature(
		[]TyParamInfo{{Name: "X"}},
		[]sym.Type{tv},
		tv,
		nil,
	)
	assert.Equal(t, "<X:Ljava/lang/Object;>(TX;)TX;", got)
}

func TestMalformedSignatures(t *testing.T) {
	_, err := ParseFieldSignature("Ljava/lang/String", "p/C")
	require.Error(t, err)
	_, err = ParseFieldSignature("Q", "p/C")
	require.Error(t, err)
	_, err = ParseDescriptor("[V")
	require.Error(t, err)
}
