// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/diag"
)

func parseOne(t *testing.T, src string) (*ast.CompUnit, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	unit, err := NewParser().Parse(context.Background(), []byte(src), "test.java", sink)
	require.NoError(t, err)
	require.NotNil(t, unit)
	return unit, sink
}

func TestParseSimpleClass(t *testing.T) {
	unit, sink := parseOne(t, `
package com.example;

public class A {
}
`)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, "com.example", unit.PackageName())
	require.Len(t, unit.Decls, 1)
	d := unit.Decls[0]
	assert.Equal(t, ast.TyKindClass, d.Kind)
	assert.Equal(t, "A", d.Name)
	assert.True(t, d.Mods.Has(ast.ModPublic))
	assert.Nil(t, d.Extends)
}

func TestParseImports(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

import java.util.List;
import java.util.*;
import static java.lang.Math.PI;

class C {}
`)
	require.Len(t, unit.Imports, 3)
	assert.Equal(t, []string{"java", "util", "List"}, unit.Imports[0].Name)
	assert.False(t, unit.Imports[0].Wildcard)
	assert.True(t, unit.Imports[1].Wildcard)
	assert.True(t, unit.Imports[2].Static)
	assert.Equal(t, []string{"java", "lang", "Math", "PI"}, unit.Imports[2].Name)
}

func TestParseExtendsAndImplements(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

class C extends Base implements I1, I2 {
}
`)
	d := unit.Decls[0]
	require.NotNil(t, d.Extends)
	ext, ok := d.Extends.(*ast.ClassT)
	require.True(t, ok)
	assert.Equal(t, "Base", ext.Segments[0].Name)
	assert.Len(t, d.Implements, 2)
}

func TestParseFieldsAndConstants(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

class C {
    static final int N = 1 + 2 * 3;
    private String s;
    int a, b;
}
`)
	d := unit.Decls[0]
	require.Len(t, d.Fields, 4, "multi-declarator splits into one field each")

	n := d.Fields[0]
	assert.Equal(t, "N", n.Name)
	assert.True(t, n.Mods.Has(ast.ModStatic|ast.ModFinal))
	require.NotNil(t, n.Init)
	bin, ok := n.Init.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, bin.Op)

	assert.Equal(t, "a", d.Fields[2].Name)
	assert.Equal(t, "b", d.Fields[3].Name)
}

func TestParseMethods(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

abstract class C {
    public int f(String s, long n) throws Exception {
        return 0;
    }
    abstract void g();
    C(int x) {}
}
`)
	d := unit.Decls[0]
	require.Len(t, d.Methods, 3)

	f := d.Methods[0]
	assert.Equal(t, "f", f.Name)
	assert.True(t, f.HasBody)
	require.Len(t, f.Params, 2)
	assert.Equal(t, "s", f.Params[0].Name)
	require.Len(t, f.Throws, 1)

	g := d.Methods[1]
	assert.False(t, g.HasBody)
	_, isVoid := g.Return.(*ast.VoidT)
	assert.True(t, isVoid)

	ctor := d.Methods[2]
	assert.Nil(t, ctor.Return, "constructors have no return type")
	assert.True(t, ctor.HasBody)
}

func TestParseEnum(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

public enum E {
    X, Y;

    int member;
}
`)
	d := unit.Decls[0]
	assert.Equal(t, ast.TyKindEnum, d.Kind)
	require.Len(t, d.Consts, 2)
	assert.Equal(t, "X", d.Consts[0].Name)
	assert.Equal(t, "Y", d.Consts[1].Name)
	require.Len(t, d.Fields, 1)
}

func TestParseAnnotationDecl(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

@interface R {
    int value() default 42;
}
`)
	d := unit.Decls[0]
	assert.Equal(t, ast.TyKindAnnotation, d.Kind)
	require.Len(t, d.Methods, 1)
	elem := d.Methods[0]
	assert.Equal(t, "value", elem.Name)
	require.NotNil(t, elem.Default)
}

func TestParseAnnotationUse(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

@R(42)
@Named(value = "x")
class C {}
`)
	d := unit.Decls[0]
	require.Len(t, d.Annos, 2)
	assert.Equal(t, []string{"R"}, d.Annos[0].Name)
	require.Len(t, d.Annos[0].Args, 1)
	assert.Equal(t, "value", d.Annos[0].Args[0].Name)

	assert.Equal(t, []string{"Named"}, d.Annos[1].Name)
	require.Len(t, d.Annos[1].Args, 1)
}

func TestParseGenerics(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

class L<T extends Number> {
    T head;
    java.util.List<? extends T> tail;
}
`)
	d := unit.Decls[0]
	require.Len(t, d.TyParams, 1)
	assert.Equal(t, "T", d.TyParams[0].Name)
	require.Len(t, d.TyParams[0].Bounds, 1)

	require.Len(t, d.Fields, 2)
	tail, ok := d.Fields[1].Type.(*ast.ClassT)
	require.True(t, ok)
	last := tail.Segments[len(tail.Segments)-1]
	assert.Equal(t, "List", last.Name)
	require.Len(t, last.Args, 1)
	wild, ok := last.Args[0].(*ast.WildT)
	require.True(t, ok)
	assert.Equal(t, ast.WildExtends, wild.Kind)
}

func TestParseNestedTypes(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

class Out {
    static class In {}
    interface Contract {}
}
`)
	d := unit.Decls[0]
	require.Len(t, d.Types, 2)
	assert.Equal(t, "In", d.Types[0].Name)
	assert.Equal(t, ast.TyKindInterface, d.Types[1].Kind)
}

func TestParseArraysAndVarargs(t *testing.T) {
	unit, _ := parseOne(t, `
package p;

class C {
    int[] xs;
    void f(String... rest) {}
}
`)
	d := unit.Decls[0]
	arr, ok := d.Fields[0].Type.(*ast.ArrT)
	require.True(t, ok)
	_, isPrim := arr.Elem.(*ast.PrimT)
	assert.True(t, isPrim)

	require.Len(t, d.Methods, 1)
	require.Len(t, d.Methods[0].Params, 1)
	p := d.Methods[0].Params[0]
	assert.True(t, p.Vararg)
	_, isArr := p.Type.(*ast.ArrT)
	assert.True(t, isArr, "varargs surface as arrays")
}

func TestParseSyntaxErrorReported(t *testing.T) {
	_, sink := parseOne(t, `
package p;

class C { int = ; }
`)
	assert.True(t, sink.HasErrors())
	assert.NotZero(t, sink.CountByKind()[diag.ParseError])
}

func TestParseRejectsOversizedInput(t *testing.T) {
	p := NewParser(WithMaxFileSize(8))
	_, err := p.Parse(context.Background(), []byte("class A {}"), "a.java", diag.NewSink())
	require.ErrorIs(t, err, ErrFileTooLarge)
}
