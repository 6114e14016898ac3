// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/bind"
	"github.com/headwindhq/headwind/services/headerc/classfile"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// fakeRT mirrors the binder tests: the minimal platform classes the
// pipeline touches.
func fakeRT(t *testing.T) bind.ClassPath {
	t.Helper()
	classes := map[string][]byte{}
	add := func(name string, access uint16, mutate func(*classfile.ClassFile)) {
		cf := &classfile.ClassFile{
			MajorVersion: classfile.DefaultMajorVersion,
			Access:       access,
			Name:         name,
		}
		if name != "java/lang/Object" {
			cf.Super = "java/lang/Object"
		}
		if mutate != nil {
			mutate(cf)
		}
		b, err := classfile.Write(cf)
		require.NoError(t, err)
		classes[name] = b
	}

	add("java/lang/Object", classfile.AccPublic|classfile.AccSuper, nil)
	add("java/lang/String", classfile.AccPublic|classfile.AccFinal|classfile.AccSuper, nil)
	add("java/lang/Number", classfile.AccPublic|classfile.AccAbstract|classfile.AccSuper, nil)
	add("java/lang/Enum", classfile.AccPublic|classfile.AccAbstract|classfile.AccSuper, nil)
	add("java/lang/annotation/Annotation", classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract, nil)
	add("java/lang/annotation/Retention", classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract|classfile.AccAnnotation, func(cf *classfile.ClassFile) {
		cf.Methods = []*classfile.MethodRecord{{
			Access:     classfile.AccPublic | classfile.AccAbstract,
			Name:       "value",
			Descriptor: "()Ljava/lang/annotation/RetentionPolicy;",
		}}
	})
	add("java/lang/annotation/RetentionPolicy", classfile.AccPublic|classfile.AccFinal|classfile.AccEnum|classfile.AccSuper, func(cf *classfile.ClassFile) {
		for _, c := range []string{"SOURCE", "CLASS", "RUNTIME"} {
			cf.Fields = append(cf.Fields, &classfile.FieldRecord{
				Access:     classfile.AccPublic | classfile.AccStatic | classfile.AccFinal | classfile.AccEnum,
				Name:       c,
				Descriptor: "Ljava/lang/annotation/RetentionPolicy;",
			})
		}
	})

	return bind.ClassPathFunc(func(name string) ([]byte, bool) {
		b, ok := classes[name]
		return b, ok
	})
}

func lowerUnits(t *testing.T, units ...*ast.CompUnit) map[sym.ClassSymbol]*classfile.ClassFile {
	t.Helper()
	sink := diag.NewSink()
	res := bind.Bind(units, fakeRT(t), sink, nil)
	require.False(t, sink.HasErrors(), "diagnostics: %v", sink.Diagnostics())
	out := make(map[sym.ClassSymbol]*classfile.ClassFile)
	for _, lc := range Lower(res, Options{}) {
		out[lc.Sym] = lc.File
	}
	return out
}

func unitOf(file, pkg string, decls ...*ast.TyDecl) *ast.CompUnit {
	u := &ast.CompUnit{File: file, Decls: decls}
	if pkg != "" {
		u.Package = &ast.PackageDecl{Name: []string{pkg}}
	}
	return u
}

func classT(names ...string) *ast.ClassT {
	ct := &ast.ClassT{}
	for _, n := range names {
		ct.Segments = append(ct.Segments, &ast.ClassTSeg{Name: n})
	}
	return ct
}

func methodByName(cf *classfile.ClassFile, name string) *classfile.MethodRecord {
	for _, m := range cf.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func fieldByName(cf *classfile.ClassFile, name string) *classfile.FieldRecord {
	for _, f := range cf.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// The "simple" scenario: class A {} gets Object as super, one default
// constructor, no signature.
func TestLowerSimpleClass(t *testing.T) {
	decl := &ast.TyDecl{Kind: ast.TyKindClass, Name: "A", Mods: ast.ModPublic}
	out := lowerUnits(t, unitOf("A.java", "p", decl))
	cf := out["p/A"]
	require.NotNil(t, cf)

	assert.Equal(t, "java/lang/Object", cf.Super)
	assert.Equal(t, uint16(classfile.AccPublic|classfile.AccSuper), cf.Access)
	assert.Empty(t, cf.Signature)
	assert.Empty(t, cf.InnerClasses)

	require.Len(t, cf.Methods, 1)
	ctor := cf.Methods[0]
	assert.Equal(t, "<init>", ctor.Name)
	assert.Equal(t, "()V", ctor.Descriptor)
	assert.True(t, ctor.StubBody)
}

// The "enum1" scenario.
func TestLowerEnum(t *testing.T) {
	e := &ast.TyDecl{
		Kind:   ast.TyKindEnum,
		Name:   "E",
		Mods:   ast.ModPublic,
		Consts: []*ast.EnumConstDecl{{Name: "X"}, {Name: "Y"}},
	}
	out := lowerUnits(t, unitOf("E.java", "p", e))
	cf := out["p/E"]
	require.NotNil(t, cf)

	assert.Equal(t, "java/lang/Enum", cf.Super)
	assert.NotZero(t, cf.Access&classfile.AccFinal)
	assert.NotZero(t, cf.Access&classfile.AccEnum)
	assert.Equal(t, "Ljava/lang/Enum<Lp/E;>;", cf.Signature)

	for _, name := range []string{"X", "Y"} {
		f := fieldByName(cf, name)
		require.NotNil(t, f)
		assert.Equal(t, "Lp/E;", f.Descriptor)
		assert.NotZero(t, f.Access&classfile.AccEnum)
		assert.NotZero(t, f.Access&classfile.AccStatic)
		assert.Nil(t, f.ConstantValue, "enum constants carry no ConstantValue")
	}
	values := fieldByName(cf, "$VALUES")
	require.NotNil(t, values)
	assert.Equal(t, "[Lp/E;", values.Descriptor)
	assert.NotZero(t, values.Access&classfile.AccSynthetic)

	vm := methodByName(cf, "values")
	require.NotNil(t, vm)
	assert.Equal(t, "()[Lp/E;", vm.Descriptor)
	assert.NotZero(t, vm.Access&classfile.AccSynthetic)

	vo := methodByName(cf, "valueOf")
	require.NotNil(t, vo)
	assert.Equal(t, "(Ljava/lang/String;)Lp/E;", vo.Descriptor)

	ctor := methodByName(cf, "<init>")
	require.NotNil(t, ctor)
	assert.NotZero(t, ctor.Access&classfile.AccPrivate)
	assert.Equal(t, "(Ljava/lang/String;I)V", ctor.Descriptor)
}

// The "const" scenario.
func TestLowerConstantField(t *testing.T) {
	n := &ast.FieldDecl{
		Mods: ast.ModStatic | ast.ModFinal,
		Type: &ast.PrimT{Kind: ast.PrimInt},
		Name: "N",
		Init: &ast.Binary{
			Op: ast.BinAdd,
			L:  &ast.Literal{Kind: ast.LitInt, Text: "1"},
			R: &ast.Binary{
				Op: ast.BinMul,
				L:  &ast.Literal{Kind: ast.LitInt, Text: "2"},
				R:  &ast.Literal{Kind: ast.LitInt, Text: "3"},
			},
		},
	}
	c := &ast.TyDecl{Kind: ast.TyKindClass, Name: "C", Fields: []*ast.FieldDecl{n}}
	out := lowerUnits(t, unitOf("C.java", "p", c))

	f := fieldByName(out["p/C"], "N")
	require.NotNil(t, f)
	assert.Equal(t, "I", f.Descriptor)
	assert.Equal(t, sym.IntConst(7), f.ConstantValue)
	assert.Empty(t, f.Signature)
}

// The "generic" scenario: class L<T extends Number> { T head; }.
func TestLowerGenerics(t *testing.T) {
	l := &ast.TyDecl{
		Kind:     ast.TyKindClass,
		Name:     "L",
		TyParams: []*ast.TyParam{{Name: "T", Bounds: []ast.Ty{classT("Number")}}},
		Fields:   []*ast.FieldDecl{{Type: classT("T"), Name: "head"}},
	}
	out := lowerUnits(t, unitOf("L.java", "p", l))
	cf := out["p/L"]
	require.NotNil(t, cf)

	assert.Equal(t, "<T:Ljava/lang/Number;>Ljava/lang/Object;", cf.Signature)
	head := fieldByName(cf, "head")
	require.NotNil(t, head)
	assert.Equal(t, "Ljava/lang/Number;", head.Descriptor, "erases to the leftmost bound")
	assert.Equal(t, "TT;", head.Signature)
}

// The "annouse" scenario: RUNTIME retention surfaces under
// RuntimeVisibleAnnotations, SOURCE retention disappears.
func TestLowerAnnotationUse(t *testing.T) {
	runtimeAnno := &ast.TyDecl{
		Kind: ast.TyKindAnnotation,
		Name: "R",
		Annos: []*ast.Anno{{
			Name: []string{"Retention"},
			Args: []ast.AnnoArg{{Name: "value", Value: &ast.NameRef{Parts: []string{"RetentionPolicy", "RUNTIME"}}}},
		}},
		Methods: []*ast.MethodDecl{{Name: "value", Return: &ast.PrimT{Kind: ast.PrimInt}}},
	}
	sourceAnno := &ast.TyDecl{
		Kind: ast.TyKindAnnotation,
		Name: "S",
		Annos: []*ast.Anno{{
			Name: []string{"Retention"},
			Args: []ast.AnnoArg{{Name: "value", Value: &ast.NameRef{Parts: []string{"RetentionPolicy", "SOURCE"}}}},
		}},
	}
	c := &ast.TyDecl{
		Kind: ast.TyKindClass,
		Name: "C",
		Annos: []*ast.Anno{
			{Name: []string{"R"}, Args: []ast.AnnoArg{{Name: "value", Value: &ast.Literal{Kind: ast.LitInt, Text: "42"}}}},
			{Name: []string{"S"}},
		},
	}
	unit := unitOf("C.java", "p", runtimeAnno, sourceAnno, c)
	unit.Imports = []*ast.ImportDecl{
		{Name: []string{"java", "lang", "annotation", "Retention"}},
		{Name: []string{"java", "lang", "annotation", "RetentionPolicy"}},
	}
	out := lowerUnits(t, unit)
	cf := out["p/C"]
	require.NotNil(t, cf)

	require.Len(t, cf.VisibleAnnos, 1)
	assert.Equal(t, "Lp/R;", cf.VisibleAnnos[0].TypeDescriptor)
	require.Len(t, cf.VisibleAnnos[0].Elements, 1)
	assert.Equal(t, sym.IntConst(42), cf.VisibleAnnos[0].Elements[0].Value)
	assert.Empty(t, cf.InvisibleAnnos, "source retention is dropped")

	// The annotation declaration itself lowers to an annotation
	// interface.
	rf := out["p/R"]
	require.NotNil(t, rf)
	assert.NotZero(t, rf.Access&classfile.AccAnnotation)
	assert.NotZero(t, rf.Access&classfile.AccInterface)
	assert.Equal(t, []string{"java/lang/annotation/Annotation"}, rf.Interfaces)
	value := methodByName(rf, "value")
	require.NotNil(t, value)
	assert.False(t, value.StubBody, "annotation elements are abstract")
}

func TestLowerInnerClasses(t *testing.T) {
	inner := &ast.TyDecl{Kind: ast.TyKindClass, Name: "In", Mods: ast.ModStatic | ast.ModPublic}
	outer := &ast.TyDecl{Kind: ast.TyKindClass, Name: "Out", Mods: ast.ModPublic, Types: []*ast.TyDecl{inner}}
	use := &ast.TyDecl{
		Kind:   ast.TyKindClass,
		Name:   "Use",
		Fields: []*ast.FieldDecl{{Type: classT("Out", "In"), Name: "f"}},
	}
	out := lowerUnits(t, unitOf("Out.java", "p", outer), unitOf("Use.java", "p", use))

	// Property: every nested class mentioned in a descriptor appears
	// in the InnerClasses attribute.
	useCF := out["p/Use"]
	require.NotNil(t, useCF)
	require.Len(t, useCF.InnerClasses, 1)
	entry := useCF.InnerClasses[0]
	assert.Equal(t, "p/Out$In", entry.Inner)
	assert.Equal(t, "p/Out", entry.Outer)
	assert.Equal(t, "In", entry.Name)
	assert.NotZero(t, entry.Access&classfile.AccStatic)

	outCF := out["p/Out"]
	require.NotNil(t, outCF)
	require.Len(t, outCF.InnerClasses, 1)
	assert.Equal(t, "p/Out$In", outCF.InnerClasses[0].Inner)

	// The nested class itself lists its own chain.
	inCF := out["p/Out$In"]
	require.NotNil(t, inCF)
	require.Len(t, inCF.InnerClasses, 1)
}

func TestLowerInnerCtorGetsEnclosingParam(t *testing.T) {
	inner := &ast.TyDecl{Kind: ast.TyKindClass, Name: "In"} // not static
	outer := &ast.TyDecl{Kind: ast.TyKindClass, Name: "Out", Types: []*ast.TyDecl{inner}}
	out := lowerUnits(t, unitOf("Out.java", "p", outer))

	ctor := methodByName(out["p/Out$In"], "<init>")
	require.NotNil(t, ctor)
	assert.Equal(t, "(Lp/Out;)V", ctor.Descriptor)
	assert.Equal(t, 1, ctor.ParamSlots)
}

func TestLowerAbstractAndInterfaceMethods(t *testing.T) {
	iface := &ast.TyDecl{
		Kind: ast.TyKindInterface,
		Name: "I",
		Methods: []*ast.MethodDecl{
			{Name: "f", Return: &ast.VoidT{}},
			{Name: "g", Return: &ast.VoidT{}, Mods: ast.ModDefault, HasBody: true},
		},
	}
	out := lowerUnits(t, unitOf("I.java", "p", iface))
	cf := out["p/I"]
	require.NotNil(t, cf)
	assert.NotZero(t, cf.Access&classfile.AccInterface)

	f := methodByName(cf, "f")
	require.NotNil(t, f)
	assert.NotZero(t, f.Access&classfile.AccAbstract)
	assert.False(t, f.StubBody)

	g := methodByName(cf, "g")
	require.NotNil(t, g)
	assert.Zero(t, g.Access&classfile.AccAbstract)
	assert.True(t, g.StubBody, "default methods get the throw stub")
}

func TestLowerDeterministic(t *testing.T) {
	build := func() []byte {
		decl := &ast.TyDecl{Kind: ast.TyKindClass, Name: "A", Mods: ast.ModPublic}
		out := lowerUnits(t, unitOf("A.java", "p", decl))
		b, err := classfile.Write(out["p/A"])
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, build(), build())
}
