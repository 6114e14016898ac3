// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ast defines the parsed-tree model consumed by the binder.
//
// The trees produced here are header trees: declarations, modifiers,
// annotations, types, and constant expressions. Method and initializer
// bodies are not represented; the parser records only whether a body
// was present so lowering can distinguish abstract members.
//
// All nodes carry a Pos for diagnostics. Trees are immutable after
// parsing; the binder never mutates them.
package ast

import (
	"strconv"
	"strings"
)

// Pos is a source location: file path plus 1-based line and column.
type Pos struct {
	File string
	Line int
	Col  int
}

// String renders the position in file:line:col form.
func (p Pos) String() string {
	if p.File == "" {
		return "<unknown>"
	}
	return p.File + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

// TyKind classifies a type declaration.
type TyKind int

const (
	// TyKindClass is a concrete or abstract class declaration.
	TyKindClass TyKind = iota

	// TyKindInterface is an interface declaration.
	TyKindInterface

	// TyKindEnum is an enum declaration.
	TyKindEnum

	// TyKindAnnotation is an annotation type declaration (@interface).
	TyKindAnnotation
)

// String returns the source-level keyword for the kind.
func (k TyKind) String() string {
	switch k {
	case TyKindClass:
		return "class"
	case TyKindInterface:
		return "interface"
	case TyKindEnum:
		return "enum"
	case TyKindAnnotation:
		return "@interface"
	default:
		return "unknown"
	}
}

// Modifier bits mirror the source-level modifier keywords. The values
// intentionally match the class-file access flags where a direct
// counterpart exists, so translation during lowering is a mask.
type Modifier uint16

const (
	ModPublic       Modifier = 0x0001
	ModPrivate      Modifier = 0x0002
	ModProtected    Modifier = 0x0004
	ModStatic       Modifier = 0x0008
	ModFinal        Modifier = 0x0010
	ModSynchronized Modifier = 0x0020
	ModVolatile     Modifier = 0x0040
	ModTransient    Modifier = 0x0080
	ModNative       Modifier = 0x0100
	ModAbstract     Modifier = 0x0400
	ModStrictfp     Modifier = 0x0800
	ModDefault      Modifier = 0x1000
)

// Has reports whether all bits of m2 are set.
func (m Modifier) Has(m2 Modifier) bool { return m&m2 == m2 }

// CompUnit is one parsed source file.
type CompUnit struct {
	File    string
	Package *PackageDecl // nil for the unnamed package
	Imports []*ImportDecl
	Decls   []*TyDecl
}

// PackageName returns the dotted package name, or "" for the unnamed
// package.
func (u *CompUnit) PackageName() string {
	if u.Package == nil {
		return ""
	}
	return strings.Join(u.Package.Name, ".")
}

// PackageDecl is a package declaration, possibly annotated
// (package-info files).
type PackageDecl struct {
	Pos   Pos
	Name  []string
	Annos []*Anno
}

// ImportDecl is a single import statement.
type ImportDecl struct {
	Pos      Pos
	Name     []string // dotted segments, excluding any trailing '*'
	Static   bool
	Wildcard bool
}

// TyDecl is a class, interface, enum, or annotation declaration.
// Members appear in source order.
type TyDecl struct {
	Pos        Pos
	Mods       Modifier
	Annos      []*Anno
	Kind       TyKind
	Name       string
	TyParams   []*TyParam
	Extends    Ty   // nil if absent; for interfaces the first extends entry
	Implements []Ty // implements for classes, remaining extends for interfaces
	Consts     []*EnumConstDecl
	Fields     []*FieldDecl
	Methods    []*MethodDecl
	Types      []*TyDecl
}

// TyParam is a declared type parameter with its bounds.
type TyParam struct {
	Pos    Pos
	Name   string
	Bounds []Ty
	Annos  []*Anno
}

// EnumConstDecl is one enum constant. Constructor arguments and class
// bodies are discarded at parse time; HasBody records that a body was
// present because such constants lower to specialized subclasses.
type EnumConstDecl struct {
	Pos     Pos
	Name    string
	Annos   []*Anno
	HasBody bool
}

// FieldDecl is a single field. Multi-variable declarations are split
// into one FieldDecl per declarator by the parser.
type FieldDecl struct {
	Pos   Pos
	Mods  Modifier
	Annos []*Anno
	Type  Ty
	Name  string
	Init  Expr // nil when there is no initializer
}

// MethodDecl is a method, constructor, or annotation element.
type MethodDecl struct {
	Pos      Pos
	Mods     Modifier
	Annos    []*Anno
	TyParams []*TyParam
	Return   Ty // nil for constructors
	Name     string
	Params   []*ParamDecl
	Throws   []Ty
	Default  Expr // annotation element default, nil otherwise
	HasBody  bool
}

// ParamDecl is a formal parameter.
type ParamDecl struct {
	Pos    Pos
	Mods   Modifier
	Annos  []*Anno
	Type   Ty
	Name   string
	Vararg bool
}

// Anno is an annotation use. Args holds the raw element expressions;
// a bare value (@A(42)) is recorded under the element name "value".
type Anno struct {
	Pos  Pos
	Name []string // dotted annotation type name as written
	Args []AnnoArg
}

// AnnoArg is one element=value pair of an annotation use.
type AnnoArg struct {
	Name  string
	Value Expr
}
