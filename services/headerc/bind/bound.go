// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bind resolves parsed compilation units into a bound program.
//
// Binding runs in five ordered phases, each producing a strictly
// richer structure than the last:
//
//  1. canonical naming: every type declaration gets a ClassSymbol,
//     duplicates are rejected
//  2. imports and package scope: per-unit lookup scopes
//  3. hierarchy: superclass and interface names resolve to symbols,
//     cycles are rejected, classes are topologically ordered
//  4. type resolution: bounds, field and method signatures, and
//     annotation uses resolve to the type model
//  5. constants: final-field initializers and annotation defaults
//     fold through a deterministic worklist
//
// Recoverable problems go to the diagnostic sink and binding continues
// with sentinel substitutions; only environmental faults surface as Go
// errors. All bound entities are immutable once binding returns.
// Supertype relations form cycles by symbol reference only: bound
// classes live in an arena keyed by ClassSymbol, and supertypes are
// resolved through the arena on access, never owned.
package bind

import (
	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// ClassKind classifies a bound class.
type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindEnum
	KindAnnotation
)

// String returns the source keyword.
func (k ClassKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindAnnotation:
		return "@interface"
	default:
		return "unknown"
	}
}

// TyParamData is a resolved type parameter: the symbol, the optional
// class bound, and the interface bounds.
type TyParamData struct {
	Sym        sym.TyVarSymbol
	ClassBound sym.Type
	IntfBounds []sym.Type
	Annos      []sym.AnnoInfo
}

// Erasure returns the leftmost bound, or nil when unbounded.
func (t TyParamData) Erasure() sym.Type {
	if t.ClassBound != nil {
		return t.ClassBound
	}
	if len(t.IntfBounds) > 0 {
		return t.IntfBounds[0]
	}
	return nil
}

// ParamInfo is a resolved method parameter.
type ParamInfo struct {
	Name      string
	Type      sym.Type
	Annos     []sym.AnnoInfo
	Synthetic bool
}

// MethodInfo is a resolved method, constructor, or annotation element.
// Access uses class-file flag encoding; IsDefault marks interface
// default methods separately since the format has no flag for them.
type MethodInfo struct {
	Sym       sym.MethodSymbol
	TyParams  []TyParamData
	Return    sym.Type
	Params    []ParamInfo
	Throws    []sym.Type
	Access    uint16
	IsDefault bool
	HasBody   bool
	Default   sym.Const
	Annos     []sym.AnnoInfo
	Decl      *ast.MethodDecl // nil for class-path methods
}

// FieldInfo is a resolved field. Value is the folded constant for
// final primitive/String fields, nil otherwise.
type FieldInfo struct {
	Sym    sym.FieldSymbol
	Type   sym.Type
	Access uint16
	Annos  []sym.AnnoInfo
	Decl   *ast.FieldDecl // nil for class-path fields
	Value  sym.Const
}

// TypeBoundClass is a class bound to the type level: header data plus
// resolved signatures, members, and (after phase V) constants. Source
// and class-path classes share this shape, so downstream phases cannot
// distinguish the two origins.
type TypeBoundClass struct {
	Sym        sym.ClassSymbol
	Kind       ClassKind
	Access     uint16
	Pkg        sym.PackageSymbol
	OwnerClass sym.ClassSymbol // "" for top-level classes
	SimpleName string

	Children    []sym.ClassSymbol // declared member classes, source order
	childByName map[string]sym.ClassSymbol

	TyParams   []TyParamData
	Super      sym.Type // nil only for java/lang/Object
	Interfaces []sym.Type

	Fields  []*FieldInfo
	Methods []*MethodInfo
	Annos   []sym.AnnoInfo

	// Retention is meaningful only for annotation declarations.
	Retention sym.RetentionPolicy

	Tree *ast.TyDecl   // nil for class-path classes
	Unit *ast.CompUnit // nil for class-path classes
	Pos  ast.Pos
}

// SuperSym returns the superclass symbol, or "" when there is none.
func (c *TypeBoundClass) SuperSym() sym.ClassSymbol {
	if ct, ok := c.Super.(sym.ClassTy); ok {
		return ct.Sym()
	}
	return ""
}

// Child resolves a declared member class by simple name.
func (c *TypeBoundClass) Child(name string) (sym.ClassSymbol, bool) {
	s, ok := c.childByName[name]
	return s, ok
}

// TyParam resolves a declared type parameter by name.
func (c *TypeBoundClass) TyParam(name string) (TyParamData, bool) {
	for _, tp := range c.TyParams {
		if tp.Sym.Name == name {
			return tp, true
		}
	}
	return TyParamData{}, false
}

// Env resolves class symbols to bound classes across both source and
// class-path origins. Lookups for unknown symbols return nil.
type Env interface {
	Class(s sym.ClassSymbol) *TypeBoundClass
}

// TyVarEnv returns an erasure environment that resolves any type
// variable through the arena: class variables via their owner, method
// variables via the owning method's declaration.
func (r *Result) TyVarEnv() sig.TyVarEnv {
	return arenaTyVarEnv{env: r.Env}
}

type arenaTyVarEnv struct {
	env Env
}

// Erasure implements sig.TyVarEnv.
func (e arenaTyVarEnv) Erasure(v sym.TyVarSymbol) sym.Type {
	c := e.env.Class(v.Owner)
	if c == nil {
		return nil
	}
	if v.Method.Name == "" {
		if tp, ok := c.TyParam(v.Name); ok {
			return tp.Erasure()
		}
		// Variables of enclosing classes are visible in inner ones.
		if c.OwnerClass != "" {
			return e.Erasure(sym.TyVarSymbol{Owner: c.OwnerClass, Name: v.Name})
		}
		return nil
	}
	for _, m := range c.Methods {
		if m.Sym.Name != v.Method.Name {
			continue
		}
		for _, tp := range m.TyParams {
			if tp.Sym.Name == v.Name {
				return tp.Erasure()
			}
		}
	}
	return nil
}

// tyVarEnv adapts a set of type parameter scopes to sig.TyVarEnv for
// erasure during descriptor mangling.
type tyVarEnv struct {
	scopes [][]TyParamData
}

// Erasure returns the leftmost bound of v, or nil.
func (e tyVarEnv) Erasure(v sym.TyVarSymbol) sym.Type {
	for _, scope := range e.scopes {
		for _, tp := range scope {
			if tp.Sym == v {
				return tp.Erasure()
			}
		}
	}
	return nil
}
