// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sym

import "strings"

// Well-known platform classes.
const (
	ObjectClass        ClassSymbol = "java/lang/Object"
	StringClass        ClassSymbol = "java/lang/String"
	EnumClass          ClassSymbol = "java/lang/Enum"
	AnnotationClass    ClassSymbol = "java/lang/annotation/Annotation"
	AssertionErrorSym  ClassSymbol = "java/lang/AssertionError"
	DeprecatedClass    ClassSymbol = "java/lang/Deprecated"
	RetentionClass     ClassSymbol = "java/lang/annotation/Retention"
	RetentionPolicySym ClassSymbol = "java/lang/annotation/RetentionPolicy"
)

// PrimKind enumerates the primitive kinds.
type PrimKind int

const (
	Boolean PrimKind = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
)

// String returns the source keyword for the kind.
func (k PrimKind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}

// Type is the resolved type sum. Invariants: an ArrayTy element is
// never VoidTy, and WildTy appears only in type-argument position.
type Type interface {
	typeNode()
	String() string
}

// PrimTy is a primitive type.
type PrimTy struct {
	Kind PrimKind
}

// VoidTy is the void pseudo-type.
type VoidTy struct{}

// ClassTy is a possibly-nested, possibly-parameterized class
// reference. Segments run outer to inner; type arguments attach to the
// segment that declares them, so Outer<String>.Inner is two segments.
type ClassTy struct {
	Segments []ClassTySeg
}

// ClassTySeg is one nesting level of a ClassTy.
type ClassTySeg struct {
	Sym   ClassSymbol
	Args  []Type
	Annos []AnnoInfo
}

// Sym returns the symbol of the innermost segment.
func (t ClassTy) Sym() ClassSymbol {
	return t.Segments[len(t.Segments)-1].Sym
}

// IsParameterized reports whether any segment carries type arguments.
func (t ClassTy) IsParameterized() bool {
	for _, s := range t.Segments {
		if len(s.Args) > 0 {
			return true
		}
	}
	return false
}

// ArrayTy is an array type, one node per dimension.
type ArrayTy struct {
	Elem  Type
	Annos []AnnoInfo
}

// TyVar is a use of a type variable.
type TyVar struct {
	Sym   TyVarSymbol
	Annos []AnnoInfo
}

// WildKind classifies a wildcard.
type WildKind int

const (
	WildUnbounded WildKind = iota
	WildExtendsBound
	WildSuperBound
)

// WildTy is a wildcard type argument.
type WildTy struct {
	Kind  WildKind
	Bound Type // nil when unbounded
	Annos []AnnoInfo
}

// ErrTy is the sentinel substituted for unresolvable references so
// later phases can keep running after a diagnostic was reported.
type ErrTy struct{}

func (PrimTy) typeNode()  {}
func (VoidTy) typeNode()  {}
func (ClassTy) typeNode() {}
func (ArrayTy) typeNode() {}
func (TyVar) typeNode()   {}
func (WildTy) typeNode()  {}
func (ErrTy) typeNode()   {}

func (t PrimTy) String() string { return t.Kind.String() }
func (VoidTy) String() string   { return "void" }

func (t ClassTy) String() string {
	var sb strings.Builder
	for i, seg := range t.Segments {
		if i > 0 {
			sb.WriteByte('.')
			sb.WriteString(seg.Sym.Simple())
		} else {
			sb.WriteString(seg.Sym.Dotted())
		}
		if len(seg.Args) > 0 {
			sb.WriteByte('<')
			for j, a := range seg.Args {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(a.String())
			}
			sb.WriteByte('>')
		}
	}
	return sb.String()
}

func (t ArrayTy) String() string { return t.Elem.String() + "[]" }
func (t TyVar) String() string   { return t.Sym.Name }

func (t WildTy) String() string {
	switch t.Kind {
	case WildExtendsBound:
		return "? extends " + t.Bound.String()
	case WildSuperBound:
		return "? super " + t.Bound.String()
	default:
		return "?"
	}
}

func (ErrTy) String() string { return "<error>" }

// AsNonParameterizedClassTy builds a single-segment raw class type.
func AsNonParameterizedClassTy(s ClassSymbol) ClassTy {
	return ClassTy{Segments: []ClassTySeg{{Sym: s}}}
}

// AsClassTy builds a class type from explicit segments.
func AsClassTy(segs ...ClassTySeg) ClassTy {
	return ClassTy{Segments: segs}
}
