// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sig mangles types into descriptors and generic signatures,
// and parses signatures back into the type model.
//
// Descriptors are the erased form the runtime requires everywhere;
// signatures are the generic form carried in the optional Signature
// attribute and emitted only when a declaration actually uses
// generics. Both encoders are pure functions of the type model.
package sig

import (
	"strings"

	"github.com/headwindhq/headwind/services/headerc/sym"
)

// TyVarEnv resolves a type variable to its erasure: the leftmost
// declared bound, or java.lang.Object when unbounded. A nil TyVarEnv
// erases every variable to Object.
type TyVarEnv interface {
	Erasure(v sym.TyVarSymbol) sym.Type
}

// Descriptor returns the erased descriptor of a type: type variables
// erase to their leftmost bound, parameterized classes to the raw
// class, arrays per-dimension.
func Descriptor(t sym.Type, env TyVarEnv) string {
	var sb strings.Builder
	writeDescriptor(&sb, t, env, 0)
	return sb.String()
}

// MethodDescriptor returns the erased method descriptor.
func MethodDescriptor(params []sym.Type, ret sym.Type, env TyVarEnv) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		writeDescriptor(&sb, p, env, 0)
	}
	sb.WriteByte(')')
	writeDescriptor(&sb, ret, env, 0)
	return sb.String()
}

const maxErasureDepth = 64

func writeDescriptor(sb *strings.Builder, t sym.Type, env TyVarEnv, depth int) {
	switch v := t.(type) {
	case sym.PrimTy:
		sb.WriteByte(primDescriptor(v.Kind))
	case sym.VoidTy:
		sb.WriteByte('V')
	case sym.ClassTy:
		sb.WriteByte('L')
		sb.WriteString(string(v.Sym()))
		sb.WriteByte(';')
	case sym.ArrayTy:
		sb.WriteByte('[')
		writeDescriptor(sb, v.Elem, env, depth)
	case sym.TyVar:
		// F-bounded variables (T extends Comparable<T>) terminate
		// because the bound erases to its raw class; the depth guard
		// covers malformed input from the class path.
		if env == nil || depth > maxErasureDepth {
			sb.WriteString("Ljava/lang/Object;")
			return
		}
		bound := env.Erasure(v.Sym)
		if bound == nil {
			sb.WriteString("Ljava/lang/Object;")
			return
		}
		writeDescriptor(sb, bound, env, depth+1)
	case sym.ErrTy:
		sb.WriteString("Ljava/lang/Object;")
	default:
		// WildTy never reaches descriptor position.
		sb.WriteString("Ljava/lang/Object;")
	}
}

func primDescriptor(k sym.PrimKind) byte {
	switch k {
	case sym.Boolean:
		return 'Z'
	case sym.Byte:
		return 'B'
	case sym.Char:
		return 'C'
	case sym.Short:
		return 'S'
	case sym.Int:
		return 'I'
	case sym.Long:
		return 'J'
	case sym.Float:
		return 'F'
	default:
		return 'D'
	}
}

// NeedsSignature reports whether a type mentions generics: type
// variables, type arguments, or wildcards anywhere inside it.
func NeedsSignature(t sym.Type) bool {
	switch v := t.(type) {
	case sym.ClassTy:
		for _, seg := range v.Segments {
			if len(seg.Args) > 0 {
				return true
			}
		}
		return false
	case sym.ArrayTy:
		return NeedsSignature(v.Elem)
	case sym.TyVar, sym.WildTy:
		return true
	default:
		return false
	}
}

// FieldSignature returns the generic signature of a field type.
func FieldSignature(t sym.Type) string {
	var sb strings.Builder
	writeSig(&sb, t)
	return sb.String()
}

// TyParamInfo is one declared type parameter with its resolved bounds,
// as the signature grammar needs it.
type TyParamInfo struct {
	Name       string
	ClassBound sym.Type   // nil when only interface bounds are declared
	IntfBounds []sym.Type // may be empty
}

// ClassSignature returns the generic class signature.
func ClassSignature(tps []TyParamInfo, super sym.Type, interfaces []sym.Type) string {
	var sb strings.Builder
	writeTyParams(&sb, tps)
	writeSig(&sb, super)
	for _, i := range interfaces {
		writeSig(&sb, i)
	}
	return sb.String()
}

// MethodSignature returns the generic method signature.
func MethodSignature(tps []TyParamInfo, params []sym.Type, ret sym.Type, throws []sym.Type) string {
	var sb strings.Builder
	writeTyParams(&sb, tps)
	sb.WriteByte('(')
	for _, p := range params {
		writeSig(&sb, p)
	}
	sb.WriteByte(')')
	writeSig(&sb, ret)
	// The throws clause is only mangled when a thrown type is generic.
	generic := false
	for _, t := range throws {
		if NeedsSignature(t) {
			generic = true
			break
		}
	}
	if generic {
		for _, t := range throws {
			sb.WriteByte('^')
			writeSig(&sb, t)
		}
	}
	return sb.String()
}

func writeTyParams(sb *strings.Builder, tps []TyParamInfo) {
	if len(tps) == 0 {
		return
	}
	sb.WriteByte('<')
	for _, tp := range tps {
		sb.WriteString(tp.Name)
		sb.WriteByte(':')
		if tp.ClassBound != nil {
			writeSig(sb, tp.ClassBound)
		} else if len(tp.IntfBounds) == 0 {
			// Unbounded: the class bound defaults to Object.
			writeSig(sb, sym.AsNonParameterizedClassTy(sym.ObjectClass))
		}
		for _, b := range tp.IntfBounds {
			sb.WriteByte(':')
			writeSig(sb, b)
		}
	}
	sb.WriteByte('>')
}

func writeSig(sb *strings.Builder, t sym.Type) {
	switch v := t.(type) {
	case sym.PrimTy:
		sb.WriteByte(primDescriptor(v.Kind))
	case sym.VoidTy:
		sb.WriteByte('V')
	case sym.ClassTy:
		writeClassSig(sb, v)
	case sym.ArrayTy:
		sb.WriteByte('[')
		writeSig(sb, v.Elem)
	case sym.TyVar:
		sb.WriteByte('T')
		sb.WriteString(v.Sym.Name)
		sb.WriteByte(';')
	case sym.WildTy:
		switch v.Kind {
		case sym.WildUnbounded:
			sb.WriteByte('*')
		case sym.WildExtendsBound:
			sb.WriteByte('+')
			writeSig(sb, v.Bound)
		case sym.WildSuperBound:
			sb.WriteByte('-')
			writeSig(sb, v.Bound)
		}
	default:
		sb.WriteString("Ljava/lang/Object;")
	}
}

// writeClassSig prints L<binary prefix><args>(.<simple><args>)*; —
// outer segments without type arguments fold into the binary-name
// prefix, segments after the first parameterized one become dotted
// suffixes.
func writeClassSig(sb *strings.Builder, t sym.ClassTy) {
	first := len(t.Segments) - 1
	for i, seg := range t.Segments {
		if len(seg.Args) > 0 {
			first = i
			break
		}
	}
	sb.WriteByte('L')
	sb.WriteString(string(t.Segments[first].Sym))
	writeSigArgs(sb, t.Segments[first].Args)
	for _, seg := range t.Segments[first+1:] {
		sb.WriteByte('.')
		sb.WriteString(seg.Sym.Simple())
		writeSigArgs(sb, seg.Args)
	}
	sb.WriteByte(';')
}

func writeSigArgs(sb *strings.Builder, args []sym.Type) {
	if len(args) == 0 {
		return
	}
	sb.WriteByte('<')
	for _, a := range args {
		writeSig(sb, a)
	}
	sb.WriteByte('>')
}
