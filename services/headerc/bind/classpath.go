// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bind

import (
	"strings"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/classfile"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// ClassPath supplies raw class bytes for a binary name. Lookups are
// pure; callers may cache underneath.
type ClassPath interface {
	Bytes(name string) ([]byte, bool)
}

// ClassPathFunc adapts a function to ClassPath.
type ClassPathFunc func(name string) ([]byte, bool)

// Bytes implements ClassPath.
func (f ClassPathFunc) Bytes(name string) ([]byte, bool) { return f(name) }

// cpEnv decodes class-path classes on demand and memoizes the result.
// Decoded classes fill the same TypeBoundClass shape as binder output.
type cpEnv struct {
	cp    ClassPath
	sink  *diag.Sink
	cache map[sym.ClassSymbol]*TypeBoundClass
}

func newCPEnv(cp ClassPath, sink *diag.Sink) *cpEnv {
	return &cpEnv{cp: cp, sink: sink, cache: make(map[sym.ClassSymbol]*TypeBoundClass)}
}

// Class implements Env. Malformed class files report
// ClassPathDecodeError once and resolve to nil thereafter.
func (e *cpEnv) Class(s sym.ClassSymbol) *TypeBoundClass {
	if c, ok := e.cache[s]; ok {
		return c
	}
	b, ok := e.cp.Bytes(string(s))
	if !ok {
		e.cache[s] = nil
		return nil
	}
	raw, err := classfile.Read(b)
	if err != nil {
		e.sink.Report(diag.ClassPathDecodeError, ast.Pos{File: string(s) + ".class"}, "%v", err)
		e.cache[s] = nil
		return nil
	}
	c := bindRaw(s, raw)
	e.cache[s] = c
	return c
}

// bindRaw converts a decoded class file into a type-bound class.
func bindRaw(s sym.ClassSymbol, raw *classfile.RawClass) *TypeBoundClass {
	c := &TypeBoundClass{
		Sym:         s,
		Access:      raw.Access,
		Pkg:         sym.PackageSymbol(strings.ReplaceAll(s.PackageName(), "/", ".")),
		SimpleName:  s.Simple(),
		childByName: make(map[string]sym.ClassSymbol),
	}
	switch {
	case raw.Access&classfile.AccAnnotation != 0:
		c.Kind = KindAnnotation
	case raw.Access&classfile.AccInterface != 0:
		c.Kind = KindInterface
	case raw.Access&classfile.AccEnum != 0:
		c.Kind = KindEnum
	default:
		c.Kind = KindClass
	}

	// Nesting comes from the InnerClasses attribute; entries about
	// other classes are ignored.
	for _, ic := range raw.InnerClasses {
		if ic.Outer == string(s) && ic.Name != "" {
			child := sym.ClassSymbol(ic.Inner)
			c.Children = append(c.Children, child)
			c.childByName[ic.Name] = child
		}
		if ic.Inner == string(s) {
			c.OwnerClass = sym.ClassSymbol(ic.Outer)
			if ic.Name != "" {
				c.SimpleName = ic.Name
			}
		}
	}

	if raw.Signature != "" {
		if cs, err := sig.ParseClassSignature(raw.Signature, s); err == nil {
			for _, tp := range cs.TyParams {
				c.TyParams = append(c.TyParams, TyParamData{
					Sym:        sym.TyVarSymbol{Owner: s, Name: tp.Name},
					ClassBound: tp.ClassBound,
					IntfBounds: tp.IntfBounds,
				})
			}
			c.Super = cs.Super
			c.Interfaces = cs.Interfaces
		}
	}
	if c.Super == nil && raw.Super != "" {
		c.Super = sym.AsNonParameterizedClassTy(sym.ClassSymbol(raw.Super))
	}
	if c.Interfaces == nil {
		for _, i := range raw.Interfaces {
			c.Interfaces = append(c.Interfaces, sym.AsNonParameterizedClassTy(sym.ClassSymbol(i)))
		}
	}

	for i := range raw.Fields {
		f := &raw.Fields[i]
		ft := memberFieldType(f, s)
		c.Fields = append(c.Fields, &FieldInfo{
			Sym:    sym.FieldSymbol{Owner: s, Name: f.Name},
			Type:   ft,
			Access: f.Access,
			Annos:  rawAnnos(f.Visible, f.Invisible),
			Value:  f.ConstantValue,
		})
	}

	for i := range raw.Methods {
		m := &raw.Methods[i]
		mi := &MethodInfo{
			Sym:     sym.MethodSymbol{Owner: s, Name: m.Name, Key: m.Descriptor},
			Access:  m.Access,
			Default: m.Default,
			Annos:   rawAnnos(m.Visible, m.Invisible),
		}
		for _, ex := range m.Exceptions {
			mi.Throws = append(mi.Throws, sym.AsNonParameterizedClassTy(sym.ClassSymbol(ex)))
		}
		fillMethodTypes(mi, m, s)
		c.Methods = append(c.Methods, mi)
	}

	c.Annos = rawAnnos(raw.Visible, raw.Invisible)
	if c.Kind == KindAnnotation {
		c.Retention = retentionOf(c.Annos)
	}
	return c
}

func memberFieldType(f *classfile.RawMember, owner sym.ClassSymbol) sym.Type {
	if f.Signature != "" {
		if t, err := sig.ParseFieldSignature(f.Signature, owner); err == nil {
			return t
		}
	}
	if t, err := sig.ParseDescriptor(f.Descriptor); err == nil {
		return t
	}
	return sym.ErrTy{}
}

func fillMethodTypes(mi *MethodInfo, m *classfile.RawMember, owner sym.ClassSymbol) {
	if m.Signature != "" {
		if ms, err := sig.ParseMethodSignature(m.Signature, owner, mi.Sym); err == nil {
			for _, tp := range ms.TyParams {
				mi.TyParams = append(mi.TyParams, TyParamData{
					Sym:        sym.TyVarSymbol{Owner: owner, Method: mi.Sym, Name: tp.Name},
					ClassBound: tp.ClassBound,
					IntfBounds: tp.IntfBounds,
				})
			}
			for _, p := range ms.Params {
				mi.Params = append(mi.Params, ParamInfo{Type: p})
			}
			mi.Return = ms.Return
			if len(ms.Throws) > 0 {
				mi.Throws = ms.Throws
			}
			return
		}
	}
	params, ret, err := sig.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		mi.Return = sym.ErrTy{}
		return
	}
	for _, p := range params {
		mi.Params = append(mi.Params, ParamInfo{Type: p})
	}
	mi.Return = ret
}

// rawAnnos merges decoded annotations, preserving visible-first order.
func rawAnnos(visible, invisible []classfile.Annotation) []sym.AnnoInfo {
	out := make([]sym.AnnoInfo, 0, len(visible)+len(invisible))
	for _, a := range visible {
		out = append(out, annoFromRaw(a, sym.RetentionRuntime))
	}
	for _, a := range invisible {
		out = append(out, annoFromRaw(a, sym.RetentionClassFile))
	}
	return out
}

func annoFromRaw(a classfile.Annotation, ret sym.RetentionPolicy) sym.AnnoInfo {
	info := sym.AnnoInfo{Sym: descToSym(a.TypeDescriptor), Retention: ret}
	for _, e := range a.Elements {
		info.Elements = append(info.Elements, sym.AnnoElement{Name: e.Name, Value: e.Value})
	}
	return info
}

func descToSym(desc string) sym.ClassSymbol {
	if len(desc) >= 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return sym.ClassSymbol(desc[1 : len(desc)-1])
	}
	return sym.ClassSymbol(desc)
}

// retentionOf extracts the retention policy from an annotation
// declaration's own annotations.
func retentionOf(annos []sym.AnnoInfo) sym.RetentionPolicy {
	for _, a := range annos {
		if a.Sym != sym.RetentionClass {
			continue
		}
		if v, ok := a.Element("value"); ok {
			if e, ok := v.(sym.EnumConst); ok {
				switch e.Name {
				case "SOURCE":
					return sym.RetentionSource
				case "RUNTIME":
					return sym.RetentionRuntime
				}
			}
		}
	}
	return sym.RetentionClassFile
}

// combinedEnv consults source-bound classes first, then the class
// path.
type combinedEnv struct {
	source map[sym.ClassSymbol]*TypeBoundClass
	cp     *cpEnv
}

// Class implements Env.
func (e *combinedEnv) Class(s sym.ClassSymbol) *TypeBoundClass {
	if c, ok := e.source[s]; ok {
		return c
	}
	return e.cp.Class(s)
}
