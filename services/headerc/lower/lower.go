// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lower translates bound classes into abstract class-file
// records: flags, erased names and descriptors, synthesized members,
// inner-class bookkeeping, and attribute selection.
package lower

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/headwindhq/headwind/services/headerc/bind"
	"github.com/headwindhq/headwind/services/headerc/classfile"
	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// Options configures lowering.
type Options struct {
	// MajorVersion of the emitted class files. Zero means the
	// default, 52.
	MajorVersion uint16
}

// Lowered pairs a class symbol with its abstract class file, in
// binder order.
type Lowered struct {
	Sym  sym.ClassSymbol
	File *classfile.ClassFile
}

// lowerer lowers one bound program.
type lowerer struct {
	res   *bind.Result
	tvEnv sig.TyVarEnv
	major uint16
}

// Lower translates every source class of a bound program.
func Lower(res *bind.Result, opts Options) []Lowered {
	major := opts.MajorVersion
	if major == 0 {
		major = classfile.DefaultMajorVersion
	}
	l := &lowerer{res: res, tvEnv: res.TyVarEnv(), major: major}
	out := make([]Lowered, 0, len(res.Order))
	for _, s := range res.Order {
		c := res.Classes[s]
		if c == nil {
			continue
		}
		out = append(out, Lowered{Sym: s, File: l.lowerClass(c)})
	}
	return out
}

func (l *lowerer) lowerClass(c *bind.TypeBoundClass) *classfile.ClassFile {
	cf := &classfile.ClassFile{
		MinorVersion: classfile.DefaultMinorVersion,
		MajorVersion: l.major,
		Access:       classAccess(c),
		Name:         string(c.Sym),
	}
	if c.Super != nil {
		cf.Super = string(erasedSym(c.Super))
	} else if c.Sym != sym.ObjectClass {
		cf.Super = string(sym.ObjectClass)
	}
	for _, i := range c.Interfaces {
		cf.Interfaces = append(cf.Interfaces, string(erasedSym(i)))
	}

	if l.classIsGeneric(c) {
		cf.Signature = sig.ClassSignature(tyParamInfos(c.TyParams), superOrObject(c), c.Interfaces)
	}
	if c.Unit != nil {
		cf.SourceFile = filepath.Base(c.Unit.File)
	}

	collector := newInnerCollector(l.res)
	collector.addChain(c.Sym)
	for _, child := range c.Children {
		collector.addChain(child)
	}
	collector.addType(c.Super)
	for _, i := range c.Interfaces {
		collector.addType(i)
	}

	l.lowerFields(c, cf, collector)
	l.lowerMethods(c, cf, collector)

	cf.VisibleAnnos, cf.InvisibleAnnos = partitionAnnos(c.Annos)
	cf.Deprecated = isDeprecated(c.Annos)
	cf.VisibleTypeAnnos, cf.InvisibleTypeAnnos = classTypeAnnos(c)
	for _, a := range c.Annos {
		collector.addSym(a.Sym)
	}

	cf.InnerClasses = collector.entries()
	return cf
}

// classAccess computes the class-level access flags. Nested-only
// modifiers move to the InnerClasses attribute; protected surfaces as
// public at the file level.
func classAccess(c *bind.TypeBoundClass) uint16 {
	acc := c.Access & (classfile.AccPublic | classfile.AccFinal | classfile.AccAbstract)
	if c.Access&classfile.AccProtected != 0 {
		acc |= classfile.AccPublic
	}
	switch c.Kind {
	case bind.KindInterface:
		acc |= classfile.AccInterface | classfile.AccAbstract
		acc &^= uint16(classfile.AccFinal)
	case bind.KindAnnotation:
		acc |= classfile.AccAnnotation | classfile.AccInterface | classfile.AccAbstract
		acc &^= uint16(classfile.AccFinal)
	case bind.KindEnum:
		acc |= classfile.AccEnum | classfile.AccSuper
		if !enumHasSpecializedConsts(c) {
			acc |= classfile.AccFinal
		}
	default:
		acc |= classfile.AccSuper
	}
	return acc
}

// innerAccess computes the InnerClasses-attribute flags, which retain
// the nested-only modifiers.
func innerAccess(c *bind.TypeBoundClass) uint16 {
	acc := c.Access & (classfile.AccPublic | classfile.AccPrivate | classfile.AccProtected |
		classfile.AccStatic | classfile.AccFinal | classfile.AccAbstract)
	switch c.Kind {
	case bind.KindInterface:
		acc |= classfile.AccInterface | classfile.AccAbstract | classfile.AccStatic
		acc &^= uint16(classfile.AccFinal)
	case bind.KindAnnotation:
		acc |= classfile.AccAnnotation | classfile.AccInterface | classfile.AccAbstract | classfile.AccStatic
		acc &^= uint16(classfile.AccFinal)
	case bind.KindEnum:
		acc |= classfile.AccEnum | classfile.AccStatic
		if !enumHasSpecializedConsts(c) {
			acc |= classfile.AccFinal
		}
	}
	return acc
}

func enumHasSpecializedConsts(c *bind.TypeBoundClass) bool {
	if c.Tree == nil {
		return false
	}
	for _, ec := range c.Tree.Consts {
		if ec.HasBody {
			return true
		}
	}
	return false
}

func (l *lowerer) classIsGeneric(c *bind.TypeBoundClass) bool {
	if len(c.TyParams) > 0 {
		return true
	}
	if c.Super != nil && sig.NeedsSignature(c.Super) {
		return true
	}
	for _, i := range c.Interfaces {
		if sig.NeedsSignature(i) {
			return true
		}
	}
	return false
}

func superOrObject(c *bind.TypeBoundClass) sym.Type {
	if c.Super != nil {
		return c.Super
	}
	return sym.AsNonParameterizedClassTy(sym.ObjectClass)
}

func tyParamInfos(tps []bind.TyParamData) []sig.TyParamInfo {
	out := make([]sig.TyParamInfo, 0, len(tps))
	for _, tp := range tps {
		out = append(out, sig.TyParamInfo{
			Name:       tp.Sym.Name,
			ClassBound: tp.ClassBound,
			IntfBounds: tp.IntfBounds,
		})
	}
	return out
}

// erasedSym returns the erased class symbol of a supertype reference.
func erasedSym(t sym.Type) sym.ClassSymbol {
	if ct, ok := t.(sym.ClassTy); ok {
		return ct.Sym()
	}
	return sym.ObjectClass
}

// partitionAnnos splits annotation uses by retention: runtime-visible,
// class-file (invisible), and source (dropped).
func partitionAnnos(annos []sym.AnnoInfo) (visible, invisible []classfile.Annotation) {
	for _, a := range annos {
		if a.Sym == "" {
			continue
		}
		switch a.Retention {
		case sym.RetentionSource:
			continue
		case sym.RetentionRuntime:
			visible = append(visible, annoRecord(a))
		default:
			invisible = append(invisible, annoRecord(a))
		}
	}
	return visible, invisible
}

func annoRecord(a sym.AnnoInfo) classfile.Annotation {
	rec := classfile.Annotation{TypeDescriptor: "L" + string(a.Sym) + ";"}
	for _, e := range a.Elements {
		rec.Elements = append(rec.Elements, classfile.AnnotationElement{Name: e.Name, Value: e.Value})
	}
	return rec
}

func isDeprecated(annos []sym.AnnoInfo) bool {
	for _, a := range annos {
		if a.Sym == sym.DeprecatedClass {
			return true
		}
	}
	return false
}

// innerCollector accumulates the InnerClasses attribute: every nested
// class the emitted class mentions, transitively closed over the
// nesting chains, source classes before class-path classes.
type innerCollector struct {
	res  *bind.Result
	seen map[sym.ClassSymbol]bool
	syms []sym.ClassSymbol
}

func newInnerCollector(res *bind.Result) *innerCollector {
	return &innerCollector{res: res, seen: make(map[sym.ClassSymbol]bool)}
}

// addSym records a referenced class, expanding its nesting chain.
func (ic *innerCollector) addSym(s sym.ClassSymbol) {
	if s == "" || !strings.ContainsRune(string(s), '$') {
		return
	}
	ic.addChain(s)
}

// addChain records a class and every enclosing level above it.
func (ic *innerCollector) addChain(s sym.ClassSymbol) {
	name := string(s)
	for {
		i := strings.LastIndexByte(name, '$')
		if i < 0 {
			return
		}
		cs := sym.ClassSymbol(name)
		if !ic.seen[cs] {
			ic.seen[cs] = true
			ic.syms = append(ic.syms, cs)
		}
		name = name[:i]
	}
}

// addType records every nested class mentioned anywhere in a type.
func (ic *innerCollector) addType(t sym.Type) {
	switch v := t.(type) {
	case sym.ClassTy:
		for _, seg := range v.Segments {
			ic.addSym(seg.Sym)
			for _, a := range seg.Args {
				ic.addType(a)
			}
		}
	case sym.ArrayTy:
		ic.addType(v.Elem)
	case sym.WildTy:
		if v.Bound != nil {
			ic.addType(v.Bound)
		}
	}
}

// entries produces the attribute rows: source classes first, in binder
// order (res.Order), then class-path classes sorted by binary name for
// determinism.
func (ic *innerCollector) entries() []classfile.InnerClass {
	sorted := append([]sym.ClassSymbol{}, ic.syms...)
	declIdx := make(map[sym.ClassSymbol]int, len(ic.res.Order))
	for i, s := range ic.res.Order {
		declIdx[s] = i
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		di, iOK := declIdx[sorted[i]]
		dj, jOK := declIdx[sorted[j]]
		switch {
		case iOK && jOK:
			return di < dj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return sorted[i] < sorted[j]
		}
	})

	out := make([]classfile.InnerClass, 0, len(sorted))
	for _, s := range sorted {
		entry := classfile.InnerClass{Inner: string(s), Name: s.Simple()}
		if c := ic.res.Env.Class(s); c != nil {
			entry.Outer = string(c.OwnerClass)
			entry.Name = c.SimpleName
			if c.Tree != nil {
				entry.Access = innerAccess(c)
			} else {
				entry.Access = c.Access
			}
		} else {
			// Undecodable reference; fall back to name structure.
			name := string(s)
			entry.Outer = name[:strings.LastIndexByte(name, '$')]
		}
		out = append(out, entry)
	}
	return out
}
