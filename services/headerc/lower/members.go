// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lower

import (
	"github.com/headwindhq/headwind/services/headerc/bind"
	"github.com/headwindhq/headwind/services/headerc/classfile"
	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

func (l *lowerer) lowerFields(c *bind.TypeBoundClass, cf *classfile.ClassFile, collector *innerCollector) {
	for _, f := range c.Fields {
		desc := sig.Descriptor(f.Type, l.tvEnv)
		rec := &classfile.FieldRecord{
			Access:     f.Access,
			Name:       f.Sym.Name,
			Descriptor: desc,
		}
		if sig.NeedsSignature(f.Type) {
			rec.Signature = sig.FieldSignature(f.Type)
		}
		// Constants reach the attribute only on static final fields.
		if f.Value != nil && f.Access&classfile.AccStatic != 0 && f.Access&classfile.AccFinal != 0 {
			rec.ConstantValue = f.Value
		}
		rec.VisibleAnnos, rec.InvisibleAnnos = partitionAnnos(f.Annos)
		rec.Deprecated = isDeprecated(f.Annos)
		rec.VisibleTypeAnnos, rec.InvisibleTypeAnnos = typeAnnosAt(f.Type, classfile.TargetField, nil)
		collector.addType(f.Type)
		for _, a := range f.Annos {
			collector.addSym(a.Sym)
		}
		cf.Fields = append(cf.Fields, rec)
	}

	// The enum constant holder is synthesized alongside the constants.
	if c.Kind == bind.KindEnum {
		selfDesc := "L" + string(c.Sym) + ";"
		cf.Fields = append(cf.Fields, &classfile.FieldRecord{
			Access:     classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal | classfile.AccSynthetic,
			Name:       "$VALUES",
			Descriptor: "[" + selfDesc,
		})
	}
}

func (l *lowerer) lowerMethods(c *bind.TypeBoundClass, cf *classfile.ClassFile, collector *innerCollector) {
	sawCtor := false
	for _, m := range c.Methods {
		if m.Sym.Name == "<init>" {
			sawCtor = true
		}
		cf.Methods = append(cf.Methods, l.lowerMethod(c, m, collector))
	}

	switch c.Kind {
	case bind.KindClass:
		if !sawCtor {
			cf.Methods = append(cf.Methods, l.defaultConstructor(c))
		}
	case bind.KindEnum:
		if !sawCtor {
			cf.Methods = append(cf.Methods, l.defaultConstructor(c))
		}
		cf.Methods = append(cf.Methods, enumSynthetics(c)...)
	}
}

func (l *lowerer) lowerMethod(c *bind.TypeBoundClass, m *bind.MethodInfo, collector *innerCollector) *classfile.MethodRecord {
	params := make([]sym.Type, 0, len(m.Params)+2)
	ctor := m.Sym.Name == "<init>"

	// Constructors of enums and of inner classes carry synthetic
	// leading parameters the source never declares.
	var synthetic []sym.Type
	if ctor {
		synthetic = l.syntheticCtorParams(c)
		params = append(params, synthetic...)
	}
	for _, p := range m.Params {
		params = append(params, p.Type)
	}

	access := m.Access
	if ctor && c.Kind == bind.KindEnum {
		access = access&^uint16(classfile.AccPublic|classfile.AccProtected) | classfile.AccPrivate
	}

	ret := m.Return
	desc := sig.MethodDescriptor(params, ret, l.tvEnv)
	rec := &classfile.MethodRecord{
		Access:     access,
		Name:       m.Sym.Name,
		Descriptor: desc,
	}

	if l.methodIsGeneric(m) {
		declared := make([]sym.Type, 0, len(m.Params))
		for _, p := range m.Params {
			declared = append(declared, p.Type)
		}
		rec.Signature = sig.MethodSignature(tyParamInfos(m.TyParams), declared, ret, m.Throws)
	}

	for _, t := range m.Throws {
		rec.Exceptions = append(rec.Exceptions, string(erasedSym(t)))
		collector.addType(t)
	}
	rec.Default = m.Default
	rec.VisibleAnnos, rec.InvisibleAnnos = partitionAnnos(m.Annos)
	rec.Deprecated = isDeprecated(m.Annos)
	rec.VisibleTypeAnnos, rec.InvisibleTypeAnnos = typeAnnosAt(ret, classfile.TargetMethodReturn, nil)

	rec.ParamVisible, rec.ParamInvisible = paramAnnotations(m.Params)

	for _, p := range m.Params {
		collector.addType(p.Type)
	}
	collector.addType(ret)
	for _, a := range m.Annos {
		collector.addSym(a.Sym)
	}

	abstract := access&classfile.AccAbstract != 0
	native := access&classfile.AccNative != 0
	if !abstract && !native {
		rec.StubBody = true
		rec.ParamSlots = slotCount(desc)
	}
	return rec
}

// syntheticCtorParams returns the implicit leading constructor
// parameters: (String, int) for enums, the enclosing instance for
// non-static inner classes.
func (l *lowerer) syntheticCtorParams(c *bind.TypeBoundClass) []sym.Type {
	if c.Kind == bind.KindEnum {
		return []sym.Type{
			sym.AsNonParameterizedClassTy(sym.StringClass),
			sym.PrimTy{Kind: sym.Int},
		}
	}
	if c.OwnerClass != "" && c.Access&classfile.AccStatic == 0 && c.Kind == bind.KindClass {
		return []sym.Type{sym.AsNonParameterizedClassTy(c.OwnerClass)}
	}
	return nil
}

func (l *lowerer) defaultConstructor(c *bind.TypeBoundClass) *classfile.MethodRecord {
	access := c.Access & (classfile.AccPublic | classfile.AccProtected | classfile.AccPrivate)
	if c.Kind == bind.KindEnum {
		access = classfile.AccPrivate
	}
	params := l.syntheticCtorParams(c)
	desc := sig.MethodDescriptor(params, sym.VoidTy{}, l.tvEnv)
	return &classfile.MethodRecord{
		Access:     access,
		Name:       "<init>",
		Descriptor: desc,
		StubBody:   true,
		ParamSlots: slotCount(desc),
	}
}

// enumSynthetics builds values(), valueOf(String), marked synthetic so
// tools can tell them from user declarations.
func enumSynthetics(c *bind.TypeBoundClass) []*classfile.MethodRecord {
	selfDesc := "L" + string(c.Sym) + ";"
	values := &classfile.MethodRecord{
		Access:     classfile.AccPublic | classfile.AccStatic | classfile.AccSynthetic,
		Name:       "values",
		Descriptor: "()[" + selfDesc,
		StubBody:   true,
	}
	valueOf := &classfile.MethodRecord{
		Access:     classfile.AccPublic | classfile.AccStatic | classfile.AccSynthetic,
		Name:       "valueOf",
		Descriptor: "(Ljava/lang/String;)" + selfDesc,
		StubBody:   true,
		ParamSlots: 1,
	}
	return []*classfile.MethodRecord{values, valueOf}
}

func (l *lowerer) methodIsGeneric(m *bind.MethodInfo) bool {
	if len(m.TyParams) > 0 {
		return true
	}
	if sig.NeedsSignature(m.Return) {
		return true
	}
	for _, p := range m.Params {
		if sig.NeedsSignature(p.Type) {
			return true
		}
	}
	for _, t := range m.Throws {
		if sig.NeedsSignature(t) {
			return true
		}
	}
	return false
}

// paramAnnotations partitions per-parameter annotations; both slices
// stay nil when no parameter is annotated.
func paramAnnotations(params []bind.ParamInfo) (visible, invisible [][]classfile.Annotation) {
	anyVisible, anyInvisible := false, false
	vis := make([][]classfile.Annotation, len(params))
	invis := make([][]classfile.Annotation, len(params))
	for i, p := range params {
		vis[i], invis[i] = partitionAnnos(p.Annos)
		if len(vis[i]) > 0 {
			anyVisible = true
		}
		if len(invis[i]) > 0 {
			anyInvisible = true
		}
	}
	if anyVisible {
		visible = vis
	}
	if anyInvisible {
		invisible = invis
	}
	return visible, invisible
}

// slotCount computes argument slots from an erased method descriptor:
// long and double take two, everything else one.
func slotCount(desc string) int {
	slots := 0
	i := 1
	for i < len(desc) && desc[i] != ')' {
		switch desc[i] {
		case 'J', 'D':
			slots += 2
			i++
		case '[':
			// Arrays are references regardless of element: one slot.
			for i < len(desc) && desc[i] == '[' {
				i++
			}
			if i < len(desc) && desc[i] == 'L' {
				for i < len(desc) && desc[i] != ';' {
					i++
				}
			}
			i++
			slots++
		case 'L':
			for i < len(desc) && desc[i] != ';' {
				i++
			}
			i++
			slots++
		default:
			slots++
			i++
		}
	}
	return slots
}

// typeAnnosAt lifts annotations written on a type into type-annotation
// records with the given target and pre-encoded target info.
func typeAnnosAt(t sym.Type, target byte, targetInfo []byte) (visible, invisible []classfile.TypeAnnotation) {
	if t == nil {
		return nil, nil
	}
	if targetInfo == nil {
		targetInfo = []byte{}
	}
	var walk func(t sym.Type, path []classfile.TypePathStep)
	add := func(annos []sym.AnnoInfo, path []classfile.TypePathStep) {
		for _, a := range annos {
			if a.Sym == "" || a.Retention == sym.RetentionSource {
				continue
			}
			ta := classfile.TypeAnnotation{
				TargetType: target,
				TargetInfo: targetInfo,
				Path:       append([]classfile.TypePathStep{}, path...),
				Anno:       annoRecord(a),
			}
			if a.Retention == sym.RetentionRuntime {
				visible = append(visible, ta)
			} else {
				invisible = append(invisible, ta)
			}
		}
	}
	walk = func(t sym.Type, path []classfile.TypePathStep) {
		switch v := t.(type) {
		case sym.ClassTy:
			for si, seg := range v.Segments {
				segPath := path
				for n := 0; n < si; n++ {
					segPath = append(segPath, classfile.TypePathStep{Kind: 1})
				}
				add(seg.Annos, segPath)
				for ai, a := range seg.Args {
					walk(a, append(segPath, classfile.TypePathStep{Kind: 3, Arg: byte(ai)}))
				}
			}
		case sym.ArrayTy:
			add(v.Annos, path)
			walk(v.Elem, append(path, classfile.TypePathStep{Kind: 0}))
		case sym.TyVar:
			add(v.Annos, path)
		case sym.WildTy:
			add(v.Annos, path)
			if v.Bound != nil {
				walk(v.Bound, append(path, classfile.TypePathStep{Kind: 2}))
			}
		}
	}
	walk(t, nil)
	return visible, invisible
}

// classTypeAnnos collects supertype-position type annotations: index
// 65535 for the extends clause, 0-based indices for implements.
func classTypeAnnos(c *bind.TypeBoundClass) (visible, invisible []classfile.TypeAnnotation) {
	if c.Super != nil {
		v, i := typeAnnosAt(c.Super, classfile.TargetSupertype, []byte{0xFF, 0xFF})
		visible = append(visible, v...)
		invisible = append(invisible, i...)
	}
	for idx, iface := range c.Interfaces {
		v, i := typeAnnosAt(iface, classfile.TargetSupertype, []byte{byte(idx >> 8), byte(idx)})
		visible = append(visible, v...)
		invisible = append(invisible, i...)
	}
	return visible, invisible
}
