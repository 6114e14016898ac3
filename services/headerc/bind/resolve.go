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
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// clsScope resolves names in the context of one source class,
// optionally inside a generic method. Lookup order: method type
// parameters, then for each class in the enclosing chain its type
// parameters and member types (declared before inherited, and an
// inherited member hides an enclosing-scope simple name), then the
// unit scope.
type clsScope struct {
	b         *binder
	cls       *TypeBoundClass
	methodTPs []*ast.TyParam
	methodSym sym.MethodSymbol
}

// firstHit is the outcome of resolving the leading segment of a name.
type firstHit struct {
	tyVar   sym.TyVarSymbol
	isTyVar bool
	class   sym.ClassSymbol
	isClass bool
}

func (s *clsScope) resolveFirst(name string) (firstHit, bool) {
	for _, tp := range s.methodTPs {
		if tp.Name == name {
			return firstHit{tyVar: sym.TyVarSymbol{Owner: s.cls.Sym, Method: s.methodSym, Name: name}, isTyVar: true}, true
		}
	}
	for cur := s.cls; cur != nil; cur = s.b.classes[cur.OwnerClass] {
		for _, tp := range cur.Tree.TyParams {
			if tp.Name == name {
				return firstHit{tyVar: sym.TyVarSymbol{Owner: cur.Sym, Name: name}, isTyVar: true}, true
			}
		}
		if cur.SimpleName == name {
			return firstHit{class: cur.Sym, isClass: true}, true
		}
		if member, ok := s.b.memberClass(cur.Sym, name); ok {
			return firstHit{class: member, isClass: true}, true
		}
		if cur.OwnerClass == "" {
			break
		}
	}
	us := s.b.scopes[s.cls.Unit]
	if us == nil {
		return firstHit{}, false
	}
	r := us.lookup(s.b, name)
	if len(r.ambiguous) > 0 {
		names := make([]string, 0, len(r.ambiguous))
		for _, a := range r.ambiguous {
			names = append(names, a.Dotted())
		}
		s.b.sink.Report(diag.AmbiguousName, s.cls.Pos, "%s is ambiguous: %s", name, strings.Join(names, ", "))
		return firstHit{}, false
	}
	if r.found {
		return firstHit{class: r.sym, isClass: true}, true
	}
	return firstHit{}, false
}

// resolveSegs resolves the dotted segments of a class reference to the
// symbol of each consumed segment. It returns the symbols aligned with
// the segment index of the first class segment.
func (s *clsScope) resolveSegs(t *ast.ClassT) (syms []sym.ClassSymbol, firstIdx int, tyVar *sym.TyVarSymbol, ok bool) {
	first := t.Segments[0]
	hit, found := s.resolveFirst(first.Name)
	if found && hit.isTyVar {
		return nil, 0, &hit.tyVar, true
	}
	var cur sym.ClassSymbol
	idx := 0
	if found && hit.isClass {
		cur = hit.class
	} else {
		// Leading segments may name a package.
		prefix := first.Name
		resolved := false
		for i := 1; i < len(t.Segments); i++ {
			candidate := prefix + "/" + t.Segments[i].Name
			if s.b.classExists(candidate) {
				cur = sym.ClassSymbol(candidate)
				idx = i
				resolved = true
				break
			}
			prefix = candidate
		}
		if !resolved {
			return nil, 0, nil, false
		}
	}
	syms = append(syms, cur)
	for i := idx + 1; i < len(t.Segments); i++ {
		member, found := s.b.memberClass(cur, t.Segments[i].Name)
		if !found {
			return nil, 0, nil, false
		}
		cur = member
		syms = append(syms, cur)
	}
	return syms, idx, nil, true
}

// resolveTyToSym resolves a supertype name to its symbol (phase III).
// Type arguments are ignored at this stage.
func (s *clsScope) resolveTyToSym(t ast.Ty) (sym.ClassSymbol, bool) {
	ct, isClass := t.(*ast.ClassT)
	if !isClass {
		s.b.sink.Report(diag.SymbolNotFound, t.Position(), "supertype is not a class or interface type")
		return "", false
	}
	syms, _, tyVar, ok := s.resolveSegs(ct)
	if !ok {
		s.b.sink.Report(diag.SymbolNotFound, ct.Pos, "cannot resolve %s", classTName(ct))
		return "", false
	}
	if tyVar != nil {
		s.b.sink.Report(diag.SymbolNotFound, ct.Pos, "a type variable cannot be a supertype")
		return "", false
	}
	return syms[len(syms)-1], true
}

// resolveTy resolves a source type to the type model, reporting
// SymbolNotFound and substituting the error sentinel on failure.
func (s *clsScope) resolveTy(t ast.Ty) sym.Type {
	switch v := t.(type) {
	case *ast.PrimT:
		return sym.PrimTy{Kind: primKind(v.Kind)}
	case *ast.VoidT:
		return sym.VoidTy{}
	case *ast.ArrT:
		elem := s.resolveTy(v.Elem)
		if _, isVoid := elem.(sym.VoidTy); isVoid {
			s.b.sink.Report(diag.SymbolNotFound, v.Pos, "array of void")
			return sym.ErrTy{}
		}
		return sym.ArrayTy{Elem: elem, Annos: s.bindAnnos(v.Annos)}
	case *ast.WildT:
		w := sym.WildTy{Annos: s.bindAnnos(v.Annos)}
		switch v.Kind {
		case ast.WildExtends:
			w.Kind = sym.WildExtendsBound
			w.Bound = s.resolveTy(v.Bound)
		case ast.WildSuper:
			w.Kind = sym.WildSuperBound
			w.Bound = s.resolveTy(v.Bound)
		default:
			w.Kind = sym.WildUnbounded
		}
		return w
	case *ast.ClassT:
		return s.resolveClassT(v)
	default:
		return sym.ErrTy{}
	}
}

func (s *clsScope) resolveClassT(t *ast.ClassT) sym.Type {
	syms, firstIdx, tyVar, ok := s.resolveSegs(t)
	if !ok {
		s.b.sink.Report(diag.SymbolNotFound, t.Pos, "cannot resolve %s", classTName(t))
		return sym.ErrTy{}
	}
	if tyVar != nil {
		seg := t.Segments[0]
		if len(t.Segments) > 1 || len(seg.Args) > 0 {
			s.b.sink.Report(diag.SymbolNotFound, t.Pos, "type variable %s cannot be qualified or parameterized", seg.Name)
			return sym.ErrTy{}
		}
		return sym.TyVar{Sym: *tyVar, Annos: s.bindAnnos(seg.Annos)}
	}
	segs := make([]sym.ClassTySeg, 0, len(syms))
	for i, cs := range syms {
		tseg := t.Segments[firstIdx+i]
		seg := sym.ClassTySeg{Sym: cs, Annos: s.bindAnnos(tseg.Annos)}
		for _, a := range tseg.Args {
			seg.Args = append(seg.Args, s.resolveTy(a))
		}
		segs = append(segs, seg)
	}
	return sym.ClassTy{Segments: segs}
}

// bindAnnos resolves annotation class symbols now and registers the
// argument expressions for evaluation in the constant phase.
func (s *clsScope) bindAnnos(annos []*ast.Anno) []sym.AnnoInfo {
	if len(annos) == 0 {
		return nil
	}
	out := make([]sym.AnnoInfo, len(annos))
	for i, a := range annos {
		asym, ok := s.resolveAnnoSym(a)
		if !ok {
			continue
		}
		out[i] = sym.AnnoInfo{Sym: asym}
		s.b.pendingAnnos = append(s.b.pendingAnnos, pendingAnno{tree: a, scope: s, slot: &out[i]})
	}
	return out
}

func (s *clsScope) resolveAnnoSym(a *ast.Anno) (sym.ClassSymbol, bool) {
	ct := &ast.ClassT{Pos: a.Pos}
	for _, part := range a.Name {
		ct.Segments = append(ct.Segments, &ast.ClassTSeg{Pos: a.Pos, Name: part})
	}
	syms, _, tyVar, ok := s.resolveSegs(ct)
	if !ok || tyVar != nil {
		s.b.sink.Report(diag.SymbolNotFound, a.Pos, "cannot resolve annotation @%s", strings.Join(a.Name, "."))
		return "", false
	}
	return syms[len(syms)-1], true
}

func classTName(t *ast.ClassT) string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		parts = append(parts, seg.Name)
	}
	return strings.Join(parts, ".")
}

func primKind(k ast.PrimTyKind) sym.PrimKind {
	switch k {
	case ast.PrimBoolean:
		return sym.Boolean
	case ast.PrimByte:
		return sym.Byte
	case ast.PrimChar:
		return sym.Char
	case ast.PrimShort:
		return sym.Short
	case ast.PrimInt:
		return sym.Int
	case ast.PrimLong:
		return sym.Long
	case ast.PrimFloat:
		return sym.Float
	default:
		return sym.Double
	}
}

// resolveTypes is phase IV: for each class in hierarchy order, resolve
// type-parameter bounds, supertypes with their arguments, member
// signatures, and annotation class symbols.
func (b *binder) resolveTypes() {
	for _, s := range b.order {
		c := b.classes[s]
		if c == nil {
			continue
		}
		b.resolveClass(c)
	}
}

func (b *binder) resolveClass(c *TypeBoundClass) {
	scope := &clsScope{b: b, cls: c}

	c.TyParams = b.resolveTyParams(scope, c.Tree.TyParams, c.Sym, sym.MethodSymbol{})

	// Supertype with type arguments. Enums get Enum<Self>, annotations
	// implement java.lang.annotation.Annotation.
	superSym := b.superSyms[c.Sym]
	switch {
	case superSym == "":
		c.Super = nil
	case c.Kind == KindClass && c.Tree.Extends != nil && superSym != sym.ObjectClass:
		c.Super = scope.resolveTy(c.Tree.Extends)
	case c.Kind == KindEnum:
		c.Super = sym.AsClassTy(sym.ClassTySeg{
			Sym:  sym.EnumClass,
			Args: []sym.Type{sym.AsNonParameterizedClassTy(c.Sym)},
		})
	default:
		c.Super = sym.AsNonParameterizedClassTy(superSym)
	}

	for _, t := range interfaceTrees(c) {
		c.Interfaces = append(c.Interfaces, scope.resolveTy(t))
	}
	if c.Kind == KindAnnotation {
		c.Interfaces = append(c.Interfaces, sym.AsNonParameterizedClassTy(sym.AnnotationClass))
	}

	c.Annos = scope.bindAnnos(c.Tree.Annos)

	b.resolveFields(scope, c)
	b.resolveMethods(scope, c)
}

func (b *binder) resolveTyParams(scope *clsScope, tps []*ast.TyParam, owner sym.ClassSymbol, method sym.MethodSymbol) []TyParamData {
	out := make([]TyParamData, 0, len(tps))
	for _, tp := range tps {
		data := TyParamData{
			Sym:   sym.TyVarSymbol{Owner: owner, Method: method, Name: tp.Name},
			Annos: scope.bindAnnos(tp.Annos),
		}
		for i, bound := range tp.Bounds {
			t := scope.resolveTy(bound)
			if i == 0 && !b.isInterfaceTy(t) {
				data.ClassBound = t
			} else {
				data.IntfBounds = append(data.IntfBounds, t)
			}
		}
		out = append(out, data)
	}
	return out
}

// isInterfaceTy reports whether a resolved bound names an interface,
// so the first bound lands in the right signature slot.
func (b *binder) isInterfaceTy(t sym.Type) bool {
	ct, ok := t.(sym.ClassTy)
	if !ok {
		return false
	}
	c := b.env.Class(ct.Sym())
	return c != nil && (c.Kind == KindInterface || c.Kind == KindAnnotation)
}

func (b *binder) resolveFields(scope *clsScope, c *TypeBoundClass) {
	// Enum constants lower to public static final enum fields of the
	// enum's own type, before any declared fields.
	for _, ec := range c.Tree.Consts {
		f := &FieldInfo{
			Sym:    sym.FieldSymbol{Owner: c.Sym, Name: ec.Name},
			Type:   sym.AsNonParameterizedClassTy(c.Sym),
			Access: accPublic | accStatic | accFinal | accEnum,
			Annos:  scope.bindAnnos(ec.Annos),
		}
		c.Fields = append(c.Fields, f)
	}

	for _, fd := range c.Tree.Fields {
		access := uint16(fd.Mods)
		if c.Kind == KindInterface || c.Kind == KindAnnotation {
			access |= accPublic | accStatic | accFinal
		}
		f := &FieldInfo{
			Sym:    sym.FieldSymbol{Owner: c.Sym, Name: fd.Name},
			Type:   scope.resolveTy(fd.Type),
			Access: access,
			Annos:  scope.bindAnnos(fd.Annos),
			Decl:   fd,
		}
		c.Fields = append(c.Fields, f)

		if fd.Init != nil && access&accFinal != 0 && isConstableType(f.Type) {
			p := &pendingConst{field: f, scope: scope, expr: fd.Init, target: f.Type, pos: fd.Pos}
			b.pendingConsts = append(b.pendingConsts, p)
		}
	}
}

func (b *binder) resolveMethods(scope *clsScope, c *TypeBoundClass) {
	for _, md := range c.Tree.Methods {
		mscope := &clsScope{b: b, cls: c, methodTPs: md.TyParams}

		name := md.Name
		if md.Return == nil {
			name = "<init>"
		}
		// Method type variables are identified by owner and method
		// name; the erased key is not part of the variable's identity
		// because bounds must resolve before the key can exist.
		mscope.methodSym = sym.MethodSymbol{Owner: c.Sym, Name: name}

		ret := sym.Type(sym.VoidTy{})
		if md.Return != nil {
			ret = mscope.resolveTy(md.Return)
		}

		access := uint16(md.Mods) &^ uint16(ast.ModDefault)
		isDefault := md.Mods.Has(ast.ModDefault)
		switch c.Kind {
		case KindInterface:
			access |= accPublic
			if !isDefault && access&(accStatic|accPrivate) == 0 && !md.HasBody {
				access |= accAbstract
			}
		case KindAnnotation:
			access |= accPublic | accAbstract
		}

		mi := &MethodInfo{
			Return:    ret,
			Access:    access,
			IsDefault: isDefault,
			HasBody:   md.HasBody,
			Annos:     mscope.bindAnnos(md.Annos),
			Decl:      md,
		}

		mi.TyParams = b.resolveTyParams(mscope, md.TyParams, c.Sym, mscope.methodSym)

		for i, pd := range md.Params {
			p := ParamInfo{
				Name:  pd.Name,
				Type:  mscope.resolveTy(pd.Type),
				Annos: mscope.bindAnnos(pd.Annos),
			}
			if pd.Vararg && i == len(md.Params)-1 {
				mi.Access |= accVarargs
			}
			mi.Params = append(mi.Params, p)
		}
		for _, t := range md.Throws {
			mi.Throws = append(mi.Throws, mscope.resolveTy(t))
		}

		paramTys := make([]sym.Type, 0, len(mi.Params))
		for _, p := range mi.Params {
			paramTys = append(paramTys, p.Type)
		}
		erasureEnv := b.erasureEnv(c, mi.TyParams)
		key := sig.MethodDescriptor(paramTys, ret, erasureEnv)
		mi.Sym = sym.MethodSymbol{Owner: c.Sym, Name: name, Key: key}

		if md.Default != nil {
			p := &pendingConst{method: mi, scope: mscope, expr: md.Default, target: ret, pos: md.Pos}
			b.pendingConsts = append(b.pendingConsts, p)
		}

		c.Methods = append(c.Methods, mi)
	}
}

// erasureEnv builds the type-variable erasure environment for a class
// and an optional method scope, including enclosing classes.
func (b *binder) erasureEnv(c *TypeBoundClass, methodTPs []TyParamData) sig.TyVarEnv {
	env := tyVarEnv{}
	if len(methodTPs) > 0 {
		env.scopes = append(env.scopes, methodTPs)
	}
	for cur := c; cur != nil; cur = b.classes[cur.OwnerClass] {
		env.scopes = append(env.scopes, cur.TyParams)
		if cur.OwnerClass == "" {
			break
		}
	}
	return env
}

// isConstableType reports whether a field type can carry a constant:
// a primitive or java.lang.String.
func isConstableType(t sym.Type) bool {
	switch v := t.(type) {
	case sym.PrimTy:
		return true
	case sym.ClassTy:
		return v.Sym() == sym.StringClass
	default:
		return false
	}
}

// Class-file access bits used during binding; lowering finishes the
// translation.
const (
	accPublic   = 0x0001
	accPrivate  = 0x0002
	accStatic   = 0x0008
	accFinal    = 0x0010
	accVarargs  = 0x0080
	accAbstract = 0x0400
	accEnum     = 0x4000
)
