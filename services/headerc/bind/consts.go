// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bind

import (
	"errors"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/constant"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// pendingConst is a field initializer or annotation element default
// awaiting evaluation. Entries are created in (class topo order,
// declaration order), which fixes the deterministic worklist order.
type pendingConst struct {
	field  *FieldInfo  // exactly one of field/method is set
	method *MethodInfo
	scope  *clsScope
	expr   ast.Expr
	target sym.Type
	pos    ast.Pos
	failed bool
}

// pendingAnno is an annotation use whose arguments await evaluation.
type pendingAnno struct {
	tree  *ast.Anno
	scope *clsScope
	slot  *sym.AnnoInfo
}

// bindConstants is phase V: drive the worklist over pending constants
// until fixpoint, then evaluate annotation arguments against the now
// complete constant environment.
func (b *binder) bindConstants() {
	pending := make(map[sym.FieldSymbol]*pendingConst)
	for _, p := range b.pendingConsts {
		if p.field != nil {
			pending[p.field.Sym] = p
		}
	}

	// Iterations are bounded by the square of the number of pending
	// entries: each full pass either resolves at least one entry or
	// reaches the fixpoint.
	for {
		progress := false
		for _, p := range b.pendingConsts {
			if p.failed || p.resolved() {
				continue
			}
			env := &evalEnv{b: b, scope: p.scope, pending: pending}
			v, err := constant.Evaluate(p.expr, env)
			if err != nil {
				var blocked *constant.BlockedError
				if errors.As(err, &blocked) {
					continue
				}
				p.failed = true
				if p.field != nil {
					delete(pending, p.field.Sym)
				}
				var nc *constant.NotConstantError
				if errors.As(err, &nc) {
					b.sink.Report(diag.NotAConstant, nc.Pos, "%s", nc.Desc)
				} else {
					b.sink.Report(diag.NotAConstant, p.pos, "%v", err)
				}
				continue
			}
			b.store(p, v, pending)
			progress = true
		}
		if !progress {
			break
		}
	}

	for _, p := range b.pendingConsts {
		if p.failed || p.resolved() {
			continue
		}
		name := "<default>"
		if p.field != nil {
			name = p.field.Sym.Name
		} else if p.method != nil {
			name = p.method.Sym.Name
		}
		b.sink.Report(diag.CyclicConstant, p.pos, "constant %s depends on itself", name)
	}

	b.bindAnnoValues()
}

func (p *pendingConst) resolved() bool {
	if p.field != nil {
		return p.field.Value != nil
	}
	return p.method.Default != nil
}

// store coerces the evaluated value to the declared type and records
// it. A value outside the declared type's range is not a constant.
func (b *binder) store(p *pendingConst, v sym.Const, pending map[sym.FieldSymbol]*pendingConst) {
	if p.field != nil {
		coerced, ok := constant.Coerce(v, p.target)
		if !ok {
			p.failed = true
			delete(pending, p.field.Sym)
			b.sink.Report(diag.NotAConstant, p.pos, "value %s does not fit field type %s", v, p.target)
			return
		}
		p.field.Value = coerced
		delete(pending, p.field.Sym)
		return
	}
	coerced, ok := b.coerceElement(p.target, v)
	if !ok {
		p.failed = true
		b.sink.Report(diag.BadAnnotationValue, p.pos, "default value %s does not match element type %s", v, p.target)
		return
	}
	p.method.Default = coerced
}

// bindAnnoValues evaluates every annotation use registered during type
// resolution. Field constants are final at this point, so arguments
// that depend on constants from other units now see them.
func (b *binder) bindAnnoValues() {
	for i := range b.pendingAnnos {
		pa := &b.pendingAnnos[i]
		if pa.slot.Sym == "" {
			continue
		}
		info := sym.AnnoInfo{Sym: pa.slot.Sym}
		env := &evalEnv{b: b, scope: pa.scope, pending: nil}
		ok := true
		for _, arg := range pa.tree.Args {
			v, err := constant.Evaluate(arg.Value, env)
			if err != nil {
				b.sink.Report(diag.BadAnnotationValue, pa.tree.Pos, "annotation argument %s: %v", arg.Name, err)
				ok = false
				continue
			}
			if t, found := b.elementType(info.Sym, arg.Name); found {
				coerced, fits := b.coerceElement(t, v)
				if !fits {
					b.sink.Report(diag.BadAnnotationValue, pa.tree.Pos, "annotation argument %s: value %s does not match element type %s", arg.Name, v, t)
					ok = false
					continue
				}
				v = coerced
			}
			info.Elements = append(info.Elements, sym.AnnoElement{Name: arg.Name, Value: v})
		}
		if ok {
			*pa.slot = info
		} else {
			*pa.slot = sym.AnnoInfo{Sym: info.Sym}
		}
	}

	// Retention is stamped on every use only after all argument slots
	// are filled, so a use bound before its annotation's declaration
	// still sees the declaration's evaluated @Retention.
	for i := range b.pendingAnnos {
		pa := &b.pendingAnnos[i]
		if pa.slot.Sym == "" {
			continue
		}
		if decl := b.env.Class(pa.slot.Sym); decl != nil {
			pa.slot.Retention = declRetention(b, decl)
		}
	}

	// Source annotation declarations learn their retention from their
	// own, now evaluated, annotations.
	for _, s := range b.order {
		if c := b.classes[s]; c != nil && c.Kind == KindAnnotation {
			c.Retention = retentionOf(c.Annos)
		}
	}
}

// declRetention reads a bound annotation declaration's retention,
// resolving source declarations that have not reached their own
// phase V fill yet.
func declRetention(b *binder, decl *TypeBoundClass) sym.RetentionPolicy {
	if decl.Tree == nil {
		return decl.Retention
	}
	return retentionOf(decl.Annos)
}

// elementType finds the declared type of an annotation element.
func (b *binder) elementType(anno sym.ClassSymbol, name string) (sym.Type, bool) {
	c := b.env.Class(anno)
	if c == nil {
		return nil, false
	}
	for _, m := range c.Methods {
		if m.Sym.Name == name {
			return m.Return, true
		}
	}
	return nil, false
}

// coerceElement applies annotation element typing: scalars coerce like
// constants, single values wrap into one-element arrays, enum, class,
// and nested annotation values pass through.
func (b *binder) coerceElement(t sym.Type, v sym.Const) (sym.Const, bool) {
	switch ty := t.(type) {
	case sym.ArrayTy:
		arr, isArr := v.(sym.ArrayConst)
		if !isArr {
			e, ok := b.coerceElement(ty.Elem, v)
			if !ok {
				return nil, false
			}
			return sym.ArrayConst{Elems: []sym.Const{e}}, true
		}
		out := sym.ArrayConst{Elems: make([]sym.Const, 0, len(arr.Elems))}
		for _, e := range arr.Elems {
			c, ok := b.coerceElement(ty.Elem, e)
			if !ok {
				return nil, false
			}
			out.Elems = append(out.Elems, c)
		}
		return out, true
	case sym.PrimTy:
		return constant.Coerce(v, ty)
	case sym.ClassTy:
		switch ty.Sym() {
		case sym.StringClass:
			s, ok := v.(sym.StringConst)
			return s, ok
		case "java/lang/Class":
			c, ok := v.(sym.ClassConst)
			return c, ok
		}
		switch cv := v.(type) {
		case sym.EnumConst, sym.AnnoConst:
			return cv, true
		}
		return nil, false
	default:
		return v, true
	}
}

// evalEnv implements constant.Env for one class scope.
type evalEnv struct {
	b       *binder
	scope   *clsScope
	pending map[sym.FieldSymbol]*pendingConst
}

// ResolveTy implements constant.Env.
func (e *evalEnv) ResolveTy(t ast.Ty) (sym.Type, error) {
	return e.scope.resolveTy(t), nil
}

// ResolveAnno implements constant.Env for nested annotation values.
func (e *evalEnv) ResolveAnno(a *ast.Anno) (sym.AnnoInfo, error) {
	asym, ok := e.scope.resolveAnnoSym(a)
	if !ok {
		return sym.AnnoInfo{}, &constant.NotConstantError{Pos: a.Pos, Desc: "unresolved annotation"}
	}
	info := sym.AnnoInfo{Sym: asym}
	if decl := e.b.env.Class(asym); decl != nil {
		info.Retention = declRetention(e.b, decl)
	}
	for _, arg := range a.Args {
		v, err := constant.Evaluate(arg.Value, e)
		if err != nil {
			return sym.AnnoInfo{}, err
		}
		if t, found := e.b.elementType(asym, arg.Name); found {
			if coerced, fits := e.b.coerceElement(t, v); fits {
				v = coerced
			}
		}
		info.Elements = append(info.Elements, sym.AnnoElement{Name: arg.Name, Value: v})
	}
	return info, nil
}

// ResolveConst implements constant.Env: resolve a dotted name to a
// constant field or enum constant.
func (e *evalEnv) ResolveConst(pos ast.Pos, parts []string) (sym.Const, error) {
	if len(parts) == 1 {
		if f, ok := e.findSimpleField(parts[0]); ok {
			return e.fieldValue(pos, f)
		}
		return nil, &constant.NotConstantError{Pos: pos, Desc: "cannot resolve " + parts[0]}
	}

	// Qualified: the prefix names a type, the last part a field.
	ct := &ast.ClassT{Pos: pos}
	for _, part := range parts[:len(parts)-1] {
		ct.Segments = append(ct.Segments, &ast.ClassTSeg{Pos: pos, Name: part})
	}
	if syms, _, tyVar, ok := e.scope.resolveSegs(ct); ok && tyVar == nil {
		owner := syms[len(syms)-1]
		if f, ok := e.findFieldIn(owner, parts[len(parts)-1]); ok {
			return e.fieldValue(pos, f)
		}
	}
	return nil, &constant.NotConstantError{Pos: pos, Desc: "cannot resolve " + joinDotted(parts)}
}

// findSimpleField searches the scope chain for a field: the class and
// its supertype closure, each enclosing class likewise, then static
// imports.
func (e *evalEnv) findSimpleField(name string) (*FieldInfo, bool) {
	for cur := e.scope.cls; cur != nil; cur = e.b.classes[cur.OwnerClass] {
		if f, ok := e.findFieldIn(cur.Sym, name); ok {
			return f, true
		}
		if cur.OwnerClass == "" {
			break
		}
	}
	us := e.b.scopes[e.scope.cls.Unit]
	if us != nil {
		for _, si := range us.staticSingles[name] {
			if f, ok := e.findFieldIn(si.owner, name); ok {
				return f, true
			}
		}
		for _, owner := range us.staticOnDemand {
			if f, ok := e.findFieldIn(owner, name); ok {
				return f, true
			}
		}
	}
	return nil, false
}

// findFieldIn searches a class and its supertype closure.
func (e *evalEnv) findFieldIn(s sym.ClassSymbol, name string) (*FieldInfo, bool) {
	seen := make(map[sym.ClassSymbol]bool)
	work := []sym.ClassSymbol{s}
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]
		if cur == "" || seen[cur] {
			continue
		}
		seen[cur] = true
		c := e.b.env.Class(cur)
		if c == nil {
			continue
		}
		for _, f := range c.Fields {
			if f.Sym.Name == name {
				return f, true
			}
		}
		work = append(work, e.b.supersOf(cur)...)
	}
	return nil, false
}

// fieldValue turns a resolved field into a constant: its folded value,
// an enum constant reference, a blocked dependency, or a failure.
func (e *evalEnv) fieldValue(pos ast.Pos, f *FieldInfo) (sym.Const, error) {
	if f.Access&accEnum != 0 {
		return sym.EnumConst{Sym: f.Sym.Owner, Name: f.Sym.Name}, nil
	}
	if f.Value != nil {
		return f.Value, nil
	}
	if e.pending != nil {
		if _, waiting := e.pending[f.Sym]; waiting {
			return nil, &constant.BlockedError{Dep: f.Sym}
		}
	}
	return nil, &constant.NotConstantError{Pos: pos, Desc: f.Sym.Name + " is not a constant"}
}

func joinDotted(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}
