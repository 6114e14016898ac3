// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bind

import (
	"log/slog"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// Result is a bound program: the source arena, the topological class
// order that governed binding, and the combined environment for
// resolving class-path supertypes during lowering.
type Result struct {
	Units   []*ast.CompUnit
	Classes map[sym.ClassSymbol]*TypeBoundClass
	Order   []sym.ClassSymbol
	Env     Env
}

// binder carries the state threaded through the five phases. One
// binder instance processes one set of compilation units.
type binder struct {
	units []*ast.CompUnit
	sink  *diag.Sink
	cp    *cpEnv
	log   *slog.Logger

	classes   map[sym.ClassSymbol]*TypeBoundClass
	declOrder []sym.ClassSymbol
	scopes    map[*ast.CompUnit]*unitScope

	// Phase III symbol-level hierarchy, kept for member lookup before
	// full types exist.
	superSyms map[sym.ClassSymbol]sym.ClassSymbol
	ifaceSyms map[sym.ClassSymbol][]sym.ClassSymbol
	order     []sym.ClassSymbol

	pendingAnnos  []pendingAnno
	pendingConsts []*pendingConst
	env           Env
}

// Bind runs the five binding phases over the given units.
//
// Recoverable problems are reported to sink and binding continues with
// sentinel substitutions; callers must check sink before lowering. The
// returned Result is complete even in the presence of diagnostics.
func Bind(units []*ast.CompUnit, cp ClassPath, sink *diag.Sink, log *slog.Logger) *Result {
	if log == nil {
		log = slog.Default()
	}
	b := &binder{
		units:     units,
		sink:      sink,
		cp:        newCPEnv(cp, sink),
		log:       log,
		classes:   make(map[sym.ClassSymbol]*TypeBoundClass),
		scopes:    make(map[*ast.CompUnit]*unitScope),
		superSyms: make(map[sym.ClassSymbol]sym.ClassSymbol),
		ifaceSyms: make(map[sym.ClassSymbol][]sym.ClassSymbol),
	}
	b.env = &combinedEnv{source: b.classes, cp: b.cp}

	b.collectDecls()
	b.log.Debug("binder phase complete", "phase", "canonical_naming", "classes", len(b.classes))
	b.buildScopes()
	b.log.Debug("binder phase complete", "phase", "imports")
	b.bindHierarchy()
	b.log.Debug("binder phase complete", "phase", "hierarchy", "order", len(b.order))
	b.resolveTypes()
	b.log.Debug("binder phase complete", "phase", "type_resolution")
	b.bindConstants()
	b.log.Debug("binder phase complete", "phase", "constants")

	return &Result{
		Units:   units,
		Classes: b.classes,
		Order:   b.order,
		Env:     b.env,
	}
}

// collectDecls is phase I: assign a ClassSymbol to every type
// declaration and reject duplicates.
func (b *binder) collectDecls() {
	topLevel := make(map[sym.ClassSymbol]bool)
	for _, unit := range b.units {
		pkg := sym.PackageSymbol(unit.PackageName())
		prefix := pkg.Slashed()
		for _, d := range unit.Decls {
			var s sym.ClassSymbol
			if prefix == "" {
				s = sym.ClassSymbol(d.Name)
			} else {
				s = sym.ClassSymbol(prefix + "/" + d.Name)
			}
			if topLevel[s] {
				b.sink.Report(diag.DuplicateType, d.Pos, "duplicate declaration of %s", s.Dotted())
				continue
			}
			topLevel[s] = true
			b.addClass(s, d, pkg, "", unit)
		}
	}
}

// addClass records one declaration and recurses into member types.
func (b *binder) addClass(s sym.ClassSymbol, d *ast.TyDecl, pkg sym.PackageSymbol, owner sym.ClassSymbol, unit *ast.CompUnit) {
	c := &TypeBoundClass{
		Sym:         s,
		Kind:        classKind(d.Kind),
		Access:      uint16(d.Mods),
		Pkg:         pkg,
		OwnerClass:  owner,
		SimpleName:  d.Name,
		childByName: make(map[string]sym.ClassSymbol),
		Tree:        d,
		Unit:        unit,
		Pos:         d.Pos,
	}
	b.classes[s] = c
	b.declOrder = append(b.declOrder, s)

	for _, member := range d.Types {
		child := s.Nest(member.Name)
		if _, dup := c.childByName[member.Name]; dup {
			b.sink.Report(diag.DuplicateType, member.Pos, "duplicate member type %s in %s", member.Name, s.Dotted())
			continue
		}
		c.Children = append(c.Children, child)
		c.childByName[member.Name] = child
		b.addClass(child, member, pkg, s, unit)
	}
}

func classKind(k ast.TyKind) ClassKind {
	switch k {
	case ast.TyKindInterface:
		return KindInterface
	case ast.TyKindEnum:
		return KindEnum
	case ast.TyKindAnnotation:
		return KindAnnotation
	default:
		return KindClass
	}
}

// classExists probes for a binary name among source declarations and
// the class path without forcing a full decode.
func (b *binder) classExists(name string) bool {
	if _, ok := b.classes[sym.ClassSymbol(name)]; ok {
		return true
	}
	_, ok := b.cp.cp.Bytes(name)
	return ok
}

// childOf resolves a declared member class by simple name for either
// origin.
func (b *binder) childOf(s sym.ClassSymbol, name string) (sym.ClassSymbol, bool) {
	if c, ok := b.classes[s]; ok {
		return c.Child(name)
	}
	if c := b.cp.Class(s); c != nil {
		return c.Child(name)
	}
	return "", false
}

// supersOf returns the direct supertype symbols of a class from the
// phase III maps for source classes, or the decoded header for
// class-path classes.
func (b *binder) supersOf(s sym.ClassSymbol) []sym.ClassSymbol {
	if _, ok := b.classes[s]; ok {
		var out []sym.ClassSymbol
		if super, ok := b.superSyms[s]; ok && super != "" {
			out = append(out, super)
		}
		return append(out, b.ifaceSyms[s]...)
	}
	c := b.cp.Class(s)
	if c == nil {
		return nil
	}
	var out []sym.ClassSymbol
	if super := c.SuperSym(); super != "" {
		out = append(out, super)
	}
	for _, i := range c.Interfaces {
		if ct, ok := i.(sym.ClassTy); ok {
			out = append(out, ct.Sym())
		}
	}
	return out
}

// memberClass resolves name as a member type of s, searching the
// supertype closure. Inherited members are found after declared ones.
func (b *binder) memberClass(s sym.ClassSymbol, name string) (sym.ClassSymbol, bool) {
	seen := make(map[sym.ClassSymbol]bool)
	work := []sym.ClassSymbol{s}
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]
		if cur == "" || seen[cur] {
			continue
		}
		seen[cur] = true
		if child, ok := b.childOf(cur, name); ok {
			return child, true
		}
		work = append(work, b.supersOf(cur)...)
	}
	return "", false
}
