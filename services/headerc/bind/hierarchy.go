// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bind

import (
	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/diag"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// bindHierarchy is phase III: resolve declared superclass and
// interface names to symbols, reject cycles, and order classes so
// every supertype and enclosing class precedes its dependents.
func (b *binder) bindHierarchy() {
	for _, s := range b.declOrder {
		c := b.classes[s]
		if c == nil {
			continue
		}
		scope := &clsScope{b: b, cls: c}

		super := b.implicitSuper(c)
		if c.Tree.Extends != nil && c.Kind == KindClass {
			if resolved, ok := scope.resolveTyToSym(c.Tree.Extends); ok {
				super = resolved
			}
		}
		b.superSyms[s] = super

		for _, t := range interfaceTrees(c) {
			if resolved, ok := scope.resolveTyToSym(t); ok {
				b.ifaceSyms[s] = append(b.ifaceSyms[s], resolved)
			}
		}
	}

	b.checkCycles()
	b.topoSort()
}

// interfaceTrees returns the declared superinterface trees: the
// implements clause for classes and enums, the whole extends list for
// interfaces. Annotation declarations implicitly implement
// java.lang.annotation.Annotation, added during type resolution.
func interfaceTrees(c *TypeBoundClass) []ast.Ty {
	if c.Kind == KindInterface {
		var out []ast.Ty
		if c.Tree.Extends != nil {
			out = append(out, c.Tree.Extends)
		}
		for _, t := range c.Tree.Implements {
			out = append(out, t)
		}
		return out
	}
	out := make([]ast.Ty, 0, len(c.Tree.Implements))
	for _, t := range c.Tree.Implements {
		out = append(out, t)
	}
	return out
}

// implicitSuper returns the supertype a declaration gets when it
// names none.
func (b *binder) implicitSuper(c *TypeBoundClass) sym.ClassSymbol {
	switch c.Kind {
	case KindEnum:
		return sym.EnumClass
	case KindInterface, KindAnnotation:
		return sym.ObjectClass
	default:
		if c.Sym == sym.ObjectClass {
			return ""
		}
		return sym.ObjectClass
	}
}

// checkCycles walks the combined inheritance-plus-nesting graph over
// source classes; any class on a cycle is reported and its supertype
// reset to Object so later phases can proceed.
func (b *binder) checkCycles() {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[sym.ClassSymbol]int)

	var visit func(s sym.ClassSymbol) bool // true when a cycle runs through s
	visit = func(s sym.ClassSymbol) bool {
		c, source := b.classes[s]
		if !source || c == nil {
			return false // class-path classes cannot reach back into sources
		}
		switch color[s] {
		case gray:
			return true
		case black:
			return false
		}
		color[s] = gray
		cyclic := false
		edges := append([]sym.ClassSymbol{}, b.supersOf(s)...)
		if c.OwnerClass != "" {
			edges = append(edges, c.OwnerClass)
		}
		for _, e := range edges {
			if visit(e) {
				cyclic = true
			}
		}
		if cyclic {
			b.sink.Report(diag.CyclicHierarchy, c.Pos, "%s is an ancestor of itself", s.Dotted())
			b.superSyms[s] = sym.ObjectClass
			b.ifaceSyms[s] = nil
		}
		color[s] = black
		return cyclic
	}
	for _, s := range b.declOrder {
		visit(s)
	}
}

// topoSort orders source classes so supertypes and owners come first.
// Ties break by declaration order for determinism.
func (b *binder) topoSort() {
	visited := make(map[sym.ClassSymbol]bool)
	var order []sym.ClassSymbol

	var visit func(s sym.ClassSymbol)
	visit = func(s sym.ClassSymbol) {
		c, source := b.classes[s]
		if !source || c == nil || visited[s] {
			return
		}
		visited[s] = true
		if c.OwnerClass != "" {
			visit(c.OwnerClass)
		}
		for _, dep := range b.supersOf(s) {
			visit(dep)
		}
		order = append(order, s)
	}
	for _, s := range b.declOrder {
		visit(s)
	}
	b.order = order
}
