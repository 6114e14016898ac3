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
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// onDemandImport is one wildcard import: a package prefix
// (java/util) or a class prefix (java/util/Map) whose members are
// imported.
type onDemandImport struct {
	prefix  string
	isClass bool
}

// staticImport is one single static import.
type staticImport struct {
	owner sym.ClassSymbol
	name  string
}

// unitScope is the phase II lookup scope of one compilation unit.
type unitScope struct {
	pkg            string // slashed, "" for the unnamed package
	singles        map[string]sym.ClassSymbol
	onDemand       []onDemandImport
	staticSingles  map[string][]staticImport
	staticOnDemand []sym.ClassSymbol
}

// buildScopes is phase II: build per-unit scopes from package and
// import declarations.
func (b *binder) buildScopes() {
	for _, unit := range b.units {
		us := &unitScope{
			pkg:           sym.PackageSymbol(unit.PackageName()).Slashed(),
			singles:       make(map[string]sym.ClassSymbol),
			staticSingles: make(map[string][]staticImport),
		}
		for _, imp := range unit.Imports {
			b.addImport(us, imp)
		}
		b.scopes[unit] = us
	}
}

func (b *binder) addImport(us *unitScope, imp *ast.ImportDecl) {
	if imp.Static {
		b.addStaticImport(us, imp)
		return
	}
	if imp.Wildcard {
		// import a.b.*; the prefix may name a package or a class.
		prefix := strings.Join(imp.Name, "/")
		if s, ok := b.resolveImportedClass(imp.Name); ok {
			us.onDemand = append(us.onDemand, onDemandImport{prefix: string(s), isClass: true})
		} else {
			us.onDemand = append(us.onDemand, onDemandImport{prefix: prefix})
		}
		return
	}
	s, ok := b.resolveImportedClass(imp.Name)
	if !ok {
		b.sink.Report(diag.SymbolNotFound, imp.Pos, "cannot resolve import %s", strings.Join(imp.Name, "."))
		return
	}
	simple := imp.Name[len(imp.Name)-1]
	if prev, dup := us.singles[simple]; dup && prev != s {
		b.sink.Report(diag.DuplicateType, imp.Pos, "conflicting imports for %s", simple)
		return
	}
	us.singles[simple] = s
}

func (b *binder) addStaticImport(us *unitScope, imp *ast.ImportDecl) {
	if imp.Wildcard {
		if s, ok := b.resolveImportedClass(imp.Name); ok {
			us.staticOnDemand = append(us.staticOnDemand, s)
		} else {
			b.sink.Report(diag.SymbolNotFound, imp.Pos, "cannot resolve import %s", strings.Join(imp.Name, "."))
		}
		return
	}
	if len(imp.Name) < 2 {
		b.sink.Report(diag.SymbolNotFound, imp.Pos, "malformed static import")
		return
	}
	owner, ok := b.resolveImportedClass(imp.Name[:len(imp.Name)-1])
	if !ok {
		b.sink.Report(diag.SymbolNotFound, imp.Pos, "cannot resolve import %s", strings.Join(imp.Name, "."))
		return
	}
	name := imp.Name[len(imp.Name)-1]
	us.staticSingles[name] = append(us.staticSingles[name], staticImport{owner: owner, name: name})
}

// resolveImportedClass resolves a canonical dotted name to a class
// symbol by probing each package/class split, longest package first.
func (b *binder) resolveImportedClass(parts []string) (sym.ClassSymbol, bool) {
	for split := len(parts) - 1; split >= 0; split-- {
		name := strings.Join(parts[:split+1], "/")
		if split < len(parts)-1 {
			name += "$" + strings.Join(parts[split+1:], "$")
		}
		if b.classExists(name) {
			return sym.ClassSymbol(name), true
		}
	}
	return "", false
}

// lookupResult is the outcome of a simple-name lookup.
type lookupResult struct {
	sym       sym.ClassSymbol
	found     bool
	ambiguous []sym.ClassSymbol // two or more on-demand candidates
}

// lookup resolves a simple name through the unit scope: single-type
// imports, the same package, on-demand imports, then the implicit
// platform root package. The enclosing type chain is consulted by the
// caller before this.
func (us *unitScope) lookup(b *binder, name string) lookupResult {
	if s, ok := us.singles[name]; ok {
		return lookupResult{sym: s, found: true}
	}
	pkgLocal := name
	if us.pkg != "" {
		pkgLocal = us.pkg + "/" + name
	}
	if b.classExists(pkgLocal) {
		return lookupResult{sym: sym.ClassSymbol(pkgLocal), found: true}
	}
	var hits []sym.ClassSymbol
	for _, od := range us.onDemand {
		var candidate string
		if od.isClass {
			candidate = od.prefix + "$" + name
			if s, ok := b.memberClass(sym.ClassSymbol(od.prefix), name); ok {
				candidate = string(s)
			}
		} else {
			candidate = od.prefix + "/" + name
		}
		if b.classExists(candidate) {
			dup := false
			for _, h := range hits {
				if h == sym.ClassSymbol(candidate) {
					dup = true
				}
			}
			if !dup {
				hits = append(hits, sym.ClassSymbol(candidate))
			}
		}
	}
	switch len(hits) {
	case 1:
		return lookupResult{sym: hits[0], found: true}
	default:
		if len(hits) > 1 {
			return lookupResult{ambiguous: hits}
		}
	}
	root := "java/lang/" + name
	if b.classExists(root) {
		return lookupResult{sym: sym.ClassSymbol(root), found: true}
	}
	return lookupResult{}
}
