// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/headwindhq/headwind/services/headerc/ast"
)

// tyDecl reduces a type declaration of any kind.
func (w *walker) tyDecl(n *sitter.Node) *ast.TyDecl {
	d := &ast.TyDecl{Pos: w.pos(n)}
	switch n.Type() {
	case "class_declaration":
		d.Kind = ast.TyKindClass
	case "interface_declaration":
		d.Kind = ast.TyKindInterface
	case "enum_declaration":
		d.Kind = ast.TyKindEnum
	case "annotation_type_declaration":
		d.Kind = ast.TyKindAnnotation
	default:
		return nil
	}

	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = w.text(name)
	}
	if d.Name == "" {
		return nil
	}
	d.Mods, d.Annos = w.modifiers(n)

	if tps := n.ChildByFieldName("type_parameters"); tps != nil {
		d.TyParams = w.tyParams(tps)
	}

	// Supertype clauses. For interfaces the extends list goes to
	// Extends (first) plus Implements (rest) so the binder can treat
	// them uniformly.
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "superclass":
			// 'extends' Type
			for j := 0; j < int(child.ChildCount()); j++ {
				if t := w.ty(child.Child(j)); t != nil {
					d.Extends = t
					break
				}
			}
		case "super_interfaces", "extends_interfaces":
			list := w.typeList(child)
			if child.Type() == "extends_interfaces" && d.Kind == ast.TyKindInterface && len(list) > 0 {
				d.Extends = list[0]
				d.Implements = append(d.Implements, list[1:]...)
			} else {
				d.Implements = append(d.Implements, list...)
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		w.classBody(body, d)
	}
	return d
}

// classBody reduces members of any body kind: class_body,
// interface_body, enum_body, annotation_type_body.
func (w *walker) classBody(body *sitter.Node, d *ast.TyDecl) {
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Type() {
		case "field_declaration", "constant_declaration":
			d.Fields = append(d.Fields, w.fieldDecls(member)...)
		case "method_declaration":
			if m := w.methodDecl(member, false); m != nil {
				d.Methods = append(d.Methods, m)
			}
		case "constructor_declaration":
			if m := w.methodDecl(member, true); m != nil {
				d.Methods = append(d.Methods, m)
			}
		case "annotation_type_element_declaration":
			if m := w.annoElemDecl(member); m != nil {
				d.Methods = append(d.Methods, m)
			}
		case "class_declaration", "interface_declaration", "enum_declaration", "annotation_type_declaration":
			if nested := w.tyDecl(member); nested != nil {
				d.Types = append(d.Types, nested)
			}
		case "enum_constant":
			d.Consts = append(d.Consts, w.enumConst(member))
		case "enum_body_declarations":
			w.classBody(member, d)
		}
	}
}

func (w *walker) enumConst(n *sitter.Node) *ast.EnumConstDecl {
	ec := &ast.EnumConstDecl{Pos: w.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		ec.Name = w.text(name)
	}
	_, ec.Annos = w.modifiers(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "class_body" {
			ec.HasBody = true
		}
	}
	return ec
}

// fieldDecls reduces a field declaration, splitting multi-declarator
// declarations into one FieldDecl per variable.
func (w *walker) fieldDecls(n *sitter.Node) []*ast.FieldDecl {
	mods, annos := w.modifiers(n)
	baseTy := w.ty(n.ChildByFieldName("type"))
	if baseTy == nil {
		return nil
	}
	var out []*ast.FieldDecl
	for i := 0; i < int(n.ChildCount()); i++ {
		decl := n.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		f := &ast.FieldDecl{
			Pos:   w.pos(decl),
			Mods:  mods,
			Annos: annos,
			Type:  baseTy,
			Name:  w.fieldText(decl, "name"),
		}
		if dims := decl.ChildByFieldName("dimensions"); dims != nil {
			f.Type = w.wrapDims(f.Type, dims)
		}
		if value := decl.ChildByFieldName("value"); value != nil {
			f.Init = w.expr(value)
		}
		if f.Name != "" {
			out = append(out, f)
		}
	}
	return out
}

func (w *walker) methodDecl(n *sitter.Node, ctor bool) *ast.MethodDecl {
	m := &ast.MethodDecl{Pos: w.pos(n)}
	m.Mods, m.Annos = w.modifiers(n)
	if name := n.ChildByFieldName("name"); name != nil {
		m.Name = w.text(name)
	}
	if m.Name == "" {
		return nil
	}
	if tps := n.ChildByFieldName("type_parameters"); tps != nil {
		m.TyParams = w.tyParams(tps)
	}
	if !ctor {
		m.Return = w.ty(n.ChildByFieldName("type"))
		if m.Return == nil {
			return nil
		}
		// Legacy C-style trailing dimensions on the method.
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			m.Return = w.wrapDims(m.Return, dims)
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		m.Params = w.formalParams(params)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "throws":
			m.Throws = append(m.Throws, w.typeList(child)...)
		case "block", "constructor_body":
			m.HasBody = true
		}
	}
	return m
}

// annoElemDecl reduces an annotation element: a niladic method with an
// optional default value.
func (w *walker) annoElemDecl(n *sitter.Node) *ast.MethodDecl {
	m := &ast.MethodDecl{Pos: w.pos(n)}
	m.Mods, m.Annos = w.modifiers(n)
	if name := n.ChildByFieldName("name"); name != nil {
		m.Name = w.text(name)
	}
	m.Return = w.ty(n.ChildByFieldName("type"))
	if m.Name == "" || m.Return == nil {
		return nil
	}
	if dims := n.ChildByFieldName("dimensions"); dims != nil {
		m.Return = w.wrapDims(m.Return, dims)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "default_value" {
			for j := 0; j < int(child.ChildCount()); j++ {
				val := child.Child(j)
				if val.Type() == "default" || !val.IsNamed() {
					continue
				}
				if e := w.elementValue(val); e != nil {
					m.Default = e
					break
				}
			}
		}
	}
	if m.Default == nil {
		if val := n.ChildByFieldName("value"); val != nil {
			m.Default = w.elementValue(val)
		}
	}
	return m
}

func (w *walker) formalParams(n *sitter.Node) []*ast.ParamDecl {
	var out []*ast.ParamDecl
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "formal_parameter":
			p := &ast.ParamDecl{Pos: w.pos(child)}
			p.Mods, p.Annos = w.modifiers(child)
			p.Type = w.ty(child.ChildByFieldName("type"))
			p.Name = w.fieldText(child, "name")
			if dims := child.ChildByFieldName("dimensions"); dims != nil {
				p.Type = w.wrapDims(p.Type, dims)
			}
			if p.Type != nil {
				out = append(out, p)
			}
		case "spread_parameter":
			// Varargs surface as an array of the declared element.
			p := &ast.ParamDecl{Pos: w.pos(child), Vararg: true}
			p.Mods, p.Annos = w.modifiers(child)
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				switch sub.Type() {
				case "variable_declarator":
					p.Name = w.fieldText(sub, "name")
				default:
					if t := w.ty(sub); t != nil && p.Type == nil {
						p.Type = t
					}
				}
			}
			if p.Type != nil {
				p.Type = &ast.ArrT{Pos: p.Pos, Elem: p.Type}
				out = append(out, p)
			}
		}
	}
	return out
}

// tyParams reduces a type_parameters list.
func (w *walker) tyParams(n *sitter.Node) []*ast.TyParam {
	var out []*ast.TyParam
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "type_parameter" {
			continue
		}
		tp := &ast.TyParam{Pos: w.pos(child)}
		for j := 0; j < int(child.ChildCount()); j++ {
			sub := child.Child(j)
			switch sub.Type() {
			case "identifier", "type_identifier":
				if tp.Name == "" {
					tp.Name = w.text(sub)
				}
			case "type_bound":
				for k := 0; k < int(sub.ChildCount()); k++ {
					if t := w.ty(sub.Child(k)); t != nil {
						tp.Bounds = append(tp.Bounds, t)
					}
				}
			case "annotation", "marker_annotation":
				tp.Annos = append(tp.Annos, w.annotation(sub))
			}
		}
		if tp.Name != "" {
			out = append(out, tp)
		}
	}
	return out
}

// modifiers extracts the modifier keywords and annotations attached to
// a declaration node.
func (w *walker) modifiers(n *sitter.Node) (ast.Modifier, []*ast.Anno) {
	var mods ast.Modifier
	var annos []*ast.Anno
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			mod := child.Child(j)
			switch mod.Type() {
			case "public":
				mods |= ast.ModPublic
			case "private":
				mods |= ast.ModPrivate
			case "protected":
				mods |= ast.ModProtected
			case "static":
				mods |= ast.ModStatic
			case "final":
				mods |= ast.ModFinal
			case "abstract":
				mods |= ast.ModAbstract
			case "synchronized":
				mods |= ast.ModSynchronized
			case "volatile":
				mods |= ast.ModVolatile
			case "transient":
				mods |= ast.ModTransient
			case "native":
				mods |= ast.ModNative
			case "strictfp":
				mods |= ast.ModStrictfp
			case "default":
				mods |= ast.ModDefault
			case "annotation", "marker_annotation":
				annos = append(annos, w.annotation(mod))
			}
		}
	}
	return mods, annos
}

// fieldText returns the text of a named field child, or "".
func (w *walker) fieldText(n *sitter.Node, field string) string {
	if c := n.ChildByFieldName(field); c != nil {
		return w.text(c)
	}
	return ""
}

// typeList reduces every type child of a node (interface lists, throws
// clauses).
func (w *walker) typeList(n *sitter.Node) []ast.Ty {
	var out []ast.Ty
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "type_list" {
			out = append(out, w.typeList(child)...)
			continue
		}
		if t := w.ty(child); t != nil {
			out = append(out, t)
		}
	}
	return out
}
