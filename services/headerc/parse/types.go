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

// ty reduces a type node; nil for nodes that are not types.
func (w *walker) ty(n *sitter.Node) ast.Ty {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "void_type":
		return &ast.VoidT{Pos: w.pos(n)}
	case "boolean_type":
		return &ast.PrimT{Pos: w.pos(n), Kind: ast.PrimBoolean}
	case "integral_type", "floating_point_type":
		return w.primTy(n)
	case "type_identifier":
		return &ast.ClassT{Pos: w.pos(n), Segments: []*ast.ClassTSeg{{Pos: w.pos(n), Name: w.text(n)}}}
	case "scoped_type_identifier":
		return w.scopedTy(n)
	case "generic_type":
		return w.genericTy(n)
	case "array_type":
		elem := w.ty(n.ChildByFieldName("element"))
		if elem == nil {
			return nil
		}
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			return w.wrapDims(elem, dims)
		}
		return &ast.ArrT{Pos: w.pos(n), Elem: elem}
	case "annotated_type":
		// Annotations followed by the underlying type.
		var annos []*ast.Anno
		var under ast.Ty
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "annotation", "marker_annotation":
				annos = append(annos, w.annotation(child))
			default:
				if t := w.ty(child); t != nil {
					under = t
				}
			}
		}
		attachAnnos(under, annos)
		return under
	case "wildcard":
		return w.wildcardTy(n)
	}
	return nil
}

func (w *walker) primTy(n *sitter.Node) ast.Ty {
	var kind ast.PrimTyKind
	switch w.text(n) {
	case "byte":
		kind = ast.PrimByte
	case "char":
		kind = ast.PrimChar
	case "short":
		kind = ast.PrimShort
	case "int":
		kind = ast.PrimInt
	case "long":
		kind = ast.PrimLong
	case "float":
		kind = ast.PrimFloat
	case "double":
		kind = ast.PrimDouble
	default:
		kind = ast.PrimInt
	}
	return &ast.PrimT{Pos: w.pos(n), Kind: kind}
}

// scopedTy reduces a dotted type name such as java.util.Map.Entry into
// dot-separated segments.
func (w *walker) scopedTy(n *sitter.Node) ast.Ty {
	ct := &ast.ClassT{Pos: w.pos(n)}
	w.collectScopedSegs(n, ct)
	if len(ct.Segments) == 0 {
		return nil
	}
	return ct
}

func (w *walker) collectScopedSegs(n *sitter.Node, ct *ast.ClassT) {
	switch n.Type() {
	case "scoped_type_identifier":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "scoped_type_identifier", "generic_type":
				w.collectScopedSegs(child, ct)
			case "type_identifier", "identifier":
				ct.Segments = append(ct.Segments, &ast.ClassTSeg{Pos: w.pos(child), Name: w.text(child)})
			}
		}
	case "generic_type":
		// A parameterized qualifier: Outer<String>.Inner.
		inner := w.genericTy(n)
		if gct, ok := inner.(*ast.ClassT); ok {
			ct.Segments = append(ct.Segments, gct.Segments...)
		}
	case "type_identifier":
		ct.Segments = append(ct.Segments, &ast.ClassTSeg{Pos: w.pos(n), Name: w.text(n)})
	}
}

// genericTy reduces Name<Args>; the arguments attach to the last
// segment of the qualified name.
func (w *walker) genericTy(n *sitter.Node) ast.Ty {
	ct := &ast.ClassT{Pos: w.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "type_identifier":
			ct.Segments = append(ct.Segments, &ast.ClassTSeg{Pos: w.pos(child), Name: w.text(child)})
		case "scoped_type_identifier":
			w.collectScopedSegs(child, ct)
		case "type_arguments":
			if len(ct.Segments) == 0 {
				continue
			}
			last := ct.Segments[len(ct.Segments)-1]
			for j := 0; j < int(child.ChildCount()); j++ {
				if t := w.ty(child.Child(j)); t != nil {
					last.Args = append(last.Args, t)
				}
			}
		}
	}
	if len(ct.Segments) == 0 {
		return nil
	}
	return ct
}

func (w *walker) wildcardTy(n *sitter.Node) ast.Ty {
	wt := &ast.WildT{Pos: w.pos(n), Kind: ast.WildNone}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "extends":
			wt.Kind = ast.WildExtends
		case "super":
			wt.Kind = ast.WildSuper
		case "annotation", "marker_annotation":
			wt.Annos = append(wt.Annos, w.annotation(child))
		default:
			if t := w.ty(child); t != nil {
				wt.Bound = t
			}
		}
	}
	if wt.Bound == nil {
		wt.Kind = ast.WildNone
	}
	return wt
}

// wrapDims wraps one ArrT per dimension in a dimensions node,
// attaching any dimension annotations to the array level.
func (w *walker) wrapDims(elem ast.Ty, dims *sitter.Node) ast.Ty {
	count := 0
	var annos []*ast.Anno
	for i := 0; i < int(dims.ChildCount()); i++ {
		child := dims.Child(i)
		switch child.Type() {
		case "[":
			count++
		case "annotation", "marker_annotation":
			annos = append(annos, w.annotation(child))
		}
	}
	if count == 0 {
		count = 1
	}
	out := elem
	for i := 0; i < count; i++ {
		arr := &ast.ArrT{Pos: w.pos(dims), Elem: out}
		if i == count-1 {
			arr.Annos = annos
		}
		out = arr
	}
	return out
}

// attachAnnos pushes type annotations onto the node they annotate.
func attachAnnos(t ast.Ty, annos []*ast.Anno) {
	if len(annos) == 0 {
		return
	}
	switch v := t.(type) {
	case *ast.PrimT:
		v.Annos = append(v.Annos, annos...)
	case *ast.ClassT:
		if len(v.Segments) > 0 {
			last := v.Segments[len(v.Segments)-1]
			last.Annos = append(last.Annos, annos...)
		}
	case *ast.ArrT:
		v.Annos = append(v.Annos, annos...)
	case *ast.WildT:
		v.Annos = append(v.Annos, annos...)
	}
}
