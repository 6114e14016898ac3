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

// expr reduces an expression node to the constant grammar. Constructs
// outside it become NonConst so the evaluator can report a precise
// NotAConstant.
func (w *walker) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	pos := w.pos(n)
	switch n.Type() {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		return &ast.Literal{Pos: pos, Kind: ast.LitInt, Text: w.text(n)}
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		return &ast.Literal{Pos: pos, Kind: ast.LitFloat, Text: w.text(n)}
	case "character_literal":
		return &ast.Literal{Pos: pos, Kind: ast.LitChar, Text: w.text(n)}
	case "string_literal":
		return &ast.Literal{Pos: pos, Kind: ast.LitString, Text: w.text(n)}
	case "true", "false":
		return &ast.Literal{Pos: pos, Kind: ast.LitBool, Text: w.text(n)}
	case "null_literal":
		return &ast.Literal{Pos: pos, Kind: ast.LitNull, Text: w.text(n)}
	case "identifier":
		return &ast.NameRef{Pos: pos, Parts: []string{w.text(n)}}
	case "field_access", "scoped_identifier":
		if parts, ok := w.flattenName(n); ok {
			return &ast.NameRef{Pos: pos, Parts: parts}
		}
		return &ast.NonConst{Pos: pos, Desc: "field access on a non-constant"}
	case "parenthesized_expression":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.IsNamed() {
				return w.expr(child)
			}
		}
		return &ast.NonConst{Pos: pos, Desc: "empty parenthesized expression"}
	case "unary_expression":
		return w.unary(n)
	case "binary_expression":
		return w.binary(n)
	case "ternary_expression":
		return &ast.Cond{
			Pos: pos,
			C:   w.expr(n.ChildByFieldName("condition")),
			T:   w.expr(n.ChildByFieldName("consequence")),
			F:   w.expr(n.ChildByFieldName("alternative")),
		}
	case "cast_expression":
		t := w.ty(n.ChildByFieldName("type"))
		v := w.expr(n.ChildByFieldName("value"))
		if t == nil || v == nil {
			return &ast.NonConst{Pos: pos, Desc: "malformed cast"}
		}
		return &ast.Cast{Pos: pos, Type: t, E: v}
	case "class_literal":
		for i := 0; i < int(n.ChildCount()); i++ {
			if t := w.ty(n.Child(i)); t != nil {
				return &ast.ClassLit{Pos: pos, Type: t}
			}
		}
		return &ast.NonConst{Pos: pos, Desc: "malformed class literal"}
	case "array_initializer":
		init := &ast.ArrayInit{Pos: pos}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if !child.IsNamed() {
				continue
			}
			if e := w.elementValue(child); e != nil {
				init.Elems = append(init.Elems, e)
			}
		}
		return init
	case "annotation", "marker_annotation":
		return &ast.AnnoExpr{Pos: pos, Anno: w.annotation(n)}
	case "method_invocation":
		return &ast.NonConst{Pos: pos, Desc: "method invocation"}
	case "object_creation_expression":
		return &ast.NonConst{Pos: pos, Desc: "object creation"}
	case "array_creation_expression":
		return &ast.NonConst{Pos: pos, Desc: "array creation"}
	default:
		return &ast.NonConst{Pos: pos, Desc: n.Type()}
	}
}

// elementValue reduces annotation-argument position values, which
// additionally allow nested annotations and array initializers.
func (w *walker) elementValue(n *sitter.Node) ast.Expr {
	switch n.Type() {
	case "element_value_array_initializer":
		init := &ast.ArrayInit{Pos: w.pos(n)}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if !child.IsNamed() {
				continue
			}
			if e := w.elementValue(child); e != nil {
				init.Elems = append(init.Elems, e)
			}
		}
		return init
	default:
		return w.expr(n)
	}
}

// flattenName flattens nested field accesses over identifiers into a
// dotted name; fails when any link is not a plain identifier.
func (w *walker) flattenName(n *sitter.Node) ([]string, bool) {
	switch n.Type() {
	case "identifier", "type_identifier":
		return []string{w.text(n)}, true
	case "field_access":
		obj := n.ChildByFieldName("object")
		field := n.ChildByFieldName("field")
		if obj == nil || field == nil || field.Type() != "identifier" {
			return nil, false
		}
		base, ok := w.flattenName(obj)
		if !ok {
			return nil, false
		}
		return append(base, w.text(field)), true
	case "scoped_identifier":
		parts := splitName(w.text(n))
		return parts, len(parts) > 0
	default:
		return nil, false
	}
}

func (w *walker) unary(n *sitter.Node) ast.Expr {
	pos := w.pos(n)
	operand := w.expr(n.ChildByFieldName("operand"))
	if operand == nil {
		return &ast.NonConst{Pos: pos, Desc: "malformed unary expression"}
	}
	var op ast.UnOp
	switch w.fieldText(n, "operator") {
	case "+":
		op = ast.UnPlus
	case "-":
		op = ast.UnNeg
	case "~":
		op = ast.UnBitNot
	case "!":
		op = ast.UnNot
	default:
		return &ast.NonConst{Pos: pos, Desc: "unsupported unary operator"}
	}
	return &ast.Unary{Pos: pos, Op: op, E: operand}
}

func (w *walker) binary(n *sitter.Node) ast.Expr {
	pos := w.pos(n)
	l := w.expr(n.ChildByFieldName("left"))
	r := w.expr(n.ChildByFieldName("right"))
	if l == nil || r == nil {
		return &ast.NonConst{Pos: pos, Desc: "malformed binary expression"}
	}
	var op ast.BinOp
	switch w.fieldText(n, "operator") {
	case "+":
		op = ast.BinAdd
	case "-":
		op = ast.BinSub
	case "*":
		op = ast.BinMul
	case "/":
		op = ast.BinDiv
	case "%":
		op = ast.BinMod
	case "<<":
		op = ast.BinShl
	case ">>":
		op = ast.BinShr
	case ">>>":
		op = ast.BinUshr
	case "<":
		op = ast.BinLt
	case ">":
		op = ast.BinGt
	case "<=":
		op = ast.BinLe
	case ">=":
		op = ast.BinGe
	case "==":
		op = ast.BinEq
	case "!=":
		op = ast.BinNe
	case "&":
		op = ast.BinAnd
	case "^":
		op = ast.BinXor
	case "|":
		op = ast.BinOr
	case "&&":
		op = ast.BinLogAnd
	case "||":
		op = ast.BinLogOr
	default:
		return &ast.NonConst{Pos: pos, Desc: "unsupported binary operator"}
	}
	return &ast.Binary{Pos: pos, Op: op, L: l, R: r}
}

// annotation reduces an annotation use. A bare value argument is
// recorded under the element name "value".
func (w *walker) annotation(n *sitter.Node) *ast.Anno {
	a := &ast.Anno{Pos: w.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		a.Name = splitName(w.text(name))
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return a
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		switch child.Type() {
		case "element_value_pair":
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			if e := w.elementValue(value); e != nil {
				a.Args = append(a.Args, ast.AnnoArg{Name: w.text(key), Value: e})
			}
		default:
			if !child.IsNamed() {
				continue
			}
			if e := w.elementValue(child); e != nil {
				a.Args = append(a.Args, ast.AnnoArg{Name: "value", Value: e})
			}
		}
	}
	return a
}
