// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package constant folds compile-time constant expressions.
//
// Evaluate walks the constant-expression subset of the tree model and
// produces a sym.Const. Resolution of names and types is delegated to
// an Env supplied by the binder, so the evaluator itself is pure.
//
// Evaluation is step-wise: when an expression depends on a field whose
// value has not been computed yet, Evaluate fails with *BlockedError
// carrying the dependency, and the binder's worklist re-drives the
// evaluation once the dependency is available. An expression that
// stays blocked at the fixpoint is a CyclicConstant; one outside the
// constant grammar is a NotAConstant (*NotConstantError).
//
// Precision follows the platform exactly: integer arithmetic wraps in
// two's complement at the operand's promoted width, shift counts mask
// to 5 or 6 bits, floating point is IEEE-754 with round-to-nearest-
// even, and string concatenation uses the canonical numeric-to-string
// conversions.
package constant

import (
	"math"
	"strconv"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// Env supplies the context an expression needs: constant-field lookup
// and type resolution for casts and class literals.
type Env interface {
	// ResolveConst resolves a dotted name to a constant value. It
	// returns *BlockedError when the name denotes a constant field
	// whose value is still pending, and *NotConstantError when the
	// name does not denote a constant at all.
	ResolveConst(pos ast.Pos, parts []string) (sym.Const, error)

	// ResolveTy resolves a source type for a cast or class literal.
	ResolveTy(t ast.Ty) (sym.Type, error)

	// ResolveAnno resolves a nested annotation use to its evaluated
	// form. Only annotation-argument evaluation exercises this.
	ResolveAnno(a *ast.Anno) (sym.AnnoInfo, error)
}

// Evaluate folds e to a constant under env.
func Evaluate(e ast.Expr, env Env) (sym.Const, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return parseLiteral(n)
	case *ast.NameRef:
		return env.ResolveConst(n.Pos, n.Parts)
	case *ast.Unary:
		return evalUnary(n, env)
	case *ast.Binary:
		return evalBinary(n, env)
	case *ast.Cond:
		return evalCond(n, env)
	case *ast.Cast:
		return evalCast(n, env)
	case *ast.ClassLit:
		ty, err := env.ResolveTy(n.Type)
		if err != nil {
			return nil, err
		}
		return sym.ClassConst{Type: ty}, nil
	case *ast.ArrayInit:
		elems := make([]sym.Const, 0, len(n.Elems))
		for _, el := range n.Elems {
			v, err := Evaluate(el, env)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return sym.ArrayConst{Elems: elems}, nil
	case *ast.AnnoExpr:
		info, err := env.ResolveAnno(n.Anno)
		if err != nil {
			return nil, err
		}
		return sym.AnnoConst{Info: info}, nil
	case *ast.NonConst:
		return nil, notConst(n.Pos, "%s", n.Desc)
	default:
		return nil, notConst(e.Position(), "unsupported expression")
	}
}

func evalUnary(n *ast.Unary, env Env) (sym.Const, error) {
	v, err := Evaluate(n.E, env)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.UnNot:
		b, ok := v.(sym.BoolConst)
		if !ok {
			return nil, notConst(n.Pos, "operand of ! is not boolean")
		}
		return sym.BoolConst(!b), nil
	case ast.UnPlus:
		p, ok := promote(v)
		if !ok {
			return nil, notConst(n.Pos, "operand of unary + is not numeric")
		}
		return p.value(), nil
	case ast.UnNeg:
		p, ok := promote(v)
		if !ok {
			return nil, notConst(n.Pos, "operand of unary - is not numeric")
		}
		if p.isFloating() {
			p.f = -p.f
		} else {
			p.i = -p.i
		}
		return p.value(), nil
	case ast.UnBitNot:
		p, ok := promote(v)
		if !ok || p.isFloating() {
			return nil, notConst(n.Pos, "operand of ~ is not integral")
		}
		p.i = ^p.i
		return p.value(), nil
	}
	return nil, notConst(n.Pos, "unsupported unary operator")
}

func evalCond(n *ast.Cond, env Env) (sym.Const, error) {
	c, err := Evaluate(n.C, env)
	if err != nil {
		return nil, err
	}
	b, ok := c.(sym.BoolConst)
	if !ok {
		return nil, notConst(n.Pos, "condition is not boolean")
	}
	// Both branches must be constant for the whole expression to be;
	// evaluate both so dependencies surface regardless of the taken
	// branch, then select.
	t, err := Evaluate(n.T, env)
	if err != nil {
		return nil, err
	}
	f, err := Evaluate(n.F, env)
	if err != nil {
		return nil, err
	}
	if b {
		return t, nil
	}
	return f, nil
}

func evalCast(n *ast.Cast, env Env) (sym.Const, error) {
	v, err := Evaluate(n.E, env)
	if err != nil {
		return nil, err
	}
	ty, err := env.ResolveTy(n.Type)
	if err != nil {
		return nil, err
	}
	switch t := ty.(type) {
	case sym.PrimTy:
		return castPrim(v, t.Kind, n.Pos)
	case sym.ClassTy:
		if t.Sym() == sym.StringClass {
			if s, ok := v.(sym.StringConst); ok {
				return s, nil
			}
		}
		return nil, notConst(n.Pos, "cast to %s is not constant", t)
	default:
		return nil, notConst(n.Pos, "cast is not constant")
	}
}

func evalBinary(n *ast.Binary, env Env) (sym.Const, error) {
	l, err := Evaluate(n.L, env)
	if err != nil {
		return nil, err
	}

	// Short-circuit operators still require both operands constant,
	// but the platform's folding evaluates the right side regardless;
	// there are no side effects in constant expressions.
	r, err := Evaluate(n.R, env)
	if err != nil {
		return nil, err
	}

	// String concatenation wins over numeric addition.
	if n.Op == ast.BinAdd {
		if ls, ok := l.(sym.StringConst); ok {
			return sym.StringConst(string(ls) + concatText(r)), nil
		}
		if rs, ok := r.(sym.StringConst); ok {
			return sym.StringConst(concatText(l) + string(rs)), nil
		}
	}

	// String and boolean equality.
	if n.Op == ast.BinEq || n.Op == ast.BinNe {
		if ls, lok := l.(sym.StringConst); lok {
			rs, rok := r.(sym.StringConst)
			if !rok {
				return nil, notConst(n.Pos, "comparing String with non-String")
			}
			eq := ls == rs
			return sym.BoolConst(eq == (n.Op == ast.BinEq)), nil
		}
	}

	if lb, lok := l.(sym.BoolConst); lok {
		rb, rok := r.(sym.BoolConst)
		if !rok {
			return nil, notConst(n.Pos, "mixed boolean and non-boolean operands")
		}
		return evalBoolOp(n, bool(lb), bool(rb))
	}

	lp, lok := promote(l)
	rp, rok := promote(r)
	if !lok || !rok {
		return nil, notConst(n.Pos, "operands are not constants of a numeric type")
	}

	// Shifts promote each operand separately; everything else applies
	// binary numeric promotion.
	switch n.Op {
	case ast.BinShl, ast.BinShr, ast.BinUshr:
		return evalShift(n, lp, rp)
	}

	k := binaryKind(lp.kind, rp.kind)
	lp, rp = lp.widen(k), rp.widen(k)
	if lp.isFloating() {
		return evalFloatOp(n, lp, rp)
	}
	return evalIntOp(n, lp, rp)
}

func evalBoolOp(n *ast.Binary, l, r bool) (sym.Const, error) {
	switch n.Op {
	case ast.BinEq:
		return sym.BoolConst(l == r), nil
	case ast.BinNe:
		return sym.BoolConst(l != r), nil
	case ast.BinAnd, ast.BinLogAnd:
		return sym.BoolConst(l && r), nil
	case ast.BinOr, ast.BinLogOr:
		return sym.BoolConst(l || r), nil
	case ast.BinXor:
		return sym.BoolConst(l != r), nil
	default:
		return nil, notConst(n.Pos, "operator not applicable to booleans")
	}
}

func evalShift(n *ast.Binary, l, r promoted) (sym.Const, error) {
	if l.isFloating() || r.isFloating() {
		return nil, notConst(n.Pos, "shift operands must be integral")
	}
	if l.kind == sym.Int {
		s := uint(r.i) & 31
		v := int32(l.i)
		switch n.Op {
		case ast.BinShl:
			v <<= s
		case ast.BinShr:
			v >>= s
		case ast.BinUshr:
			v = int32(uint32(v) >> s)
		}
		return sym.IntConst(v), nil
	}
	s := uint(r.i) & 63
	v := l.i
	switch n.Op {
	case ast.BinShl:
		v <<= s
	case ast.BinShr:
		v >>= s
	case ast.BinUshr:
		v = int64(uint64(v) >> s)
	}
	return sym.LongConst(v), nil
}

func evalIntOp(n *ast.Binary, l, r promoted) (sym.Const, error) {
	wrap := func(v int64) sym.Const {
		if l.kind == sym.Int {
			return sym.IntConst(int32(v))
		}
		return sym.LongConst(v)
	}
	switch n.Op {
	case ast.BinAdd:
		return wrap(l.i + r.i), nil
	case ast.BinSub:
		return wrap(l.i - r.i), nil
	case ast.BinMul:
		if l.kind == sym.Int {
			return sym.IntConst(int32(l.i) * int32(r.i)), nil
		}
		return sym.LongConst(l.i * r.i), nil
	case ast.BinDiv:
		if r.i == 0 {
			return nil, notConst(n.Pos, "division by zero")
		}
		return wrap(l.i / r.i), nil
	case ast.BinMod:
		if r.i == 0 {
			return nil, notConst(n.Pos, "division by zero")
		}
		return wrap(l.i % r.i), nil
	case ast.BinAnd:
		return wrap(l.i & r.i), nil
	case ast.BinOr:
		return wrap(l.i | r.i), nil
	case ast.BinXor:
		return wrap(l.i ^ r.i), nil
	case ast.BinLt:
		return sym.BoolConst(l.i < r.i), nil
	case ast.BinGt:
		return sym.BoolConst(l.i > r.i), nil
	case ast.BinLe:
		return sym.BoolConst(l.i <= r.i), nil
	case ast.BinGe:
		return sym.BoolConst(l.i >= r.i), nil
	case ast.BinEq:
		return sym.BoolConst(l.i == r.i), nil
	case ast.BinNe:
		return sym.BoolConst(l.i != r.i), nil
	default:
		return nil, notConst(n.Pos, "operator not applicable to integral operands")
	}
}

func evalFloatOp(n *ast.Binary, l, r promoted) (sym.Const, error) {
	wrap := func(v float64) sym.Const {
		if l.kind == sym.Float {
			return sym.FloatConst(float32(v))
		}
		return sym.DoubleConst(v)
	}
	// Single-precision arithmetic rounds at each step.
	lf, rf := l.f, r.f
	if l.kind == sym.Float {
		lf, rf = float64(float32(lf)), float64(float32(rf))
	}
	switch n.Op {
	case ast.BinAdd:
		return wrap(lf + rf), nil
	case ast.BinSub:
		return wrap(lf - rf), nil
	case ast.BinMul:
		return wrap(lf * rf), nil
	case ast.BinDiv:
		return wrap(lf / rf), nil
	case ast.BinMod:
		return wrap(math.Mod(lf, rf)), nil
	case ast.BinLt:
		return sym.BoolConst(lf < rf), nil
	case ast.BinGt:
		return sym.BoolConst(lf > rf), nil
	case ast.BinLe:
		return sym.BoolConst(lf <= rf), nil
	case ast.BinGe:
		return sym.BoolConst(lf >= rf), nil
	case ast.BinEq:
		return sym.BoolConst(lf == rf), nil
	case ast.BinNe:
		return sym.BoolConst(lf != rf), nil
	default:
		return nil, notConst(n.Pos, "operator not applicable to floating-point operands")
	}
}

// concatText renders an operand for string concatenation using the
// platform's canonical conversions.
func concatText(c sym.Const) string {
	switch v := c.(type) {
	case sym.CharConst:
		return string(rune(v))
	case sym.StringConst:
		return string(v)
	case sym.LongConst:
		return strconv.FormatInt(int64(v), 10)
	default:
		return c.String()
	}
}
