// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/headwindhq/headwind/services/headerc/sym"
)

// ErrMalformed is wrapped by all signature parse failures.
var ErrMalformed = errors.New("malformed signature")

// ClassSig is a parsed class signature.
type ClassSig struct {
	TyParams   []TyParamInfo
	Super      sym.Type
	Interfaces []sym.Type
}

// MethodSig is a parsed method signature.
type MethodSig struct {
	TyParams []TyParamInfo
	Params   []sym.Type
	Return   sym.Type
	Throws   []sym.Type
}

// parser is a cursor over a signature string. Type variables resolve
// against owner so parsed uses carry proper symbols.
type parser struct {
	s     string
	pos   int
	owner sym.ClassSymbol
	meth  sym.MethodSymbol // zero outside method signatures
	mtps  map[string]bool  // names declared by the method signature itself
}

// ParseFieldSignature parses a field (reference type) signature.
func ParseFieldSignature(s string, owner sym.ClassSymbol) (sym.Type, error) {
	p := &parser{s: s, owner: owner}
	t, err := p.refType()
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.fail("trailing data")
	}
	return t, nil
}

// ParseClassSignature parses a class signature.
func ParseClassSignature(s string, owner sym.ClassSymbol) (*ClassSig, error) {
	p := &parser{s: s, owner: owner}
	tps, err := p.tyParams()
	if err != nil {
		return nil, err
	}
	super, err := p.classType()
	if err != nil {
		return nil, err
	}
	var ifaces []sym.Type
	for p.pos < len(s) {
		i, err := p.classType()
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, i)
	}
	return &ClassSig{TyParams: tps, Super: super, Interfaces: ifaces}, nil
}

// ParseMethodSignature parses a method signature. Type variables
// declared by the signature itself bind to meth; others to owner.
func ParseMethodSignature(s string, owner sym.ClassSymbol, meth sym.MethodSymbol) (*MethodSig, error) {
	p := &parser{s: s, owner: owner, meth: meth}
	tps, err := p.tyParams()
	if err != nil {
		return nil, err
	}
	if !p.eat('(') {
		return nil, p.fail("expected '('")
	}
	var params []sym.Type
	for !p.peek(')') {
		t, err := p.typeSig()
		if err != nil {
			return nil, err
		}
		params = append(params, t)
	}
	p.eat(')')
	ret, err := p.typeSig()
	if err != nil {
		return nil, err
	}
	var throws []sym.Type
	for p.eat('^') {
		t, err := p.refType()
		if err != nil {
			return nil, err
		}
		throws = append(throws, t)
	}
	if p.pos != len(s) {
		return nil, p.fail("trailing data")
	}
	return &MethodSig{TyParams: tps, Params: params, Return: ret, Throws: throws}, nil
}

// ParseDescriptor parses an erased field descriptor into a type.
func ParseDescriptor(s string) (sym.Type, error) {
	p := &parser{s: s}
	t, err := p.typeSig()
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.fail("trailing data")
	}
	return t, nil
}

// ParseMethodDescriptor parses an erased method descriptor.
func ParseMethodDescriptor(s string) (params []sym.Type, ret sym.Type, err error) {
	p := &parser{s: s}
	if !p.eat('(') {
		return nil, nil, p.fail("expected '('")
	}
	for !p.peek(')') {
		t, err := p.typeSig()
		if err != nil {
			return nil, nil, err
		}
		params = append(params, t)
	}
	p.eat(')')
	ret, err = p.typeSig()
	if err != nil {
		return nil, nil, err
	}
	return params, ret, nil
}

func (p *parser) fail(msg string) error {
	return fmt.Errorf("%w: %s at %d in %q", ErrMalformed, msg, p.pos, p.s)
}

func (p *parser) peek(c byte) bool {
	return p.pos < len(p.s) && p.s[p.pos] == c
}

func (p *parser) eat(c byte) bool {
	if p.peek(c) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) ident(stop string) (string, error) {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune(stop, rune(p.s[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("empty identifier")
	}
	return p.s[start:p.pos], nil
}

func (p *parser) tyParams() ([]TyParamInfo, error) {
	if !p.eat('<') {
		return nil, nil
	}
	var out []TyParamInfo
	p.mtps = map[string]bool{}
	for !p.eat('>') {
		name, err := p.ident(":")
		if err != nil {
			return nil, err
		}
		p.mtps[name] = true
		if !p.eat(':') {
			return nil, p.fail("expected ':'")
		}
		tp := TyParamInfo{Name: name}
		// The class bound may be empty (iface-only bounds).
		if !p.peek(':') {
			b, err := p.refType()
			if err != nil {
				return nil, err
			}
			tp.ClassBound = b
		}
		for p.eat(':') {
			b, err := p.refType()
			if err != nil {
				return nil, err
			}
			tp.IntfBounds = append(tp.IntfBounds, b)
		}
		out = append(out, tp)
	}
	return out, nil
}

// typeSig parses a base type, void, or reference type.
func (p *parser) typeSig() (sym.Type, error) {
	if p.pos >= len(p.s) {
		return nil, p.fail("unexpected end")
	}
	switch p.s[p.pos] {
	case 'Z':
		p.pos++
		return sym.PrimTy{Kind: sym.Boolean}, nil
	case 'B':
		p.pos++
		return sym.PrimTy{Kind: sym.Byte}, nil
	case 'C':
		p.pos++
		return sym.PrimTy{Kind: sym.Char}, nil
	case 'S':
		p.pos++
		return sym.PrimTy{Kind: sym.Short}, nil
	case 'I':
		p.pos++
		return sym.PrimTy{Kind: sym.Int}, nil
	case 'J':
		p.pos++
		return sym.PrimTy{Kind: sym.Long}, nil
	case 'F':
		p.pos++
		return sym.PrimTy{Kind: sym.Float}, nil
	case 'D':
		p.pos++
		return sym.PrimTy{Kind: sym.Double}, nil
	case 'V':
		p.pos++
		return sym.VoidTy{}, nil
	default:
		return p.refType()
	}
}

// refType parses a reference type signature: class, type variable, or
// array.
func (p *parser) refType() (sym.Type, error) {
	if p.pos >= len(p.s) {
		return nil, p.fail("unexpected end")
	}
	switch p.s[p.pos] {
	case 'L':
		return p.classType()
	case 'T':
		p.pos++
		name, err := p.ident(";")
		if err != nil {
			return nil, err
		}
		if !p.eat(';') {
			return nil, p.fail("expected ';'")
		}
		v := sym.TyVarSymbol{Owner: p.owner, Name: name}
		if p.mtps[name] && p.meth != (sym.MethodSymbol{}) {
			v.Method = p.meth
		}
		return sym.TyVar{Sym: v}, nil
	case '[':
		p.pos++
		elem, err := p.typeSig()
		if err != nil {
			return nil, err
		}
		if _, ok := elem.(sym.VoidTy); ok {
			return nil, p.fail("array of void")
		}
		return sym.ArrayTy{Elem: elem}, nil
	default:
		return nil, p.fail("expected reference type")
	}
}

// classType parses LName<Args>(.Inner<Args>)*;
func (p *parser) classType() (sym.Type, error) {
	if !p.eat('L') {
		return nil, p.fail("expected 'L'")
	}
	name, err := p.ident("<.;")
	if err != nil {
		return nil, err
	}
	segs := []sym.ClassTySeg{{Sym: sym.ClassSymbol(name)}}
	args, err := p.tyArgs()
	if err != nil {
		return nil, err
	}
	segs[0].Args = args
	for p.eat('.') {
		simple, err := p.ident("<.;")
		if err != nil {
			return nil, err
		}
		seg := sym.ClassTySeg{Sym: segs[len(segs)-1].Sym.Nest(simple)}
		if seg.Args, err = p.tyArgs(); err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if !p.eat(';') {
		return nil, p.fail("expected ';'")
	}
	return sym.ClassTy{Segments: segs}, nil
}

func (p *parser) tyArgs() ([]sym.Type, error) {
	if !p.eat('<') {
		return nil, nil
	}
	var out []sym.Type
	for !p.eat('>') {
		if p.eat('*') {
			out = append(out, sym.WildTy{Kind: sym.WildUnbounded})
			continue
		}
		if p.eat('+') {
			b, err := p.refType()
			if err != nil {
				return nil, err
			}
			out = append(out, sym.WildTy{Kind: sym.WildExtendsBound, Bound: b})
			continue
		}
		if p.eat('-') {
			b, err := p.refType()
			if err != nil {
				return nil, err
			}
			out = append(out, sym.WildTy{Kind: sym.WildSuperBound, Bound: b})
			continue
		}
		t, err := p.refType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
