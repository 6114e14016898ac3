// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classfile

import (
	"errors"
	"fmt"
	"math"

	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// ErrTruncated is wrapped by reads past the end of the class file.
var ErrTruncated = errors.New("truncated class file")

// ErrBadMagic reports a file that does not start with 0xCAFEBABE.
var ErrBadMagic = errors.New("bad class file magic")

// RawClass is a decoded class file, restricted to the information a
// header compiler consumes. Unknown attributes are skipped.
type RawClass struct {
	MajorVersion uint16
	Access       uint16
	Name         string
	Super        string // "" for java/lang/Object
	Interfaces   []string
	Fields       []RawMember
	Methods      []RawMember
	Signature    string
	InnerClasses []InnerClass
	Visible      []Annotation
	Invisible    []Annotation
}

// RawMember is a decoded field or method.
type RawMember struct {
	Access        uint16
	Name          string
	Descriptor    string
	Signature     string
	ConstantValue sym.Const // fields only
	Exceptions    []string  // methods only
	Default       sym.Const // annotation elements only
	Visible       []Annotation
	Invisible     []Annotation
}

// reader is a bounds-checked cursor over class-file bytes.
type reader struct {
	b   []byte
	pos int
	err error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) u1() byte {
	if r.err != nil {
		return 0
	}
	if r.pos+1 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *reader) u2() uint16 {
	if r.err != nil {
		return 0
	}
	if r.pos+2 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := uint16(r.b[r.pos])<<8 | uint16(r.b[r.pos+1])
	r.pos += 2
	return v
}

func (r *reader) u4() uint32 {
	if r.err != nil {
		return 0
	}
	if r.pos+4 > len(r.b) {
		r.err = ErrTruncated
		return 0
	}
	v := uint32(r.b[r.pos])<<24 | uint32(r.b[r.pos+1])<<16 | uint32(r.b[r.pos+2])<<8 | uint32(r.b[r.pos+3])
	r.pos += 4
	return v
}

func (r *reader) skip(n int) {
	if r.err != nil {
		return
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.err = ErrTruncated
		return
	}
	r.pos += n
}

func (r *reader) slice(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.err = ErrTruncated
		return nil
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v
}

// readPool is the decoded constant pool.
type readPool struct {
	tags []byte
	strs []string // utf8 payloads
	nums []uint64
	refs [][2]uint16
}

func (p *readPool) utf8(idx uint16) (string, error) {
	if int(idx) >= len(p.tags) || p.tags[idx] != tagUtf8 {
		return "", fmt.Errorf("pool index %d is not a utf8 entry", idx)
	}
	return p.strs[idx], nil
}

func (p *readPool) className(idx uint16) (string, error) {
	if idx == 0 {
		return "", nil
	}
	if int(idx) >= len(p.tags) || p.tags[idx] != tagClass {
		return "", fmt.Errorf("pool index %d is not a class entry", idx)
	}
	return p.utf8(p.refs[idx][0])
}

// Read decodes a class file. The attribute set is the one lowering
// emits; anything else is skipped for forward compatibility.
func Read(b []byte) (*RawClass, error) {
	r := &reader{b: b}
	if r.u4() != 0xCAFEBABE {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrBadMagic
	}
	r.u2() // minor
	major := r.u2()

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	out := &RawClass{MajorVersion: major}
	out.Access = r.u2()
	if out.Name, err = pool.className(r.u2()); err != nil {
		return nil, err
	}
	if out.Super, err = pool.className(r.u2()); err != nil {
		return nil, err
	}
	ifaceCount := int(r.u2())
	for i := 0; i < ifaceCount && r.err == nil; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, err
		}
		out.Interfaces = append(out.Interfaces, name)
	}

	fieldCount := int(r.u2())
	for i := 0; i < fieldCount && r.err == nil; i++ {
		m, err := readMember(r, pool)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, m)
	}
	methodCount := int(r.u2())
	for i := 0; i < methodCount && r.err == nil; i++ {
		m, err := readMember(r, pool)
		if err != nil {
			return nil, err
		}
		out.Methods = append(out.Methods, m)
	}

	attrCount := int(r.u2())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, body, err := readAttr(r, pool)
		if err != nil {
			return nil, err
		}
		switch name {
		case "Signature":
			out.Signature, err = sigAttr(body, pool)
		case "InnerClasses":
			out.InnerClasses, err = innerAttr(body, pool)
		case "RuntimeVisibleAnnotations":
			out.Visible, err = annosAttr(body, pool)
		case "RuntimeInvisibleAnnotations":
			out.Invisible, err = annosAttr(body, pool)
		}
		if err != nil {
			return nil, err
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}

func readConstantPool(r *reader) (*readPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	p := &readPool{
		tags: make([]byte, count),
		strs: make([]string, count),
		nums: make([]uint64, count),
		refs: make([][2]uint16, count),
	}
	for i := 1; i < count; i++ {
		tag := r.u1()
		p.tags[i] = tag
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			p.strs[i] = decodeModifiedUTF8(r.slice(n))
		case tagInteger, tagFloat:
			p.nums[i] = uint64(r.u4())
		case tagLong, tagDouble:
			p.nums[i] = uint64(r.u4())<<32 | uint64(r.u4())
			i++ // second slot is unusable
		case tagClass, tagString:
			p.refs[i] = [2]uint16{r.u2(), 0}
		case tagNameAndType, tagFieldref, tagMethodref, tagInterfaceMethodref:
			p.refs[i] = [2]uint16{r.u2(), r.u2()}
		case 15: // MethodHandle
			r.skip(3)
		case 16, 19, 20: // MethodType, Module, Package
			r.skip(2)
		case 17, 18: // Dynamic, InvokeDynamic
			r.skip(4)
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at %d", tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return p, nil
}

func readMember(r *reader, pool *readPool) (RawMember, error) {
	var m RawMember
	var err error
	m.Access = r.u2()
	if m.Name, err = pool.utf8(r.u2()); err != nil {
		return m, err
	}
	if m.Descriptor, err = pool.utf8(r.u2()); err != nil {
		return m, err
	}
	attrCount := int(r.u2())
	for i := 0; i < attrCount && r.err == nil; i++ {
		name, body, err := readAttr(r, pool)
		if err != nil {
			return m, err
		}
		switch name {
		case "Signature":
			m.Signature, err = sigAttr(body, pool)
		case "ConstantValue":
			m.ConstantValue, err = constValueAttr(body, pool, m.Descriptor)
		case "Exceptions":
			m.Exceptions, err = exceptionsAttr(body, pool)
		case "AnnotationDefault":
			br := &reader{b: body}
			m.Default, err = readElementValue(br, pool)
		case "RuntimeVisibleAnnotations":
			m.Visible, err = annosAttr(body, pool)
		case "RuntimeInvisibleAnnotations":
			m.Invisible, err = annosAttr(body, pool)
		}
		if err != nil {
			return m, err
		}
	}
	return m, r.err
}

func readAttr(r *reader, pool *readPool) (string, []byte, error) {
	nameIdx := r.u2()
	length := int(r.u4())
	body := r.slice(length)
	if r.err != nil {
		return "", nil, r.err
	}
	name, err := pool.utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

func sigAttr(body []byte, pool *readPool) (string, error) {
	r := &reader{b: body}
	s, err := pool.utf8(r.u2())
	if err != nil {
		return "", err
	}
	return s, r.err
}

func exceptionsAttr(body []byte, pool *readPool) ([]string, error) {
	r := &reader{b: body}
	n := int(r.u2())
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, r.err
}

func innerAttr(body []byte, pool *readPool) ([]InnerClass, error) {
	r := &reader{b: body}
	n := int(r.u2())
	out := make([]InnerClass, 0, n)
	for i := 0; i < n; i++ {
		var ic InnerClass
		var err error
		if ic.Inner, err = pool.className(r.u2()); err != nil {
			return nil, err
		}
		if ic.Outer, err = pool.className(r.u2()); err != nil {
			return nil, err
		}
		nameIdx := r.u2()
		if nameIdx != 0 {
			if ic.Name, err = pool.utf8(nameIdx); err != nil {
				return nil, err
			}
		}
		ic.Access = r.u2()
		out = append(out, ic)
	}
	return out, r.err
}

// constValueAttr types the raw pool constant using the field
// descriptor, since integer entries serve boolean through int fields.
func constValueAttr(body []byte, pool *readPool, desc string) (sym.Const, error) {
	r := &reader{b: body}
	idx := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if int(idx) >= len(pool.tags) {
		return nil, fmt.Errorf("constant value index %d out of range", idx)
	}
	switch pool.tags[idx] {
	case tagInteger:
		v := int32(uint32(pool.nums[idx]))
		switch desc {
		case "Z":
			return sym.BoolConst(v != 0), nil
		case "B":
			return sym.ByteConst(int8(v)), nil
		case "C":
			return sym.CharConst(uint16(v)), nil
		case "S":
			return sym.ShortConst(int16(v)), nil
		default:
			return sym.IntConst(v), nil
		}
	case tagLong:
		return sym.LongConst(int64(pool.nums[idx])), nil
	case tagFloat:
		return sym.FloatConst(math.Float32frombits(uint32(pool.nums[idx]))), nil
	case tagDouble:
		return sym.DoubleConst(math.Float64frombits(pool.nums[idx])), nil
	case tagString:
		s, err := pool.utf8(pool.refs[idx][0])
		if err != nil {
			return nil, err
		}
		return sym.StringConst(s), nil
	default:
		return nil, fmt.Errorf("constant value index %d has unusable tag %d", idx, pool.tags[idx])
	}
}

func annosAttr(body []byte, pool *readPool) ([]Annotation, error) {
	r := &reader{b: body}
	n := int(r.u2())
	out := make([]Annotation, 0, n)
	for i := 0; i < n; i++ {
		a, err := readAnnotation(r, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, r.err
}

func readAnnotation(r *reader, pool *readPool) (Annotation, error) {
	var a Annotation
	var err error
	if a.TypeDescriptor, err = pool.utf8(r.u2()); err != nil {
		return a, err
	}
	n := int(r.u2())
	for i := 0; i < n; i++ {
		name, err := pool.utf8(r.u2())
		if err != nil {
			return a, err
		}
		v, err := readElementValue(r, pool)
		if err != nil {
			return a, err
		}
		a.Elements = append(a.Elements, AnnotationElement{Name: name, Value: v})
	}
	return a, r.err
}

func readElementValue(r *reader, pool *readPool) (sym.Const, error) {
	tag := r.u1()
	if r.err != nil {
		return nil, r.err
	}
	switch tag {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		idx := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		if int(idx) >= len(pool.tags) {
			return nil, fmt.Errorf("element value index %d out of range", idx)
		}
		switch tag {
		case 'Z':
			return sym.BoolConst(pool.nums[idx] != 0), nil
		case 'B':
			return sym.ByteConst(int8(uint32(pool.nums[idx]))), nil
		case 'C':
			return sym.CharConst(uint16(uint32(pool.nums[idx]))), nil
		case 'S':
			return sym.ShortConst(int16(uint32(pool.nums[idx]))), nil
		case 'I':
			return sym.IntConst(int32(uint32(pool.nums[idx]))), nil
		case 'J':
			return sym.LongConst(int64(pool.nums[idx])), nil
		case 'F':
			return sym.FloatConst(math.Float32frombits(uint32(pool.nums[idx]))), nil
		default:
			return sym.DoubleConst(math.Float64frombits(pool.nums[idx])), nil
		}
	case 's':
		s, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		return sym.StringConst(s), nil
	case 'e':
		tyDesc, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		name, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		owner, err := sig.ParseDescriptor(tyDesc)
		if err != nil {
			return nil, err
		}
		ct, ok := owner.(sym.ClassTy)
		if !ok {
			return nil, fmt.Errorf("enum element value owner %q is not a class", tyDesc)
		}
		return sym.EnumConst{Sym: ct.Sym(), Name: name}, nil
	case 'c':
		desc, err := pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		t, err := sig.ParseDescriptor(desc)
		if err != nil {
			return nil, err
		}
		return sym.ClassConst{Type: t}, nil
	case '@':
		a, err := readAnnotation(r, pool)
		if err != nil {
			return nil, err
		}
		info := sym.AnnoInfo{Sym: descToClassSym(a.TypeDescriptor)}
		for _, e := range a.Elements {
			info.Elements = append(info.Elements, sym.AnnoElement{Name: e.Name, Value: e.Value})
		}
		return sym.AnnoConst{Info: info}, nil
	case '[':
		n := int(r.u2())
		elems := make([]sym.Const, 0, n)
		for i := 0; i < n; i++ {
			v, err := readElementValue(r, pool)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return sym.ArrayConst{Elems: elems}, nil
	default:
		return nil, fmt.Errorf("unknown element value tag %q", tag)
	}
}

// descToClassSym strips L...; from a class field descriptor.
func descToClassSym(desc string) sym.ClassSymbol {
	if len(desc) >= 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return sym.ClassSymbol(desc[1 : len(desc)-1])
	}
	return sym.ClassSymbol(desc)
}
