// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classfile

import (
	"fmt"

	"github.com/headwindhq/headwind/services/headerc/sym"
)

// writer is a growable big-endian byte buffer.
type writer struct {
	buf []byte
}

func (w *writer) u1(v byte)      { w.buf = append(w.buf, v) }
func (w *writer) u2(v uint16)    { w.buf = append(w.buf, byte(v>>8), byte(v)) }
func (w *writer) u4(v uint32)    { w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

// Write serializes a ClassFile. The pool must be written before the
// records that reference it, but record serialization is what grows
// the pool; the body is therefore staged in a scratch buffer and the
// finished pool prepended.
func Write(cf *ClassFile) ([]byte, error) {
	pool := NewPool()
	body := &writer{}

	body.u2(cf.Access)
	body.u2(pool.Class(cf.Name))
	if cf.Super == "" {
		body.u2(0)
	} else {
		body.u2(pool.Class(cf.Super))
	}
	body.u2(uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		body.u2(pool.Class(i))
	}

	body.u2(uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		if err := writeField(body, pool, f); err != nil {
			return nil, err
		}
	}

	body.u2(uint16(len(cf.Methods)))
	for _, m := range cf.Methods {
		if err := writeMethod(body, pool, m); err != nil {
			return nil, err
		}
	}

	attrs := newAttrList()
	if cf.Signature != "" {
		attrs.add("Signature", u2Only(pool.Utf8(cf.Signature)))
	}
	if len(cf.InnerClasses) > 0 {
		attrs.add("InnerClasses", innerClassesBytes(pool, cf.InnerClasses))
	}
	if cf.Deprecated {
		attrs.add("Deprecated", nil)
	}
	if cf.SourceFile != "" {
		attrs.add("SourceFile", u2Only(pool.Utf8(cf.SourceFile)))
	}
	if err := addAnnoAttrs(attrs, pool, cf.VisibleAnnos, cf.InvisibleAnnos); err != nil {
		return nil, err
	}
	if err := addTypeAnnoAttrs(attrs, pool, cf.VisibleTypeAnnos, cf.InvisibleTypeAnnos); err != nil {
		return nil, err
	}
	attrs.write(body, pool)

	out := &writer{buf: make([]byte, 0, len(body.buf)+512)}
	out.u4(0xCAFEBABE)
	out.u2(cf.MinorVersion)
	out.u2(cf.MajorVersion)
	pool.write(out)
	out.bytes(body.buf)
	return out.buf, nil
}

func writeField(w *writer, pool *Pool, f *FieldRecord) error {
	w.u2(f.Access)
	w.u2(pool.Utf8(f.Name))
	w.u2(pool.Utf8(f.Descriptor))

	attrs := newAttrList()
	if f.ConstantValue != nil {
		idx, err := constantValueIndex(pool, f.ConstantValue)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		attrs.add("ConstantValue", u2Only(idx))
	}
	if f.Signature != "" {
		attrs.add("Signature", u2Only(pool.Utf8(f.Signature)))
	}
	if f.Deprecated {
		attrs.add("Deprecated", nil)
	}
	if err := addAnnoAttrs(attrs, pool, f.VisibleAnnos, f.InvisibleAnnos); err != nil {
		return err
	}
	if err := addTypeAnnoAttrs(attrs, pool, f.VisibleTypeAnnos, f.InvisibleTypeAnnos); err != nil {
		return err
	}
	attrs.write(w, pool)
	return nil
}

func writeMethod(w *writer, pool *Pool, m *MethodRecord) error {
	w.u2(m.Access)
	w.u2(pool.Utf8(m.Name))
	w.u2(pool.Utf8(m.Descriptor))

	attrs := newAttrList()
	if m.StubBody {
		attrs.add("Code", stubCodeBytes(pool, m))
	}
	if len(m.Exceptions) > 0 {
		ew := &writer{}
		ew.u2(uint16(len(m.Exceptions)))
		for _, e := range m.Exceptions {
			ew.u2(pool.Class(e))
		}
		attrs.add("Exceptions", ew.buf)
	}
	if m.Signature != "" {
		attrs.add("Signature", u2Only(pool.Utf8(m.Signature)))
	}
	if m.Default != nil {
		dw := &writer{}
		if err := writeElementValue(dw, pool, m.Default); err != nil {
			return fmt.Errorf("method %s default: %w", m.Name, err)
		}
		attrs.add("AnnotationDefault", dw.buf)
	}
	if m.Deprecated {
		attrs.add("Deprecated", nil)
	}
	if err := addAnnoAttrs(attrs, pool, m.VisibleAnnos, m.InvisibleAnnos); err != nil {
		return err
	}
	if m.ParamVisible != nil {
		b, err := paramAnnoBytes(pool, m.ParamVisible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeVisibleParameterAnnotations", b)
	}
	if m.ParamInvisible != nil {
		b, err := paramAnnoBytes(pool, m.ParamInvisible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeInvisibleParameterAnnotations", b)
	}
	if err := addTypeAnnoAttrs(attrs, pool, m.VisibleTypeAnnos, m.InvisibleTypeAnnos); err != nil {
		return err
	}
	attrs.write(w, pool)
	return nil
}

// stubCodeBytes encodes the body stub: throw new AssertionError().
func stubCodeBytes(pool *Pool, m *MethodRecord) []byte {
	classIdx := pool.Class(string(sym.AssertionErrorSym))
	initIdx := pool.MethodRef(string(sym.AssertionErrorSym), "<init>", "()V")

	w := &writer{}
	w.u2(2) // max_stack: new + dup
	locals := m.ParamSlots
	if m.Access&AccStatic == 0 {
		locals++
	}
	w.u2(uint16(locals))
	w.u4(8) // code_length
	w.u1(0xBB)
	w.u2(classIdx)
	w.u1(0x59) // dup
	w.u1(0xB7) // invokespecial
	w.u2(initIdx)
	w.u1(0xBF) // athrow
	w.u2(0)    // exception_table_length
	w.u2(0)    // attributes_count
	return w.buf
}

func innerClassesBytes(pool *Pool, inner []InnerClass) []byte {
	w := &writer{}
	w.u2(uint16(len(inner)))
	for _, ic := range inner {
		w.u2(pool.Class(ic.Inner))
		if ic.Outer == "" {
			w.u2(0)
		} else {
			w.u2(pool.Class(ic.Outer))
		}
		if ic.Name == "" {
			w.u2(0)
		} else {
			w.u2(pool.Utf8(ic.Name))
		}
		w.u2(ic.Access)
	}
	return w.buf
}

func constantValueIndex(pool *Pool, c sym.Const) (uint16, error) {
	switch v := c.(type) {
	case sym.BoolConst:
		if v {
			return pool.Integer(1), nil
		}
		return pool.Integer(0), nil
	case sym.ByteConst:
		return pool.Integer(int32(v)), nil
	case sym.CharConst:
		return pool.Integer(int32(v)), nil
	case sym.ShortConst:
		return pool.Integer(int32(v)), nil
	case sym.IntConst:
		return pool.Integer(int32(v)), nil
	case sym.LongConst:
		return pool.Long(int64(v)), nil
	case sym.FloatConst:
		return pool.Float(float32(v)), nil
	case sym.DoubleConst:
		return pool.Double(float64(v)), nil
	case sym.StringConst:
		return pool.String(string(v)), nil
	default:
		return 0, fmt.Errorf("constant of type %T has no ConstantValue form", c)
	}
}

// attrList stages attribute payloads; lengths and name indices are
// written when the list is flushed.
type attrList struct {
	names    []string
	payloads [][]byte
}

func newAttrList() *attrList {
	return &attrList{}
}

func (a *attrList) add(name string, payload []byte) {
	a.names = append(a.names, name)
	a.payloads = append(a.payloads, payload)
}

func (a *attrList) write(w *writer, pool *Pool) {
	w.u2(uint16(len(a.names)))
	for i, name := range a.names {
		w.u2(pool.Utf8(name))
		w.u4(uint32(len(a.payloads[i])))
		w.bytes(a.payloads[i])
	}
}

func u2Only(idx uint16) []byte {
	return []byte{byte(idx >> 8), byte(idx)}
}
