// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classfile

import (
	"fmt"

	"github.com/headwindhq/headwind/services/headerc/sig"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// addAnnoAttrs appends RuntimeVisibleAnnotations and
// RuntimeInvisibleAnnotations when non-empty.
func addAnnoAttrs(attrs *attrList, pool *Pool, visible, invisible []Annotation) error {
	if len(visible) > 0 {
		b, err := annotationsBytes(pool, visible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeVisibleAnnotations", b)
	}
	if len(invisible) > 0 {
		b, err := annotationsBytes(pool, invisible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeInvisibleAnnotations", b)
	}
	return nil
}

// addTypeAnnoAttrs appends the type-annotation attributes when
// non-empty.
func addTypeAnnoAttrs(attrs *attrList, pool *Pool, visible, invisible []TypeAnnotation) error {
	if len(visible) > 0 {
		b, err := typeAnnotationsBytes(pool, visible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeVisibleTypeAnnotations", b)
	}
	if len(invisible) > 0 {
		b, err := typeAnnotationsBytes(pool, invisible)
		if err != nil {
			return err
		}
		attrs.add("RuntimeInvisibleTypeAnnotations", b)
	}
	return nil
}

func annotationsBytes(pool *Pool, annos []Annotation) ([]byte, error) {
	w := &writer{}
	w.u2(uint16(len(annos)))
	for _, a := range annos {
		if err := writeAnnotation(w, pool, a); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}

func typeAnnotationsBytes(pool *Pool, annos []TypeAnnotation) ([]byte, error) {
	w := &writer{}
	w.u2(uint16(len(annos)))
	for _, ta := range annos {
		w.u1(ta.TargetType)
		w.bytes(ta.TargetInfo)
		w.u1(byte(len(ta.Path)))
		for _, step := range ta.Path {
			w.u1(step.Kind)
			w.u1(step.Arg)
		}
		if err := writeAnnotation(w, pool, ta.Anno); err != nil {
			return nil, err
		}
	}
	return w.buf, nil
}

func paramAnnoBytes(pool *Pool, params [][]Annotation) ([]byte, error) {
	w := &writer{}
	w.u1(byte(len(params)))
	for _, annos := range params {
		w.u2(uint16(len(annos)))
		for _, a := range annos {
			if err := writeAnnotation(w, pool, a); err != nil {
				return nil, err
			}
		}
	}
	return w.buf, nil
}

func writeAnnotation(w *writer, pool *Pool, a Annotation) error {
	w.u2(pool.Utf8(a.TypeDescriptor))
	w.u2(uint16(len(a.Elements)))
	for _, e := range a.Elements {
		w.u2(pool.Utf8(e.Name))
		if err := writeElementValue(w, pool, e.Value); err != nil {
			return fmt.Errorf("element %s: %w", e.Name, err)
		}
	}
	return nil
}

// writeElementValue encodes one element_value; it is total over the
// constant sum.
func writeElementValue(w *writer, pool *Pool, c sym.Const) error {
	switch v := c.(type) {
	case sym.BoolConst:
		w.u1('Z')
		if v {
			w.u2(pool.Integer(1))
		} else {
			w.u2(pool.Integer(0))
		}
	case sym.ByteConst:
		w.u1('B')
		w.u2(pool.Integer(int32(v)))
	case sym.CharConst:
		w.u1('C')
		w.u2(pool.Integer(int32(v)))
	case sym.ShortConst:
		w.u1('S')
		w.u2(pool.Integer(int32(v)))
	case sym.IntConst:
		w.u1('I')
		w.u2(pool.Integer(int32(v)))
	case sym.LongConst:
		w.u1('J')
		w.u2(pool.Long(int64(v)))
	case sym.FloatConst:
		w.u1('F')
		w.u2(pool.Float(float32(v)))
	case sym.DoubleConst:
		w.u1('D')
		w.u2(pool.Double(float64(v)))
	case sym.StringConst:
		w.u1('s')
		w.u2(pool.Utf8(string(v)))
	case sym.EnumConst:
		w.u1('e')
		w.u2(pool.Utf8("L" + string(v.Sym) + ";"))
		w.u2(pool.Utf8(v.Name))
	case sym.ClassConst:
		w.u1('c')
		w.u2(pool.Utf8(sig.Descriptor(v.Type, nil)))
	case sym.AnnoConst:
		w.u1('@')
		return writeAnnotation(w, pool, Annotation{
			TypeDescriptor: "L" + string(v.Info.Sym) + ";",
			Elements:       annoInfoElements(v.Info),
		})
	case sym.ArrayConst:
		w.u1('[')
		w.u2(uint16(len(v.Elems)))
		for _, e := range v.Elems {
			if err := writeElementValue(w, pool, e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("element value of type %T cannot be encoded", c)
	}
	return nil
}

func annoInfoElements(info sym.AnnoInfo) []AnnotationElement {
	out := make([]AnnotationElement, 0, len(info.Elements))
	for _, e := range info.Elements {
		out = append(out, AnnotationElement{Name: e.Name, Value: e.Value})
	}
	return out
}
