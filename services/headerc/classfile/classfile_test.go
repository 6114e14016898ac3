// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headwindhq/headwind/services/headerc/sym"
)

func TestPoolDeduplicates(t *testing.T) {
	p := NewPool()
	a := p.Utf8("hello")
	b := p.Utf8("hello")
	assert.Equal(t, a, b)

	c1 := p.Class("java/lang/Object")
	c2 := p.Class("java/lang/Object")
	assert.Equal(t, c1, c2)

	assert.NotEqual(t, p.Utf8("hello"), p.Utf8("world"))
}

func TestPoolWideEntriesTakeTwoSlots(t *testing.T) {
	p := NewPool()
	first := p.Long(1)
	second := p.Integer(2)
	assert.Equal(t, uint16(1), first)
	assert.Equal(t, uint16(3), second, "long occupies slots 1 and 2")
	assert.Equal(t, uint16(4), p.Count())
}

func TestModifiedUTF8(t *testing.T) {
	assert.Equal(t, []byte("plain"), encodeModifiedUTF8("plain"))
	assert.Equal(t, []byte{0xC0, 0x80}, encodeModifiedUTF8("\x00"))
	// Round trip through the decoder, including a supplementary
	// character that must travel as a surrogate pair.
	for _, s := range []string{"plain", "café", "a\x00b", "\U0001F600"} {
		assert.Equal(t, s, decodeModifiedUTF8(encodeModifiedUTF8(s)), "%q", s)
	}
}

func simpleClass() *ClassFile {
	return &ClassFile{
		MajorVersion: DefaultMajorVersion,
		Access:       AccPublic | AccSuper,
		Name:         "p/A",
		Super:        "java/lang/Object",
		Methods: []*MethodRecord{{
			Access:     AccPublic,
			Name:       "<init>",
			Descriptor: "()V",
			StubBody:   true,
		}},
	}
}

func TestWriteMagicAndVersion(t *testing.T) {
	b, err := Write(simpleClass())
	require.NoError(t, err)
	require.True(t, len(b) > 8)
	assert.Equal(t, []byte{0xCA, 0xFE, 0xBA, 0xBE}, b[:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x34}, b[4:8], "minor 0, major 52")
}

func TestWriteDeterministic(t *testing.T) {
	b1, err := Write(simpleClass())
	require.NoError(t, err)
	b2, err := Write(simpleClass())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b1, b2))
}

func TestWriteReadRoundTrip(t *testing.T) {
	cf := &ClassFile{
		MajorVersion: DefaultMajorVersion,
		Access:       AccPublic | AccSuper,
		Name:         "p/C",
		Super:        "java/lang/Object",
		Interfaces:   []string{"java/lang/Runnable"},
		Signature:    "<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Runnable;",
		Fields: []*FieldRecord{
			{
				Access:        AccPublic | AccStatic | AccFinal,
				Name:          "N",
				Descriptor:    "I",
				ConstantValue: sym.IntConst(7),
			},
			{
				Access:        AccStatic | AccFinal,
				Name:          "S",
				Descriptor:    "Ljava/lang/String;",
				ConstantValue: sym.StringConst("hi"),
			},
			{
				Access:        AccStatic | AccFinal,
				Name:          "D",
				Descriptor:    "D",
				ConstantValue: sym.DoubleConst(2.5),
			},
			{
				Access:     AccPrivate,
				Name:       "head",
				Descriptor: "Ljava/lang/Object;",
				Signature:  "TT;",
			},
		},
		Methods: []*MethodRecord{
			{
				Access:     AccPublic,
				Name:       "run",
				Descriptor: "()V",
				Exceptions: []string{"java/io/IOException"},
				StubBody:   true,
			},
			{
				Access:     AccPublic | AccAbstract,
				Name:       "gone",
				Descriptor: "()I",
			},
		},
		InnerClasses: []InnerClass{
			{Inner: "p/C$In", Outer: "p/C", Name: "In", Access: AccPublic | AccStatic},
		},
		VisibleAnnos: []Annotation{{
			TypeDescriptor: "Lp/R;",
			Elements: []AnnotationElement{
				{Name: "value", Value: sym.IntConst(42)},
			},
		}},
	}

	b, err := Write(cf)
	require.NoError(t, err)
	raw, err := Read(b)
	require.NoError(t, err)

	assert.Equal(t, cf.Access, raw.Access)
	assert.Equal(t, "p/C", raw.Name)
	assert.Equal(t, "java/lang/Object", raw.Super)
	assert.Equal(t, []string{"java/lang/Runnable"}, raw.Interfaces)
	assert.Equal(t, cf.Signature, raw.Signature)

	require.Len(t, raw.Fields, 4)
	assert.Equal(t, sym.IntConst(7), raw.Fields[0].ConstantValue)
	assert.Equal(t, sym.StringConst("hi"), raw.Fields[1].ConstantValue)
	assert.Equal(t, sym.DoubleConst(2.5), raw.Fields[2].ConstantValue)
	assert.Equal(t, "TT;", raw.Fields[3].Signature)

	require.Len(t, raw.Methods, 2)
	assert.Equal(t, []string{"java/io/IOException"}, raw.Methods[0].Exceptions)

	require.Len(t, raw.InnerClasses, 1)
	assert.Equal(t, cf.InnerClasses[0], raw.InnerClasses[0])

	require.Len(t, raw.Visible, 1)
	assert.Equal(t, "Lp/R;", raw.Visible[0].TypeDescriptor)
	require.Len(t, raw.Visible[0].Elements, 1)
	assert.Equal(t, sym.IntConst(42), raw.Visible[0].Elements[0].Value)
}

func TestElementValueRoundTrip(t *testing.T) {
	values := []sym.Const{
		sym.BoolConst(true),
		sym.ByteConst(-1),
		sym.CharConst('x'),
		sym.ShortConst(9),
		sym.IntConst(-7),
		sym.LongConst(1 << 40),
		sym.FloatConst(1.5),
		sym.DoubleConst(-2.25),
		sym.StringConst("s"),
		sym.EnumConst{Sym: "p/E", Name: "X"},
		sym.ArrayConst{Elems: []sym.Const{sym.IntConst(1), sym.IntConst(2)}},
	}
	elements := make([]AnnotationElement, 0, len(values))
	for i, v := range values {
		elements = append(elements, AnnotationElement{Name: elemName(i), Value: v})
	}
	cf := simpleClass()
	cf.VisibleAnnos = []Annotation{{TypeDescriptor: "Lp/A;", Elements: elements}}

	b, err := Write(cf)
	require.NoError(t, err)
	raw, err := Read(b)
	require.NoError(t, err)
	require.Len(t, raw.Visible, 1)
	require.Len(t, raw.Visible[0].Elements, len(values))
	for i, v := range values {
		assert.Equal(t, v, raw.Visible[0].Elements[i].Value, "element %d", i)
	}
}

func elemName(i int) string {
	return string(rune('a' + i))
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)

	_, err = Read([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 52, 0, 0})
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestUnknownAttributeIgnored(t *testing.T) {
	// Hand-assemble a minimal class carrying an attribute the reader
	// has never heard of; forward compatibility requires skipping it.
	var b []byte
	u2 := func(v uint16) { b = append(b, byte(v>>8), byte(v)) }
	u4 := func(v uint32) { b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v)) }
	utf8 := func(s string) {
		b = append(b, tagUtf8)
		u2(uint16(len(s)))
		b = append(b, s...)
	}

	u4(0xCAFEBABE)
	u2(0)  // minor
	u2(52) // major
	u2(4)  // pool count
	utf8("p/A")           // 1
	b = append(b, tagClass) // 2 -> 1
	u2(1)
	utf8("FutureFeature") // 3
	u2(AccPublic)
	u2(2) // this
	u2(0) // super (none)
	u2(0) // interfaces
	u2(0) // fields
	u2(0) // methods
	u2(1) // attributes
	u2(3) // name: FutureFeature
	u4(3)
	b = append(b, 0x01, 0x02, 0x03)

	raw, err := Read(b)
	require.NoError(t, err)
	assert.Equal(t, "p/A", raw.Name)
	assert.Equal(t, "", raw.Super)
}

func TestStubCodeShape(t *testing.T) {
	cf := simpleClass()
	cf.Methods = []*MethodRecord{{
		Access:     AccPublic,
		Name:       "f",
		Descriptor: "(JI)V",
		StubBody:   true,
		ParamSlots: 3,
	}}
	b, err := Write(cf)
	require.NoError(t, err)
	// The throw sequence is new, dup, invokespecial, athrow; the
	// dup+invokespecial pair carries no pool index, so it must appear
	// verbatim in the emitted bytes.
	seq := []byte{0x59, 0xB7}
	assert.True(t, bytes.Contains(b, seq))
	assert.True(t, bytes.Contains(b, []byte("java/lang/AssertionError")))
}
