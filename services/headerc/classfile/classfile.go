// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classfile

import "github.com/headwindhq/headwind/services/headerc/sym"

// Access flag bits.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccVolatile   = 0x0040
	AccVarargs    = 0x0080
	AccTransient  = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// Default emitted version: major 52.
const (
	DefaultMajorVersion = 52
	DefaultMinorVersion = 0
)

// ClassFile is the abstract record lowering produces and the writer
// serializes: access flags, names, members, and the closed attribute
// set of a header compiler.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Access       uint16
	Name         string // binary name
	Super        string // "" only for java/lang/Object
	Interfaces   []string
	Fields       []*FieldRecord
	Methods      []*MethodRecord

	Signature          string // "" when the class is not generic
	InnerClasses       []InnerClass
	VisibleAnnos       []Annotation
	InvisibleAnnos     []Annotation
	VisibleTypeAnnos   []TypeAnnotation
	InvisibleTypeAnnos []TypeAnnotation
	Deprecated         bool
	SourceFile         string // "" to omit
}

// FieldRecord is one field_info.
type FieldRecord struct {
	Access             uint16
	Name               string
	Descriptor         string
	Signature          string
	ConstantValue      sym.Const // nil when absent
	VisibleAnnos       []Annotation
	InvisibleAnnos     []Annotation
	VisibleTypeAnnos   []TypeAnnotation
	InvisibleTypeAnnos []TypeAnnotation
	Deprecated         bool
}

// MethodRecord is one method_info. StubBody asks the writer to emit
// the single-throw Code attribute; abstract and native methods leave
// it false.
type MethodRecord struct {
	Access             uint16
	Name               string
	Descriptor         string
	Signature          string
	Exceptions         []string
	Default            sym.Const // annotation element default, nil otherwise
	VisibleAnnos       []Annotation
	InvisibleAnnos     []Annotation
	ParamVisible       [][]Annotation // nil when no parameter annotations anywhere
	ParamInvisible     [][]Annotation
	VisibleTypeAnnos   []TypeAnnotation
	InvisibleTypeAnnos []TypeAnnotation
	Deprecated         bool
	StubBody           bool
	ParamSlots         int // argument slots for the stub's locals, this excluded
}

// InnerClass is one entry of the InnerClasses attribute.
type InnerClass struct {
	Inner  string // binary name of the nested class
	Outer  string // "" for local and anonymous classes
	Name   string // simple name, "" for anonymous classes
	Access uint16
}

// Annotation is an annotation ready for encoding: the annotation
// type's field descriptor plus named element values.
type Annotation struct {
	TypeDescriptor string
	Elements       []AnnotationElement
}

// AnnotationElement is one element_value_pair.
type AnnotationElement struct {
	Name  string
	Value sym.Const
}

// Type annotation target types used by header emission.
const (
	TargetClassTypeParam  = 0x00
	TargetMethodTypeParam = 0x01
	TargetSupertype       = 0x10
	TargetClassTPBound    = 0x11
	TargetMethodTPBound   = 0x12
	TargetField           = 0x13
	TargetMethodReturn    = 0x14
	TargetMethodParam     = 0x16
	TargetThrows          = 0x17
)

// TypePathStep is one step of a type_path: kind 0 deeper-in-array,
// 1 deeper-in-nested, 2 wildcard bound, 3 type argument (Arg is the
// argument index).
type TypePathStep struct {
	Kind byte
	Arg  byte
}

// TypeAnnotation is one entry of a Runtime(In)VisibleTypeAnnotations
// attribute. TargetInfo holds the pre-encoded target_info bytes for
// the given TargetType.
type TypeAnnotation struct {
	TargetType byte
	TargetInfo []byte
	Path       []TypePathStep
	Anno       Annotation
}
