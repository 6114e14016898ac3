// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diag collects compiler diagnostics.
//
// Recoverable problems (unresolved names, duplicate types, constant
// cycles, ...) are reported to a Sink and binding continues with
// sentinel substitutions; Go errors are reserved for environmental
// faults and internal invariant violations. If the sink holds any
// errors at the end of binding, emission is skipped.
package diag

import (
	"fmt"
	"sort"

	"github.com/headwindhq/headwind/services/headerc/ast"
)

// Kind classifies a diagnostic.
type Kind int

const (
	// ParseError is a syntax problem reported by the front-end.
	ParseError Kind = iota

	// DuplicateType reports two declarations of the same type name.
	DuplicateType

	// SymbolNotFound reports an unresolvable name.
	SymbolNotFound

	// AmbiguousName reports a simple name supplied by two on-demand
	// imports.
	AmbiguousName

	// CyclicHierarchy reports a class appearing in its own supertype
	// closure.
	CyclicHierarchy

	// CyclicConstant reports constant fields whose values depend on
	// each other.
	CyclicConstant

	// NotAConstant reports a constant-required position holding a
	// non-constant expression.
	NotAConstant

	// BadAnnotationValue reports an annotation argument that does not
	// evaluate to a value of the element's type.
	BadAnnotationValue

	// ClassPathDecodeError reports a malformed class file on the
	// class path.
	ClassPathDecodeError

	// Internal reports a compiler invariant violation. It aborts the
	// whole compilation.
	Internal
)

// String returns the diagnostic kind's stable name.
func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case DuplicateType:
		return "DuplicateType"
	case SymbolNotFound:
		return "SymbolNotFound"
	case AmbiguousName:
		return "AmbiguousName"
	case CyclicHierarchy:
		return "CyclicHierarchy"
	case CyclicConstant:
		return "CyclicConstant"
	case NotAConstant:
		return "NotAConstant"
	case BadAnnotationValue:
		return "BadAnnotationValue"
	case ClassPathDecodeError:
		return "ClassPathDecodeError"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Diagnostic is one reported problem with its source position.
type Diagnostic struct {
	Kind    Kind
	Pos     ast.Pos
	Message string
}

// String renders the diagnostic as path:line:col: kind: message.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// Sink accumulates diagnostics for one compilation. The binder is
// single-threaded, so Sink is not synchronized.
type Sink struct {
	diags []Diagnostic
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report adds a diagnostic.
func (s *Sink) Report(kind Kind, pos ast.Pos, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether anything was collected.
func (s *Sink) HasErrors() bool {
	return len(s.diags) > 0
}

// Count returns the number of collected diagnostics.
func (s *Sink) Count() int {
	return len(s.diags)
}

// Diagnostics returns the collected diagnostics ordered by file, line,
// column, then kind, for deterministic rendering.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		if a.Pos.Col != b.Pos.Col {
			return a.Pos.Col < b.Pos.Col
		}
		return a.Kind < b.Kind
	})
	return out
}

// CountByKind returns how many diagnostics of each kind were
// collected. Used by telemetry.
func (s *Sink) CountByKind() map[Kind]int {
	out := make(map[Kind]int, len(s.diags))
	for _, d := range s.diags {
		out[d.Kind]++
	}
	return out
}
