// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package parse turns Java source into the header tree model.
//
// Parsing uses tree-sitter; the concrete syntax tree is walked once
// and reduced to declarations, signatures, annotations, and constant
// expressions. Method and initializer bodies are not materialized —
// only the fact that a body was present survives, which is all header
// compilation needs.
//
// Parsers are safe for concurrent use: each Parse call creates its
// own tree-sitter parser instance.
package parse

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/diag"
)

// DefaultMaxFileSize is the largest source file the parser accepts.
const DefaultMaxFileSize = 10 * 1024 * 1024

// ErrFileTooLarge is returned when input exceeds the size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// ErrInvalidContent is returned for input that is not valid UTF-8.
var ErrInvalidContent = errors.New("content is not valid UTF-8")

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFileSize overrides the accepted file size limit.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// Parser parses Java compilation units.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a Parser with default limits.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses one source file into a compilation unit. Syntax errors
// are reported to sink as ParseError diagnostics; the unit still
// carries every declaration that could be recovered.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string, sink *diag.Sink) (*ast.CompUnit, error) {
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned no root node")
	}

	w := &walker{content: content, file: filePath, sink: sink}
	if root.HasError() {
		w.reportSyntaxErrors(root)
	}
	unit := w.compUnit(root)
	return unit, nil
}

// walker reduces a concrete syntax tree to the header tree model.
type walker struct {
	content []byte
	file    string
	sink    *diag.Sink
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) pos(n *sitter.Node) ast.Pos {
	return ast.Pos{
		File: w.file,
		Line: int(n.StartPoint().Row) + 1,
		Col:  int(n.StartPoint().Column) + 1,
	}
}

// reportSyntaxErrors walks to the shallowest ERROR and MISSING nodes
// and reports one diagnostic per region.
func (w *walker) reportSyntaxErrors(n *sitter.Node) {
	if n.Type() == "ERROR" || n.IsMissing() {
		w.sink.Report(diag.ParseError, w.pos(n), "syntax error near %q", clip(w.text(n), 40))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() {
			w.reportSyntaxErrors(child)
		}
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// compUnit reduces the program node.
func (w *walker) compUnit(root *sitter.Node) *ast.CompUnit {
	unit := &ast.CompUnit{File: w.file}
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_declaration":
			unit.Package = w.packageDecl(child)
		case "import_declaration":
			if imp := w.importDecl(child); imp != nil {
				unit.Imports = append(unit.Imports, imp)
			}
		case "class_declaration", "interface_declaration", "enum_declaration", "annotation_type_declaration":
			if d := w.tyDecl(child); d != nil {
				unit.Decls = append(unit.Decls, d)
			}
		}
	}
	return unit
}

func (w *walker) packageDecl(n *sitter.Node) *ast.PackageDecl {
	decl := &ast.PackageDecl{Pos: w.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "identifier", "scoped_identifier":
			decl.Name = splitName(w.text(child))
		case "annotation", "marker_annotation":
			decl.Annos = append(decl.Annos, w.annotation(child))
		}
	}
	return decl
}

func (w *walker) importDecl(n *sitter.Node) *ast.ImportDecl {
	imp := &ast.ImportDecl{Pos: w.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "static":
			imp.Static = true
		case "identifier", "scoped_identifier":
			imp.Name = splitName(w.text(child))
		case "asterisk":
			imp.Wildcard = true
		}
	}
	if len(imp.Name) == 0 {
		return nil
	}
	return imp
}

// splitName breaks a dotted name into segments.
func splitName(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
