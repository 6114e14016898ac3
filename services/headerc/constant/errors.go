// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package constant

import (
	"fmt"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// BlockedError reports that evaluation depends on a field whose
// constant value has not been computed yet. The binder's worklist
// retries the evaluation once the dependency resolves.
type BlockedError struct {
	Dep sym.FieldSymbol
}

// Error implements error.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked on constant %s.%s", e.Dep.Owner, e.Dep.Name)
}

// NotConstantError reports an expression outside the constant grammar,
// or an operand of the wrong type. It maps to the NotAConstant
// diagnostic kind.
type NotConstantError struct {
	Pos  ast.Pos
	Desc string
}

// Error implements error.
func (e *NotConstantError) Error() string {
	return fmt.Sprintf("%s: not a constant expression: %s", e.Pos, e.Desc)
}

func notConst(pos ast.Pos, format string, args ...any) error {
	return &NotConstantError{Pos: pos, Desc: fmt.Sprintf(format, args...)}
}
