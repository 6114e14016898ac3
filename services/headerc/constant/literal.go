// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package constant

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/headwindhq/headwind/services/headerc/ast"
	"github.com/headwindhq/headwind/services/headerc/sym"
)

// parseLiteral normalizes a raw literal token into a Const: radix
// prefixes, digit underscores, type suffixes, and escape sequences.
func parseLiteral(lit *ast.Literal) (sym.Const, error) {
	switch lit.Kind {
	case ast.LitBool:
		return sym.BoolConst(lit.Text == "true"), nil
	case ast.LitInt:
		return parseIntLiteral(lit)
	case ast.LitFloat:
		return parseFloatLiteral(lit)
	case ast.LitChar:
		return parseCharLiteral(lit)
	case ast.LitString:
		return parseStringLiteral(lit)
	case ast.LitNull:
		return nil, notConst(lit.Pos, "null literal")
	default:
		return nil, notConst(lit.Pos, "unrecognized literal %q", lit.Text)
	}
}

func parseIntLiteral(lit *ast.Literal) (sym.Const, error) {
	text := strings.ReplaceAll(lit.Text, "_", "")
	isLong := false
	if n := len(text); n > 0 && (text[n-1] == 'l' || text[n-1] == 'L') {
		isLong = true
		text = text[:n-1]
	}

	base := 10
	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, text = 16, text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, text = 2, text[2:]
	case len(text) > 1 && text[0] == '0':
		base, text = 8, text[1:]
	}

	// Parse as unsigned and reinterpret, so 0xFFFFFFFF and the
	// magnitude of Integer.MIN_VALUE both come through.
	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return nil, notConst(lit.Pos, "malformed integer literal %q", lit.Text)
	}
	if isLong {
		return sym.LongConst(int64(v)), nil
	}
	return sym.IntConst(int32(uint32(v))), nil
}

func parseFloatLiteral(lit *ast.Literal) (sym.Const, error) {
	text := strings.ReplaceAll(lit.Text, "_", "")
	kind := sym.Double
	if n := len(text); n > 0 {
		switch text[n-1] {
		case 'f', 'F':
			kind, text = sym.Float, text[:n-1]
		case 'd', 'D':
			text = text[:n-1]
		}
	}
	if kind == sym.Float {
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, notConst(lit.Pos, "malformed float literal %q", lit.Text)
		}
		return sym.FloatConst(float32(v)), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, notConst(lit.Pos, "malformed double literal %q", lit.Text)
	}
	return sym.DoubleConst(v), nil
}

func parseCharLiteral(lit *ast.Literal) (sym.Const, error) {
	text := lit.Text
	if len(text) < 2 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return nil, notConst(lit.Pos, "malformed character literal %q", lit.Text)
	}
	runes, err := unescape(text[1:len(text)-1], lit.Pos)
	if err != nil {
		return nil, err
	}
	if len(runes) != 1 {
		return nil, notConst(lit.Pos, "character literal %q is not a single code unit", lit.Text)
	}
	return sym.CharConst(runes[0]), nil
}

func parseStringLiteral(lit *ast.Literal) (sym.Const, error) {
	text := lit.Text
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return nil, notConst(lit.Pos, "malformed string literal %q", lit.Text)
	}
	units, err := unescape(text[1:len(text)-1], lit.Pos)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, u := range units {
		sb.WriteRune(rune(u))
	}
	return sym.StringConst(sb.String()), nil
}

// unescape decodes the source-level escape sequences into UTF-16 code
// units: named escapes, octal escapes, and \uXXXX.
func unescape(s string, pos ast.Pos) ([]uint16, error) {
	var out []uint16
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(s[i:])
			out = appendUTF16(out, r)
			i += size
			continue
		}
		i++
		if i >= len(s) {
			return nil, notConst(pos, "dangling escape")
		}
		switch e := s[i]; e {
		case 'b':
			out = append(out, '\b')
			i++
		case 't':
			out = append(out, '\t')
			i++
		case 'n':
			out = append(out, '\n')
			i++
		case 'f':
			out = append(out, '\f')
			i++
		case 'r':
			out = append(out, '\r')
			i++
		case '"', '\'', '\\':
			out = append(out, uint16(e))
			i++
		case 'u':
			// Any number of u's is permitted before the hex digits.
			for i < len(s) && s[i] == 'u' {
				i++
			}
			if i+4 > len(s) {
				return nil, notConst(pos, "truncated unicode escape")
			}
			v, err := strconv.ParseUint(s[i:i+4], 16, 16)
			if err != nil {
				return nil, notConst(pos, "malformed unicode escape")
			}
			out = append(out, uint16(v))
			i += 4
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			max := i + 3
			if e > '3' {
				max = i + 2
			}
			for j < len(s) && j < max && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			out = append(out, uint16(v))
			i = j
		default:
			return nil, notConst(pos, "unrecognized escape \\%c", e)
		}
	}
	return out, nil
}

func appendUTF16(out []uint16, r rune) []uint16 {
	if r < 0x10000 {
		return append(out, uint16(r))
	}
	r -= 0x10000
	return append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
}
