// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package formula

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenCaret
	tokenLParen
	tokenRParen
	tokenComma
)

// token is one lexical unit. pos is the 1-based position of its first
// character in the source.
type token struct {
	kind  tokenKind
	text  string
	pos   int
	value float64
}

// scan tokenizes the whole source up front. Formulas are short, so
// there is no need for a streaming lexer.
func scan(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r, width := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i += width

		case r >= '0' && r <= '9' || r == '.':
			tok, next, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(src) {
				r, width := utf8.DecodeRuneInString(src[i:])
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
					break
				}
				i += width
			}
			tokens = append(tokens, token{kind: tokenIdent, text: src[start:i], pos: start + 1})

		default:
			kind, ok := punctKind(r)
			if !ok {
				return nil, &ParseError{Pos: i + 1, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			tokens = append(tokens, token{kind: kind, text: string(r), pos: i + 1})
			i += width
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(src) + 1})
	return tokens, nil
}

func punctKind(r rune) (tokenKind, bool) {
	switch r {
	case '+':
		return tokenPlus, true
	case '-':
		return tokenMinus, true
	case '*':
		return tokenStar, true
	case '/':
		return tokenSlash, true
	case '^':
		return tokenCaret, true
	case '(':
		return tokenLParen, true
	case ')':
		return tokenRParen, true
	case ',':
		return tokenComma, true
	}
	return 0, false
}

// scanNumber consumes a decimal literal with an optional fraction and
// scientific-notation exponent, starting at index start.
func scanNumber(src string, start int) (token, int, error) {
	i := start
	digits := func() {
		for i < len(src) && src[i] >= '0' && src[i] <= '9' {
			i++
		}
	}

	digits()
	if i < len(src) && src[i] == '.' {
		i++
		digits()
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		mark := i
		i++
		if i < len(src) && (src[i] == '+' || src[i] == '-') {
			i++
		}
		if i >= len(src) || src[i] < '0' || src[i] > '9' {
			// A trailing e belongs to the next token, as in "2e".
			i = mark
		} else {
			digits()
		}
	}

	text := src[start:i]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, 0, &ParseError{Pos: start + 1, Msg: fmt.Sprintf("malformed number %q", text)}
	}
	return token{kind: tokenNumber, text: text, pos: start + 1, value: value}, i, nil
}
