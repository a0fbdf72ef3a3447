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
)

// node is one vertex of the parsed expression.
type node interface {
	pos() int
}

type numberNode struct {
	at    int
	value float64
}

type identNode struct {
	at   int
	name string
}

type callNode struct {
	at   int
	name string
	args []node
}

type negNode struct {
	at  int
	arg node
}

type binNode struct {
	at    int
	op    tokenKind
	left  node
	right node
}

func (n *numberNode) pos() int { return n.at }
func (n *identNode) pos() int  { return n.at }
func (n *callNode) pos() int   { return n.at }
func (n *negNode) pos() int    { return n.at }
func (n *binNode) pos() int    { return n.at }

// parser is a recursive-descent parser over the token stream.
//
// Grammar, loosest binding first:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = "-" unary | power
//	power   = primary [ "^" unary ]
//	primary = number | ident | ident "(" expr { "," expr } ")" | "(" expr ")"
//
// Exponentiation is right-associative and binds tighter than unary
// minus, so -x^2 reads as -(x^2).
type parser struct {
	tokens []token
	i      int
}

func (p *parser) peek() token { return p.tokens[p.i] }

func (p *parser) next() token {
	t := p.tokens[p.i]
	if t.kind != tokenEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return token{}, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %s", what)}
	}
	return p.next(), nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokenPlus && t.kind != tokenMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binNode{at: t.pos, op: t.kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokenStar && t.kind != tokenSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binNode{at: t.pos, op: t.kind, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if t := p.peek(); t.kind == tokenMinus {
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{at: t.pos, arg: arg}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokenCaret {
		return base, nil
	}
	p.next()
	// Right-associative; the exponent may carry its own unary minus.
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binNode{at: t.pos, op: tokenCaret, left: base, right: exp}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokenNumber:
		p.next()
		return &numberNode{at: t.pos, value: t.value}, nil

	case tokenIdent:
		p.next()
		if p.peek().kind != tokenLParen {
			return &identNode{at: t.pos, name: t.text}, nil
		}
		p.next()
		var args []node
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokenComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokenRParen, `")"`); err != nil {
			return nil, err
		}
		return &callNode{at: t.pos, name: t.text, args: args}, nil

	case tokenLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenRParen, `")"`); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenEOF:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected end of formula"}

	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}
