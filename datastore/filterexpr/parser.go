/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filterexpr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/tablestore/storagemodels"
)

// Node is a parsed filter expression.
type Node interface {
	String() string
}

// Comparison is a single "Property op literal" condition.
type Comparison struct {
	Property string
	Operator string
	Value    Literal
}

// Logical joins two expressions with "and" or "or".
type Logical struct {
	Operator string
	Left     Node
	Right    Node
}

// Negation is "not" applied to an expression.
type Negation struct {
	Operand Node
}

// LiteralKind identifies the type of a literal.
type LiteralKind int

const (
	KindString LiteralKind = iota
	KindDateTime
	KindNumber
	KindBool
)

// Literal is the right-hand side of a comparison.
type Literal struct {
	Kind   LiteralKind
	Text   string
	Time   time.Time
	Number float64
	Bool   bool
}

// Value returns the literal as a Go value suitable for attribute value marshaling.
// Datetime literals are rendered in storagemodels.TimestampFormat.
func (l Literal) Value() any {
	switch l.Kind {
	case KindDateTime:
		return storagemodels.FormatTimestamp(l.Time)
	case KindNumber:
		return l.Number
	case KindBool:
		return l.Bool
	default:
		return l.Text
	}
}

func (l Literal) String() string {
	switch l.Kind {
	case KindDateTime:
		return "datetime'" + storagemodels.FormatTimestamp(l.Time) + "'"
	case KindNumber:
		return strconv.FormatFloat(l.Number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(l.Bool)
	default:
		return "'" + strings.ReplaceAll(l.Text, "'", "''") + "'"
	}
}

func (c *Comparison) String() string {
	return c.Property + " " + c.Operator + " " + c.Value.String()
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + ") " + l.Operator + " (" + l.Right.String() + ")"
}

func (n *Negation) String() string {
	return "not (" + n.Operand.String() + ")"
}

var comparisonOperators = map[string]bool{
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true,
}

// Parse parses a filter string. An empty or blank filter yields a nil Node, which
// matches every item.
//
// Precedence from loosest to tightest: or, and, not, comparison. Parentheses group.
func Parse(filter string) (Node, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	tokens, err := tokenize(filter)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return node, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) peekKeyword(keyword string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, keyword)
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Operator: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Operator: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.peekKeyword("not") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Negation{Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ')'"}
		}
		return node, nil
	case tokIdent:
		return p.parseComparison(tok)
	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected property name, got %q", tok.text)}
	}
}

func (p *parser) parseComparison(property token) (Node, error) {
	op := p.next()
	if op.kind != tokIdent || !comparisonOperators[strings.ToLower(op.text)] {
		return nil, &SyntaxError{Pos: op.pos, Msg: fmt.Sprintf("expected comparison operator after %q", property.text)}
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Comparison{Property: property.text, Operator: strings.ToLower(op.text), Value: lit}, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return Literal{Kind: KindString, Text: tok.text}, nil
	case tokDateTime:
		dt, err := strfmt.ParseDateTime(tok.text)
		if err != nil {
			return Literal{}, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid datetime %q", tok.text)}
		}
		return Literal{Kind: KindDateTime, Text: tok.text, Time: time.Time(dt).UTC()}, nil
	case tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return Literal{}, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid number %q", tok.text)}
		}
		return Literal{Kind: KindNumber, Text: tok.text, Number: n}, nil
	case tokIdent:
		switch strings.ToLower(tok.text) {
		case "true":
			return Literal{Kind: KindBool, Text: tok.text, Bool: true}, nil
		case "false":
			return Literal{Kind: KindBool, Text: tok.text, Bool: false}, nil
		}
	}
	return Literal{}, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected literal, got %q", tok.text)}
}

// Conjuncts flattens the top-level "and" chain of node.
func Conjuncts(node Node) []Node {
	if l, ok := node.(*Logical); ok && l.Operator == "and" {
		return append(Conjuncts(l.Left), Conjuncts(l.Right)...)
	}
	if node == nil {
		return nil
	}
	return []Node{node}
}
