// Package exprparse turns exprlex tokens into an internal/ast.Expression
// tree via straightforward recursive descent, one function per precedence
// level, following the teacher's lexer/parser pairing
// (funvibe-funxy/internal/lexer + internal/parser) without its Pratt
// machinery — the CEL-like grammar here has a small, fixed precedence
// ladder that reads more plainly as nested grammar functions.
package exprparse

import (
	"fmt"
	"strconv"

	"github.com/nullsafe/supercel/internal/ast"
	"github.com/nullsafe/supercel/internal/exprlex"
)

// Parser consumes tokens from a Lexer and builds an Expression tree.
type Parser struct {
	lex  *exprlex.Lexer
	cur  exprlex.Token
	peek exprlex.Token
}

// New returns a Parser over source.
func New(source string) *Parser {
	p := &Parser{lex: exprlex.New(source)}
	p.next()
	p.next()
	return p
}

// Parse parses source as a single expression, per parse_to_ast (spec §6).
func Parse(source string) (ast.Expression, error) {
	p := New(source)
	expr, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != exprlex.EOF {
		return nil, fmt.Errorf("exprparse: unexpected trailing token %q at %d", p.cur.Literal, p.cur.Pos)
	}
	return expr, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) expect(k exprlex.Kind, what string) error {
	if p.cur.Kind != k {
		return fmt.Errorf("exprparse: expected %s at %d, got %q", what, p.cur.Pos, p.cur.Literal)
	}
	p.next()
	return nil
}

// parseTernary: logic_or ( '?' expr ':' expr )?
func (p *Parser) parseTernary() (ast.Expression, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != exprlex.QUESTION {
		return cond, nil
	}
	p.next()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(exprlex.COLON, "':'"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseOr() (ast.Expression, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == exprlex.OR {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Or{Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	lhs, err := p.parseRelation()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == exprlex.AND {
		p.next()
		rhs, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		lhs = &ast.And{Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

var relOps = map[exprlex.Kind]ast.RelationOp{
	exprlex.LT: ast.Lt,
	exprlex.LE: ast.Le,
	exprlex.GT: ast.Gt,
	exprlex.GE: ast.Ge,
	exprlex.EQ: ast.Eq,
	exprlex.NE: ast.Ne,
	exprlex.IN: ast.In,
}

// parseRelation: addition ( relop addition )? — CEL relations don't chain.
func (p *Parser) parseRelation() (ast.Expression, error) {
	lhs, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	if op, ok := relOps[p.cur.Kind]; ok {
		p.next()
		rhs, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		return &ast.Relation{Lhs: lhs, Op: op, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseAddition() (ast.Expression, error) {
	lhs, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == exprlex.PLUS || p.cur.Kind == exprlex.MINUS {
		op := ast.Add
		if p.cur.Kind == exprlex.MINUS {
			op = ast.Sub
		}
		p.next()
		rhs, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Arithmetic{Lhs: lhs, Op: op, Rhs: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseMultiplication() (ast.Expression, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == exprlex.STAR || p.cur.Kind == exprlex.SLASH || p.cur.Kind == exprlex.PERCENT {
		var op ast.ArithmeticOp
		switch p.cur.Kind {
		case exprlex.STAR:
			op = ast.Mul
		case exprlex.SLASH:
			op = ast.Div
		default:
			op = ast.Mod
		}
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Arithmetic{Lhs: lhs, Op: op, Rhs: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.cur.Kind {
	case exprlex.NOT:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.Not, Operand: operand}, nil
	case exprlex.DOUBLENOT:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.DoubleNot, Operand: operand}, nil
	case exprlex.MINUS:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.Neg, Operand: operand}, nil
	case exprlex.DOUBLENEG:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.DoubleNeg, Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

// parsePostfix: primary ( '.' IDENT ['(' args ')'] | '[' expr ']' )*
func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case exprlex.DOT:
			p.next()
			if p.cur.Kind != exprlex.IDENT {
				return nil, fmt.Errorf("exprparse: expected identifier after '.' at %d", p.cur.Pos)
			}
			name := p.cur.Literal
			p.next()
			if p.cur.Kind == exprlex.LPAREN {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				expr = &ast.FunctionCall{Callee: &ast.Ident{Name: name}, Receiver: expr, Args: args}
			} else {
				expr = &ast.Member{Receiver: expr, Accessor: &ast.Attribute{Name: name}}
			}
		case exprlex.LBRACKET:
			p.next()
			idx, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(exprlex.RBRACKET, "']'"); err != nil {
				return nil, err
			}
			expr = &ast.Member{Receiver: expr, Accessor: &ast.Index{Expr: idx}}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expression, error) {
	if err := p.expect(exprlex.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for p.cur.Kind != exprlex.RPAREN {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Kind == exprlex.COMMA {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(exprlex.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch p.cur.Kind {
	case exprlex.INT:
		lit := p.cur.Literal
		p.next()
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("exprparse: invalid int literal %q", lit)
		}
		return &ast.Atom{Literal: ast.IntLit(n)}, nil
	case exprlex.UINT:
		lit := p.cur.Literal
		p.next()
		n, err := strconv.ParseUint(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("exprparse: invalid uint literal %q", lit)
		}
		return &ast.Atom{Literal: ast.UIntLit(n)}, nil
	case exprlex.FLOAT:
		lit := p.cur.Literal
		p.next()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("exprparse: invalid float literal %q", lit)
		}
		return &ast.Atom{Literal: ast.FloatLit(f)}, nil
	case exprlex.STRING:
		lit := p.cur.Literal
		p.next()
		return &ast.Atom{Literal: ast.StringLit(lit)}, nil
	case exprlex.BYTES:
		lit := p.cur.Literal
		p.next()
		return &ast.Atom{Literal: ast.BytesLit([]byte(lit))}, nil
	case exprlex.TRUE:
		p.next()
		return &ast.Atom{Literal: ast.BoolLit(true)}, nil
	case exprlex.FALSE:
		p.next()
		return &ast.Atom{Literal: ast.BoolLit(false)}, nil
	case exprlex.NULLTOK:
		p.next()
		return &ast.Atom{Literal: ast.NullLit()}, nil
	case exprlex.IDENT:
		name := p.cur.Literal
		p.next()
		if p.cur.Kind == exprlex.LPAREN {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.FunctionCall{Callee: &ast.Ident{Name: name}, Args: args}, nil
		}
		return &ast.Ident{Name: name}, nil
	case exprlex.LPAREN:
		p.next()
		expr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(exprlex.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case exprlex.LBRACKET:
		return p.parseList()
	case exprlex.LBRACE:
		return p.parseMap()
	default:
		return nil, fmt.Errorf("exprparse: unexpected token %q at %d", p.cur.Literal, p.cur.Pos)
	}
}

func (p *Parser) parseList() (ast.Expression, error) {
	if err := p.expect(exprlex.LBRACKET, "'['"); err != nil {
		return nil, err
	}
	var items []ast.Expression
	for p.cur.Kind != exprlex.RBRACKET {
		item, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur.Kind == exprlex.COMMA {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(exprlex.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	return &ast.List{Items: items}, nil
}

func (p *Parser) parseMap() (ast.Expression, error) {
	if err := p.expect(exprlex.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	var entries []ast.MapEntry
	for p.cur.Kind != exprlex.RBRACE {
		key, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(exprlex.COLON, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.cur.Kind == exprlex.COMMA {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(exprlex.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return &ast.Map{Entries: entries}, nil
}
