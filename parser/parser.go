// Package parser turns a token stream into the AST shapes of package ast:
// a flat reverse-Polish Expression for every expression, and a tree of
// Statement for everything else (spec §4.2).
//
// It is organized as a family of cooperating state-machine methods, one
// per grammar category, each advancing a shared cursor over the token
// slice — the same recursive-descent idiom as the teacher's
// parser/parser.go (peek/previous/advance/isMatch/consume on a
// position-indexed token slice). The expression grammar specifically uses
// precedence climbing (the teacher's compiler/compiler.go Pratt table,
// generalized to the full sixteen-level ladder of precedence.go) so that
// its output is already the flat postfix Expression spec §3 requires,
// rather than a tree that a later pass would need to flatten.
//
// Per spec §7, parsing stops at the first error: there is no
// resynchronize-and-continue pass like the teacher's Parse() loop.
package parser

import (
	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/token"
)

// Parser holds the token stream and the cursor into it. The cursor always
// points one token ahead of the token last consumed, matching the
// teacher's convention.
type Parser struct {
	tokens   []token.Token
	position int
}

// New returns a Parser over tokens, which must end with an EOF token (as
// lexer.ScanAll always produces).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.position]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.position + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.position-1]
}

func (p *Parser) advance() token.Token {
	if !p.atEnd() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) check(t token.Type) bool {
	if p.atEnd() {
		return t == token.EOF
	}
	return p.peek().Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.Type, want string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token.Token{}, Expected(want, p.peek())
}

// ParseProgram parses the whole token stream as a sequence of top-level
// statements, stopping at the first error.
func ParseProgram(tokens []token.Token) ([]ast.Statement, error) {
	p := New(tokens)
	var statements []ast.Statement
	for !p.atEnd() {
		if p.check(token.COMMENT) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// parseStatement dispatches on the leading keyword to one of the twelve
// statement productions of spec §3.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.check(token.LET):
		return p.parseLet()
	case p.check(token.CONST):
		return p.parseConst()
	case p.check(token.STATIC):
		return p.parseStatic()
	case p.check(token.FOR):
		return p.parseLoop()
	case p.check(token.IMPL):
		return p.parseImpl()
	case p.check(token.USE):
		return p.parseUse()
	case p.check(token.MOD):
		return p.parseMod()
	case p.check(token.FN):
		return p.parseFn()
	case p.check(token.ENUM):
		return p.parseEnum()
	case p.check(token.STRUCT):
		return p.parseStruct()
	case p.check(token.TYPE):
		return p.parseTypeAlias()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLet() (ast.Statement, error) {
	tok := p.advance() // LET
	mutable := p.match(token.MUT)
	name, err := p.consume(token.IDENTIFIER, "identifier")
	if err != nil {
		return ast.Statement{}, err
	}
	var typ *ast.TypeExpr
	if p.match(token.COLON) {
		t, err := p.parseTypeExpr()
		if err != nil {
			return ast.Statement{}, err
		}
		typ = &t
	}
	if _, err := p.consume(token.ASSIGN, "'='"); err != nil {
		return ast.Statement{}, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{
		Kind:  ast.StmtLet,
		Token: tok,
		Let:   &ast.LetStatement{Name: name.Lexeme, Mutable: mutable, Type: typ, Expr: expr},
	}, nil
}

func (p *Parser) parseConst() (ast.Statement, error) {
	tok := p.advance() // CONST
	name, err := p.consume(token.IDENTIFIER, "identifier")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.COLON, "':'"); err != nil {
		return ast.Statement{}, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.ASSIGN, "'='"); err != nil {
		return ast.Statement{}, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{
		Kind:  ast.StmtConst,
		Token: tok,
		Const: &ast.ConstStatement{Name: name.Lexeme, Type: typ, Expr: expr},
	}, nil
}

func (p *Parser) parseStatic() (ast.Statement, error) {
	tok := p.advance() // STATIC
	name, err := p.consume(token.IDENTIFIER, "identifier")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.COLON, "':'"); err != nil {
		return ast.Statement{}, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.ASSIGN, "'='"); err != nil {
		return ast.Statement{}, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{
		Kind:   ast.StmtStatic,
		Token:  tok,
		Static: &ast.StaticStatement{Name: name.Lexeme, Type: typ, Expr: expr},
	}, nil
}

func (p *Parser) parseLoop() (ast.Statement, error) {
	tok := p.advance() // FOR
	iter, err := p.consume(token.IDENTIFIER, "loop variable")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.IN, "'in'"); err != nil {
		return ast.Statement{}, err
	}
	low, err := p.parseExpressionUpTo(precRange + 1)
	if err != nil {
		return ast.Statement{}, err
	}
	inclusive := false
	if p.match(token.RANGE_INCLUSIVE) {
		inclusive = true
	} else if _, err := p.consume(token.RANGE, "'..'"); err != nil {
		return ast.Statement{}, err
	}
	high, err := p.parseExpressionUpTo(precRange + 1)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	body, err := p.parseBlockBody()
	if err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{
		Kind: ast.StmtLoop,
		Token: tok,
		Loop: &ast.LoopStatement{
			Iterator:  iter.Lexeme,
			RangeLow:  low,
			RangeHigh: high,
			Inclusive: inclusive,
			Body:      body,
		},
	}, nil
}

func (p *Parser) parseImpl() (ast.Statement, error) {
	tok := p.advance() // IMPL
	target, err := p.consume(token.IDENTIFIER, "type name")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	b := ast.NewImplBuilder(tok, target.Lexeme)
	for !p.check(token.RCUR) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.Statement{}, err
		}
		b.AddStatement(stmt)
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return ast.Statement{}, err
	}
	return b.Finish(), nil
}

func (p *Parser) parseUse() (ast.Statement, error) {
	tok := p.advance() // USE
	var path []string
	first, err := p.consume(token.IDENTIFIER, "path segment")
	if err != nil {
		return ast.Statement{}, err
	}
	path = append(path, first.Lexeme)
	for p.match(token.DOUBLE_COLON) {
		seg, err := p.consume(token.IDENTIFIER, "path segment")
		if err != nil {
			return ast.Statement{}, err
		}
		path = append(path, seg.Lexeme)
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtUse, Token: tok, Use: &ast.UseStatement{Path: path}}, nil
}

func (p *Parser) parseMod() (ast.Statement, error) {
	tok := p.advance() // MOD
	name, err := p.consume(token.IDENTIFIER, "module name")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	var statements []ast.Statement
	for !p.check(token.RCUR) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return ast.Statement{}, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtMod, Token: tok, Mod: &ast.ModStatement{Name: name.Lexeme, Statements: statements}}, nil
}

func (p *Parser) parseFn() (ast.Statement, error) {
	tok := p.advance() // FN
	name, err := p.consume(token.IDENTIFIER, "function name")
	if err != nil {
		return ast.Statement{}, err
	}
	b := ast.NewFnBuilder(tok, name.Lexeme)
	if _, err := p.consume(token.LPA, "'('"); err != nil {
		return ast.Statement{}, err
	}
	for !p.check(token.RPA) {
		paramName, err := p.consume(token.IDENTIFIER, "parameter name")
		if err != nil {
			return ast.Statement{}, err
		}
		if _, err := p.consume(token.COLON, "':'"); err != nil {
			return ast.Statement{}, err
		}
		paramType, err := p.parseTypeExpr()
		if err != nil {
			return ast.Statement{}, err
		}
		b.AddParam(ast.FnParam{Name: paramName.Lexeme, Type: paramType})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPA, "')'"); err != nil {
		return ast.Statement{}, err
	}
	if p.match(token.ARROW) {
		ret, err := p.parseTypeExpr()
		if err != nil {
			return ast.Statement{}, err
		}
		b.SetReturn(ret)
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	body, err := p.parseBlockBody()
	if err != nil {
		return ast.Statement{}, err
	}
	b.SetBody(body)
	return b.Finish(), nil
}

func (p *Parser) parseEnum() (ast.Statement, error) {
	tok := p.advance() // ENUM
	name, err := p.consume(token.IDENTIFIER, "enum name")
	if err != nil {
		return ast.Statement{}, err
	}
	b := ast.NewEnumBuilder(tok, name.Lexeme)
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	for !p.check(token.RCUR) {
		variantName, err := p.consume(token.IDENTIFIER, "variant name")
		if err != nil {
			return ast.Statement{}, err
		}
		var value *int64
		if p.match(token.ASSIGN) {
			lit, err := p.consume(token.INTEGER, "integer literal")
			if err != nil {
				return ast.Statement{}, err
			}
			raw, ok := lit.Literal.(uint64)
			if !ok {
				return ast.Statement{}, Expected("integer literal", lit)
			}
			v := int64(raw)
			value = &v
		}
		b.AddVariant(variantName.Lexeme, value)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return ast.Statement{}, err
	}
	return b.Finish(), nil
}

func (p *Parser) parseStruct() (ast.Statement, error) {
	tok := p.advance() // STRUCT
	name, err := p.consume(token.IDENTIFIER, "struct name")
	if err != nil {
		return ast.Statement{}, err
	}
	b := ast.NewStructBuilder(tok, name.Lexeme)
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return ast.Statement{}, err
	}
	for !p.check(token.RCUR) {
		fieldName, err := p.consume(token.IDENTIFIER, "field name")
		if err != nil {
			return ast.Statement{}, err
		}
		if _, err := p.consume(token.COLON, "':'"); err != nil {
			return ast.Statement{}, err
		}
		fieldType, err := p.parseTypeExpr()
		if err != nil {
			return ast.Statement{}, err
		}
		b.AddField(ast.StructField{Name: fieldName.Lexeme, Type: fieldType})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return ast.Statement{}, err
	}
	return b.Finish(), nil
}

func (p *Parser) parseTypeAlias() (ast.Statement, error) {
	tok := p.advance() // TYPE
	name, err := p.consume(token.IDENTIFIER, "type name")
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.ASSIGN, "'='"); err != nil {
		return ast.Statement{}, err
	}
	alias, err := p.parseTypeExpr()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtType, Token: tok, Type: &ast.TypeStatement{Name: name.Lexeme, Alias: alias}}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	tok := p.peek()
	expr, err := p.parseExpression()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtExpression, Token: tok, Expression: &ast.ExpressionStatement{Expr: expr}}, nil
}

// parseBlockBody parses statements and an optional tail expression up to
// (and consuming) the closing '}'. The opening '{' has already been
// consumed by the caller.
func (p *Parser) parseBlockBody() (ast.Block, error) {
	b := ast.NewBlockBuilder()
	for !p.check(token.RCUR) && !p.atEnd() {
		if isStatementStart(p.peek().Type) {
			stmt, err := p.parseStatement()
			if err != nil {
				return ast.Block{}, err
			}
			b.AddStatement(stmt)
			continue
		}
		// Anything else is either a tail expression (no trailing ';') or an
		// expression statement (trailing ';').
		tok := p.peek()
		expr, err := p.parseExpression()
		if err != nil {
			return ast.Block{}, err
		}
		if p.match(token.SEMICOLON) {
			b.AddStatement(ast.Statement{Kind: ast.StmtExpression, Token: tok, Expression: &ast.ExpressionStatement{Expr: expr}})
			continue
		}
		b.SetTail(expr)
		break
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return ast.Block{}, err
	}
	return b.Finish(), nil
}

func isStatementStart(t token.Type) bool {
	switch t {
	case token.LET, token.CONST, token.STATIC, token.FOR, token.IMPL, token.USE, token.MOD, token.FN, token.ENUM, token.STRUCT, token.TYPE:
		return true
	default:
		return false
	}
}

// parseTypeExpr parses a type expression: a named type, an array type
// "[T; N]", or a tuple type "(T1, T2)".
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	startTok := p.peek()
	switch {
	case p.match(token.LBRACKET):
		elem, err := p.parseTypeExpr()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
			return ast.TypeExpr{}, err
		}
		lengthExpr, err := p.parseExpression()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.consume(token.RBRACKET, "']'"); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Location: startTok.Location, ArrayElement: &elem, ArrayLength: &lengthExpr}, nil
	case p.match(token.LPA):
		var fields []ast.TypeExpr
		for !p.check(token.RPA) {
			f, err := p.parseTypeExpr()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			fields = append(fields, f)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RPA, "')'"); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Location: startTok.Location, TupleFields: fields}, nil
	default:
		name, err := p.consume(token.IDENTIFIER, "type name")
		if err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Name: name.Lexeme, Location: name.Location}, nil
	}
}

// --- Expression grammar: precedence climbing over precedence.go's table,
// emitting directly into a flat ast.Expression. ---

// parseExpression parses a full expression at the lowest precedence.
func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseExpressionUpTo(precAssignment)
}

// parseExpressionUpTo parses an expression, only consuming infix operators
// whose precedence is >= min. Used by callers (loop bounds) that must stop
// before a lower-precedence operator like '..' would otherwise be
// swallowed as part of the operand.
func (p *Parser) parseExpressionUpTo(min precedence) (ast.Expression, error) {
	var out ast.Expression
	if err := p.parseUnaryWithPostfix(&out); err != nil {
		return nil, err
	}
	for {
		rule, ok := infixRules[p.peek().Type]
		if !ok || rule.precedence < min {
			break
		}
		opTok := p.advance()
		nextMin := rule.precedence + 1
		if rule.associativity == rightAssoc {
			nextMin = rule.precedence
		}
		if err := p.parsePostfixOperand(&out, rule, opTok, nextMin); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Parser) parsePostfixOperand(out *ast.Expression, rule infixRule, opTok token.Token, nextMin precedence) error {
	if rule.op == ast.OpAs {
		// `as`'s right side is a type, not a value expression — "x as u8"
		// must not try to resolve "u8" as an identifier binding.
		te, err := p.parseTypeExpr()
		if err != nil {
			return err
		}
		*out = append(*out, ast.OperandOf(ast.OperandType, te, opTok))
		*out = append(*out, ast.OperatorOf(rule.op, opTok))
		return nil
	}
	rhs, err := p.parseExpressionUpTo(nextMin)
	if err != nil {
		return err
	}
	*out = append(*out, rhs...)
	*out = append(*out, ast.OperatorOf(rule.op, opTok))
	return nil
}

// parseUnaryWithPostfix parses prefix unary operators down to a primary
// operand, then immediately applies the postfix family (index, field,
// path, call) before returning — postfix binds tighter than every infix
// operator, so it must resolve before control returns to the infix loop
// in parseExpressionUpTo.
func (p *Parser) parseUnaryWithPostfix(out *ast.Expression) error {
	if op, ok := prefixOperators[p.peek().Type]; ok {
		opTok := p.advance()
		if err := p.parseUnaryWithPostfix(out); err != nil {
			return err
		}
		*out = append(*out, ast.OperatorOf(op, opTok))
		return nil
	}
	if err := p.parsePrimary(out); err != nil {
		return err
	}
	return p.parseTrailingPostfix(out)
}

// parseTrailingPostfix handles the postfix family — index, field access,
// path, call — which bind tighter than every infix operator and so are
// applied last, directly against whatever primary/prefix expression
// precedes them in source order.
func (p *Parser) parseTrailingPostfix(out *ast.Expression) error {
	for {
		switch {
		case p.match(token.LBRACKET):
			idx, err := p.parseExpression()
			if err != nil {
				return err
			}
			closeTok, err := p.consume(token.RBRACKET, "']'")
			if err != nil {
				return err
			}
			*out = append(*out, idx...)
			*out = append(*out, ast.OperatorOf(ast.OpIndex, closeTok))
		case p.match(token.DOT):
			name, err := p.consume(token.IDENTIFIER, "field name")
			if err != nil {
				return err
			}
			*out = append(*out, ast.ExpressionElement{
				Kind: ast.ElementOperator, Object: ast.OpField, Token: name,
			})
		case p.match(token.DOUBLE_COLON):
			name, err := p.consume(token.IDENTIFIER, "path segment")
			if err != nil {
				return err
			}
			*out = append(*out, ast.ExpressionElement{
				Kind: ast.ElementOperator, Object: ast.OpPath, Token: name,
			})
		case p.check(token.LPA) && canBeCallee(*out):
			callTok := p.advance()
			argCount := 0
			for !p.check(token.RPA) {
				arg, err := p.parseExpression()
				if err != nil {
					return err
				}
				*out = append(*out, arg...)
				argCount++
				if !p.match(token.COMMA) {
					break
				}
			}
			if _, err := p.consume(token.RPA, "')'"); err != nil {
				return err
			}
			*out = append(*out, ast.CallOf(argCount, callTok))
		default:
			return nil
		}
	}
}

// canBeCallee reports whether the expression built so far ends in
// something callable (an identifier, or the result of a prior
// index/field/path/call), so that a following '(' is parsed as a call
// rather than the start of an unrelated parenthesized expression
// statement.
func canBeCallee(expr ast.Expression) bool {
	if len(expr) == 0 {
		return false
	}
	last := expr[len(expr)-1]
	if last.Kind == ast.ElementOperand {
		return ast.OperandKindOf(last) == ast.OperandIdentifier
	}
	switch ast.OperatorValue(last) {
	case ast.OpField, ast.OpPath, ast.OpIndex, ast.OpCall:
		return true
	default:
		return false
	}
}

// parsePrimary parses a single operand (literal, identifier, grouping,
// block, array, tuple, struct literal, conditional, match) and appends it
// to out.
func (p *Parser) parsePrimary(out *ast.Expression) error {
	tok := p.peek()
	switch tok.Type {
	case token.BOOLEAN, token.TRUE, token.FALSE:
		p.advance()
		*out = append(*out, ast.OperandOf(ast.OperandLiteral, ast.Literal{Kind: ast.LiteralBoolean, Value: tok.Lexeme == "true"}, tok))
		return nil
	case token.INTEGER:
		p.advance()
		*out = append(*out, ast.OperandOf(ast.OperandLiteral, ast.Literal{Kind: ast.LiteralInteger, Value: tok.Lexeme, Base: tok.Base}, tok))
		return nil
	case token.STRING:
		p.advance()
		*out = append(*out, ast.OperandOf(ast.OperandLiteral, ast.Literal{Kind: ast.LiteralString, Value: tok.Literal}, tok))
		return nil
	case token.IDENTIFIER, token.UNDERSCORE:
		p.advance()
		if p.check(token.LCUR) && looksLikeStructLiteral(p) {
			return p.parseStructLiteral(out, tok)
		}
		*out = append(*out, ast.OperandOf(ast.OperandIdentifier, ast.Identifier{Name: tok.Lexeme}, tok))
		return nil
	case token.LPA:
		return p.parseParenOrTuple(out)
	case token.LBRACKET:
		return p.parseArrayLiteral(out, tok)
	case token.LCUR:
		p.advance()
		block, err := p.parseBlockBody()
		if err != nil {
			return err
		}
		*out = append(*out, ast.OperandOf(ast.OperandBlock, block, tok))
		return nil
	case token.IF:
		return p.parseConditional(out, tok)
	case token.MATCH:
		return p.parseMatch(out, tok)
	default:
		return Expected("an expression", tok)
	}
}

func (p *Parser) parseParenOrTuple(out *ast.Expression) error {
	openTok := p.advance() // LPA
	if p.match(token.RPA) {
		// Unit value `()`.
		*out = append(*out, ast.OperandOf(ast.OperandTuple, ast.Tuple{}, openTok))
		return nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return err
	}
	if p.match(token.COMMA) {
		elements := []ast.Expression{first}
		for !p.check(token.RPA) {
			e, err := p.parseExpression()
			if err != nil {
				return err
			}
			elements = append(elements, e)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RPA, "')'"); err != nil {
			return err
		}
		*out = append(*out, ast.OperandOf(ast.OperandTuple, ast.Tuple{Elements: elements}, openTok))
		return nil
	}
	if _, err := p.consume(token.RPA, "')'"); err != nil {
		return err
	}
	// A grouping: simply splice the inner postfix sequence in, since
	// parenthesization has already done its job by controlling how far
	// parseExpression read.
	*out = append(*out, first...)
	return nil
}

func (p *Parser) parseArrayLiteral(out *ast.Expression, openTok token.Token) error {
	p.advance() // LBRACKET
	if p.match(token.RBRACKET) {
		*out = append(*out, ast.OperandOf(ast.OperandArray, ast.Array{}, openTok))
		return nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return err
	}
	if p.match(token.SEMICOLON) {
		count, err := p.parseExpression()
		if err != nil {
			return err
		}
		if _, err := p.consume(token.RBRACKET, "']'"); err != nil {
			return err
		}
		*out = append(*out, ast.OperandOf(ast.OperandArray, ast.Array{Elements: []ast.Expression{first, count}, Repeat: true}, openTok))
		return nil
	}
	elements := []ast.Expression{first}
	for p.match(token.COMMA) {
		if p.check(token.RBRACKET) {
			break
		}
		e, err := p.parseExpression()
		if err != nil {
			return err
		}
		elements = append(elements, e)
	}
	if _, err := p.consume(token.RBRACKET, "']'"); err != nil {
		return err
	}
	*out = append(*out, ast.OperandOf(ast.OperandArray, ast.Array{Elements: elements}, openTok))
	return nil
}

// looksLikeStructLiteral is a one-token lookahead heuristic: `Name {` only
// starts a struct literal if the field after '{' is `identifier :`, which
// distinguishes it from `Name` followed by a block-operand in statement
// position (e.g. an `if` condition's body).
func looksLikeStructLiteral(p *Parser) bool {
	return p.peekAt(1).Type == token.IDENTIFIER && p.peekAt(2).Type == token.COLON
}

func (p *Parser) parseStructLiteral(out *ast.Expression, nameTok token.Token) error {
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return err
	}
	var fields []ast.StructureFieldInit
	for !p.check(token.RCUR) {
		fieldName, err := p.consume(token.IDENTIFIER, "field name")
		if err != nil {
			return err
		}
		if _, err := p.consume(token.COLON, "':'"); err != nil {
			return err
		}
		value, err := p.parseExpression()
		if err != nil {
			return err
		}
		fields = append(fields, ast.StructureFieldInit{Name: fieldName.Lexeme, Value: value})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return err
	}
	*out = append(*out, ast.OperandOf(ast.OperandStructure, ast.Structure{TypeName: nameTok.Lexeme, Fields: fields}, nameTok))
	return nil
}

func (p *Parser) parseConditional(out *ast.Expression, ifTok token.Token) error {
	p.advance() // IF
	cond, err := p.parseExpression()
	if err != nil {
		return err
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return err
	}
	then, err := p.parseBlockBody()
	if err != nil {
		return err
	}
	var elseBlock *ast.Block
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			var nested ast.Expression
			if err := p.parseConditional(&nested, p.peek()); err != nil {
				return err
			}
			elseBlock = &ast.Block{Tail: &nested}
		} else {
			if _, err := p.consume(token.LCUR, "'{'"); err != nil {
				return err
			}
			block, err := p.parseBlockBody()
			if err != nil {
				return err
			}
			elseBlock = &block
		}
	}
	*out = append(*out, ast.OperandOf(ast.OperandConditional, ast.Conditional{Condition: cond, Then: then, Else: elseBlock}, ifTok))
	return nil
}

func (p *Parser) parseMatch(out *ast.Expression, matchTok token.Token) error {
	p.advance() // MATCH
	scrutinee, err := p.parseExpression()
	if err != nil {
		return err
	}
	if _, err := p.consume(token.LCUR, "'{'"); err != nil {
		return err
	}
	var arms []ast.MatchArm
	for !p.check(token.RCUR) {
		var pattern string
		switch {
		case p.match(token.UNDERSCORE):
			pattern = "_"
		case p.check(token.INTEGER), p.check(token.BOOLEAN), p.check(token.TRUE), p.check(token.FALSE), p.check(token.IDENTIFIER):
			pattern = p.advance().Lexeme
		default:
			return Expected("a match pattern", p.peek())
		}
		if _, err := p.consume(token.FAT_ARROW, "'=>'"); err != nil {
			return err
		}
		body, err := p.parseExpression()
		if err != nil {
			return err
		}
		arms = append(arms, ast.MatchArm{Pattern: pattern, Body: body})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RCUR, "'}'"); err != nil {
		return err
	}
	*out = append(*out, ast.OperandOf(ast.OperandMatch, ast.Match{Scrutinee: scrutinee, Arms: arms}, matchTok))
	return nil
}

