package ast

import (
	"github.com/informatter/zinclang/internal/invariant"
	"github.com/informatter/zinclang/token"
)

// StatementKind tags the variant a Statement carries (spec §3).
type StatementKind int

const (
	StmtLet StatementKind = iota
	StmtConst
	StmtStatic
	StmtLoop
	StmtImpl
	StmtUse
	StmtMod
	StmtFn
	StmtEnum
	StmtStruct
	StmtType
	StmtExpression
)

// Statement is a tagged union over the twelve statement shapes of spec §3.
// Exactly one of the Let/Const/.../Expr fields is populated, selected by
// Kind.
type Statement struct {
	Kind  StatementKind
	Token token.Token

	Let        *LetStatement
	Const      *ConstStatement
	Static     *StaticStatement
	Loop       *LoopStatement
	Impl       *ImplStatement
	Use        *UseStatement
	Mod        *ModStatement
	Fn         *FnStatement
	Enum       *EnumStatement
	Struct     *StructStatement
	Type       *TypeStatement
	Expression *ExpressionStatement
}

// LetStatement is `let [mut] name [: Type] = expr;`.
type LetStatement struct {
	Name    string
	Mutable bool
	Type    *TypeExpr // nil when the type is inferred from Expr
	Expr    Expression
}

// ConstStatement is `const NAME: Type = expr;`. Expr must be a
// compile-time constant per spec §4.3.
type ConstStatement struct {
	Name string
	Type TypeExpr
	Expr Expression
}

// StaticStatement is `static NAME: Type = expr;`, semantically identical
// to Const for this language (no mutable statics, spec has no runtime
// globals-with-state).
type StaticStatement struct {
	Name string
	Type TypeExpr
	Expr Expression
}

// LoopStatement is `for iter in range { body }`. Range bounds must fold
// to compile-time constants (spec §4.3/§4.4 — loops fully unroll, there
// is no runtime jump-based loop in the bytecode).
type LoopStatement struct {
	Iterator string
	RangeLow Expression
	// RangeHigh is exclusive unless Inclusive is set.
	RangeHigh Expression
	Inclusive bool
	Body      Block
}

// ImplStatement is `impl Target { statements... }`.
type ImplStatement struct {
	Target     string
	Statements []Statement
}

// UseStatement is `use a::b::c;`.
type UseStatement struct {
	Path []string
}

// ModStatement is `mod name { statements... }`.
type ModStatement struct {
	Name       string
	Statements []Statement
}

// FnParam is one parameter of an FnStatement.
type FnParam struct {
	Name string
	Type TypeExpr
}

// FnStatement is `fn name(params...) -> Return { body }`.
type FnStatement struct {
	Name   string
	Params []FnParam
	Return *TypeExpr // nil means Unit
	Body   Block
}

// EnumVariant is one `Name [= value]` variant of an EnumStatement.
type EnumVariant struct {
	Name  string
	Value *int64 // nil means auto-assigned (previous + 1, starting at 0)
}

// EnumStatement is `enum Name { variants... }`.
type EnumStatement struct {
	Name     string
	Variants []EnumVariant
}

// StructField is one `name: Type` field of a StructStatement.
type StructField struct {
	Name string
	Type TypeExpr
}

// StructStatement is `struct Name { fields... }`.
type StructStatement struct {
	Name   string
	Fields []StructField
}

// TypeStatement is `type Name = Type;`, a type alias.
type TypeStatement struct {
	Name  string
	Alias TypeExpr
}

// ExpressionStatement is a bare expression used as a statement, e.g. a
// call for its side effect on the constraint system (spec §3's
// `Expression{expr}`).
type ExpressionStatement struct {
	Expr Expression
}

// --- Builders ---
//
// Several grammar productions are built incrementally by more than one
// cooperating parser: a function's parameter list parser fills in Params,
// the type parser fills in Return, and the block parser fills in Body,
// all before the statement as a whole can be considered complete. Rather
// than share a single mutable *FnStatement (a "shared mutable AST
// builder handle", spec §9 REDESIGN FLAG) between these parsers — which
// would let any of them observe a partially-built node through a shared
// reference — each cooperating parser receives the builder by mutable
// reference, sets only the fields that are its responsibility, and the
// caller that owns the builder calls Finish() exactly once to validate
// completeness and obtain an immutable Statement.
//
// Grounded on the teacher's single-owner construction style in
// parser/parser.go (each parse* method fully owns and returns one AST
// node before handing it to its caller); generalized here to the
// multi-field incremental case the teacher never needed.

// FnBuilder incrementally constructs an FnStatement.
type FnBuilder struct {
	tok    token.Token
	name   string
	params []FnParam
	ret    *TypeExpr
	body   *Block
}

// NewFnBuilder starts building a function statement named name.
func NewFnBuilder(tok token.Token, name string) *FnBuilder {
	return &FnBuilder{tok: tok, name: name}
}

func (b *FnBuilder) AddParam(p FnParam) *FnBuilder {
	b.params = append(b.params, p)
	return b
}

func (b *FnBuilder) SetReturn(t TypeExpr) *FnBuilder {
	b.ret = &t
	return b
}

func (b *FnBuilder) SetBody(body Block) *FnBuilder {
	b.body = &body
	return b
}

// Finish validates the builder has a body (the one field every function
// must have regardless of parameter count or return type) and returns
// the finished Statement.
func (b *FnBuilder) Finish() Statement {
	invariant.Assert(b.body != nil, "fn builder for %q finished without a body", b.name)
	return Statement{
		Kind:  StmtFn,
		Token: b.tok,
		Fn:    &FnStatement{Name: b.name, Params: b.params, Return: b.ret, Body: *b.body},
	}
}

// StructBuilder incrementally constructs a StructStatement.
type StructBuilder struct {
	tok    token.Token
	name   string
	fields []StructField
}

func NewStructBuilder(tok token.Token, name string) *StructBuilder {
	return &StructBuilder{tok: tok, name: name}
}

func (b *StructBuilder) AddField(f StructField) *StructBuilder {
	b.fields = append(b.fields, f)
	return b
}

// Finish returns the finished Statement. A struct with zero fields is
// valid (a unit-like struct), so there is no required-field check here
// beyond the name, which the constructor already requires.
func (b *StructBuilder) Finish() Statement {
	invariant.Assert(b.name != "", "struct builder finished without a name")
	return Statement{
		Kind:   StmtStruct,
		Token:  b.tok,
		Struct: &StructStatement{Name: b.name, Fields: b.fields},
	}
}

// EnumBuilder incrementally constructs an EnumStatement, auto-assigning
// discriminant values the way the language does: each unvalued variant
// gets the previous variant's value plus one, starting at 0.
type EnumBuilder struct {
	tok      token.Token
	name     string
	variants []EnumVariant
	next     int64
}

func NewEnumBuilder(tok token.Token, name string) *EnumBuilder {
	return &EnumBuilder{tok: tok, name: name}
}

func (b *EnumBuilder) AddVariant(name string, value *int64) *EnumBuilder {
	if value != nil {
		b.variants = append(b.variants, EnumVariant{Name: name, Value: value})
		b.next = *value + 1
		return b
	}
	v := b.next
	b.variants = append(b.variants, EnumVariant{Name: name, Value: &v})
	b.next++
	return b
}

func (b *EnumBuilder) Finish() Statement {
	invariant.Assert(len(b.variants) > 0, "enum %q finished with zero variants", b.name)
	return Statement{
		Kind:  StmtEnum,
		Token: b.tok,
		Enum:  &EnumStatement{Name: b.name, Variants: b.variants},
	}
}

// ImplBuilder incrementally constructs an ImplStatement as its member
// functions are each parsed in turn.
type ImplBuilder struct {
	tok        token.Token
	target     string
	statements []Statement
}

func NewImplBuilder(tok token.Token, target string) *ImplBuilder {
	return &ImplBuilder{tok: tok, target: target}
}

func (b *ImplBuilder) AddStatement(s Statement) *ImplBuilder {
	b.statements = append(b.statements, s)
	return b
}

func (b *ImplBuilder) Finish() Statement {
	return Statement{
		Kind: StmtImpl,
		Token: b.tok,
		Impl: &ImplStatement{Target: b.target, Statements: b.statements},
	}
}

// BlockBuilder incrementally constructs a Block as statements are parsed
// one at a time, with an optional trailing tail expression set last.
type BlockBuilder struct {
	statements []Statement
	tail       *Expression
}

func NewBlockBuilder() *BlockBuilder { return &BlockBuilder{} }

func (b *BlockBuilder) AddStatement(s Statement) *BlockBuilder {
	b.statements = append(b.statements, s)
	return b
}

func (b *BlockBuilder) SetTail(e Expression) *BlockBuilder {
	b.tail = &e
	return b
}

func (b *BlockBuilder) Finish() Block {
	return Block{Statements: b.statements, Tail: b.tail}
}
