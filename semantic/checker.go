package semantic

import (
	"strings"

	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/token"
	"github.com/informatter/zinclang/types"
)

// FnSignature is a function's checked type signature, recorded during the
// forward pass over top-level Fn statements so calls can resolve before
// the callee's body has itself been checked (spec §4.3: functions are
// non-recursive and monomorphic, so a flat two-pass check — signatures,
// then bodies — is enough; no fixpoint iteration is needed).
type FnSignature struct {
	Name       string
	ParamNames []string
	ParamTypes []types.Handle
	Return     types.Handle
}

// CheckedExpression is an ast.Expression annotated with the result type
// left on the type-checker's simulated stack after processing each
// element — the same flat left-to-right walk the VM will later perform
// over values instead of types, which is why a single parallel slice
// suffices instead of a tree of annotations.
type CheckedExpression struct {
	Expr  ast.Expression
	Types []types.Handle
}

// ResultType returns the type of the value the expression as a whole
// produces (the type left after the final element), or types.Handle(0)
// for an empty expression.
func (c CheckedExpression) ResultType() types.Handle {
	if len(c.Types) == 0 {
		return 0
	}
	return c.Types[len(c.Types)-1]
}

// Program is the semantic analyzer's output: a populated type arena, the
// resolved signature and checked body of every function, and the checked
// top-level let/const/static initializers.
type Program struct {
	Arena     *types.Arena
	Registry  *TypeRegistry
	Functions map[string]*CheckedFunction
	Globals   []CheckedGlobal
}

// CheckedFunction is one Fn statement after signature resolution and body
// checking.
type CheckedFunction struct {
	Signature FnSignature
	Body      CheckedBlock
}

// CheckedGlobal is one top-level Let/Const/Static statement after
// checking; Const/Static are required to be compile-time constants (spec
// §4.3).
type CheckedGlobal struct {
	Name string
	Type types.Handle
	Expr CheckedExpression
}

// CheckedBlock mirrors ast.Block with every nested expression checked.
type CheckedBlock struct {
	Statements []CheckedStatement
	Tail       *CheckedExpression
	Type       types.Handle // the block's own yielded type: Tail's type, or Unit
}

// CheckedStatement mirrors ast.Statement for the cases the analyzer
// checks expressions within (Let/Const/Static/Expression/Loop); other
// kinds (Use/Mod/Impl/Fn/Struct/Enum/Type) are declarations the analyzer
// has already folded into Program/TypeRegistry by the time bodies run, so
// they pass through unchanged.
type CheckedStatement struct {
	Kind ast.StatementKind
	Raw  ast.Statement

	Let    *CheckedLet
	Const  *CheckedGlobal
	Static *CheckedGlobal
	Loop   *CheckedLoop
	Expr   *CheckedExpression
}

// CheckedLet is a Let statement's checked initializer and resolved type
// (declared or inferred).
type CheckedLet struct {
	Name    string
	Mutable bool
	Type    types.Handle
	Expr    CheckedExpression
}

// CheckedLoop is a Loop statement with its bounds folded to concrete
// integers (spec §4.3/§4.4: loops fully unroll, so the bounds must be
// known at compile time) and its body checked once, generically — the
// bytecode emitter is the one that replays the checked body Count times.
type CheckedLoop struct {
	Iterator string
	Low      int64
	High     int64 // exclusive
	Body     CheckedBlock
}

// Check runs semantic analysis over a parsed source file's top-level
// statements and returns a fully checked Program, or the first error
// encountered (spec §7: no error recovery).
func Check(statements []ast.Statement) (*Program, *Error) {
	arena := types.NewArena()
	registry := NewTypeRegistry(arena)
	prog := &Program{Arena: arena, Registry: registry, Functions: make(map[string]*CheckedFunction)}

	// Forward pass, in two steps since struct fields may reference a struct
	// declared later in the file (or itself, via a Function-typed field):
	// first every struct/enum gets its Handle allocated and registered by
	// name alone, then field types are resolved now that every name the
	// file declares is visible.
	var fnStatements []ast.Statement
	var structStatements []*ast.StructStatement
	for _, stmt := range statements {
		switch stmt.Kind {
		case ast.StmtStruct:
			structStatements = append(structStatements, stmt.Struct)
			registry.Register(stmt.Struct.Name, arena.Structure(stmt.Struct.Name, nil))
		case ast.StmtEnum:
			registerEnum(registry, arena, stmt.Enum)
		}
	}
	for _, s := range structStatements {
		if err := resolveStructFields(registry, s); err != nil {
			return nil, err
		}
	}
	for _, stmt := range statements {
		if stmt.Kind == ast.StmtType {
			alias, err := registry.Resolve(stmt.Type.Alias)
			if err != nil {
				return nil, err
			}
			registry.Register(stmt.Type.Name, alias)
		}
	}
	for _, stmt := range statements {
		if stmt.Kind == ast.StmtFn {
			fnStatements = append(fnStatements, stmt)
			sig, err := buildSignature(registry, stmt.Fn)
			if err != nil {
				return nil, err
			}
			if _, exists := prog.Functions[sig.Name]; exists {
				return nil, errf(KindDuplicateBinding, stmt.Token.Location, "function %q already declared", sig.Name)
			}
			prog.Functions[sig.Name] = &CheckedFunction{Signature: *sig}
		}
	}

	root := NewRootScope()

	// Second pass: check bodies, now that every signature/type is visible.
	for _, stmt := range fnStatements {
		fn := prog.Functions[stmt.Fn.Name]
		fnScope := root.Child()
		for i, name := range fn.Signature.ParamNames {
			fnScope.Declare(Binding{Name: name, Type: fn.Signature.ParamTypes[i], Mutable: false})
		}
		body, err := checkBlock(stmt.Fn.Body, fnScope, registry, prog.Functions)
		if err != nil {
			return nil, err
		}
		if !arena.Equal(body.Type, fn.Signature.Return) {
			return nil, errf(KindOperandTypeMismatch, stmt.Token.Location,
				"function %q returns %s, body yields %s", fn.Signature.Name, arena.String(fn.Signature.Return), arena.String(body.Type))
		}
		fn.Body = body
	}

	// Top-level let/const/static, in source order, each visible to the ones
	// that follow (the teacher's REPL evaluates top-level VarStmt the same
	// way: sequentially, each binding visible afterward).
	for _, stmt := range statements {
		switch stmt.Kind {
		case ast.StmtLet, ast.StmtConst, ast.StmtStatic:
			g, b, err := checkGlobal(stmt, root, registry, prog.Functions)
			if err != nil {
				return nil, err
			}
			root.Declare(b)
			prog.Globals = append(prog.Globals, g)
		}
	}

	return prog, nil
}

func resolveStructFields(registry *TypeRegistry, s *ast.StructStatement) *Error {
	handle, _ := registry.byName[s.Name]
	fields := make([]types.StructureField, len(s.Fields))
	for i, f := range s.Fields {
		ft, err := registry.Resolve(f.Type)
		if err != nil {
			return err
		}
		fields[i] = types.StructureField{Name: f.Name, Type: ft}
	}
	registry.arena.SetStructureFields(handle, fields)
	return nil
}

func registerEnum(registry *TypeRegistry, arena *types.Arena, e *ast.EnumStatement) {
	variants := make([]types.EnumerationVariant, len(e.Variants))
	for i, v := range e.Variants {
		val := int64(0)
		if v.Value != nil {
			val = *v.Value
		}
		variants[i] = types.EnumerationVariant{Name: v.Name, Value: val}
	}
	handle := arena.Enumeration(e.Name, variants)
	registry.Register(e.Name, handle)
}

func buildSignature(registry *TypeRegistry, fn *ast.FnStatement) (*FnSignature, *Error) {
	sig := &FnSignature{Name: fn.Name}
	for _, p := range fn.Params {
		t, err := registry.Resolve(p.Type)
		if err != nil {
			return nil, err
		}
		sig.ParamNames = append(sig.ParamNames, p.Name)
		sig.ParamTypes = append(sig.ParamTypes, t)
	}
	if fn.Return != nil {
		t, err := registry.Resolve(*fn.Return)
		if err != nil {
			return nil, err
		}
		sig.Return = t
	} else {
		sig.Return = registry.arena.Unit()
	}
	return sig, nil
}

func checkGlobal(stmt ast.Statement, scope *Scope, registry *TypeRegistry, fns map[string]*CheckedFunction) (CheckedGlobal, Binding, *Error) {
	var name string
	var declared *ast.TypeExpr
	var exprAst ast.Expression
	var isConst bool
	var mutable bool
	switch stmt.Kind {
	case ast.StmtLet:
		name, declared, exprAst, mutable = stmt.Let.Name, stmt.Let.Type, stmt.Let.Expr, stmt.Let.Mutable
	case ast.StmtConst:
		name, declared, exprAst, isConst = stmt.Const.Name, &stmt.Const.Type, stmt.Const.Expr, true
	case ast.StmtStatic:
		name, declared, exprAst, isConst = stmt.Static.Name, &stmt.Static.Type, stmt.Static.Expr, true
	}
	checked, err := checkExpression(exprAst, scope, registry, fns)
	if err != nil {
		return CheckedGlobal{}, Binding{}, err
	}
	resultType := checked.ResultType()
	if declared != nil {
		dt, err := registry.Resolve(*declared)
		if err != nil {
			return CheckedGlobal{}, Binding{}, err
		}
		resultType = dt
	}
	if isConst {
		if _, ok := foldConstantInt(checked.Expr); !ok {
			return CheckedGlobal{}, Binding{}, errf(KindConstantExpressionRequired, stmt.Token.Location, "%q must be a compile-time constant", name)
		}
	}
	return CheckedGlobal{Name: name, Type: resultType, Expr: checked},
		Binding{Name: name, Type: resultType, Mutable: mutable, Const: isConst}, nil
}

func checkBlock(b ast.Block, scope *Scope, registry *TypeRegistry, fns map[string]*CheckedFunction) (CheckedBlock, *Error) {
	blockScope := scope.Child()
	out := CheckedBlock{}
	for _, stmt := range b.Statements {
		cs, err := checkStatement(stmt, blockScope, registry, fns)
		if err != nil {
			return CheckedBlock{}, err
		}
		out.Statements = append(out.Statements, cs)
	}
	if b.Tail != nil {
		checked, err := checkExpression(*b.Tail, blockScope, registry, fns)
		if err != nil {
			return CheckedBlock{}, err
		}
		out.Tail = &checked
		out.Type = checked.ResultType()
	} else {
		out.Type = registry.arena.Unit()
	}
	return out, nil
}

func checkStatement(stmt ast.Statement, scope *Scope, registry *TypeRegistry, fns map[string]*CheckedFunction) (CheckedStatement, *Error) {
	switch stmt.Kind {
	case ast.StmtLet:
		checked, err := checkExpression(stmt.Let.Expr, scope, registry, fns)
		if err != nil {
			return CheckedStatement{}, err
		}
		resultType := checked.ResultType()
		if stmt.Let.Type != nil {
			dt, err := registry.Resolve(*stmt.Let.Type)
			if err != nil {
				return CheckedStatement{}, err
			}
			if !registry.arena.Equal(dt, resultType) {
				return CheckedStatement{}, errf(KindOperandTypeMismatch, stmt.Token.Location,
					"let %q declared as %s but initializer is %s", stmt.Let.Name, registry.arena.String(dt), registry.arena.String(resultType))
			}
			resultType = dt
		}
		if !scope.Declare(Binding{Name: stmt.Let.Name, Type: resultType, Mutable: stmt.Let.Mutable}) {
			return CheckedStatement{}, errf(KindDuplicateBinding, stmt.Token.Location, "%q already declared in this scope", stmt.Let.Name)
		}
		return CheckedStatement{Kind: stmt.Kind, Raw: stmt, Let: &CheckedLet{Name: stmt.Let.Name, Mutable: stmt.Let.Mutable, Type: resultType, Expr: checked}}, nil

	case ast.StmtConst, ast.StmtStatic:
		g, b, err := checkGlobal(stmt, scope, registry, fns)
		if err != nil {
			return CheckedStatement{}, err
		}
		if !scope.Declare(b) {
			return CheckedStatement{}, errf(KindDuplicateBinding, stmt.Token.Location, "%q already declared in this scope", b.Name)
		}
		if stmt.Kind == ast.StmtConst {
			return CheckedStatement{Kind: stmt.Kind, Raw: stmt, Const: &g}, nil
		}
		return CheckedStatement{Kind: stmt.Kind, Raw: stmt, Static: &g}, nil

	case ast.StmtLoop:
		low, ok := foldConstantInt(stmt.Loop.RangeLow)
		if !ok {
			return CheckedStatement{}, errf(KindLoopBoundsNotConstant, stmt.Token.Location, "loop lower bound must be a compile-time constant")
		}
		high, ok := foldConstantInt(stmt.Loop.RangeHigh)
		if !ok {
			return CheckedStatement{}, errf(KindLoopBoundsNotConstant, stmt.Token.Location, "loop upper bound must be a compile-time constant")
		}
		if stmt.Loop.Inclusive {
			high++
		}
		loopScope := scope.Child()
		loopScope.Declare(Binding{Name: stmt.Loop.Iterator, Type: registry.arena.Field(), Mutable: false})
		body, err := checkBlock(stmt.Loop.Body, loopScope, registry, fns)
		if err != nil {
			return CheckedStatement{}, err
		}
		return CheckedStatement{Kind: stmt.Kind, Raw: stmt, Loop: &CheckedLoop{Iterator: stmt.Loop.Iterator, Low: low, High: high, Body: body}}, nil

	case ast.StmtExpression:
		checked, err := checkExpression(stmt.Expression.Expr, scope, registry, fns)
		if err != nil {
			return CheckedStatement{}, err
		}
		return CheckedStatement{Kind: stmt.Kind, Raw: stmt, Expr: &checked}, nil

	default:
		// Use/Mod/Impl/Fn/Struct/Enum/Type nested inside a block: already
		// folded into Program/TypeRegistry state by the forward pass, or (for
		// a nested Impl/Fn) out of scope for this language's flat function
		// namespace. Passed through unchecked.
		return CheckedStatement{Kind: stmt.Kind, Raw: stmt}, nil
	}
}

// foldConstantInt evaluates a constant-integer expression at compile
// time — the subset of the grammar reachable from a loop bound or a
// const/static initializer's literal form: a single integer literal,
// optionally preceded by a unary Negation.
func foldConstantInt(expr ast.Expression) (int64, bool) {
	switch len(expr) {
	case 1:
		el := expr[0]
		if el.Kind != ast.ElementOperand {
			return 0, false
		}
		if ast.OperandKindOf(el) != ast.OperandLiteral {
			return 0, false
		}
		lit := ast.OperandPayload(el).(ast.Literal)
		if lit.Kind != ast.LiteralInteger {
			return 0, false
		}
		return parseLiteralInt(lit)
	case 2:
		if expr[1].Kind != ast.ElementOperator || ast.OperatorValue(expr[1]) != ast.OpNegation {
			return 0, false
		}
		inner, ok := foldConstantInt(expr[:1])
		if !ok {
			return 0, false
		}
		return -inner, true
	default:
		return 0, false
	}
}

func parseLiteralInt(lit ast.Literal) (int64, bool) {
	digits, ok := lit.Value.(string)
	if !ok {
		return 0, false
	}
	base := 10
	if lit.Base == token.Hex {
		base = 16
		digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
	}
	var n int64
	for _, r := range digits {
		if r == '_' {
			continue
		}
		d := int64(0)
		switch {
		case r >= '0' && r <= '9':
			d = int64(r - '0')
		case r >= 'a' && r <= 'f':
			d = int64(r-'a') + 10
		case r >= 'A' && r <= 'F':
			d = int64(r-'A') + 10
		default:
			return 0, false
		}
		if int(d) >= base {
			return 0, false
		}
		n = n*int64(base) + d
	}
	return n, true
}
