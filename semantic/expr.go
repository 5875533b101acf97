package semantic

import (
	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/types"
)

// stackEntry is one value type-checking leaves on its simulated operand
// stack while walking a flat ast.Expression left to right. Name is only
// set when the entry is exactly a bare identifier reference (not the
// result of any operator) — OpCall and OpAssignment need to know which
// binding they're calling/assigning to, and the only place that name
// survives is the Identifier operand itself.
type stackEntry struct {
	Type types.Handle
	Name string
}

// exprChecker type-checks one ast.Expression by replaying it as a stack
// machine over types instead of values — the same left-to-right walk the
// VM will later perform over values, which is why this requires no tree
// construction at all.
type exprChecker struct {
	scope    *Scope
	registry *TypeRegistry
	fns      map[string]*CheckedFunction
	arena    *types.Arena
	stack    []stackEntry
	types    []types.Handle
}

func checkExpression(expr ast.Expression, scope *Scope, registry *TypeRegistry, fns map[string]*CheckedFunction) (CheckedExpression, *Error) {
	c := &exprChecker{scope: scope, registry: registry, fns: fns, arena: registry.arena}
	for _, el := range expr {
		if err := c.step(el); err != nil {
			return CheckedExpression{}, err
		}
	}
	return CheckedExpression{Expr: expr, Types: c.types}, nil
}

func (c *exprChecker) push(t types.Handle, name string) {
	c.stack = append(c.stack, stackEntry{Type: t, Name: name})
	c.types = append(c.types, t)
}

func (c *exprChecker) pop() stackEntry {
	e := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return e
}

func (c *exprChecker) step(el ast.ExpressionElement) *Error {
	if el.Kind == ast.ElementOperand {
		return c.operand(el)
	}
	return c.operator(el)
}

func (c *exprChecker) operand(el ast.ExpressionElement) *Error {
	switch ast.OperandKindOf(el) {
	case ast.OperandLiteral:
		lit := ast.OperandPayload(el).(ast.Literal)
		switch lit.Kind {
		case ast.LiteralBoolean:
			c.push(c.arena.Bool(), "")
		case ast.LiteralInteger:
			// Bare integer literals are always typed field. The type is
			// not narrowed from context (a declared let type, a return
			// type or the other operand), so a literal combined with a
			// sized-integer value is an OperandTypeMismatch.
			c.push(c.arena.Field(), "")
		case ast.LiteralString:
			c.push(c.arena.Unit(), "")
		}
		return nil

	case ast.OperandIdentifier:
		id := ast.OperandPayload(el).(ast.Identifier)
		if b, ok := c.scope.Lookup(id.Name); ok {
			c.push(b.Type, id.Name)
			return nil
		}
		if fn, ok := c.fns[id.Name]; ok {
			// A function name used bare only ever appears as the callee of an
			// immediately-following OpCall; its "type" here is never read,
			// only its Name, which OpCall uses to look fn back up in c.fns.
			c.push(fn.Signature.Return, id.Name)
			return nil
		}
		return errf(KindUndefinedIdentifier, el.Token.Location, "undefined name %q", id.Name)

	case ast.OperandType:
		// A bare type operand (the rhs of `as`) carries no runtime value; its
		// Handle is resolved and pushed so the following `as` operator can
		// pop it as the cast target.
		te := ast.OperandPayload(el).(ast.TypeExpr)
		h, err := c.registry.Resolve(te)
		if err != nil {
			return err
		}
		c.push(h, "")
		return nil

	case ast.OperandBlock:
		blk := ast.OperandPayload(el).(ast.Block)
		checked, err := checkBlock(ast.Block{Statements: blk.Statements, Tail: blk.Tail}, c.scope, c.registry, c.fns)
		if err != nil {
			return err
		}
		c.push(checked.Type, "")
		return nil

	case ast.OperandArray:
		arr := ast.OperandPayload(el).(ast.Array)
		if arr.Repeat {
			value, err := checkExpression(arr.Elements[0], c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			n, ok := foldConstantInt(arr.Elements[1])
			if !ok {
				return errf(KindConstantExpressionRequired, el.Token.Location, "array repeat count must be a compile-time constant")
			}
			c.push(c.arena.Array(value.ResultType(), int(n)), "")
			return nil
		}
		var elemType types.Handle
		for i, sub := range arr.Elements {
			checked, err := checkExpression(sub, c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			if i == 0 {
				elemType = checked.ResultType()
			} else if !c.arena.Equal(elemType, checked.ResultType()) {
				return errf(KindOperandTypeMismatch, el.Token.Location, "array elements must share one type")
			}
		}
		if len(arr.Elements) == 0 {
			elemType = c.arena.Unit()
		}
		c.push(c.arena.Array(elemType, len(arr.Elements)), "")
		return nil

	case ast.OperandTuple:
		tup := ast.OperandPayload(el).(ast.Tuple)
		fields := make([]types.Handle, len(tup.Elements))
		for i, sub := range tup.Elements {
			checked, err := checkExpression(sub, c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			fields[i] = checked.ResultType()
		}
		c.push(c.arena.Tuple(fields), "")
		return nil

	case ast.OperandStructure:
		s := ast.OperandPayload(el).(ast.Structure)
		h, ok := c.registry.byName[s.TypeName]
		if !ok {
			return errf(KindUndefinedType, el.Token.Location, "undefined type %q", s.TypeName)
		}
		node := c.arena.Get(h)
		for _, init := range s.Fields {
			checked, err := checkExpression(init.Value, c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			field, ok := findField(node.StructureFields, init.Name)
			if !ok {
				return errf(KindFieldNotFound, el.Token.Location, "%s has no field %q", s.TypeName, init.Name)
			}
			if !c.arena.Equal(field.Type, checked.ResultType()) {
				return errf(KindOperandTypeMismatch, el.Token.Location, "field %q of %s: expected %s, got %s",
					init.Name, s.TypeName, c.arena.String(field.Type), c.arena.String(checked.ResultType()))
			}
		}
		c.push(h, "")
		return nil

	case ast.OperandConditional:
		cond := ast.OperandPayload(el).(ast.Conditional)
		condChecked, err := checkExpression(cond.Condition, c.scope, c.registry, c.fns)
		if err != nil {
			return err
		}
		if !c.arena.Equal(condChecked.ResultType(), c.arena.Bool()) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "if condition must be bool")
		}
		thenChecked, err := checkBlock(cond.Then, c.scope, c.registry, c.fns)
		if err != nil {
			return err
		}
		resultType := thenChecked.Type
		if cond.Else != nil {
			elseChecked, err := checkBlock(*cond.Else, c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			if !c.arena.Equal(thenChecked.Type, elseChecked.Type) {
				return errf(KindOperandTypeMismatch, el.Token.Location, "if/else branches must have the same type")
			}
		} else {
			resultType = c.arena.Unit()
		}
		c.push(resultType, "")
		return nil

	case ast.OperandMatch:
		m := ast.OperandPayload(el).(ast.Match)
		if _, err := checkExpression(m.Scrutinee, c.scope, c.registry, c.fns); err != nil {
			return err
		}
		var resultType types.Handle
		for i, arm := range m.Arms {
			checked, err := checkExpression(arm.Body, c.scope, c.registry, c.fns)
			if err != nil {
				return err
			}
			if i == 0 {
				resultType = checked.ResultType()
			} else if !c.arena.Equal(resultType, checked.ResultType()) {
				return errf(KindOperandTypeMismatch, el.Token.Location, "match arms must share one type")
			}
		}
		c.push(resultType, "")
		return nil

	default:
		return errf(KindOperandTypeMismatch, el.Token.Location, "unrecognized operand")
	}
}

func findField(fields []types.StructureField, name string) (types.StructureField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return types.StructureField{}, false
}

func isNumeric(a *types.Arena, h types.Handle) bool {
	k := a.Get(h).Kind
	return k == types.KindField || k == types.KindIntegerSigned || k == types.KindIntegerUnsigned
}

func isInteger(a *types.Arena, h types.Handle) bool {
	k := a.Get(h).Kind
	return k == types.KindIntegerSigned || k == types.KindIntegerUnsigned
}

func (c *exprChecker) operator(el ast.ExpressionElement) *Error {
	op := ast.OperatorValue(el)
	switch op {
	case ast.OpAddition, ast.OpSubtraction, ast.OpMultiplication, ast.OpDivision, ast.OpRemainder:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, rhs.Type) || !isNumeric(c.arena, lhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "%s requires two operands of the same numeric type", op)
		}
		c.push(lhs.Type, "")
		return nil

	case ast.OpBitOr, ast.OpBitXor, ast.OpBitAnd, ast.OpBitShiftLeft, ast.OpBitShiftRight:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, rhs.Type) || !isInteger(c.arena, lhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "%s requires two operands of the same integer type", op)
		}
		c.push(lhs.Type, "")
		return nil

	case ast.OpEq, ast.OpNe:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, rhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "%s requires two operands of the same type", op)
		}
		c.push(c.arena.Bool(), "")
		return nil

	case ast.OpGe, ast.OpLe, ast.OpGt, ast.OpLt:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, rhs.Type) || !isNumeric(c.arena, lhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "%s requires two numeric operands of the same type", op)
		}
		c.push(c.arena.Bool(), "")
		return nil

	case ast.OpAnd, ast.OpOr, ast.OpXor:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, c.arena.Bool()) || !c.arena.Equal(rhs.Type, c.arena.Bool()) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "%s requires two bool operands", op)
		}
		c.push(c.arena.Bool(), "")
		return nil

	case ast.OpRange, ast.OpRangeInclusive:
		rhs, lhs := c.pop(), c.pop()
		if !c.arena.Equal(lhs.Type, rhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "range bounds must share one type")
		}
		c.push(lhs.Type, "")
		return nil

	case ast.OpNegation:
		v := c.pop()
		if !isNumeric(c.arena, v.Type) {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, "negation requires a numeric operand")
		}
		c.push(v.Type, "")
		return nil

	case ast.OpNot:
		v := c.pop()
		if !c.arena.Equal(v.Type, c.arena.Bool()) {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, "! requires a bool operand")
		}
		c.push(v.Type, "")
		return nil

	case ast.OpBitwiseNot:
		v := c.pop()
		if !isInteger(c.arena, v.Type) {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, "~ requires an integer operand")
		}
		c.push(v.Type, "")
		return nil

	case ast.OpAs:
		target, v := c.pop(), c.pop()
		if !isNumeric(c.arena, v.Type) || !isNumeric(c.arena, target.Type) {
			return errf(KindCastToInvalidType, el.Token.Location, "cast requires two numeric types")
		}
		c.push(target.Type, "")
		return nil

	case ast.OpIndex:
		idx, arr := c.pop(), c.pop()
		if !isInteger(c.arena, idx.Type) && !c.arena.Equal(idx.Type, c.arena.Field()) {
			return errf(KindIndexSecondOperandExpectedIntegerOrRange, el.Token.Location, "index must be an integer or field value")
		}
		node := c.arena.Get(arr.Type)
		if node.Kind != types.KindArray {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, "[] requires an array operand")
		}
		c.push(node.Element, "")
		return nil

	case ast.OpField:
		v := c.pop()
		node := c.arena.Get(v.Type)
		if node.Kind != types.KindStructure {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, ". requires a struct operand")
		}
		field, ok := findField(node.StructureFields, el.Token.Lexeme)
		if !ok {
			return errf(KindFieldNotFound, el.Token.Location, "%s has no field %q", node.Name, el.Token.Lexeme)
		}
		c.push(field.Type, "")
		return nil

	case ast.OpPath:
		v := c.pop()
		node := c.arena.Get(v.Type)
		if node.Kind != types.KindEnumeration {
			return errf(KindOperandFirstOperatorUnavailable, el.Token.Location, ":: requires an enum type operand")
		}
		found := false
		for _, variant := range node.Variants {
			if variant.Name == el.Token.Lexeme {
				found = true
				break
			}
		}
		if !found {
			return errf(KindFieldNotFound, el.Token.Location, "%s has no variant %q", node.Name, el.Token.Lexeme)
		}
		c.push(v.Type, "")
		return nil

	case ast.OpAssignment:
		rhs := c.pop()
		lhs := c.pop()
		if lhs.Name == "" {
			return errf(KindAssignToImmutable, el.Token.Location, "left side of = must be a mutable binding")
		}
		b, _ := c.scope.Lookup(lhs.Name)
		if !b.Mutable {
			return errf(KindAssignToImmutable, el.Token.Location, "%q is not mutable", lhs.Name)
		}
		if !c.arena.Equal(lhs.Type, rhs.Type) {
			return errf(KindOperandTypeMismatch, el.Token.Location, "cannot assign %s to %q of type %s",
				c.arena.String(rhs.Type), lhs.Name, c.arena.String(lhs.Type))
		}
		c.push(c.arena.Unit(), "")
		return nil

	case ast.OpCall:
		args := make([]stackEntry, el.CallArgCount)
		for i := el.CallArgCount - 1; i >= 0; i-- {
			args[i] = c.pop()
		}
		callee := c.pop()
		sig, ok := c.fns[callee.Name]
		if !ok {
			return errf(KindUndefinedIdentifier, el.Token.Location, "call to undefined function %q", callee.Name)
		}
		if len(args) != len(sig.Signature.ParamTypes) {
			return errf(KindArityMismatch, el.Token.Location,
				"%q expects %d argument(s), got %d", callee.Name, len(sig.Signature.ParamTypes), len(args))
		}
		for i, a := range args {
			if !c.arena.Equal(a.Type, sig.Signature.ParamTypes[i]) {
				return errf(KindOperandTypeMismatch, el.Token.Location,
					"%q argument %d: expected %s, got %s", callee.Name, i+1,
					c.arena.String(sig.Signature.ParamTypes[i]), c.arena.String(a.Type))
			}
		}
		c.push(sig.Signature.Return, "")
		return nil

	default:
		return errf(KindOperandTypeMismatch, el.Token.Location, "unrecognized operator")
	}
}
