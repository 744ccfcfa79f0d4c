package runtime

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/blok/compiler"
)

// ---------------------------------------------------------------------------
// Evaluator: tree-walking interpreter for construct bodies
// ---------------------------------------------------------------------------

// Interp evaluates parsed blok code. One Interp belongs to one
// execution context; constructs evaluated by it produce handles bound
// to that context's run queue.
type Interp struct {
	globals *Env
	runner  Submitter
	reg     *Registry
}

// NewInterp creates an interpreter with the default globals.
func NewInterp(runner Submitter) *Interp {
	return &Interp{
		globals: newEnv(nil),
		runner:  runner,
		reg:     NewRegistry(),
	}
}

// Registry returns the interpreter's definition registry.
func (in *Interp) Registry() *Registry { return in.reg }

// SetGlobal installs a host value (typically a GoFunc or an object of
// GoFuncs) under a global name.
func (in *Interp) SetGlobal(name string, v Value) {
	in.globals.define(name, v, false)
}

// EvalProgram evaluates a top-level program and returns the value of
// its return statement, or nil if execution falls off the end.
func (in *Interp) EvalProgram(ctx context.Context, body *compiler.Body) (Value, error) {
	env := newEnv(in.globals)
	v, _, err := in.evalStmts(ctx, body.Statements, env)
	return v, err
}

// runBody executes a definition's body with the given captures bound,
// on behalf of a reified task.
func (in *Interp) runBody(ctx context.Context, def *Definition, captures map[string]Value) (Value, error) {
	env := newEnv(in.globals)
	for name, v := range captures {
		env.define(name, v, true)
	}
	v, _, err := in.evalStmts(ctx, def.body.Statements, env)
	return v, err
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// Env is a lexical environment frame.
type Env struct {
	parent *Env
	vars   map[string]Value
	consts map[string]bool
}

func newEnv(parent *Env) *Env {
	return &Env{
		parent: parent,
		vars:   make(map[string]Value),
		consts: make(map[string]bool),
	}
}

func (e *Env) define(name string, v Value, isConst bool) {
	e.vars[name] = v
	if isConst {
		e.consts[name] = true
	}
}

func (e *Env) lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (e *Env) assign(name string, v Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			if env.consts[name] {
				return fmt.Errorf("assignment to constant '%s'", name)
			}
			env.vars[name] = v
			return nil
		}
	}
	return fmt.Errorf("assignment to undeclared variable '%s'", name)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// evalStmts evaluates a statement list. The bool result reports
// whether a return statement fired.
func (in *Interp) evalStmts(ctx context.Context, stmts []compiler.Stmt, env *Env) (Value, bool, error) {
	for _, stmt := range stmts {
		v, returned, err := in.evalStmt(ctx, stmt, env)
		if err != nil {
			return nil, false, err
		}
		if returned {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (in *Interp) evalStmt(ctx context.Context, stmt compiler.Stmt, env *Env) (Value, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	switch st := stmt.(type) {
	case *compiler.ExprStmt:
		_, err := in.evalExpr(ctx, st.Expr, env)
		return nil, false, err

	case *compiler.LetStmt:
		v, err := in.evalExpr(ctx, st.Value, env)
		if err != nil {
			return nil, false, err
		}
		env.define(st.Name, v, st.Const)
		return nil, false, nil

	case *compiler.ReturnStmt:
		if st.Value == nil {
			return nil, true, nil
		}
		v, err := in.evalExpr(ctx, st.Value, env)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case *compiler.IfStmt:
		cond, err := in.evalExpr(ctx, st.Condition, env)
		if err != nil {
			return nil, false, err
		}
		if Truthy(cond) {
			return in.evalStmts(ctx, st.Then.Statements, newEnv(env))
		}
		if st.Else != nil {
			return in.evalStmt(ctx, st.Else, env)
		}
		return nil, false, nil

	case *compiler.WhileStmt:
		for {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			cond, err := in.evalExpr(ctx, st.Condition, env)
			if err != nil {
				return nil, false, err
			}
			if !Truthy(cond) {
				return nil, false, nil
			}
			v, returned, err := in.evalStmts(ctx, st.Body.Statements, newEnv(env))
			if err != nil || returned {
				return v, returned, err
			}
		}

	case *compiler.BlockStmt:
		return in.evalStmts(ctx, st.Statements, newEnv(env))

	default:
		return nil, false, fmt.Errorf("unknown statement type %T", stmt)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interp) evalExpr(ctx context.Context, expr compiler.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		return e.Value, nil
	case *compiler.FloatLiteral:
		return e.Value, nil
	case *compiler.StringLiteral:
		return e.Value, nil
	case *compiler.BoolLiteral:
		return e.Value, nil
	case *compiler.NullLiteral:
		return nil, nil

	case *compiler.Ident:
		return in.lookupName(e.Name, e.Span().Start, env)

	case *compiler.CaptureRef:
		// Inside a running body the reifier has bound the capture as
		// an ordinary name in the root environment.
		return in.lookupName(e.Name, e.Span().Start, env)

	case *compiler.Assign:
		v, err := in.evalExpr(ctx, e.Value, env)
		if err != nil {
			return nil, err
		}
		if err := env.assign(e.Name, v); err != nil {
			return nil, errAt(e.Span().Start, err)
		}
		return v, nil

	case *compiler.ArrayLiteral:
		arr := make([]Value, len(e.Elements))
		for i, elem := range e.Elements {
			v, err := in.evalExpr(ctx, elem, env)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil

	case *compiler.ObjectLiteral:
		obj := make(map[string]Value, len(e.Keys))
		for i, key := range e.Keys {
			v, err := in.evalExpr(ctx, e.Values[i], env)
			if err != nil {
				return nil, err
			}
			obj[key] = v
		}
		return obj, nil

	case *compiler.Unary:
		return in.evalUnary(ctx, e, env)

	case *compiler.Binary:
		return in.evalBinary(ctx, e, env)

	case *compiler.Await:
		v, err := in.evalExpr(ctx, e.Operand, env)
		if err != nil {
			return nil, err
		}
		if f, ok := v.(*Future); ok {
			return f.Await(ctx)
		}
		// Awaiting a non-future yields the value itself.
		return v, nil

	case *compiler.Call:
		return in.evalCall(ctx, e, env)

	case *compiler.Member:
		obj, err := in.evalExpr(ctx, e.Object, env)
		if err != nil {
			return nil, err
		}
		m, ok := obj.(map[string]Value)
		if !ok {
			return nil, errAtf(e.Span().Start, "cannot access property '%s' on %s", e.Name, TypeName(obj))
		}
		return m[e.Name], nil

	case *compiler.Index:
		return in.evalIndex(ctx, e, env)

	case *compiler.Construct:
		return in.evalConstruct(e, env)

	case *compiler.CaptureObject:
		obj := make(map[string]Value, len(e.Names))
		for _, name := range e.Names {
			v, ok := env.lookup(name)
			if !ok {
				return nil, errAtf(e.Span().Start, "undefined variable '%s'", name)
			}
			c, err := CloneCapture(name, v)
			if err != nil {
				return nil, err
			}
			obj[name] = c
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unknown expression type %T", expr)
	}
}

// evalConstruct evaluates a construct literal into a fresh handle.
// Capture markers whose names are bound at the evaluation site have
// their current values cloned into providedCaptures; everything else
// is left for reify to supply.
func (in *Interp) evalConstruct(c *compiler.Construct, env *Env) (Value, error) {
	def := in.reg.InternConstruct(c)

	provided := make(map[string]Value)
	for _, name := range c.Markers {
		v, ok := env.lookup(name)
		if !ok {
			continue
		}
		provided[name] = v
	}

	h, err := NewHandle(def, provided, in.runner)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (in *Interp) lookupName(name string, pos compiler.Position, env *Env) (Value, error) {
	if v, ok := env.lookup(name); ok {
		return v, nil
	}
	if v, ok := defaultGlobal(name); ok {
		return v, nil
	}
	if compiler.IsIntrinsicGlobal(name) {
		return nil, errAtf(pos, "intrinsic '%s' is not available in this context", name)
	}
	return nil, errAtf(pos, "undefined variable '%s'", name)
}

func (in *Interp) evalUnary(ctx context.Context, e *compiler.Unary, env *Env) (Value, error) {
	v, err := in.evalExpr(ctx, e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case compiler.TokenBang:
		return !Truthy(v), nil
	case compiler.TokenMinus:
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, errAtf(e.Span().Start, "cannot negate %s", TypeName(v))
	}
	return nil, errAtf(e.Span().Start, "unknown unary operator %s", e.Op)
}

func (in *Interp) evalBinary(ctx context.Context, e *compiler.Binary, env *Env) (Value, error) {
	// Short-circuit forms first.
	switch e.Op {
	case compiler.TokenAndAnd:
		left, err := in.evalExpr(ctx, e.Left, env)
		if err != nil {
			return nil, err
		}
		if !Truthy(left) {
			return left, nil
		}
		return in.evalExpr(ctx, e.Right, env)
	case compiler.TokenOrOr:
		left, err := in.evalExpr(ctx, e.Left, env)
		if err != nil {
			return nil, err
		}
		if Truthy(left) {
			return left, nil
		}
		return in.evalExpr(ctx, e.Right, env)
	}

	left, err := in.evalExpr(ctx, e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.evalExpr(ctx, e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case compiler.TokenEq:
		return valuesEqual(left, right), nil
	case compiler.TokenNotEq:
		return !valuesEqual(left, right), nil
	}

	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch e.Op {
			case compiler.TokenPlus:
				return ls + rs, nil
			case compiler.TokenLt:
				return ls < rs, nil
			case compiler.TokenLtEq:
				return ls <= rs, nil
			case compiler.TokenGt:
				return ls > rs, nil
			case compiler.TokenGtEq:
				return ls >= rs, nil
			}
		}
	}

	return numericBinary(e, left, right)
}

// numericBinary applies an arithmetic or comparison operator with
// int64→float64 promotion on mixed operands.
func numericBinary(e *compiler.Binary, left, right Value) (Value, error) {
	li, lIsInt := left.(int64)
	ri, rIsInt := right.(int64)

	if lIsInt && rIsInt {
		switch e.Op {
		case compiler.TokenPlus:
			return li + ri, nil
		case compiler.TokenMinus:
			return li - ri, nil
		case compiler.TokenStar:
			return li * ri, nil
		case compiler.TokenSlash:
			if ri == 0 {
				return nil, errAtf(e.Span().Start, "division by zero")
			}
			return li / ri, nil
		case compiler.TokenPercent:
			if ri == 0 {
				return nil, errAtf(e.Span().Start, "division by zero")
			}
			return li % ri, nil
		case compiler.TokenLt:
			return li < ri, nil
		case compiler.TokenLtEq:
			return li <= ri, nil
		case compiler.TokenGt:
			return li > ri, nil
		case compiler.TokenGtEq:
			return li >= ri, nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, errAtf(e.Span().Start, "operator %s not defined for %s and %s",
			e.Op, TypeName(left), TypeName(right))
	}

	switch e.Op {
	case compiler.TokenPlus:
		return lf + rf, nil
	case compiler.TokenMinus:
		return lf - rf, nil
	case compiler.TokenStar:
		return lf * rf, nil
	case compiler.TokenSlash:
		return lf / rf, nil
	case compiler.TokenPercent:
		return math.Mod(lf, rf), nil
	case compiler.TokenLt:
		return lf < rf, nil
	case compiler.TokenLtEq:
		return lf <= rf, nil
	case compiler.TokenGt:
		return lf > rf, nil
	case compiler.TokenGtEq:
		return lf >= rf, nil
	}
	return nil, errAtf(e.Span().Start, "unknown binary operator %s", e.Op)
}

func (in *Interp) evalCall(ctx context.Context, e *compiler.Call, env *Env) (Value, error) {
	callee, err := in.evalExpr(ctx, e.Callee, env)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Arguments))
	for i, arg := range e.Arguments {
		v, err := in.evalExpr(ctx, arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	fn, ok := callee.(GoFunc)
	if !ok {
		return nil, errAtf(e.Span().Start, "%s is not callable", TypeName(callee))
	}
	return fn(args)
}

func (in *Interp) evalIndex(ctx context.Context, e *compiler.Index, env *Env) (Value, error) {
	obj, err := in.evalExpr(ctx, e.Object, env)
	if err != nil {
		return nil, err
	}
	key, err := in.evalExpr(ctx, e.Key, env)
	if err != nil {
		return nil, err
	}

	switch container := obj.(type) {
	case []Value:
		i, ok := key.(int64)
		if !ok {
			return nil, errAtf(e.Span().Start, "array index must be an integer, got %s", TypeName(key))
		}
		if i < 0 || i >= int64(len(container)) {
			return nil, errAtf(e.Span().Start, "array index %d out of range [0, %d)", i, len(container))
		}
		return container[i], nil
	case map[string]Value:
		k, ok := key.(string)
		if !ok {
			return nil, errAtf(e.Span().Start, "object key must be a string, got %s", TypeName(key))
		}
		return container[k], nil
	case string:
		i, ok := key.(int64)
		if !ok {
			return nil, errAtf(e.Span().Start, "string index must be an integer, got %s", TypeName(key))
		}
		if i < 0 || i >= int64(len(container)) {
			return nil, errAtf(e.Span().Start, "string index %d out of range [0, %d)", i, len(container))
		}
		return string(container[i]), nil
	default:
		return nil, errAtf(e.Span().Start, "cannot index %s", TypeName(obj))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// valuesEqual compares two values, numbers by promoted value and
// arrays/objects structurally.
func valuesEqual(a, b Value) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}

	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []Value:
		y, ok := b.([]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]Value:
		y, ok := b.(map[string]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !valuesEqual(xv, yv) {
				return false
			}
		}
		return true
	default:
		// Reference types (handles, futures) compare by identity.
		return a == b
	}
}

func errAt(pos compiler.Position, err error) error {
	return fmt.Errorf("line %d: %w", pos.Line, err)
}

func errAtf(pos compiler.Position, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", pos.Line, fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Default globals
// ---------------------------------------------------------------------------

// defaultGlobal resolves the intrinsics the runtime itself provides.
// Hosts install richer intrinsics (fetch, Promise) via SetGlobal.
func defaultGlobal(name string) (Value, bool) {
	switch name {
	case "undefined":
		return nil, true
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "console":
		return consoleObject, true
	case "Math":
		return mathObject, true
	}
	return nil, false
}

var consoleObject = map[string]Value{
	"log": GoFunc(func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Display(a)
		}
		fmt.Println(strings.Join(parts, " "))
		return nil, nil
	}),
}

var mathObject = map[string]Value{
	"abs": GoFunc(func(args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("Math.abs expects 1 argument")
		}
		switch x := args[0].(type) {
		case int64:
			if x < 0 {
				return -x, nil
			}
			return x, nil
		case float64:
			return math.Abs(x), nil
		}
		return nil, fmt.Errorf("Math.abs expects a number")
	}),
	"floor": GoFunc(func(args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("Math.floor expects 1 argument")
		}
		f, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("Math.floor expects a number")
		}
		return int64(math.Floor(f)), nil
	}),
	"max": GoFunc(func(args []Value) (Value, error) {
		if len(args) == 0 {
			return math.Inf(-1), nil
		}
		best := math.Inf(-1)
		for _, a := range args {
			f, ok := toFloat(a)
			if !ok {
				return nil, fmt.Errorf("Math.max expects numbers")
			}
			if f > best {
				best = f
			}
		}
		return best, nil
	}),
	"min": GoFunc(func(args []Value) (Value, error) {
		if len(args) == 0 {
			return math.Inf(1), nil
		}
		best := math.Inf(1)
		for _, a := range args {
			f, ok := toFloat(a)
			if !ok {
				return nil, fmt.Errorf("Math.min expects numbers")
			}
			if f < best {
				best = f
			}
		}
		return best, nil
	}),
}
