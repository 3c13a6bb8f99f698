package surface

import (
	"fmt"
)

// Expression is a MapLibre style expression, e.g. ["get", "LINE"]. It
// marshals to the JSON the browser expects and can be evaluated in process.
type Expression []any

// Get reads a feature property.
func Get(property string) Expression {
	return Expression{"get", property}
}

// AsString asserts that e evaluates to a string.
func AsString(e any) Expression {
	return Expression{"string", e}
}

// AsBoolean asserts that e evaluates to a boolean, using fallback otherwise.
func AsBoolean(e any, fallback bool) Expression {
	return Expression{"boolean", e, fallback}
}

// FeatureStateOf reads a per-feature state key.
func FeatureStateOf(key string) Expression {
	return Expression{"feature-state", key}
}

// MatchArm is one label/output pair of a match expression.
type MatchArm struct {
	Label  any
	Output any
}

// Match selects the output whose label equals input, else fallback.
func Match(input any, arms []MatchArm, fallback any) Expression {
	e := Expression{"match", input}
	for _, a := range arms {
		e = append(e, a.Label, a.Output)
	}
	return append(e, fallback)
}

// Case returns then when cond holds, else otherwise.
func Case(cond any, then, otherwise any) Expression {
	return Expression{"case", cond, then, otherwise}
}

// Eq compares a and b for equality.
func Eq(a, b any) Expression {
	return Expression{"==", a, b}
}

// Ne compares a and b for inequality.
func Ne(a, b any) Expression {
	return Expression{"!=", a, b}
}

// EvalContext carries the data an expression may read.
type EvalContext struct {
	Properties map[string]any
	State      State
}

// Eval evaluates an expression. Literals evaluate to themselves; arrays are
// operator applications. Only the operators this program emits are supported.
func Eval(e any, ctx EvalContext) (any, error) {
	args, ok := asList(e)
	if !ok {
		return e, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	op, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("expression operator must be a string, got %T", args[0])
	}
	args = args[1:]

	switch op {
	case "get":
		if len(args) != 1 {
			return nil, arity(op, 1, len(args))
		}
		key, err := evalString(args[0], ctx)
		if err != nil {
			return nil, err
		}
		return ctx.Properties[key], nil

	case "feature-state":
		if len(args) != 1 {
			return nil, arity(op, 1, len(args))
		}
		key, err := evalString(args[0], ctx)
		if err != nil {
			return nil, err
		}
		return ctx.State[key], nil

	case "string":
		for _, a := range args {
			v, err := Eval(a, ctx)
			if err != nil {
				return nil, err
			}
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
		return nil, fmt.Errorf("string assertion failed")

	case "boolean":
		for _, a := range args {
			v, err := Eval(a, ctx)
			if err != nil {
				return nil, err
			}
			if b, ok := v.(bool); ok {
				return b, nil
			}
		}
		return nil, fmt.Errorf("boolean assertion failed")

	case "==", "!=":
		if len(args) != 2 {
			return nil, arity(op, 2, len(args))
		}
		a, err := Eval(args[0], ctx)
		if err != nil {
			return nil, err
		}
		b, err := Eval(args[1], ctx)
		if err != nil {
			return nil, err
		}
		eq := equal(a, b)
		if op == "!=" {
			return !eq, nil
		}
		return eq, nil

	case "match":
		if len(args) < 2 || len(args)%2 != 0 {
			return nil, fmt.Errorf("match expects input, label/output pairs and a fallback")
		}
		input, err := Eval(args[0], ctx)
		if err != nil {
			return nil, err
		}
		pairs, fallback := args[1:len(args)-1], args[len(args)-1]
		for i := 0; i < len(pairs); i += 2 {
			if matchLabel(pairs[i], input) {
				return Eval(pairs[i+1], ctx)
			}
		}
		return Eval(fallback, ctx)

	case "case":
		if len(args) < 3 || len(args)%2 != 1 {
			return nil, fmt.Errorf("case expects condition/output pairs and a fallback")
		}
		for i := 0; i+1 < len(args); i += 2 {
			cond, err := Eval(args[i], ctx)
			if err != nil {
				return nil, err
			}
			if b, _ := cond.(bool); b {
				return Eval(args[i+1], ctx)
			}
		}
		return Eval(args[len(args)-1], ctx)
	}

	return nil, fmt.Errorf("unsupported expression operator %q", op)
}

// Passes evaluates a filter. A nil filter passes every feature; evaluation
// errors exclude the feature, as MapLibre does.
func Passes(filter Expression, ctx EvalContext) bool {
	if filter == nil {
		return true
	}
	v, err := Eval(filter, ctx)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func asList(e any) ([]any, bool) {
	switch v := e.(type) {
	case Expression:
		return v, true
	case []any:
		return v, true
	}
	return nil, false
}

func evalString(e any, ctx EvalContext) (string, error) {
	v, err := Eval(e, ctx)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func matchLabel(label, input any) bool {
	if labels, ok := label.([]any); ok {
		for _, l := range labels {
			if equal(l, input) {
				return true
			}
		}
		return false
	}
	return equal(label, input)
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func arity(op string, want, got int) error {
	return fmt.Errorf("%s expects %d argument(s), got %d", op, want, got)
}
