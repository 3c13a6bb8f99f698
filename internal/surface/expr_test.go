package surface_test

import (
	"encoding/json"
	"testing"

	"github.com/joeblew999/plat-isochrone/internal/surface"
)

func TestEvalMatch(t *testing.T) {
	e := surface.Match(surface.AsString(surface.Get("LINE")), []surface.MatchArm{
		{Label: "M1", Output: "#c48d55"},
		{Label: []any{"M2", "M3"}, Output: "#14a6f1"},
	}, "black")

	tests := []struct {
		props map[string]any
		want  any
	}{
		{map[string]any{"LINE": "M1"}, "#c48d55"},
		{map[string]any{"LINE": "M3"}, "#14a6f1"},
		{map[string]any{"LINE": "M9"}, "black"},
	}
	for _, tt := range tests {
		got, err := surface.Eval(e, surface.EvalContext{Properties: tt.props})
		if err != nil {
			t.Fatalf("Eval(%v): %v", tt.props, err)
		}
		if got != tt.want {
			t.Errorf("Eval(%v) = %v, want %v", tt.props, got, tt.want)
		}
	}

	// A missing property fails the string assertion.
	if _, err := surface.Eval(e, surface.EvalContext{}); err == nil {
		t.Error("expected error for missing LINE")
	}
}

func TestEvalHoverStroke(t *testing.T) {
	e := surface.Case(surface.AsBoolean(surface.FeatureStateOf("hover"), false), 3, 0)

	got, err := surface.Eval(e, surface.EvalContext{})
	if err != nil || got != 0 {
		t.Fatalf("no state: got %v, %v", got, err)
	}
	got, err = surface.Eval(e, surface.EvalContext{State: surface.State{"hover": true}})
	if err != nil || got != 3 {
		t.Fatalf("hover: got %v, %v", got, err)
	}
}

func TestPasses(t *testing.T) {
	props := map[string]any{"LINE": "חום", "OBJECTID": float64(4)}
	ctx := surface.EvalContext{Properties: props}

	if !surface.Passes(nil, ctx) {
		t.Error("nil filter must pass")
	}
	if !surface.Passes(surface.Eq(surface.Get("LINE"), "חום"), ctx) {
		t.Error("== on matching value must pass")
	}
	if surface.Passes(surface.Ne(surface.Get("LINE"), "חום"), ctx) {
		t.Error("!= on matching value must not pass")
	}
	if !surface.Passes(surface.Eq(surface.Get("OBJECTID"), 4), ctx) {
		t.Error("numeric comparison must ignore int/float representation")
	}
	if surface.Passes(surface.Expression{"nope"}, ctx) {
		t.Error("unsupported operator must exclude the feature")
	}
}

func TestExpressionJSON(t *testing.T) {
	b, err := json.Marshal(surface.Ne(surface.Get("NAME"), "חום"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `["!=",["get","NAME"],"חום"]`; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}

	// Decoded JSON evaluates the same as the built expression.
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	v, err := surface.Eval(decoded, surface.EvalContext{Properties: map[string]any{"NAME": "אדום"}})
	if err != nil || v != true {
		t.Fatalf("decoded eval = %v, %v", v, err)
	}
}
