// resource.go: Reusable action definitions and resource helpers.
//
// ActionDef is a URL pattern template for actions
// (e.g. "/api/v1/sessions/%s/layers/%s/toggle"). ActionsFor fills the
// pattern for a concrete resource, connecting resource.go → actions.go →
// Link headers.
package humastar

import "fmt"

// ActionDef is a reusable action template.
// Pattern takes one %s verb per path parameter, in order.
type ActionDef struct {
	Rel     string // IANA or custom rel (e.g., "toggle", "pointer")
	Pattern string // URL pattern with %s placeholders
	Method  string // HTTP method: POST, PUT, DELETE, etc.
	Title   string // human-readable label
	Schema  string // optional JSON Schema URL for the request body
}

// Action fills the pattern with args.
func (d ActionDef) Action(args ...any) Action {
	return Action{
		Rel:    d.Rel,
		Href:   fmt.Sprintf(d.Pattern, args...),
		Method: d.Method,
		Title:  d.Title,
		Schema: d.Schema,
	}
}

// ActionsFor generates concrete Action values from ActionDefs for one resource.
func ActionsFor(defs []ActionDef, args ...any) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = d.Action(args...)
	}
	return actions
}
