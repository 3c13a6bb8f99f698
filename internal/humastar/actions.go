package humastar

import "strings"

// Action is a state-dependent hypermedia action link.
// Response bodies implement the Actor interface to emit conditional
// RFC 8288 Link headers with method, title, and schema extension parameters.
//
// Example Link header output:
//
//	</api/v1/sessions/7b1e.../layers/metro/toggle>; rel="toggle"; method="POST"; title="Enable Metro"
type Action struct {
	Rel    string // IANA rel or custom (e.g., "toggle", "pointer-move")
	Href   string // target URL
	Method string // HTTP method: POST, PUT, DELETE, etc.
	Title  string // optional human-readable label
	Schema string // optional JSON Schema URL for the request body
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value. Empty
// extension parameters are omitted.
func (a Action) LinkHeader() string {
	var b strings.Builder
	b.WriteString("<" + a.Href + ">")
	param := func(name, value string) {
		if value != "" {
			b.WriteString("; " + name + `="` + strings.ReplaceAll(value, `"`, `'`) + `"`)
		}
	}
	param("rel", a.Rel)
	param("method", a.Method)
	param("title", a.Title)
	param("schema", a.Schema)
	return b.String()
}
