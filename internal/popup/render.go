package popup

// Executor renders a named template.
type Executor interface {
	Render(name string, data any) (string, error)
}

// TemplateName is the fragment that renders popup contents.
const TemplateName = "popup"

// HTMLRenderer renders contents through the popup fragment template.
type HTMLRenderer struct {
	tmpl  Executor
	label string
}

// NewHTMLRenderer creates a renderer. label follows the minutes in each
// group header, e.g. "4 דקות".
func NewHTMLRenderer(tmpl Executor, label string) *HTMLRenderer {
	return &HTMLRenderer{tmpl: tmpl, label: label}
}

// View is the data passed to the popup template.
type View struct {
	Label  string
	Groups []Group
}

// RenderPopup implements Renderer.
func (r *HTMLRenderer) RenderPopup(c Contents) (string, error) {
	return r.tmpl.Render(TemplateName, View{Label: r.label, Groups: c.Groups})
}
