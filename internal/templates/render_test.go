package templates

import (
	"testing"
	"testing/fstest"
)

func TestRenderFuncs(t *testing.T) {
	fsys := fstest.MapFS{
		"f/a.html": {Data: []byte(`{{define "a"}}{{minutes .}}{{end}}{{define "b"}}{{template "c" dict "X" 1 "Y" "two"}}{{end}}{{define "c"}}{{.X}}-{{.Y}}{{end}}`)},
	}
	r, err := New(fsys, "f/*.html")
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name string
		data any
		want string
	}{
		{"a", 4.0, "4"},
		{"a", 4.5, "4.5"},
		{"b", nil, "1-two"},
	} {
		if got := r.MustRender(tc.name, tc.data); got != tc.want {
			t.Errorf("%s(%v) = %q, want %q", tc.name, tc.data, got, tc.want)
		}
	}
}

func TestReload(t *testing.T) {
	fsys := fstest.MapFS{"t.html": {Data: []byte(`{{define "x"}}old{{end}}`)}}
	r, err := New(fsys, "*.html")
	if err != nil {
		t.Fatal(err)
	}
	fsys["t.html"] = &fstest.MapFile{Data: []byte(`{{define "x"}}new{{end}}`)}
	if err := r.Reload(fsys, "*.html"); err != nil {
		t.Fatal(err)
	}
	if got := r.MustRender("x", nil); got != "new" {
		t.Fatalf("after reload = %q", got)
	}
	if _, err := r.Render("missing", nil); err == nil {
		t.Fatal("rendering an unknown template should fail")
	}
}
