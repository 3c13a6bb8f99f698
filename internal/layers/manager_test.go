package layers_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/layers"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// fakeSurface records registrations and the latest visibility/filter per layer.
type fakeSurface struct {
	sources    map[string]surface.SourceSpec
	layers     map[string]surface.LayerSpec
	order      []string
	visibility map[string]surface.Visibility
	filters    map[string]surface.Expression
	failOn     string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		sources:    map[string]surface.SourceSpec{},
		layers:     map[string]surface.LayerSpec{},
		visibility: map[string]surface.Visibility{},
		filters:    map[string]surface.Expression{},
	}
}

func (f *fakeSurface) AddSource(s surface.SourceSpec) error {
	f.sources[s.ID] = s
	return nil
}

func (f *fakeSurface) AddLayer(l surface.LayerSpec) error {
	f.layers[l.ID] = l
	f.order = append(f.order, l.ID)
	f.visibility[l.ID] = l.Visibility
	f.filters[l.ID] = l.Filter
	return nil
}

func (f *fakeSurface) SetVisibility(id string, v surface.Visibility) error {
	if id == f.failOn {
		return fmt.Errorf("layer %q: %w", id, surface.ErrUnknownLayer)
	}
	f.visibility[id] = v
	return nil
}

func (f *fakeSurface) SetFilter(id string, e surface.Expression) error {
	f.filters[id] = e
	return nil
}

func (f *fakeSurface) QueryRenderedFeatures(orb.Point) ([]surface.Feature, error) { return nil, nil }
func (f *fakeSurface) SetFeatureState(surface.FeatureRef, surface.State) error { return nil }
func (f *fakeSurface) SetCursor(string) {}

func newManager(t *testing.T) (*layers.Manager, *fakeSurface) {
	t.Helper()
	fs := newFakeSurface()
	m := layers.NewManager(catalog.Default(), fs, nil)
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	return m, fs
}

func visibleMerged(fs *fakeSurface, cat *catalog.Catalog) []string {
	var out []string
	for _, e := range cat.Merged {
		if fs.visibility[catalog.MergedLayerID(e.Key)] == surface.Visible {
			out = append(out, e.Key)
		}
	}
	return out
}

func TestInitialize(t *testing.T) {
	m, fs := newManager(t)
	cat := catalog.Default()

	if got := m.Enabled(); !reflect.DeepEqual(got, []string{"lrt"}) {
		t.Fatalf("default enabled = %v", got)
	}
	if got := visibleMerged(fs, cat); !reflect.DeepEqual(got, []string{"lrt"}) {
		t.Fatalf("visible merged = %v", got)
	}

	// Merged layers come first, then layer sources in catalog order.
	if fs.order[0] != "lrt_merged_isochrones" || fs.order[len(cat.Merged)] != "metro_unmerged_isochrones" {
		t.Fatalf("registration order = %v", fs.order)
	}

	st := fs.layers["lrt_stations"]
	if st.MinZoom != layers.StationMinZoom || st.Type != surface.Circle {
		t.Errorf("lrt_stations = %+v", st)
	}
	if fs.sources["lrt_stations"].PromoteID != "OBJECTID" {
		t.Error("station source must promote OBJECTID")
	}
	if fs.sources["lrt_lines"].PromoteID != "" {
		t.Error("only station sources promote an id")
	}
	if fs.visibility["metro_lines"] != surface.Hidden || fs.visibility["lrt_lines"] != surface.Visible {
		t.Errorf("visibility metro=%s lrt=%s", fs.visibility["metro_lines"], fs.visibility["lrt_lines"])
	}

	// Host only: hide brown features.
	want := surface.Ne(surface.Get("NAME"), "חום")
	if got := fs.filters["lrt_lines"]; !reflect.DeepEqual(got, want) {
		t.Errorf("lrt_lines filter = %v, want %v", got, want)
	}
	if fs.filters["metro_lines"] != nil {
		t.Error("non-host layers carry no filter")
	}
}

func TestPaint(t *testing.T) {
	_, fs := newManager(t)

	lines := fs.layers["metro_lines"].Paint
	want := surface.Match(surface.AsString(surface.Get("NAME")), []surface.MatchArm{
		{Label: "M1", Output: "#c48d55"},
		{Label: "M2", Output: "#14a6f1"},
		{Label: "M3", Output: "#fea2bb"},
	}, "black")
	if !reflect.DeepEqual(lines["line-color"], want) {
		t.Errorf("line-color = %v", lines["line-color"])
	}
	if lines["line-width"] != layers.LineWidth || lines["line-opacity"] != layers.LineOpacity {
		t.Errorf("line paint = %v", lines)
	}
	if fs.layers["lrt_unmerged_isochrones"].Paint["fill-opacity"] != 0 {
		t.Error("unmerged isochrones must be transparent")
	}
	merged := fs.layers["brown_merged_isochrones"].Paint
	if merged["fill-opacity"] != layers.MergedFillOpacity || !reflect.DeepEqual(merged["fill-color"], surface.Get("color")) {
		t.Errorf("merged paint = %v", merged)
	}
}

func TestCanonicalKeyOrderIndependent(t *testing.T) {
	a := layers.NewManager(catalog.Default(), newFakeSurface(), nil)
	b := layers.NewManager(catalog.Default(), newFakeSurface(), nil)

	for _, k := range []string{"metro", "brown"} {
		if err := a.Toggle(k); err != nil {
			t.Fatal(err)
		}
	}
	for _, k := range []string{"lrt", "brown", "lrt", "metro"} {
		if err := b.Toggle(k); err != nil {
			t.Fatal(err)
		}
	}
	// b toggled lrt off then back on: same set.
	if a.CanonicalKey() != b.CanonicalKey() || a.CanonicalKey() != "brown_lrt_metro" {
		t.Fatalf("a=%q b=%q", a.CanonicalKey(), b.CanonicalKey())
	}
}

func TestToggleTwiceRestoresState(t *testing.T) {
	m, fs := newManager(t)
	before := map[string]surface.Visibility{}
	for k, v := range fs.visibility {
		before[k] = v
	}
	beforeFilter := fs.filters["lrt_stations"]

	for _, key := range []string{"metro", "brown", "lrt"} {
		if err := m.Toggle(key); err != nil {
			t.Fatal(err)
		}
		if err := m.Toggle(key); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(fs.visibility, before) {
			t.Fatalf("toggling %s twice changed visibility", key)
		}
		if !reflect.DeepEqual(fs.filters["lrt_stations"], beforeFilter) {
			t.Fatalf("toggling %s twice changed the filter", key)
		}
	}
}

func TestBrownFilter(t *testing.T) {
	tests := []struct {
		name    string
		toggles []string
		kind    catalog.Kind
		want    surface.Expression
	}{
		{"host only lines", nil, catalog.KindLines, surface.Ne(surface.Get("NAME"), "חום")},
		{"host only stations", nil, catalog.KindStations, surface.Ne(surface.Get("LINE"), "חום")},
		{"both", []string{"brown"}, catalog.KindStations, nil},
		{"brown only lines", []string{"brown", "lrt"}, catalog.KindLines, surface.Eq(surface.Get("NAME"), "חום")},
		{"brown only isochrones", []string{"brown", "lrt"}, catalog.KindUnmergedIsochrones, surface.Eq(surface.Get("LINE"), "חום")},
		{"neither", []string{"lrt"}, catalog.KindStations, surface.Ne(surface.Get("LINE"), "חום")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fs := newManager(t)
			for _, k := range tt.toggles {
				if err := m.Toggle(k); err != nil {
					t.Fatal(err)
				}
			}
			if got := m.BrownFilter(tt.kind); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("BrownFilter = %v, want %v", got, tt.want)
			}
			id := catalog.SourceID("lrt", tt.kind)
			if got := fs.filters[id]; !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("applied filter on %s = %v, want %v", id, got, tt.want)
			}
		})
	}
}

func TestBrownOnlyKeepsHostVisible(t *testing.T) {
	m, fs := newManager(t)
	if err := m.Toggle("brown"); err != nil {
		t.Fatal(err)
	}
	if err := m.Toggle("lrt"); err != nil {
		t.Fatal(err)
	}
	if got := m.Enabled(); !reflect.DeepEqual(got, []string{"brown"}) {
		t.Fatalf("enabled = %v", got)
	}
	for _, k := range []catalog.Kind{catalog.KindUnmergedIsochrones, catalog.KindLines, catalog.KindStations} {
		if v := fs.visibility[catalog.SourceID("lrt", k)]; v != surface.Visible {
			t.Errorf("lrt %s = %s, want visible", k, v)
		}
	}
	if got := visibleMerged(fs, catalog.Default()); !reflect.DeepEqual(got, []string{"brown"}) {
		t.Errorf("visible merged = %v", got)
	}

	st := m.State()
	if st.Merged != "brown" {
		t.Errorf("state merged = %q", st.Merged)
	}
	for _, l := range st.Layers {
		if l.Key == "lrt" && (l.Enabled || !l.Visible) {
			t.Errorf("lrt state = %+v, want disabled but visible", l)
		}
	}
}

func TestToggleMetroEndToEnd(t *testing.T) {
	m, fs := newManager(t)
	if err := m.Toggle("metro"); err != nil {
		t.Fatal(err)
	}
	if m.CanonicalKey() != "lrt_metro" {
		t.Fatalf("canonical = %q", m.CanonicalKey())
	}
	if got := visibleMerged(fs, catalog.Default()); !reflect.DeepEqual(got, []string{"lrt_metro"}) {
		t.Fatalf("visible merged = %v", got)
	}
	for _, id := range []string{"metro_unmerged_isochrones", "metro_lines", "metro_stations", "lrt_lines"} {
		if fs.visibility[id] != surface.Visible {
			t.Errorf("%s = %s, want visible", id, fs.visibility[id])
		}
	}
}

func TestNoMergedEntryForCombination(t *testing.T) {
	m, fs := newManager(t)
	if err := m.Toggle("lrt"); err != nil {
		t.Fatal(err)
	}
	if got := visibleMerged(fs, catalog.Default()); len(got) != 0 {
		t.Fatalf("empty set should show no merged polygon, got %v", got)
	}
	if _, ok := m.VisibleMerged(); ok {
		t.Fatal("VisibleMerged should report none")
	}
}

func TestUnknownKey(t *testing.T) {
	m, _ := newManager(t)
	for name, fn := range map[string]func(string) error{
		"Toggle": m.Toggle, "Enable": m.Enable, "Disable": m.Disable,
	} {
		if err := fn("tram"); !errors.Is(err, layers.ErrUnknownLayer) {
			t.Errorf("%s(tram) = %v", name, err)
		}
	}
	if got := m.Enabled(); !reflect.DeepEqual(got, []string{"lrt"}) {
		t.Fatalf("state changed: %v", got)
	}
}

func TestEnableDisableIdempotent(t *testing.T) {
	m, _ := newManager(t)
	for range 2 {
		if err := m.Enable("metro"); err != nil {
			t.Fatal(err)
		}
	}
	if m.CanonicalKey() != "lrt_metro" {
		t.Fatalf("after enable: %q", m.CanonicalKey())
	}
	for range 2 {
		if err := m.Disable("metro"); err != nil {
			t.Fatal(err)
		}
	}
	if m.CanonicalKey() != "lrt" {
		t.Fatalf("after disable: %q", m.CanonicalKey())
	}
}

func TestSurfaceErrorIsWrapped(t *testing.T) {
	m, fs := newManager(t)
	fs.failOn = "metro_lines"
	err := m.Toggle("metro")
	if !errors.Is(err, surface.ErrUnknownLayer) {
		t.Fatalf("Toggle = %v, want wrapped surface error", err)
	}
}
