package catalog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
)

func TestDefaultIsValid(t *testing.T) {
	if err := catalog.Default().Validate(); err != nil {
		t.Fatalf("default catalog: %v", err)
	}
}

func TestCanonicalKey(t *testing.T) {
	in := []string{"metro", "lrt", "brown"}
	if got := catalog.CanonicalKey(in); got != "brown_lrt_metro" {
		t.Fatalf("CanonicalKey = %q, want brown_lrt_metro", got)
	}
	if in[0] != "metro" {
		t.Fatal("CanonicalKey must not reorder its input")
	}
	if got := catalog.CanonicalKey(nil); got != "" {
		t.Fatalf("CanonicalKey(nil) = %q, want empty", got)
	}
}

func TestColorRuleLookup(t *testing.T) {
	r := &catalog.ColorRule{Property: "LINE", Colors: []catalog.ColorEntry{{Value: "M2", Color: "#14a6f1"}}}
	if got := r.Lookup("M2"); got != "#14a6f1" {
		t.Errorf("Lookup(M2) = %q", got)
	}
	if got := r.Lookup("M9"); got != catalog.FallbackColor {
		t.Errorf("Lookup(M9) = %q, want fallback", got)
	}
	var nilRule *catalog.ColorRule
	if got := nilRule.Lookup("M2"); got != catalog.FallbackColor {
		t.Errorf("nil rule Lookup = %q, want fallback", got)
	}
}

func TestIndex(t *testing.T) {
	c := catalog.Default()
	idx := c.Index()

	ref, ok := idx.Source("lrt_unmerged_isochrones")
	if !ok || ref.Layer != "lrt" || ref.Kind != catalog.KindUnmergedIsochrones {
		t.Fatalf("Source(lrt_unmerged_isochrones) = %+v, %v", ref, ok)
	}
	if id, ok := idx.StationSource("metro"); !ok || id != "metro_stations" {
		t.Fatalf("StationSource(metro) = %q, %v", id, ok)
	}
	if got := idx.StationColors("metro").Lookup("M1-north"); got != "#c48d55" {
		t.Errorf("metro station color = %q", got)
	}
	if k, ok := idx.MergedKey("brown_lrt_merged_isochrones"); !ok || k != "brown_lrt" {
		t.Errorf("MergedKey = %q, %v", k, ok)
	}
	if _, ok := idx.Source("brown_lines"); ok {
		t.Error("brown line must not own sources")
	}
}

func TestKnown(t *testing.T) {
	c := catalog.Default()
	for _, k := range []string{"metro", "lrt", "brown"} {
		if !c.Known(k) {
			t.Errorf("Known(%q) = false", k)
		}
	}
	if c.Known("tram") || c.Known("") {
		t.Error("unexpected known key")
	}
	if got := strings.Join(c.Keys(), ","); got != "metro,lrt,brown" {
		t.Errorf("Keys = %s", got)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	c := catalog.Default()
	c.Layers[0].Key = "me_tro"
	c.Merged = append(c.Merged, catalog.MergedIsochrone{Key: "metro_lrt", URL: "x.geojson"})
	c.DefaultEnabled = []string{"tram"}

	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		`must not contain "_"`,
		"not in canonical order",
		`default_enabled names unknown layer "tram"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateStationsRequiredForIsochrones(t *testing.T) {
	c := catalog.Default()
	c.Layers[0].Sources = c.Layers[0].Sources[:2]
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "no stations source") {
		t.Fatalf("Validate = %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := catalog.Default().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	c, err := catalog.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Brown.Value != "חום" || len(c.Merged) != 7 {
		t.Fatalf("decoded catalog lost data: brown=%q merged=%d", c.Brown.Value, len(c.Merged))
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := catalog.Decode(strings.NewReader("layerz: []\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	c, err := catalog.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Layers) != 2 {
		t.Fatalf("layers = %d", len(c.Layers))
	}
}
