package popup

import (
	"slices"
	"strings"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// Entry is one station line in the popup.
type Entry struct {
	Layer   string             `json:"layer" doc:"Logical layer key" example:"metro"`
	Line    string             `json:"line" doc:"Line name up to the first dash" example:"M1"`
	Name    string             `json:"name" doc:"Station name"`
	Color   string             `json:"color" doc:"Station color" example:"#c48d55"`
	Feature surface.FeatureRef `json:"feature" doc:"Station feature that is highlighted while hovered"`
}

// Group is the set of stations reachable in the same number of minutes.
type Group struct {
	Minutes float64 `json:"minutes" doc:"Travel time" example:"4"`
	Entries []Entry `json:"entries"`
}

// Contents is the aggregated popup for one pointer position.
type Contents struct {
	Groups []Group `json:"groups" doc:"Groups ordered by travel time"`
}

// Empty reports whether no station was found.
func (c Contents) Empty() bool { return len(c.Groups) == 0 }

// Hover lists the station features of every entry, in display order.
func (c Contents) Hover() []surface.FeatureRef {
	var refs []surface.FeatureRef
	for _, g := range c.Groups {
		for _, e := range g.Entries {
			refs = append(refs, e.Feature)
		}
	}
	return refs
}

type station struct {
	layer string
	time  float64
	props map[string]any
}

type stationKey struct{ line, name string }

// Aggregate turns hit-test results into popup contents. Only features from
// unmerged isochrone sources count. They are stably sorted by travel time,
// deduplicated by (line, name) keeping the fastest, and grouped by time.
// Features without a numeric travel time are skipped.
func Aggregate(features []surface.Feature, cat *catalog.Catalog) Contents {
	idx := cat.Index()
	fields := cat.Stations

	var stations []station
	for _, f := range features {
		ref, ok := idx.Source(f.Source)
		if !ok || ref.Kind != catalog.KindUnmergedIsochrones {
			continue
		}
		t, ok := number(f.Properties[fields.Time])
		if !ok {
			continue
		}
		stations = append(stations, station{layer: ref.Layer, time: t, props: f.Properties})
	}
	slices.SortStableFunc(stations, func(a, b station) int {
		switch {
		case a.time < b.time:
			return -1
		case a.time > b.time:
			return 1
		}
		return 0
	})

	var out Contents
	seen := map[stationKey]bool{}
	for _, s := range stations {
		line, _ := s.props[fields.Line].(string)
		name, _ := s.props[fields.Name].(string)
		key := stationKey{line, name}
		if seen[key] {
			continue
		}
		seen[key] = true

		if n := len(out.Groups); n == 0 || out.Groups[n-1].Minutes != s.time {
			out.Groups = append(out.Groups, Group{Minutes: s.time})
		}
		src, _ := idx.StationSource(s.layer)
		g := &out.Groups[len(out.Groups)-1]
		g.Entries = append(g.Entries, Entry{
			Layer: s.layer,
			Line:  CleanLine(line),
			Name:  name,
			Color: idx.StationColors(s.layer).Lookup(line),
			Feature: surface.FeatureRef{
				ID:     surface.NormalizeID(s.props[fields.ID]),
				Source: src,
			},
		})
	}
	return out
}

// CleanLine strips a direction suffix: "M1-north" becomes "M1".
func CleanLine(line string) string {
	before, _, _ := strings.Cut(line, "-")
	return before
}

func number(v any) (float64, bool) {
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
