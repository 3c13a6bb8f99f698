// Package catalog holds the static map configuration: logical transit layers,
// their renderable sources and color rules, the precomputed merged isochrone
// files, and the brown line rule that borrows the light rail layer.
//
// A Catalog is immutable once validated. Components receive it through their
// constructors; nothing in this package keeps global state.
package catalog

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Kind tags a renderable source within a logical layer.
type Kind string

const (
	KindUnmergedIsochrones Kind = "unmerged_isochrones"
	KindLines              Kind = "lines"
	KindStations           Kind = "stations"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUnmergedIsochrones, KindLines, KindStations:
		return true
	}
	return false
}

// FallbackColor is used for property values a ColorRule does not list.
const FallbackColor = "black"

// KeySeparator joins layer keys into a canonical isochrone key.
const KeySeparator = "_"

// ColorEntry maps one property value to a display color.
type ColorEntry struct {
	Value string `yaml:"value" json:"value" doc:"Property value" example:"M1"`
	Color string `yaml:"color" json:"color" doc:"CSS color" example:"#c48d55"`
}

// ColorRule colors features by matching a single property against a list of values.
type ColorRule struct {
	Property string       `yaml:"property" json:"property" doc:"Feature property to match on" example:"LINE"`
	Colors   []ColorEntry `yaml:"colors" json:"colors" doc:"Value to color mapping, in match order"`
}

// Lookup returns the color for value, or FallbackColor when the rule is nil
// or does not list the value.
func (r *ColorRule) Lookup(value string) string {
	if r == nil {
		return FallbackColor
	}
	for _, e := range r.Colors {
		if e.Value == value {
			return e.Color
		}
	}
	return FallbackColor
}

// Source is one renderable layer of a logical layer.
type Source struct {
	URL    string     `yaml:"url" json:"url" doc:"GeoJSON file reference" example:"data/tlv_metro_lines.geojson"`
	Kind   Kind       `yaml:"kind" json:"kind" enum:"unmerged_isochrones,lines,stations" doc:"Source kind"`
	Colors *ColorRule `yaml:"colors,omitempty" json:"colors,omitempty" doc:"Optional color rule"`
}

// Layer is a logical, user-toggleable layer such as "metro" or "lrt".
type Layer struct {
	Key     string   `yaml:"key" json:"key" doc:"Layer key" example:"metro"`
	NameEN  string   `yaml:"name_en" json:"nameEn" doc:"English display name" example:"Metro"`
	NameHE  string   `yaml:"name_he" json:"nameHe" doc:"Hebrew display name" example:"מטרו"`
	Sources []Source `yaml:"sources" json:"sources" doc:"Renderable sources in drawing order"`
}

// Source returns the layer's source of the given kind.
func (l *Layer) Source(k Kind) (Source, bool) {
	for _, s := range l.Sources {
		if s.Kind == k {
			return s, true
		}
	}
	return Source{}, false
}

// MergedIsochrone is a precomputed polygon file for one combination of layers.
type MergedIsochrone struct {
	Key string `yaml:"key" json:"key" doc:"Canonical layer combination" example:"lrt_metro"`
	URL string `yaml:"url" json:"url" doc:"GeoJSON file reference"`
}

// BrownLine describes the brown BRT line. It has no rendering layers of its
// own: it is a filter condition on the Host layer's features.
type BrownLine struct {
	Key             string `yaml:"key" json:"key" doc:"Toggle key" example:"brown"`
	Host            string `yaml:"host" json:"host" doc:"Layer whose features carry the brown line" example:"lrt"`
	Value           string `yaml:"value" json:"value" doc:"Discriminating property value"`
	LineProperty    string `yaml:"line_property" json:"lineProperty" doc:"Property used by line features" example:"NAME"`
	StationProperty string `yaml:"station_property" json:"stationProperty" doc:"Property used by station and isochrone features" example:"LINE"`
	NameEN          string `yaml:"name_en" json:"nameEn" doc:"English display name"`
	NameHE          string `yaml:"name_he" json:"nameHe" doc:"Hebrew display name"`
}

// StationFields names the properties carried by unmerged isochrone features.
type StationFields struct {
	ID   string `yaml:"id" json:"id" doc:"Stable feature id property" example:"OBJECTID"`
	Line string `yaml:"line" json:"line" example:"LINE"`
	Name string `yaml:"name" json:"name" example:"NAME"`
	Time string `yaml:"time" json:"time" doc:"Travel time in minutes" example:"time"`
}

// View is the initial map camera.
type View struct {
	Center []float64 `yaml:"center" json:"center" minItems:"2" maxItems:"2" doc:"Longitude, latitude"`
	Zoom   float64   `yaml:"zoom" json:"zoom"`
	Style  string    `yaml:"style" json:"style" doc:"Base map style URL"`
}

// Catalog is the complete static configuration.
type Catalog struct {
	Layers         []Layer           `yaml:"layers" json:"layers"`
	Merged         []MergedIsochrone `yaml:"merged_isochrones" json:"mergedIsochrones"`
	Brown          BrownLine         `yaml:"brown_line" json:"brownLine"`
	DefaultEnabled []string          `yaml:"default_enabled" json:"defaultEnabled"`
	Stations       StationFields     `yaml:"stations" json:"stations"`
	MinutesLabel   string            `yaml:"minutes_label" json:"minutesLabel"`
	View           View              `yaml:"view" json:"view"`

	indexOnce sync.Once
	index     *Index
}

// SourceID is the surface id of a logical layer's source of kind k.
func SourceID(layerKey string, k Kind) string {
	return layerKey + KeySeparator + string(k)
}

// MergedLayerID is the surface id of a merged isochrone entry.
func MergedLayerID(key string) string {
	return key + "_merged_isochrones"
}

// CanonicalKey sorts keys and joins them with KeySeparator. The input slice is
// not modified.
func CanonicalKey(keys []string) string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return strings.Join(sorted, KeySeparator)
}

// Layer returns the logical layer with the given key.
func (c *Catalog) Layer(key string) (*Layer, bool) {
	for i := range c.Layers {
		if c.Layers[i].Key == key {
			return &c.Layers[i], true
		}
	}
	return nil, false
}

// Known reports whether key may appear in an enabled set: a layer key or the
// brown line key.
func (c *Catalog) Known(key string) bool {
	if key != "" && key == c.Brown.Key {
		return true
	}
	_, ok := c.Layer(key)
	return ok
}

// Keys returns every toggleable key: layer keys in catalog order, then the
// brown line key.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Layers)+1)
	for _, l := range c.Layers {
		keys = append(keys, l.Key)
	}
	if c.Brown.Key != "" {
		keys = append(keys, c.Brown.Key)
	}
	return keys
}

// DisplayName returns the English and Hebrew names for a toggleable key.
func (c *Catalog) DisplayName(key string) (en, he string) {
	if key == c.Brown.Key {
		return c.Brown.NameEN, c.Brown.NameHE
	}
	if l, ok := c.Layer(key); ok {
		return l.NameEN, l.NameHE
	}
	return key, key
}

// Index returns the lookup tables derived from the catalog.
func (c *Catalog) Index() *Index {
	c.indexOnce.Do(func() {
		c.index = newIndex(c)
	})
	return c.index
}

// Validate checks the catalog and reports every problem found.
func (c *Catalog) Validate() error {
	var errs []string
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(c.Layers) == 0 {
		addf("at least one layer is required")
	}

	seen := map[string]bool{}
	for i, l := range c.Layers {
		switch {
		case l.Key == "":
			addf("layers[%d].key is required", i)
		case strings.Contains(l.Key, KeySeparator):
			addf("layers[%d].key %q must not contain %q", i, l.Key, KeySeparator)
		case seen[l.Key]:
			addf("layers[%d].key %q is duplicated", i, l.Key)
		case l.Key == c.Brown.Key:
			addf("layers[%d].key %q collides with the brown line key", i, l.Key)
		}
		seen[l.Key] = true

		kinds := map[Kind]bool{}
		for j, s := range l.Sources {
			if s.URL == "" {
				addf("layers[%d].sources[%d].url is required", i, j)
			}
			if !s.Kind.Valid() {
				addf("layers[%d].sources[%d].kind %q is not valid", i, j, s.Kind)
			} else if kinds[s.Kind] {
				addf("layers[%d] has more than one %s source", i, s.Kind)
			}
			kinds[s.Kind] = true
			if s.Colors != nil {
				errs = append(errs, validateColors(fmt.Sprintf("layers[%d].sources[%d].colors", i, j), s.Colors)...)
			}
		}
		if kinds[KindUnmergedIsochrones] && !kinds[KindStations] {
			addf("layers[%d] has unmerged isochrones but no stations source", i)
		}
	}

	b := c.Brown
	if b.Key != "" {
		if strings.Contains(b.Key, KeySeparator) {
			addf("brown_line.key %q must not contain %q", b.Key, KeySeparator)
		}
		if !seen[b.Host] {
			addf("brown_line.host %q is not a layer", b.Host)
		}
		if b.Value == "" {
			addf("brown_line.value is required")
		}
		if b.LineProperty == "" || b.StationProperty == "" {
			addf("brown_line.line_property and brown_line.station_property are required")
		}
	}

	mergedSeen := map[string]bool{}
	for i, m := range c.Merged {
		if m.URL == "" {
			addf("merged_isochrones[%d].url is required", i)
		}
		if m.Key == "" {
			addf("merged_isochrones[%d].key is required", i)
			continue
		}
		if mergedSeen[m.Key] {
			addf("merged_isochrones[%d].key %q is duplicated", i, m.Key)
		}
		mergedSeen[m.Key] = true
		parts := strings.Split(m.Key, KeySeparator)
		for _, p := range parts {
			if !c.Known(p) {
				addf("merged_isochrones[%d].key %q names unknown layer %q", i, m.Key, p)
			}
		}
		if CanonicalKey(parts) != m.Key {
			addf("merged_isochrones[%d].key %q is not in canonical order", i, m.Key)
		}
		if len(slices.Compact(slices.Sorted(slices.Values(parts)))) != len(parts) {
			addf("merged_isochrones[%d].key %q repeats a layer", i, m.Key)
		}
	}

	for _, k := range c.DefaultEnabled {
		if !c.Known(k) {
			addf("default_enabled names unknown layer %q", k)
		}
	}

	if len(c.View.Center) != 2 {
		addf("view.center must be [longitude, latitude]")
	}

	sf := c.Stations
	if sf.ID == "" || sf.Line == "" || sf.Name == "" || sf.Time == "" {
		addf("stations.id, stations.line, stations.name and stations.time are required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateColors(path string, r *ColorRule) []string {
	var errs []string
	if r.Property == "" {
		errs = append(errs, path+".property is required")
	}
	if len(r.Colors) == 0 {
		errs = append(errs, path+".colors must not be empty")
	}
	values := map[string]bool{}
	for i, e := range r.Colors {
		if e.Color == "" {
			errs = append(errs, fmt.Sprintf("%s.colors[%d].color is required", path, i))
		}
		if values[e.Value] {
			errs = append(errs, fmt.Sprintf("%s.colors[%d].value %q is duplicated", path, i, e.Value))
		}
		values[e.Value] = true
	}
	return errs
}
