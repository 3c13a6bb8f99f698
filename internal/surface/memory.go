package surface

import (
	"fmt"
	"maps"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// DefaultTolerance is the hit radius, in degrees, for line and circle layers.
// Roughly 30 m at Tel Aviv's latitude.
const DefaultTolerance = 0.0003

type memSource struct {
	spec SourceSpec
	fc   *geojson.FeatureCollection
}

type memLayer struct {
	spec   LayerSpec
	vis    Visibility
	filter Expression
}

// Memory is an in-process Surface. Geometry comes from a Loader; hit-testing
// honors visibility, minimum zoom and filters the way MapLibre does. Memory is
// not safe for concurrent use; callers serialize access.
type Memory struct {
	loader    Loader
	tolerance float64
	zoom      float64
	cursor    string

	sources map[string]*memSource
	layers  []*memLayer
	byID    map[string]*memLayer
	state   map[FeatureRef]State
}

// MemoryOption configures a Memory surface.
type MemoryOption func(*Memory)

// WithTolerance sets the line/circle hit radius in degrees.
func WithTolerance(deg float64) MemoryOption {
	return func(m *Memory) { m.tolerance = deg }
}

// WithZoom sets the initial zoom level.
func WithZoom(z float64) MemoryOption {
	return func(m *Memory) { m.zoom = z }
}

// NewMemory creates an empty surface that loads sources through loader.
func NewMemory(loader Loader, opts ...MemoryOption) *Memory {
	m := &Memory{
		loader:    loader,
		tolerance: DefaultTolerance,
		sources:   make(map[string]*memSource),
		byID:      make(map[string]*memLayer),
		state:     make(map[FeatureRef]State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetZoom updates the zoom level used by hit-testing.
func (m *Memory) SetZoom(z float64) { m.zoom = z }

// Zoom returns the current zoom level.
func (m *Memory) Zoom() float64 { return m.zoom }

// Cursor returns the last cursor set.
func (m *Memory) Cursor() string { return m.cursor }

// SetCursor implements Surface.
func (m *Memory) SetCursor(cursor string) { m.cursor = cursor }

// AddSource implements Surface.
func (m *Memory) AddSource(spec SourceSpec) error {
	if _, ok := m.sources[spec.ID]; ok {
		return fmt.Errorf("source %q: %w", spec.ID, ErrDuplicateID)
	}
	fc, err := m.loader.Load(spec.Data)
	if err != nil {
		return fmt.Errorf("source %q: %w", spec.ID, err)
	}
	m.sources[spec.ID] = &memSource{spec: spec, fc: fc}
	return nil
}

// AddLayer implements Surface.
func (m *Memory) AddLayer(spec LayerSpec) error {
	if _, ok := m.byID[spec.ID]; ok {
		return fmt.Errorf("layer %q: %w", spec.ID, ErrDuplicateID)
	}
	if _, ok := m.sources[spec.Source]; !ok {
		return fmt.Errorf("layer %q source %q: %w", spec.ID, spec.Source, ErrUnknownSource)
	}
	vis := spec.Visibility
	if vis == "" {
		vis = Visible
	}
	l := &memLayer{spec: spec, vis: vis, filter: spec.Filter}
	m.layers = append(m.layers, l)
	m.byID[spec.ID] = l
	return nil
}

// SetVisibility implements Surface.
func (m *Memory) SetVisibility(layerID string, v Visibility) error {
	l, ok := m.byID[layerID]
	if !ok {
		return fmt.Errorf("layer %q: %w", layerID, ErrUnknownLayer)
	}
	l.vis = v
	return nil
}

// SetFilter implements Surface.
func (m *Memory) SetFilter(layerID string, filter Expression) error {
	l, ok := m.byID[layerID]
	if !ok {
		return fmt.Errorf("layer %q: %w", layerID, ErrUnknownLayer)
	}
	l.filter = filter
	return nil
}

// Visibility returns a layer's current visibility.
func (m *Memory) Visibility(layerID string) (Visibility, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return "", fmt.Errorf("layer %q: %w", layerID, ErrUnknownLayer)
	}
	return l.vis, nil
}

// Filter returns a layer's current filter.
func (m *Memory) Filter(layerID string) (Expression, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return nil, fmt.Errorf("layer %q: %w", layerID, ErrUnknownLayer)
	}
	return l.filter, nil
}

// Layer returns the registration spec of a layer.
func (m *Memory) Layer(layerID string) (LayerSpec, bool) {
	l, ok := m.byID[layerID]
	if !ok {
		return LayerSpec{}, false
	}
	return l.spec, true
}

// Source returns the registration spec of a source.
func (m *Memory) Source(sourceID string) (SourceSpec, bool) {
	src, ok := m.sources[sourceID]
	if !ok {
		return SourceSpec{}, false
	}
	return src.spec, true
}

// LayerIDs returns layer ids in registration order.
func (m *Memory) LayerIDs() []string {
	ids := make([]string, len(m.layers))
	for i, l := range m.layers {
		ids[i] = l.spec.ID
	}
	return ids
}

// SetFeatureState implements Surface. Keys in state are merged into the
// feature's existing state.
func (m *Memory) SetFeatureState(ref FeatureRef, state State) error {
	if _, ok := m.sources[ref.Source]; !ok {
		return fmt.Errorf("feature state source %q: %w", ref.Source, ErrUnknownSource)
	}
	cur, ok := m.state[ref]
	if !ok {
		cur = State{}
		m.state[ref] = cur
	}
	maps.Copy(cur, state)
	return nil
}

// FeatureState returns a copy of a feature's state.
func (m *Memory) FeatureState(ref FeatureRef) State {
	return maps.Clone(m.state[ref])
}

// Paint evaluates a paint property of a layer for one feature.
func (m *Memory) Paint(layerID, property string, ref FeatureRef) (any, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return nil, fmt.Errorf("layer %q: %w", layerID, ErrUnknownLayer)
	}
	src := m.sources[l.spec.Source]
	var props map[string]any
	for _, f := range src.fc.Features {
		if featureID(src.spec, f) == ref.ID {
			props = f.Properties
			break
		}
	}
	return Eval(l.spec.Paint[property], EvalContext{Properties: props, State: m.state[ref]})
}

// QueryRenderedFeatures implements Surface.
func (m *Memory) QueryRenderedFeatures(at orb.Point) ([]Feature, error) {
	var out []Feature
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]
		if l.vis != Visible || m.zoom < l.spec.MinZoom {
			continue
		}
		src := m.sources[l.spec.Source]
		for _, f := range src.fc.Features {
			if f.Geometry == nil || !m.hits(l.spec.Type, f.Geometry, at) {
				continue
			}
			id := featureID(src.spec, f)
			ref := FeatureRef{ID: id, Source: src.spec.ID}
			ctx := EvalContext{Properties: f.Properties, State: m.state[ref]}
			if !Passes(l.filter, ctx) {
				continue
			}
			out = append(out, Feature{
				ID:         id,
				Source:     src.spec.ID,
				Layer:      l.spec.ID,
				Properties: maps.Clone(map[string]any(f.Properties)),
				State:      maps.Clone(m.state[ref]),
			})
		}
	}
	return out, nil
}

func (m *Memory) hits(t LayerType, g orb.Geometry, at orb.Point) bool {
	switch t {
	case Fill:
		if !g.Bound().Contains(at) {
			return false
		}
		switch p := g.(type) {
		case orb.Polygon:
			return planar.PolygonContains(p, at)
		case orb.MultiPolygon:
			return planar.MultiPolygonContains(p, at)
		}
		return false
	default:
		if !g.Bound().Pad(m.tolerance).Contains(at) {
			return false
		}
		return planar.DistanceFrom(g, at) <= m.tolerance
	}
}

// featureID returns the promoted id property when configured, else the
// GeoJSON feature id.
func featureID(spec SourceSpec, f *geojson.Feature) any {
	if spec.PromoteID != "" {
		return NormalizeID(f.Properties[spec.PromoteID])
	}
	return NormalizeID(f.ID)
}

// NormalizeID converts a JSON scalar id to float64 or string, and anything
// else to nil.
func NormalizeID(v any) any {
	switch id := v.(type) {
	case string, float64:
		return id
	case int:
		return float64(id)
	case int64:
		return float64(id)
	}
	return nil
}

// MemoryOverlay is an in-process Overlay.
type MemoryOverlay struct {
	LngLat orb.Point
	HTML   string
	Open   bool
}

// SetLngLat implements Overlay.
func (o *MemoryOverlay) SetLngLat(lngLat orb.Point) { o.LngLat = lngLat }

// SetHTML implements Overlay.
func (o *MemoryOverlay) SetHTML(html string) { o.HTML = html }

// Show implements Overlay.
func (o *MemoryOverlay) Show() { o.Open = true }

// Remove implements Overlay.
func (o *MemoryOverlay) Remove() { o.Open = false }
