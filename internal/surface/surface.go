// Package surface defines the rendering surface the map logic drives: source
// and layer registration, visibility and filter mutation, hit-testing,
// per-feature state and a popup overlay.
//
// Memory implements the surface in process on top of paulmach/orb so the
// layer and popup logic can run server-side; Recorder captures every mutation
// as a Command that the browser replays on MapLibre.
package surface

import (
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrUnknownLayer  = errors.New("unknown layer")
	ErrUnknownSource = errors.New("unknown source")
	ErrDuplicateID   = errors.New("duplicate id")
)

// Visibility is the layout visibility of a layer.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "none"
)

// VisibleIf maps a boolean to a Visibility.
func VisibleIf(b bool) Visibility {
	if b {
		return Visible
	}
	return Hidden
}

// LayerType is the MapLibre layer type.
type LayerType string

const (
	Fill   LayerType = "fill"
	Line   LayerType = "line"
	Circle LayerType = "circle"
)

// SourceSpec registers a GeoJSON source from a file reference.
type SourceSpec struct {
	ID   string
	Data string
	// PromoteID names the property used as the stable feature id.
	PromoteID string
}

// LayerSpec registers a renderable layer bound to a source.
type LayerSpec struct {
	ID         string
	Type       LayerType
	Source     string
	MinZoom    float64
	Visibility Visibility
	Paint      map[string]any
	Filter     Expression
}

// FeatureRef identifies a feature for per-feature state. ID holds a JSON
// scalar (float64 or string) so refs stay comparable.
type FeatureRef struct {
	ID     any    `json:"id"`
	Source string `json:"source"`
}

// State is ephemeral per-feature state consumed by paint expressions.
type State map[string]any

// Feature is a hit-test result.
type Feature struct {
	ID         any
	Source     string
	Layer      string
	Properties map[string]any
	State      State
}

// Ref returns the feature's state identity.
func (f Feature) Ref() FeatureRef {
	return FeatureRef{ID: f.ID, Source: f.Source}
}

// Surface is the map rendering capability set.
type Surface interface {
	AddSource(spec SourceSpec) error
	AddLayer(spec LayerSpec) error
	SetVisibility(layerID string, v Visibility) error
	// SetFilter replaces a layer's filter; a nil filter lets every feature pass.
	SetFilter(layerID string, filter Expression) error
	// QueryRenderedFeatures returns the features drawn at a point, topmost
	// layer first.
	QueryRenderedFeatures(at orb.Point) ([]Feature, error)
	SetFeatureState(ref FeatureRef, state State) error
	SetCursor(cursor string)
}

// Overlay is a single popup anchored at a geographic position.
type Overlay interface {
	SetLngLat(lngLat orb.Point)
	SetHTML(html string)
	Show()
	Remove()
}
