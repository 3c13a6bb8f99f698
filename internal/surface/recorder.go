package surface

import (
	"sync"

	"github.com/paulmach/orb"
)

// Command ops understood by the browser replay script.
const (
	OpAddSource       = "addSource"
	OpAddLayer        = "addLayer"
	OpSetLayout       = "setLayoutProperty"
	OpSetFilter       = "setFilter"
	OpSetFeatureState = "setFeatureState"
	OpSetCursor       = "setCursor"
	OpPopupLngLat     = "popup.setLngLat"
	OpPopupHTML       = "popup.setHTML"
	OpPopupShow       = "popup.show"
	OpPopupRemove     = "popup.remove"
)

// Command is one recorded surface mutation.
type Command struct {
	Op   string         `json:"op" doc:"Map operation" example:"setLayoutProperty"`
	Args map[string]any `json:"args,omitempty" doc:"Operation arguments"`
}

// MapLibre returns the source definition as MapLibre expects it.
func (s SourceSpec) MapLibre() map[string]any {
	src := map[string]any{
		"type": "geojson",
		"data": s.Data,
	}
	if s.PromoteID != "" {
		src["promoteId"] = s.PromoteID
	}
	return src
}

// MapLibre returns the layer definition as MapLibre expects it.
func (l LayerSpec) MapLibre() map[string]any {
	vis := l.Visibility
	if vis == "" {
		vis = Visible
	}
	layer := map[string]any{
		"id":     l.ID,
		"type":   string(l.Type),
		"source": l.Source,
		"layout": map[string]any{"visibility": string(vis)},
		"paint":  l.Paint,
	}
	if l.MinZoom > 0 {
		layer["minzoom"] = l.MinZoom
	}
	if l.Filter != nil {
		layer["filter"] = l.Filter
	}
	return layer
}

// Recorder forwards calls to an inner Surface and Overlay and records each
// successful mutation. Queries are forwarded without being recorded.
type Recorder struct {
	inner   Surface
	overlay Overlay

	mu       sync.Mutex
	commands []Command
}

// NewRecorder wraps s and o. o may be nil when no popup is driven.
func NewRecorder(s Surface, o Overlay) *Recorder {
	return &Recorder{inner: s, overlay: o}
}

// Overlay returns the recording overlay bound to this recorder.
func (r *Recorder) Overlay() Overlay {
	return recordingOverlay{r}
}

// Drain returns and clears the recorded commands.
func (r *Recorder) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.commands
	r.commands = nil
	return out
}

// Pending reports how many commands are waiting to be drained.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func (r *Recorder) record(op string, args map[string]any) {
	r.mu.Lock()
	r.commands = append(r.commands, Command{Op: op, Args: args})
	r.mu.Unlock()
}

// AddSource implements Surface.
func (r *Recorder) AddSource(spec SourceSpec) error {
	if err := r.inner.AddSource(spec); err != nil {
		return err
	}
	r.record(OpAddSource, map[string]any{"id": spec.ID, "source": spec.MapLibre()})
	return nil
}

// AddLayer implements Surface.
func (r *Recorder) AddLayer(spec LayerSpec) error {
	if err := r.inner.AddLayer(spec); err != nil {
		return err
	}
	r.record(OpAddLayer, map[string]any{"layer": spec.MapLibre()})
	return nil
}

// SetVisibility implements Surface.
func (r *Recorder) SetVisibility(layerID string, v Visibility) error {
	if err := r.inner.SetVisibility(layerID, v); err != nil {
		return err
	}
	r.record(OpSetLayout, map[string]any{"layer": layerID, "name": "visibility", "value": string(v)})
	return nil
}

// SetFilter implements Surface.
func (r *Recorder) SetFilter(layerID string, filter Expression) error {
	if err := r.inner.SetFilter(layerID, filter); err != nil {
		return err
	}
	var f any
	if filter != nil {
		f = filter
	}
	r.record(OpSetFilter, map[string]any{"layer": layerID, "filter": f})
	return nil
}

// QueryRenderedFeatures implements Surface.
func (r *Recorder) QueryRenderedFeatures(at orb.Point) ([]Feature, error) {
	return r.inner.QueryRenderedFeatures(at)
}

// SetFeatureState implements Surface.
func (r *Recorder) SetFeatureState(ref FeatureRef, state State) error {
	if err := r.inner.SetFeatureState(ref, state); err != nil {
		return err
	}
	r.record(OpSetFeatureState, map[string]any{"feature": ref, "state": state})
	return nil
}

// SetCursor implements Surface.
func (r *Recorder) SetCursor(cursor string) {
	r.inner.SetCursor(cursor)
	r.record(OpSetCursor, map[string]any{"cursor": cursor})
}

type recordingOverlay struct{ r *Recorder }

func (o recordingOverlay) SetLngLat(lngLat orb.Point) {
	if o.r.overlay != nil {
		o.r.overlay.SetLngLat(lngLat)
	}
	o.r.record(OpPopupLngLat, map[string]any{"lngLat": []float64{lngLat.Lon(), lngLat.Lat()}})
}

func (o recordingOverlay) SetHTML(html string) {
	if o.r.overlay != nil {
		o.r.overlay.SetHTML(html)
	}
	o.r.record(OpPopupHTML, map[string]any{"html": html})
}

func (o recordingOverlay) Show() {
	if o.r.overlay != nil {
		o.r.overlay.Show()
	}
	o.r.record(OpPopupShow, nil)
}

func (o recordingOverlay) Remove() {
	if o.r.overlay != nil {
		o.r.overlay.Remove()
	}
	o.r.record(OpPopupRemove, nil)
}
