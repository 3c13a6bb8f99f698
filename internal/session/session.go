// Package session holds one map per browser: a server-side surface, the
// layer manager and the popup bound to it. Every event on a session runs to
// completion under its lock, and the map commands it produced are returned to
// the caller for delivery to the page.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/layers"
	"github.com/joeblew999/plat-isochrone/internal/metrics"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// Pointer events accepted by Session.Pointer.
const (
	PointerEnter = "enter"
	PointerMove  = "move"
	PointerLeave = "leave"
)

// ErrUnknownEvent is returned for pointer events other than enter, move and leave.
var ErrUnknownEvent = errors.New("unknown pointer event")

// Session is one browser's map.
type Session struct {
	ID string

	mu       sync.Mutex
	mem      *surface.Memory
	rec      *surface.Recorder
	layers   *layers.Manager
	popup    *popup.Popup
	metrics  *metrics.Collector
	bus      *EventBus
	logger   *slog.Logger
	lastSeen time.Time
}

// Result is what one event produced.
type Result struct {
	State    layers.State      `json:"state"`
	Popup    *popup.Contents   `json:"popup,omitempty"`
	Commands []surface.Command `json:"commands"`
}

// Pointer is a pointer position reported by the page.
type Pointer struct {
	LngLat orb.Point
	Zoom   float64
}

// State returns the current layer state.
func (s *Session) State() layers.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.layers.State()
}

// Toggle flips a layer and returns the resulting commands.
func (s *Session) Toggle(key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	if err := s.layers.Toggle(key); err != nil {
		s.rec.Drain()
		return Result{}, err
	}
	enabled := s.layers.IsEnabled(key)
	s.metrics.ObserveToggle(key, enabled)
	s.logger.Info("layer toggled", "key", key, "enabled", enabled)

	res := Result{State: s.layers.State(), Commands: s.rec.Drain()}
	s.bus.Publish(Event{Session: s.ID, Kind: EventLayers, Key: key})
	return res, nil
}

// Pointer handles a pointer event over the merged isochrones.
func (s *Session) Pointer(event string, p Pointer) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	if p.Zoom > 0 {
		s.mem.SetZoom(p.Zoom)
	}

	var err error
	switch event {
	case PointerEnter:
		err = s.popup.Show(p.LngLat)
	case PointerMove:
		err = s.popup.Move(p.LngLat)
	case PointerLeave:
		err = s.popup.Hide()
	default:
		return Result{}, fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}
	if err != nil {
		s.rec.Drain()
		return Result{}, err
	}

	res := Result{State: s.layers.State(), Commands: s.rec.Drain()}
	stations := -1
	if s.popup.Shown() {
		c := s.popup.Contents()
		res.Popup = &c
		stations = len(c.Hover())
	}
	s.metrics.ObservePointer(event, stations)
	return res, nil
}

// Replay returns the commands that rebuild the current map on a fresh page.
// An open popup is closed first since the new page has none.
func (s *Session) Replay() ([]surface.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	if err := s.popup.Hide(); err != nil {
		return nil, err
	}
	s.rec.Drain()
	return replay(s.mem), nil
}

// Sync returns visibility and filter commands for every layer. Pages that
// already registered the layers apply them to catch up with toggles made
// elsewhere.
func (s *Session) Sync() []surface.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cmds []surface.Command
	for _, id := range s.mem.LayerIDs() {
		vis, _ := s.mem.Visibility(id)
		cmds = append(cmds, surface.Command{
			Op:   surface.OpSetLayout,
			Args: map[string]any{"layer": id, "name": "visibility", "value": string(vis)},
		})
		var filter any
		if f, _ := s.mem.Filter(id); f != nil {
			filter = f
		}
		cmds = append(cmds, surface.Command{
			Op:   surface.OpSetFilter,
			Args: map[string]any{"layer": id, "filter": filter},
		})
	}
	return cmds
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// replay rebuilds registration commands from the surface's current state.
func replay(mem *surface.Memory) []surface.Command {
	var cmds []surface.Command
	seen := map[string]bool{}
	for _, id := range mem.LayerIDs() {
		spec, _ := mem.Layer(id)
		spec.Visibility, _ = mem.Visibility(id)
		spec.Filter, _ = mem.Filter(id)
		if !seen[spec.Source] {
			seen[spec.Source] = true
			src, _ := mem.Source(spec.Source)
			cmds = append(cmds, surface.Command{
				Op:   surface.OpAddSource,
				Args: map[string]any{"id": src.ID, "source": src.MapLibre()},
			})
		}
		cmds = append(cmds, surface.Command{
			Op:   surface.OpAddLayer,
			Args: map[string]any{"layer": spec.MapLibre()},
		})
	}
	return cmds
}

func newSession(id string, cat *catalog.Catalog, loader surface.Loader, render popup.Renderer, m *metrics.Collector, bus *EventBus, logger *slog.Logger) (*Session, []surface.Command, error) {
	mem := surface.NewMemory(loader, surface.WithZoom(cat.View.Zoom))
	rec := surface.NewRecorder(mem, &surface.MemoryOverlay{})
	lm := layers.NewManager(cat, rec, logger)
	if err := lm.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initializing layers: %w", err)
	}
	s := &Session{
		ID:       id,
		mem:      mem,
		rec:      rec,
		layers:   lm,
		popup:    popup.New(cat, rec, rec.Overlay(), render, logger),
		metrics:  m,
		bus:      bus,
		logger:   logger,
		lastSeen: time.Now(),
	}
	return s, rec.Drain(), nil
}
