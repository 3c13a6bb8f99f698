// Package layers decides which map layers are drawn. It owns the set of
// enabled logical layers and derives from it the visibility of every
// registered layer, the brown line filter on the host layer, and the single
// merged isochrone polygon matching the current combination.
package layers

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// ErrUnknownLayer is returned for keys that are neither a catalog layer nor
// the brown line.
var ErrUnknownLayer = errors.New("unknown layer key")

// Manager tracks enabled layers and keeps a surface in sync with them.
// It is not safe for concurrent use.
type Manager struct {
	cat     *catalog.Catalog
	surface surface.Surface
	logger  *slog.Logger
	enabled map[string]bool
}

// NewManager creates a manager with the catalog's default layers enabled.
func NewManager(cat *catalog.Catalog, s surface.Surface, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cat:     cat,
		surface: s,
		logger:  logger,
		enabled: make(map[string]bool),
	}
	for _, k := range cat.DefaultEnabled {
		m.enabled[k] = true
	}
	return m
}

// Initialize registers every merged isochrone and every layer source with the
// surface, with visibility and filters reflecting the current enabled set.
func (m *Manager) Initialize() error {
	current := m.CanonicalKey()
	for _, e := range m.cat.Merged {
		id := catalog.MergedLayerID(e.Key)
		if err := m.surface.AddSource(surface.SourceSpec{ID: id, Data: e.URL}); err != nil {
			return fmt.Errorf("adding merged source: %w", err)
		}
		if err := m.surface.AddLayer(surface.LayerSpec{
			ID:         id,
			Type:       surface.Fill,
			Source:     id,
			Visibility: surface.VisibleIf(e.Key == current),
			Paint:      MergedPaint(),
		}); err != nil {
			return fmt.Errorf("adding merged layer: %w", err)
		}
	}

	for _, l := range m.cat.Layers {
		for _, s := range l.Sources {
			id := catalog.SourceID(l.Key, s.Kind)
			src := surface.SourceSpec{ID: id, Data: s.URL}
			if s.Kind == catalog.KindStations {
				src.PromoteID = m.cat.Stations.ID
			}
			if err := m.surface.AddSource(src); err != nil {
				return fmt.Errorf("adding source: %w", err)
			}
			spec := surface.LayerSpec{
				ID:         id,
				Type:       LayerType(s.Kind),
				Source:     id,
				MinZoom:    MinZoom(s.Kind),
				Visibility: m.LayerVisibility(l.Key),
				Paint:      Paint(s),
			}
			if m.isHost(l.Key) {
				spec.Filter = m.BrownFilter(s.Kind)
			}
			if err := m.surface.AddLayer(spec); err != nil {
				return fmt.Errorf("adding layer: %w", err)
			}
		}
	}

	m.logger.Debug("layers initialized", "enabled", m.Enabled(), "merged", current)
	return nil
}

// Toggle flips membership of key and re-applies visibility and filters.
func (m *Manager) Toggle(key string) error {
	if !m.cat.Known(key) {
		return fmt.Errorf("%q: %w", key, ErrUnknownLayer)
	}
	if m.enabled[key] {
		delete(m.enabled, key)
	} else {
		m.enabled[key] = true
	}
	m.logger.Debug("layer toggled", "key", key, "enabled", m.enabled[key], "combination", m.CanonicalKey())
	return m.apply()
}

// Enable adds key to the enabled set. Enabling an enabled key is a no-op.
func (m *Manager) Enable(key string) error {
	if !m.cat.Known(key) {
		return fmt.Errorf("%q: %w", key, ErrUnknownLayer)
	}
	if m.enabled[key] {
		return nil
	}
	m.enabled[key] = true
	return m.apply()
}

// Disable removes key from the enabled set. Disabling a disabled key is a no-op.
func (m *Manager) Disable(key string) error {
	if !m.cat.Known(key) {
		return fmt.Errorf("%q: %w", key, ErrUnknownLayer)
	}
	if !m.enabled[key] {
		return nil
	}
	delete(m.enabled, key)
	return m.apply()
}

// IsEnabled reports whether key is in the enabled set.
func (m *Manager) IsEnabled(key string) bool {
	return m.enabled[key]
}

// Enabled returns the enabled keys, sorted.
func (m *Manager) Enabled() []string {
	return slices.Sorted(maps.Keys(m.enabled))
}

// CanonicalKey is the enabled set sorted and joined with "_".
func (m *Manager) CanonicalKey() string {
	return catalog.CanonicalKey(m.Enabled())
}

// LayerVisibility is the visibility of a logical layer's sources. The brown
// line host stays visible while the brown line is enabled.
func (m *Manager) LayerVisibility(key string) surface.Visibility {
	if m.enabled[key] {
		return surface.Visible
	}
	if m.isHost(key) && m.enabled[m.cat.Brown.Key] {
		return surface.Visible
	}
	return surface.Hidden
}

// BrownFilter returns the host layer filter for a source kind: nil when both
// the host and the brown line are on, only brown features when the brown line
// alone is on, and everything but brown features otherwise.
func (m *Manager) BrownFilter(k catalog.Kind) surface.Expression {
	b := m.cat.Brown
	brown, host := m.enabled[b.Key], m.enabled[b.Host]
	if brown && host {
		return nil
	}
	property := b.StationProperty
	if k == catalog.KindLines {
		property = b.LineProperty
	}
	if brown {
		return surface.Eq(surface.Get(property), b.Value)
	}
	return surface.Ne(surface.Get(property), b.Value)
}

// MergedLayerIDs lists the merged isochrone layer ids in catalog order.
func (m *Manager) MergedLayerIDs() []string {
	ids := make([]string, len(m.cat.Merged))
	for i, e := range m.cat.Merged {
		ids[i] = catalog.MergedLayerID(e.Key)
	}
	return ids
}

// VisibleMerged returns the merged entry key that matches the enabled set.
// There is none when the combination has no precomputed polygon.
func (m *Manager) VisibleMerged() (string, bool) {
	key := m.CanonicalKey()
	for _, e := range m.cat.Merged {
		if e.Key == key {
			return key, true
		}
	}
	return "", false
}

func (m *Manager) isHost(key string) bool {
	return m.cat.Brown.Key != "" && key == m.cat.Brown.Host
}

func (m *Manager) apply() error {
	for _, l := range m.cat.Layers {
		vis := m.LayerVisibility(l.Key)
		for _, s := range l.Sources {
			id := catalog.SourceID(l.Key, s.Kind)
			if err := m.surface.SetVisibility(id, vis); err != nil {
				return fmt.Errorf("applying visibility: %w", err)
			}
			if m.isHost(l.Key) {
				if err := m.surface.SetFilter(id, m.BrownFilter(s.Kind)); err != nil {
					return fmt.Errorf("applying brown line filter: %w", err)
				}
			}
		}
	}

	current := m.CanonicalKey()
	for _, e := range m.cat.Merged {
		if err := m.surface.SetVisibility(catalog.MergedLayerID(e.Key), surface.VisibleIf(e.Key == current)); err != nil {
			return fmt.Errorf("applying merged visibility: %w", err)
		}
	}
	return nil
}
