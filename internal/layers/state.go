package layers

import "github.com/joeblew999/plat-isochrone/internal/surface"

// LayerState describes one toggleable key.
type LayerState struct {
	Key     string `json:"key" doc:"Layer key" example:"metro"`
	NameEN  string `json:"nameEn" doc:"English display name"`
	NameHE  string `json:"nameHe" doc:"Hebrew display name"`
	Enabled bool   `json:"enabled" doc:"Whether the user enabled the layer"`
	Visible bool   `json:"visible" doc:"Whether the layer's features are drawn"`
}

// State is a snapshot of the manager.
type State struct {
	Enabled      []string     `json:"enabled" doc:"Enabled layer keys, sorted"`
	CanonicalKey string       `json:"canonicalKey" doc:"Sorted enabled keys joined with _" example:"lrt_metro"`
	Merged       string       `json:"merged,omitempty" doc:"Visible merged isochrone key, empty when none matches"`
	Layers       []LayerState `json:"layers" doc:"Per-key state in catalog order"`
}

// State returns a snapshot of the enabled set and derived visibility.
func (m *Manager) State() State {
	st := State{
		Enabled:      m.Enabled(),
		CanonicalKey: m.CanonicalKey(),
	}
	if k, ok := m.VisibleMerged(); ok {
		st.Merged = k
	}
	for _, key := range m.cat.Keys() {
		en, he := m.cat.DisplayName(key)
		visible := m.enabled[key]
		if _, ok := m.cat.Layer(key); ok {
			visible = m.LayerVisibility(key) == surface.Visible
		}
		st.Layers = append(st.Layers, LayerState{
			Key:     key,
			NameEN:  en,
			NameHE:  he,
			Enabled: m.enabled[key],
			Visible: visible,
		})
	}
	return st
}
