package catalog

// SourceRef identifies which logical layer and kind a surface source belongs to.
type SourceRef struct {
	Layer string
	Kind  Kind
}

// Index maps surface source ids back to logical layers. It is built once from
// the catalog so that callers never derive a layer key by splitting an id.
type Index struct {
	sources  map[string]SourceRef
	stations map[string]string
	colors   map[string]*ColorRule
	merged   map[string]string
}

func newIndex(c *Catalog) *Index {
	idx := &Index{
		sources:  map[string]SourceRef{},
		stations: map[string]string{},
		colors:   map[string]*ColorRule{},
		merged:   map[string]string{},
	}
	for _, l := range c.Layers {
		for _, s := range l.Sources {
			id := SourceID(l.Key, s.Kind)
			idx.sources[id] = SourceRef{Layer: l.Key, Kind: s.Kind}
			if s.Kind == KindStations {
				idx.stations[l.Key] = id
				idx.colors[l.Key] = s.Colors
			}
		}
	}
	for _, m := range c.Merged {
		idx.merged[MergedLayerID(m.Key)] = m.Key
	}
	return idx
}

// Source resolves a surface source id.
func (x *Index) Source(id string) (SourceRef, bool) {
	ref, ok := x.sources[id]
	return ref, ok
}

// StationSource returns the station source id of a logical layer.
func (x *Index) StationSource(layerKey string) (string, bool) {
	id, ok := x.stations[layerKey]
	return id, ok
}

// StationColors returns the station color rule of a logical layer, or nil.
func (x *Index) StationColors(layerKey string) *ColorRule {
	return x.colors[layerKey]
}

// MergedKey resolves a merged isochrone layer id to its combination key.
func (x *Index) MergedKey(layerID string) (string, bool) {
	k, ok := x.merged[layerID]
	return k, ok
}
