package popup

import "github.com/joeblew999/plat-isochrone/internal/surface"

// Reconcile compares the previously hovered features with the next set.
// off holds refs only in prev, on holds refs only in next; refs present in
// both appear in neither. Order follows the input slices.
func Reconcile(prev, next []surface.FeatureRef) (off, on []surface.FeatureRef) {
	inPrev := make(map[surface.FeatureRef]bool, len(prev))
	for _, r := range prev {
		inPrev[r] = true
	}
	inNext := make(map[surface.FeatureRef]bool, len(next))
	for _, r := range next {
		inNext[r] = true
	}
	for _, r := range prev {
		if !inNext[r] {
			off = append(off, r)
		}
	}
	for _, r := range next {
		if !inPrev[r] {
			on = append(on, r)
		}
	}
	return off, on
}
