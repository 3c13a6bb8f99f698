package layers

import (
	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// Style constants shared with the page.
const (
	MergedFillOpacity = 0.4
	LineWidth         = 2
	LineOpacity       = 0.9
	HoverStrokeWidth  = 3
	StationMinZoom    = 12
)

// LayerType maps a source kind to the layer type that draws it.
func LayerType(k catalog.Kind) surface.LayerType {
	switch k {
	case catalog.KindLines:
		return surface.Line
	case catalog.KindStations:
		return surface.Circle
	}
	return surface.Fill
}

// MinZoom is the zoom below which a source kind is not drawn.
func MinZoom(k catalog.Kind) float64 {
	if k == catalog.KindStations {
		return StationMinZoom
	}
	return 0
}

// ColorExpression builds ["match", ["string", ["get", prop]], v1, c1, ..., "black"].
func ColorExpression(r *catalog.ColorRule) surface.Expression {
	arms := make([]surface.MatchArm, len(r.Colors))
	for i, e := range r.Colors {
		arms[i] = surface.MatchArm{Label: e.Value, Output: e.Color}
	}
	return surface.Match(surface.AsString(surface.Get(r.Property)), arms, catalog.FallbackColor)
}

// Paint derives the paint properties of a source.
func Paint(s catalog.Source) map[string]any {
	paint := map[string]any{}
	if s.Colors != nil {
		paint[colorProperty(s.Kind)] = ColorExpression(s.Colors)
	}
	switch s.Kind {
	case catalog.KindUnmergedIsochrones:
		paint["fill-opacity"] = 0
	case catalog.KindLines:
		paint["line-width"] = LineWidth
		paint["line-opacity"] = LineOpacity
	case catalog.KindStations:
		paint["circle-stroke-width"] = surface.Case(
			surface.AsBoolean(surface.FeatureStateOf("hover"), false),
			HoverStrokeWidth,
			0,
		)
	}
	return paint
}

// MergedPaint is the paint of every merged isochrone layer; the polygon
// features carry their own color.
func MergedPaint() map[string]any {
	return map[string]any{
		"fill-color":   surface.Get("color"),
		"fill-opacity": MergedFillOpacity,
	}
}

func colorProperty(k catalog.Kind) string {
	switch k {
	case catalog.KindLines:
		return "line-color"
	case catalog.KindStations:
		return "circle-color"
	}
	return "fill-color"
}
