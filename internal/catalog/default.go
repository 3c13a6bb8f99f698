package catalog

// Hebrew line names as they appear in the LRT source data.
const (
	lrtRed    = "אדום"
	lrtGreen  = "ירוק"
	lrtPurple = "סגול"
	lrtBrown  = "חום"
)

// Default returns the Tel Aviv metropolitan network configuration.
func Default() *Catalog {
	lrtColors := func(property string) *ColorRule {
		return &ColorRule{
			Property: property,
			Colors: []ColorEntry{
				{Value: lrtRed, Color: "#d63229"},
				{Value: lrtGreen, Color: "#35a56a"},
				{Value: lrtPurple, Color: "#9f307d"},
				{Value: lrtBrown, Color: "#ae6322"},
			},
		}
	}

	return &Catalog{
		Layers: []Layer{
			{
				Key:    "metro",
				NameEN: "Metro",
				NameHE: "מטרו",
				Sources: []Source{
					{URL: "data/tlv_metro_isochrones_unmerged.geojson", Kind: KindUnmergedIsochrones},
					{URL: "data/tlv_metro_lines.geojson", Kind: KindLines, Colors: &ColorRule{
						Property: "NAME",
						Colors: []ColorEntry{
							{Value: "M1", Color: "#c48d55"},
							{Value: "M2", Color: "#14a6f1"},
							{Value: "M3", Color: "#fea2bb"},
						},
					}},
					{URL: "data/tlv_metro_stations.geojson", Kind: KindStations, Colors: &ColorRule{
						Property: "LINE",
						Colors: []ColorEntry{
							{Value: "M1-south", Color: "#c48d55"},
							{Value: "M1-north", Color: "#c48d55"},
							{Value: "M2", Color: "#14a6f1"},
							{Value: "M3", Color: "#fea2bb"},
						},
					}},
				},
			},
			{
				Key:    "lrt",
				NameEN: "LRT",
				NameHE: `רק"ל`,
				Sources: []Source{
					{URL: "data/tlv_lrt_isochrones_unmerged.geojson", Kind: KindUnmergedIsochrones},
					{URL: "data/tlv_lrt_lines.geojson", Kind: KindLines, Colors: lrtColors("NAME")},
					{URL: "data/tlv_lrt_stations.geojson", Kind: KindStations, Colors: lrtColors("LINE")},
				},
			},
		},
		Merged: []MergedIsochrone{
			{Key: "lrt", URL: "data/tlv_lrt_isochrones_merged.geojson"},
			{Key: "metro", URL: "data/tlv_metro_isochrones_merged.geojson"},
			{Key: "lrt_metro", URL: "data/tlv_metro_lrt_isochrones_merged.geojson"},
			{Key: "brown", URL: "data/tlv_brown_isochrones_merged.geojson"},
			{Key: "brown_lrt", URL: "data/tlv_lrt_brown_isochrones_merged.geojson"},
			{Key: "brown_lrt_metro", URL: "data/tlv_metro_lrt_brown_isochrones_merged.geojson"},
			{Key: "brown_metro", URL: "data/tlv_brown_metro_isochrones_merged.geojson"},
		},
		Brown: BrownLine{
			Key:             "brown",
			Host:            "lrt",
			Value:           lrtBrown,
			LineProperty:    "NAME",
			StationProperty: "LINE",
			NameEN:          "Brown line (BRT)",
			NameHE:          "הקו החום",
		},
		DefaultEnabled: []string{"lrt"},
		Stations: StationFields{
			ID:   "OBJECTID",
			Line: "LINE",
			Name: "NAME",
			Time: "time",
		},
		MinutesLabel: "דקות",
		View: View{
			Center: []float64{34.775113, 32.075341},
			Zoom:   11,
			Style:  "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json",
		},
	}
}
