package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
)

type InfoHandler struct {
	dataDir  string
	dbOK     bool
	stations int
	cat      *catalog.Catalog
}

func NewInfoHandler(dataDir string, dbOK bool, stations int, cat *catalog.Catalog) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, stations: stations, cat: cat}
}

func (h *InfoHandler) RegisterInfo(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Stations int      `json:"stations" doc:"Stations in the search index"`
	Layers   []string `json:"layers" doc:"Toggleable layer keys"`
	Merged   int      `json:"merged" doc:"Merged isochrone combinations"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"isochrones", "popup", "sse"}
	if h.dbOK {
		features = append(features, "duckdb", "station-search")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-isochrone",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Stations: h.stations,
		Layers:   h.cat.Keys(),
		Merged:   len(h.cat.Merged),
		Features: features,
	}}, nil
}
