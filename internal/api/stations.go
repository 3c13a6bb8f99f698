package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-isochrone/internal/db"
	"github.com/joeblew999/plat-isochrone/internal/humastar"
)

type StationsInput struct {
	Q      string `query:"q" doc:"Case-insensitive substring of the station name or line"`
	Layer  string `query:"layer" doc:"Restrict to one layer key" example:"metro"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
	Offset int    `query:"offset" minimum:"0" doc:"Rows to skip"`
}

type StationsOutput struct {
	Body humastar.PageBody[db.Station]
}

// RegisterStations registers station search.
func (h *APIHandler) RegisterStations(api huma.API) {
	huma.Get(api, "/api/v1/stations", h.SearchStations, huma.OperationTags("stations"))
}

func (h *APIHandler) SearchStations(ctx context.Context, input *StationsInput) (*StationsOutput, error) {
	if h.svc.Stations == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if input.Layer != "" && !h.svc.Catalog.Known(input.Layer) {
		return nil, huma.Error404NotFound("unknown layer " + strconv.Quote(input.Layer))
	}

	q := db.StationQuery{Text: input.Q, Layer: input.Layer, Limit: input.Limit, Offset: input.Offset}
	total, err := h.svc.Stations.Count(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to count stations", err)
	}
	stations, err := h.svc.Stations.Search(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to search stations", err)
	}

	filters := url.Values{}
	if input.Q != "" {
		filters.Set("q", input.Q)
	}
	if input.Layer != "" {
		filters.Set("layer", input.Layer)
	}
	return &StationsOutput{Body: humastar.PageBody[db.Station]{
		Total:  total,
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   stations,
		Query:  filters,
	}}, nil
}
