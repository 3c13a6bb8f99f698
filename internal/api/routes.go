// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/db"
	"github.com/joeblew999/plat-isochrone/internal/layers"
	"github.com/joeblew999/plat-isochrone/internal/session"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the dependencies for API handlers. Stations may be nil when
// the database is unavailable.
type Services struct {
	Catalog  *catalog.Catalog
	Sessions *session.Store
	Stations *db.StationIndex
}

// Types

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"0.1.0"`
	Sessions int    `json:"sessions" doc:"Live map sessions"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers the read-only layer catalog.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/catalog", h.GetCatalog, huma.OperationTags("catalog"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: Version}
	if h.svc.Sessions != nil {
		body.Sessions = h.svc.Sessions.Len()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetCatalog(ctx context.Context, input *struct{}) (*struct{ Body *catalog.Catalog }, error) {
	return &struct{ Body *catalog.Catalog }{Body: h.svc.Catalog}, nil
}

// httpError maps domain errors onto Huma status errors.
func httpError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, layers.ErrUnknownLayer):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, session.ErrUnknownEvent):
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError("map session failed", err)
}
