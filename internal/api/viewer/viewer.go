// Package viewer contains the Datastar SSE handlers behind the map page.
//
// A page is bound to a map session through the sid cookie. Layer toggles
// answer with patched panel fragments and a map-command custom event that
// the page script replays on MapLibre. Pointer events are plain JSON since
// the page script, not Datastar, issues them.
package viewer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/humastar"
	"github.com/joeblew999/plat-isochrone/internal/layers"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/session"
	"github.com/joeblew999/plat-isochrone/internal/surface"
	"github.com/joeblew999/plat-isochrone/internal/templates"
)

// CookieName carries the session id.
const CookieName = "sid"

// MapCommandEvent is the DOM event the page script listens for.
const MapCommandEvent = "map-command"

// Fragment selectors patched on the page.
const (
	panelSelector  = "#layer_selection"
	statusSelector = "#status"
	syncSelector   = "#sync"
)

type SessionInput struct {
	SID string `cookie:"sid" doc:"Map session id"`
}

type ToggleInput struct {
	SessionInput
	Key string `path:"key" doc:"Layer key" example:"metro"`
}

type PointerBody struct {
	Lng  float64 `json:"lng,omitempty" minimum:"-180" maximum:"180"`
	Lat  float64 `json:"lat,omitempty" minimum:"-90" maximum:"90"`
	Zoom float64 `json:"zoom,omitempty" minimum:"0" maximum:"24"`
}

type PointerInput struct {
	SessionInput
	Event string      `path:"event" enum:"enter,move,leave"`
	Body  PointerBody `required:"false"`
}

// CommandsBody is the pointer response: the map commands to replay.
type CommandsBody struct {
	Commands []surface.Command `json:"commands"`
	Popup    *popup.Contents   `json:"popup,omitempty"`
}

// MapCommands is the detail of a map-command event.
type MapCommands struct {
	Commands []surface.Command `json:"commands"`
}

// Handler serves the viewer endpoints.
type Handler struct {
	humastar.Handler
	store  *session.Store
	secure bool
}

// NewHandler creates a viewer handler. secure marks the session cookie Secure.
func NewHandler(store *session.Store, renderer *templates.Renderer, secure bool) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		store:   store,
		secure:  secure,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/init", h.Init, huma.OperationTags(humastar.ViewerTag))
	huma.Post(api, "/api/v1/viewer/layers/{key}/toggle", h.Toggle, huma.OperationTags(humastar.ViewerTag))
	huma.Post(api, "/api/v1/viewer/pointer/{event}", h.Pointer, huma.OperationTags(humastar.ViewerTag))
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags(humastar.ViewerTag))
}

// Init binds the page to its session, creating one when the cookie is
// missing or expired, and sends the panel and the commands that build the map.
func (h *Handler) Init(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			var (
				s    *session.Session
				cmds []surface.Command
				err  error
			)
			if s, err = h.store.Get(input.SID); err == nil {
				cmds, err = s.Replay()
			} else if errors.Is(err, session.ErrNotFound) {
				if s, cmds, err = h.store.Create(); err == nil {
					humaCtx.AppendHeader("Set-Cookie", h.cookie(s.ID).String())
				}
			}

			sse := humastar.NewSSE(humaCtx)
			if err != nil {
				sse.Error(err.Error())
				return
			}
			if !h.patchPanel(sse, s.State()) {
				return
			}
			sse.Event(MapCommandEvent, MapCommands{Commands: cmds})
			// The events stream starts only once the cookie names the session.
			if sync, ok := h.Render(sse, "sync", nil); ok {
				sse.Replace(sync, syncSelector)
			}
		},
	}, nil
}

// Toggle flips a layer for the page's session.
func (h *Handler) Toggle(ctx context.Context, input *ToggleInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		s, err := h.store.Get(input.SID)
		if err != nil {
			sse.Error("Map session expired, reload the page")
			return
		}
		res, err := s.Toggle(input.Key)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(map[string]any{"error": ""})
		if !h.patchPanel(sse, res.State) {
			return
		}
		sse.Event(MapCommandEvent, MapCommands{Commands: commands(res.Commands)})
	}), nil
}

// Pointer forwards a pointer event over the merged isochrones to the popup.
func (h *Handler) Pointer(ctx context.Context, input *PointerInput) (*struct{ Body CommandsBody }, error) {
	s, err := h.store.Get(input.SID)
	if err != nil {
		return nil, huma.Error404NotFound("map session expired")
	}
	res, err := s.Pointer(input.Event, session.Pointer{
		LngLat: orb.Point{input.Body.Lng, input.Body.Lat},
		Zoom:   input.Body.Zoom,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("pointer event failed", err)
	}
	return &struct{ Body CommandsBody }{Body: CommandsBody{Commands: commands(res.Commands), Popup: res.Popup}}, nil
}

// Events keeps other pages of the same session in step with its toggles.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		bus := h.store.Bus()
		if bus == nil || input.SID == "" {
			return
		}
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Session != input.SID || ev.Kind != session.EventLayers {
					continue
				}
				s, err := h.store.Get(ev.Session)
				if err != nil {
					return
				}
				if !h.patchPanel(sse, s.State()) {
					return
				}
				sse.Event(MapCommandEvent, MapCommands{Commands: s.Sync()})
			}
		}
	}), nil
}

func (h *Handler) patchPanel(sse humastar.SSE, st layers.State) bool {
	panel, ok := h.Render(sse, "layer-panel", st)
	if !ok {
		return false
	}
	status, ok := h.Render(sse, "status", st)
	if !ok {
		return false
	}
	sse.Replace(panel, panelSelector)
	sse.Replace(status, statusSelector)
	return true
}

func (h *Handler) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	}
}

func commands(cmds []surface.Command) []surface.Command {
	if cmds == nil {
		return []surface.Command{}
	}
	return cmds
}
