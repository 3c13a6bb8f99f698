package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/humastar"
	"github.com/joeblew999/plat-isochrone/internal/layers"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/session"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

var (
	toggleAction = humastar.ActionDef{
		Rel:     "toggle",
		Pattern: "/api/v1/sessions/%s/layers/%s/toggle",
		Method:  http.MethodPost,
	}
	pointerActions = []humastar.ActionDef{
		{Rel: "pointer-enter", Pattern: "/api/v1/sessions/%s/pointer/" + session.PointerEnter, Method: http.MethodPost, Title: "Pointer entered a merged isochrone"},
		{Rel: "pointer-move", Pattern: "/api/v1/sessions/%s/pointer/" + session.PointerMove, Method: http.MethodPost, Title: "Pointer moved"},
		{Rel: "pointer-leave", Pattern: "/api/v1/sessions/%s/pointer/" + session.PointerLeave, Method: http.MethodPost, Title: "Pointer left"},
	}
)

// SessionBody is a session's layer state together with the map commands the
// last request produced.
type SessionBody struct {
	ID       string            `json:"id" doc:"Session id"`
	State    layers.State      `json:"state"`
	Popup    *popup.Contents   `json:"popup,omitempty" doc:"Popup contents while it is shown"`
	Commands []surface.Command `json:"commands" doc:"Map operations to apply, in order"`
}

// Actions links a toggle per layer and the pointer endpoints.
func (b SessionBody) Actions() []humastar.Action {
	var actions []humastar.Action
	for _, l := range b.State.Layers {
		a := toggleAction.Action(b.ID, l.Key)
		if l.Enabled {
			a.Title = "Disable " + l.NameEN
		} else {
			a.Title = "Enable " + l.NameEN
		}
		actions = append(actions, a)
	}
	return append(actions, humastar.ActionsFor(pointerActions, b.ID)...)
}

type SessionOutput struct {
	Body SessionBody
}

type SessionIDInput struct {
	ID string `path:"id" doc:"Session id"`
}

type ToggleInput struct {
	SessionIDInput
	Key string `path:"key" doc:"Layer key" example:"metro"`
}

type PointerBody struct {
	Lng  float64 `json:"lng" minimum:"-180" maximum:"180" doc:"Pointer longitude"`
	Lat  float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Pointer latitude"`
	Zoom float64 `json:"zoom,omitempty" minimum:"0" maximum:"24" doc:"Current map zoom; zero keeps the last one"`
}

type PointerInput struct {
	SessionIDInput
	Event string      `path:"event" enum:"enter,move,leave" doc:"Pointer event"`
	Body  PointerBody `required:"false"`
}

// RegisterSessions registers map session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create a map session",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateSession)
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/layers/{key}/toggle", h.ToggleLayer, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/pointer/{event}", h.PointerEvent, huma.OperationTags("sessions"))
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	s, cmds, err := h.svc.Sessions.Create()
	if err != nil {
		return nil, httpError(err)
	}
	return &SessionOutput{Body: SessionBody{ID: s.ID, State: s.State(), Commands: cmds}}, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &SessionOutput{Body: SessionBody{ID: s.ID, State: s.State(), Commands: []surface.Command{}}}, nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionIDInput) (*struct{}, error) {
	if _, err := h.svc.Sessions.Get(input.ID); err != nil {
		return nil, httpError(err)
	}
	h.svc.Sessions.Delete(input.ID)
	return nil, nil
}

func (h *APIHandler) ToggleLayer(ctx context.Context, input *ToggleInput) (*SessionOutput, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	res, err := s.Toggle(input.Key)
	if err != nil {
		return nil, httpError(err)
	}
	return &SessionOutput{Body: sessionBody(s.ID, res)}, nil
}

func (h *APIHandler) PointerEvent(ctx context.Context, input *PointerInput) (*SessionOutput, error) {
	s, err := h.svc.Sessions.Get(input.ID)
	if err != nil {
		return nil, httpError(err)
	}
	res, err := s.Pointer(input.Event, session.Pointer{
		LngLat: orb.Point{input.Body.Lng, input.Body.Lat},
		Zoom:   input.Body.Zoom,
	})
	if err != nil {
		return nil, httpError(err)
	}
	return &SessionOutput{Body: sessionBody(s.ID, res)}, nil
}

func sessionBody(id string, res session.Result) SessionBody {
	cmds := res.Commands
	if cmds == nil {
		cmds = []surface.Command{}
	}
	return SessionBody{ID: id, State: res.State, Popup: res.Popup, Commands: cmds}
}
