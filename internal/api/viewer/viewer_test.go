package viewer

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/session"
	"github.com/joeblew999/plat-isochrone/internal/surface"
	"github.com/joeblew999/plat-isochrone/internal/templates"
	"github.com/joeblew999/plat-isochrone/web"
)

// emptyLoader serves every catalog file; the lrt isochrone covers (0,0)-(2,2).
func emptyLoader(cat *catalog.Catalog) surface.StaticLoader {
	l := surface.StaticLoader{}
	for _, m := range cat.Merged {
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}))
		l[m.URL] = fc
	}
	for _, layer := range cat.Layers {
		for _, s := range layer.Sources {
			l[s.URL] = geojson.NewFeatureCollection()
		}
	}
	lrt, _ := cat.Layer("lrt")
	iso, _ := lrt.Source(catalog.KindUnmergedIsochrones)
	f := geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})
	f.Properties = geojson.Properties{"OBJECTID": 1, "LINE": "אדום", "NAME": "Allenby", "time": 4}
	l[iso.URL].Append(f)
	return l
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *session.Store) {
	t.Helper()
	renderer, err := templates.New(web.FS, templates.FragmentsPattern)
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.Default()
	store := session.NewStore(session.Config{
		Catalog:  cat,
		Loader:   emptyLoader(cat),
		Renderer: popup.NewHTMLRenderer(renderer, cat.MinutesLabel),
		Bus:      session.NewEventBus(),
	})
	_, api := humatest.New(t)
	NewHandler(store, renderer, false).RegisterRoutes(api)
	return api, store
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestInitCreatesSession(t *testing.T) {
	api, store := newTestAPI(t)
	resp := api.Get("/api/v1/viewer/init")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	c := sessionCookie(t, resp.Result())
	if _, err := store.Get(c.Value); err != nil {
		t.Fatalf("cookie session: %v", err)
	}
	body := resp.Body.String()
	if i, j := strings.Index(body, "addLayer"), strings.Index(body, "/api/v1/viewer/events"); j < i {
		t.Errorf("events stream attached before the map commands")
	}
	for _, want := range []string{"layer_selection", `name="lrt" checked`, MapCommandEvent, "addLayer", "/api/v1/viewer/events"} {
		if !strings.Contains(body, want) {
			t.Errorf("init stream missing %q", want)
		}
	}
}

func TestInitReusesSession(t *testing.T) {
	api, store := newTestAPI(t)
	c := sessionCookie(t, api.Get("/api/v1/viewer/init").Result())

	resp := api.Get("/api/v1/viewer/init", "Cookie: sid="+c.Value)
	if len(resp.Result().Cookies()) != 0 {
		t.Fatal("existing session was replaced")
	}
	if store.Len() != 1 {
		t.Fatalf("sessions = %d", store.Len())
	}
	if !strings.Contains(resp.Body.String(), "addSource") {
		t.Fatal("replay did not rebuild the map")
	}
}

func TestToggle(t *testing.T) {
	api, store := newTestAPI(t)
	c := sessionCookie(t, api.Get("/api/v1/viewer/init").Result())

	resp := api.Post("/api/v1/viewer/layers/metro/toggle", "Cookie: sid="+c.Value)
	body := resp.Body.String()
	if !strings.Contains(body, `name="metro" checked`) || !strings.Contains(body, "setLayoutProperty") {
		t.Fatalf("toggle stream = %s", body)
	}
	s, _ := store.Get(c.Value)
	if s.State().CanonicalKey != "lrt_metro" {
		t.Fatalf("state = %+v", s.State())
	}

	resp = api.Post("/api/v1/viewer/layers/metro/toggle", "Cookie: sid=gone")
	if !strings.Contains(resp.Body.String(), "expired") {
		t.Fatalf("expired session stream = %s", resp.Body.String())
	}
}

func TestPointer(t *testing.T) {
	api, _ := newTestAPI(t)
	c := sessionCookie(t, api.Get("/api/v1/viewer/init").Result())

	resp := api.Post("/api/v1/viewer/pointer/enter", "Cookie: sid="+c.Value, map[string]any{"lng": 1, "lat": 1, "zoom": 13})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d %s", resp.Code, resp.Body.String())
	}
	var body CommandsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Popup == nil || body.Popup.Groups[0].Entries[0].Name != "Allenby" {
		t.Fatalf("popup = %+v", body.Popup)
	}
	var html string
	for _, cmd := range body.Commands {
		if cmd.Op == surface.OpPopupHTML {
			html, _ = cmd.Args["html"].(string)
		}
	}
	if !strings.Contains(html, "4 "+catalog.Default().MinutesLabel) {
		t.Fatalf("popup html = %q", html)
	}

	if resp := api.Post("/api/v1/viewer/pointer/leave", map[string]any{}); resp.Code != http.StatusNotFound {
		t.Fatalf("pointer without session = %d", resp.Code)
	}
}

func TestEventsWithoutSessionEnds(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/api/v1/viewer/events")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), MapCommandEvent) {
		t.Fatalf("events without a session = %s", resp.Body.String())
	}
}
