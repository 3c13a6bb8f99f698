// Package server wires the catalog, map sessions, station index and HTTP
// surface into one handler.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/plat-isochrone/internal/api"
	"github.com/joeblew999/plat-isochrone/internal/api/viewer"
	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/db"
	"github.com/joeblew999/plat-isochrone/internal/humastar"
	"github.com/joeblew999/plat-isochrone/internal/metrics"
	"github.com/joeblew999/plat-isochrone/internal/popup"
	"github.com/joeblew999/plat-isochrone/internal/session"
	"github.com/joeblew999/plat-isochrone/internal/surface"
	"github.com/joeblew999/plat-isochrone/internal/templates"
	"github.com/joeblew999/plat-isochrone/web"
)

// SweepInterval is how often idle sessions are expired.
const SweepInterval = time.Minute

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // Catalog file references resolve against this directory
	WebDir  string // Optional web/ directory overriding the embedded assets
	DBDir   string // Directory for the DuckDB file; empty keeps the index in memory

	Catalog       *catalog.Catalog
	Loader        surface.Loader // Defaults to a FileLoader rooted at DataDir
	SessionTTL    time.Duration
	SecureCookies bool
	Registry      prometheus.Registerer
	Logger        *slog.Logger
}

// Server is the isochrone map HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	store    *session.Store
	metrics  *metrics.Collector
	renderer *templates.Renderer
	page     *template.Template
	logger   *slog.Logger
}

// New creates the server. The station index is best effort: without it
// station search answers 503 and the map works as usual.
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Loader == nil {
		cfg.Loader = surface.NewFileLoader(cfg.DataDir)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger

	webFS := fs.FS(web.FS)
	if cfg.WebDir != "" {
		webFS = os.DirFS(cfg.WebDir)
		logger.Info("serving web assets from disk", "dir", cfg.WebDir)
	}
	renderer, err := templates.New(webFS, templates.FragmentsPattern)
	if err != nil {
		return nil, fmt.Errorf("loading fragment templates: %w", err)
	}
	page, err := template.ParseFS(webFS, "templates/viewer.html")
	if err != nil {
		return nil, fmt.Errorf("loading viewer page: %w", err)
	}

	m, err := metrics.New(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-isochrone API", api.Version)
	humaConfig.Info.Description = "Transit isochrone map: layer toggles, hover popups and station search."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	store := session.NewStore(session.Config{
		Catalog:  cfg.Catalog,
		Loader:   cfg.Loader,
		Renderer: popup.NewHTMLRenderer(renderer, cfg.Catalog.MinutesLabel),
		Metrics:  m,
		Bus:      session.NewEventBus(),
		Logger:   logger,
		TTL:      cfg.SessionTTL,
	})

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		store:    store,
		metrics:  m,
		renderer: renderer,
		page:     page,
		logger:   logger,
	}
	s.handler = m.Middleware(mux)

	stations := s.openStations()
	s.routes(webFS, stations)
	return s, nil
}

// openStations opens DuckDB and indexes every catalog station.
func (s *Server) openStations() *db.StationIndex {
	conn, err := db.Open(db.Config{
		DataDir:  s.config.DBDir,
		DBName:   "isochrone",
		InMemory: s.config.DBDir == "",
	})
	if err != nil {
		s.logger.Warn("station search disabled", "error", err)
		return nil
	}
	idx := db.NewStationIndex(conn)
	n, err := idx.Load(context.Background(), s.config.Catalog, s.config.Loader)
	if err != nil {
		s.logger.Warn("station search disabled", "error", err)
		conn.Close()
		return nil
	}
	s.db = conn
	s.metrics.SetStationsIndexed(n)
	s.logger.Info("stations indexed", "count", n)
	return idx
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store {
	return s.store
}

// Start runs background work, currently the idle session sweeper, until ctx
// is done.
func (s *Server) Start(ctx context.Context) {
	go s.store.Run(ctx, SweepInterval)
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) routes(webFS fs.FS, stations *db.StationIndex) {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	stationCount := 0
	if stations != nil {
		stationCount, _ = stations.Count(context.Background(), db.StationQuery{})
	}
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Catalog:  s.config.Catalog,
		Sessions: s.store,
		Stations: stations,
	}))
	huma.AutoRegister(s.humaAPI, api.NewInfoHandler(s.config.DataDir, s.db != nil, stationCount, s.config.Catalog))
	huma.AutoRegister(s.humaAPI, api.NewDBHandler(s.db))

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.store, s.renderer, s.config.SecureCookies).RegisterRoutes(s.humaAPI)

	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// Static files and catalog data
	static, _ := fs.Sub(webFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.dataRoutes()

	// Page routes
	s.mux.HandleFunc("GET /viewer", s.handleViewer)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

// dataRoutes serves the GeoJSON files the catalog references, and nothing
// else from DataDir.
func (s *Server) dataRoutes() {
	seen := map[string]bool{}
	serve := func(ref string) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		path := filepath.Join(s.config.DataDir, filepath.FromSlash(ref))
		s.mux.HandleFunc("GET /"+ref, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/geo+json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			http.ServeFile(w, r, path)
		})
	}
	for _, m := range s.config.Catalog.Merged {
		serve(m.URL)
	}
	for _, l := range s.config.Catalog.Layers {
		for _, src := range l.Sources {
			serve(src.URL)
		}
	}
}

type pageData struct {
	CenterJSON string
	Zoom       float64
	Style      string
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	page := s.page
	if s.config.WebDir != "" {
		// Pick up template edits without a restart.
		fsys := os.DirFS(s.config.WebDir)
		if err := s.renderer.Reload(fsys, templates.FragmentsPattern); err != nil {
			s.logger.Warn("reloading fragments", "error", err)
		}
		if p, err := template.ParseFS(fsys, "templates/viewer.html"); err == nil {
			page = p
		}
	}

	view := s.config.Catalog.View
	center, _ := json.Marshal(view.Center)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, pageData{CenterJSON: string(center), Zoom: view.Zoom, Style: view.Style}); err != nil {
		s.logger.Error("rendering viewer page", "error", err)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}
