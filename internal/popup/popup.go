// Package popup builds the hover popup over merged isochrones: which stations
// reach the pointer within how many minutes, and which station features are
// highlighted while the pointer stays there.
package popup

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// Cursor values set while the popup is open and after it closes.
const (
	CursorPointer = "pointer"
	CursorDefault = ""
)

// Renderer turns popup contents into the overlay's HTML.
type Renderer interface {
	RenderPopup(c Contents) (string, error)
}

// Popup drives the overlay and the hover state of station features.
// It is not safe for concurrent use.
type Popup struct {
	cat      *catalog.Catalog
	surface  surface.Surface
	overlay  surface.Overlay
	renderer Renderer
	logger   *slog.Logger

	shown    bool
	hover    []surface.FeatureRef
	contents Contents
}

// New creates a hidden popup.
func New(cat *catalog.Catalog, s surface.Surface, o surface.Overlay, r Renderer, logger *slog.Logger) *Popup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Popup{cat: cat, surface: s, overlay: o, renderer: r, logger: logger}
}

// Shown reports whether the popup is open.
func (p *Popup) Shown() bool { return p.shown }

// Hovered returns the station features currently highlighted.
func (p *Popup) Hovered() []surface.FeatureRef { return slices.Clone(p.hover) }

// Contents returns the contents last computed.
func (p *Popup) Contents() Contents { return p.contents }

// ComputeContents hit-tests at, aggregates the stations found and moves the
// hover highlight to them.
func (p *Popup) ComputeContents(at orb.Point) (Contents, error) {
	features, err := p.surface.QueryRenderedFeatures(at)
	if err != nil {
		return Contents{}, fmt.Errorf("querying features: %w", err)
	}
	c := Aggregate(features, p.cat)
	next := c.Hover()

	off, on := Reconcile(p.hover, next)
	for _, ref := range off {
		if err := p.surface.SetFeatureState(ref, surface.State{"hover": false}); err != nil {
			return Contents{}, fmt.Errorf("clearing hover: %w", err)
		}
	}
	for _, ref := range on {
		if err := p.surface.SetFeatureState(ref, surface.State{"hover": true}); err != nil {
			return Contents{}, fmt.Errorf("setting hover: %w", err)
		}
	}
	p.hover = next
	p.contents = c
	p.logger.Debug("popup contents", "at", at, "groups", len(c.Groups), "hover_on", len(on), "hover_off", len(off))
	return c, nil
}

// Show opens the popup at lngLat with the stations under it.
func (p *Popup) Show(lngLat orb.Point) error {
	p.surface.SetCursor(CursorPointer)
	if err := p.fill(lngLat); err != nil {
		return err
	}
	p.overlay.Show()
	p.shown = true
	return nil
}

// Move refreshes an open popup at lngLat. It does nothing while hidden.
func (p *Popup) Move(lngLat orb.Point) error {
	if !p.shown {
		return nil
	}
	return p.fill(lngLat)
}

// Hide closes the popup and clears every hover highlight.
func (p *Popup) Hide() error {
	p.surface.SetCursor(CursorDefault)
	p.overlay.Remove()
	p.shown = false
	hovered := p.hover
	p.hover = nil
	p.contents = Contents{}
	for _, ref := range hovered {
		if err := p.surface.SetFeatureState(ref, surface.State{"hover": false}); err != nil {
			return fmt.Errorf("clearing hover: %w", err)
		}
	}
	return nil
}

func (p *Popup) fill(lngLat orb.Point) error {
	c, err := p.ComputeContents(lngLat)
	if err != nil {
		return err
	}
	html, err := p.renderer.RenderPopup(c)
	if err != nil {
		return fmt.Errorf("rendering popup: %w", err)
	}
	p.overlay.SetLngLat(lngLat)
	p.overlay.SetHTML(html)
	return nil
}
