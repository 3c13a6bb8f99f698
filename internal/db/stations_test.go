package db

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

func stationsLoader(cat *catalog.Catalog) surface.StaticLoader {
	point := func(x, y float64, id int, line, name string) *geojson.Feature {
		f := geojson.NewFeature(orb.Point{x, y})
		f.Properties = geojson.Properties{"OBJECTID": id, "LINE": line, "NAME": name}
		return f
	}
	metro := geojson.NewFeatureCollection()
	metro.Append(point(34.78, 32.07, 1, "M1-north", "Carlebach"))
	metro.Append(point(34.79, 32.08, 2, "M2", "Arlozorov"))
	lrt := geojson.NewFeatureCollection()
	lrt.Append(point(34.77, 32.06, 7, "אדום", "Allenby"))
	lrt.Append(point(34.77, 32.09, 8, "ירוק", "Arlozorov_100%"))

	l := surface.StaticLoader{}
	m, _ := cat.Layer("metro")
	src, _ := m.Source(catalog.KindStations)
	l[src.URL] = metro
	r, _ := cat.Layer("lrt")
	src, _ = r.Source(catalog.KindStations)
	l[src.URL] = lrt
	return l
}

func newIndex(t *testing.T) *StationIndex {
	t.Helper()
	conn, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	cat := catalog.Default()
	idx := NewStationIndex(conn)
	n, err := idx.Load(context.Background(), cat, stationsLoader(cat))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 4 {
		t.Fatalf("indexed %d stations, want 4", n)
	}
	return idx
}

func TestSearch(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	got, err := idx.Search(ctx, StationQuery{Text: "arlo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v, want two Arlozorov stations", got)
	}

	got, err = idx.Search(ctx, StationQuery{Text: "arlo", Layer: "metro"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Line != "M2" || got[0].Color != "#14a6f1" || got[0].Source != "metro_stations" {
		t.Fatalf("metro search = %+v", got)
	}
	if got[0].FeatureID != "2" || got[0].Lon != 34.79 {
		t.Errorf("row = %+v", got[0])
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	idx := newIndex(t)
	got, err := idx.Search(context.Background(), StationQuery{Text: "_100%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Layer != "lrt" {
		t.Fatalf("got %+v", got)
	}
}

func TestSearchLimit(t *testing.T) {
	idx := newIndex(t)
	got, err := idx.Search(context.Background(), StationQuery{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
}

func TestLoadIsRepeatable(t *testing.T) {
	idx := newIndex(t)
	cat := catalog.Default()
	if _, err := idx.Load(context.Background(), cat, stationsLoader(cat)); err != nil {
		t.Fatal(err)
	}
	got, _ := idx.Search(context.Background(), StationQuery{})
	if len(got) != 4 {
		t.Fatalf("reload duplicated rows: %d", len(got))
	}
}

func TestSearchOffsetAndCount(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()

	q := StationQuery{Limit: 3, Offset: 3}
	got, err := idx.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("second page has %d rows, want 1", len(got))
	}
	n, err := idx.Count(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("Count = %d, want 4", n)
	}
	if n, _ := idx.Count(ctx, StationQuery{Text: "arlo", Layer: "lrt"}); n != 1 {
		t.Fatalf("filtered Count = %d, want 1", n)
	}
}
