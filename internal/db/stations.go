package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-isochrone/internal/catalog"
	"github.com/joeblew999/plat-isochrone/internal/surface"
)

// StationsTable is the name of the station index table.
const StationsTable = "stations"

// DefaultSearchLimit caps search results when no limit is given.
const DefaultSearchLimit = 50

// Station is one row of the station index.
type Station struct {
	Layer     string  `json:"layer" doc:"Logical layer key" example:"metro"`
	Line      string  `json:"line" doc:"Line as in the source data" example:"M1-north"`
	Name      string  `json:"name" doc:"Station name"`
	FeatureID string  `json:"featureId" doc:"Station feature id"`
	Source    string  `json:"source" doc:"Station source id" example:"metro_stations"`
	Lon       float64 `json:"lon" doc:"Longitude"`
	Lat       float64 `json:"lat" doc:"Latitude"`
	Color     string  `json:"color" doc:"Display color" example:"#c48d55"`
}

// StationQuery filters a station search.
type StationQuery struct {
	Text   string
	Layer  string
	Limit  int
	Offset int
}

func (q StationQuery) where() (string, []any) {
	pattern := "%" + escapeLike(q.Text) + "%"
	return `WHERE (? = '' OR layer = ?)
		  AND (name ILIKE ? ESCAPE '\' OR line ILIKE ? ESCAPE '\')`,
		[]any{q.Layer, q.Layer, pattern, pattern}
}

// StationIndex stores every catalog station in DuckDB for search.
type StationIndex struct {
	db *sql.DB
}

// NewStationIndex wraps an open database.
func NewStationIndex(db *sql.DB) *StationIndex {
	return &StationIndex{db: db}
}

// Load rebuilds the index from the station sources of every catalog layer and
// returns the number of stations indexed.
func (x *StationIndex) Load(ctx context.Context, cat *catalog.Catalog, loader surface.Loader) (int, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE OR REPLACE TABLE `+StationsTable+` (
		layer VARCHAR, line VARCHAR, name VARCHAR, feature_id VARCHAR,
		source VARCHAR, lon DOUBLE, lat DOUBLE, color VARCHAR)`); err != nil {
		return 0, fmt.Errorf("creating %s: %w", StationsTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+StationsTable+` VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	fields := cat.Stations
	var n int
	for _, l := range cat.Layers {
		src, ok := l.Source(catalog.KindStations)
		if !ok {
			continue
		}
		fc, err := loader.Load(src.URL)
		if err != nil {
			return 0, fmt.Errorf("loading %s stations: %w", l.Key, err)
		}
		sourceID := catalog.SourceID(l.Key, catalog.KindStations)
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			line, _ := f.Properties[fields.Line].(string)
			name, _ := f.Properties[fields.Name].(string)
			id := ""
			if v := surface.NormalizeID(f.Properties[fields.ID]); v != nil {
				id = fmt.Sprint(v)
			}
			pt := position(f.Geometry)
			if _, err := stmt.ExecContext(ctx, l.Key, line, name, id, sourceID, pt.Lon(), pt.Lat(), src.Colors.Lookup(line)); err != nil {
				return 0, fmt.Errorf("inserting station: %w", err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Search finds stations whose name or line contains q.Text, case-insensitively.
func (x *StationIndex) Search(ctx context.Context, q StationQuery) ([]Station, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	where, args := q.where()

	rows, err := x.db.QueryContext(ctx, `SELECT layer, line, name, feature_id, source, lon, lat, color
		FROM `+StationsTable+` `+where+`
		ORDER BY layer, line, name
		LIMIT ? OFFSET ?`, append(args, limit, max(q.Offset, 0))...)
	if err != nil {
		return nil, fmt.Errorf("searching stations: %w", err)
	}
	defer rows.Close()

	stations := []Station{}
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.Layer, &s.Line, &s.Name, &s.FeatureID, &s.Source, &s.Lon, &s.Lat, &s.Color); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// Count returns how many stations match q, ignoring its limit and offset.
func (x *StationIndex) Count(ctx context.Context, q StationQuery) (int, error) {
	where, args := q.where()
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT count(*) FROM `+StationsTable+` `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting stations: %w", err)
	}
	return n, nil
}

func position(g orb.Geometry) orb.Point {
	if p, ok := g.(orb.Point); ok {
		return p
	}
	return g.Bound().Center()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
