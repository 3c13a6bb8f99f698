package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
)

// DBHandler lists the tables of the station index database.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a database handler. db may be nil.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterTables registers database routes with Huma.
func (h *DBHandler) RegisterTables(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("database"))
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, huma.Error500InternalServerError("Failed to list tables", err)
		}
		tables = append(tables, name)
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, rows.Err()
}
