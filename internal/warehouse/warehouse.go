package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Engine is the relational query capability consumed by the analytics
// pipeline: run a generated query, describe the schema.
type Engine interface {
	Run(ctx context.Context, sql string) (string, error)
	GetSchema(ctx context.Context) (string, error)
}

// Warehouse executes read-only queries against the sales warehouse. The
// connection must use a role without write privileges; the SQL safety gate
// upstream is defense in depth, not the only guard.
type Warehouse struct {
	db         *sqlx.DB
	schemaFile string
}

// New creates a warehouse engine. schemaFile may be empty, in which case the
// schema description is introspected from information_schema.
func New(db *sqlx.DB, schemaFile string) *Warehouse {
	return &Warehouse{db: db, schemaFile: schemaFile}
}

// Run executes the query and renders the result rows as a JSON array of
// objects, the shape the synthesis prompt expects.
func (w *Warehouse) Run(ctx context.Context, sql string) (string, error) {
	rows, err := w.db.QueryxContext(ctx, sql)
	if err != nil {
		return "", fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			// database/sql hands back []byte for text columns
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating rows: %w", err)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to serialize rows: %w", err)
	}
	return string(out), nil
}

// GetSchema returns the pre-authored schema description when configured,
// otherwise a description introspected from information_schema.
func (w *Warehouse) GetSchema(ctx context.Context) (string, error) {
	if w.schemaFile != "" {
		data, err := os.ReadFile(w.schemaFile)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read schema file: %w", err)
		}
		// Fall through to introspection when the file is absent
	}
	return w.introspect(ctx)
}

type columnInfo struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
}

func (w *Warehouse) introspect(ctx context.Context) (string, error) {
	var cols []columnInfo
	query := `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position
	`
	if err := w.db.SelectContext(ctx, &cols, query); err != nil {
		return "", fmt.Errorf("schema introspection failed: %w", err)
	}

	var b strings.Builder
	current := ""
	for _, c := range cols {
		if c.TableName != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = c.TableName
			fmt.Fprintf(&b, "Table %s:\n", c.TableName)
		}
		fmt.Fprintf(&b, "  %s %s\n", c.ColumnName, c.DataType)
	}
	return b.String(), nil
}
