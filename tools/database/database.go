// Package database provides the SQL query tools served by the database tool
// server, backed by an embedded sqlite database.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/joeshaw/envdecode"
	_ "modernc.org/sqlite"

	"github.com/denser-ai/toolfleet/mcp"
	"github.com/denser-ai/toolfleet/tools"
)

// Config carries the environment-provided database settings.
type Config struct {
	Path string `env:"TOOLFLEET_DB_PATH,default=toolfleet.db"`
}

// ConfigFromEnv decodes Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode database config: %w", err)
	}
	return cfg, nil
}

// Store wraps the sqlite handle shared by all database tools.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Seed creates the demo product schema when the store is empty, so a fresh
// server has something to query.
func (s *Store) Seed(ctx context.Context) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if count > 0 {
		return nil
	}

	stmts := []string{
		`CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			price REAL NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL,
			ordered_at TEXT NOT NULL
		)`,
		`INSERT INTO products (name, category, price, stock) VALUES
			('Starter Plan', 'subscription', 29.00, 1000),
			('Pro Plan', 'subscription', 99.00, 1000),
			('Onboarding Session', 'service', 250.00, 50)`,
		`INSERT INTO orders (product_id, quantity, ordered_at) VALUES
			(1, 3, '2026-08-01T10:00:00Z'),
			(2, 1, '2026-08-02T15:30:00Z')`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed schema: %w", err)
		}
	}
	return nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// rowsToMaps converts a result set into one map per row, keyed by column.
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExecuteQuery implements the execute_query tool.
type ExecuteQuery struct {
	store *Store
}

func (t *ExecuteQuery) Name() string { return "execute_query" }

func (t *ExecuteQuery) Description() string {
	return "Execute a SQL query (SELECT, INSERT, UPDATE, DELETE). Returns rows for SELECT queries."
}

func (t *ExecuteQuery) InputSchema() mcp.InputSchema {
	return mcp.ObjectSchema(map[string]mcp.Property{
		"query": {
			Type:        "string",
			Description: "SQL query to execute",
		},
		"params": {
			Type:        "array",
			Description: "Optional parameters for parameterized queries",
			Default:     []any{},
		},
	}, "query")
}

func (t *ExecuteQuery) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	var params []any
	if raw, ok := args["params"].([]any); ok {
		params = raw
	}

	trimmed := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "WITH") {
		rows, err := t.store.db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()
		result, err := rowsToMaps(rows)
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		return map[string]any{"rows": result, "row_count": len(result)}, nil
	}

	res, err := t.store.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	affected, _ := res.RowsAffected()
	return map[string]any{"rows_affected": affected}, nil
}

// ListTables implements the list_tables tool.
type ListTables struct {
	store *Store
}

func (t *ListTables) Name() string        { return "list_tables" }
func (t *ListTables) Description() string { return "List all tables in the database" }

func (t *ListTables) InputSchema() mcp.InputSchema {
	return mcp.ObjectSchema(nil)
}

func (t *ListTables) Execute(ctx context.Context, args map[string]any) (any, error) {
	rows, err := t.store.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return map[string]any{"tables": tables}, nil
}

// DescribeTable implements the describe_table tool.
type DescribeTable struct {
	store *Store
}

func (t *DescribeTable) Name() string { return "describe_table" }

func (t *DescribeTable) Description() string {
	return "Get the structure/schema of a database table"
}

func (t *DescribeTable) InputSchema() mcp.InputSchema {
	return mcp.ObjectSchema(map[string]mcp.Property{
		"table_name": {
			Type:        "string",
			Description: "Name of the table to describe",
		},
	}, "table_name")
}

func (t *DescribeTable) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, _ := args["table_name"].(string)
	if err := validIdentifier(name); err != nil {
		return nil, err
	}

	rows, err := t.store.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name))
	if err != nil {
		return nil, fmt.Errorf("describe table: %w", err)
	}
	defer rows.Close()

	columns, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q does not exist", name)
	}
	return map[string]any{"table": name, "columns": columns}, nil
}

// GetTableData implements the get_table_data tool.
type GetTableData struct {
	store *Store
}

func (t *GetTableData) Name() string { return "get_table_data" }

func (t *GetTableData) Description() string {
	return "Get sample data from a table"
}

func (t *GetTableData) InputSchema() mcp.InputSchema {
	minLimit, maxLimit := 1.0, 100.0
	return mcp.ObjectSchema(map[string]mcp.Property{
		"table_name": {
			Type:        "string",
			Description: "Name of the table to sample",
		},
		"limit": {
			Type:        "integer",
			Description: "Maximum number of rows to return (1-100)",
			Minimum:     &minLimit,
			Maximum:     &maxLimit,
			Default:     10,
		},
	}, "table_name")
}

func (t *GetTableData) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, _ := args["table_name"].(string)
	if err := validIdentifier(name); err != nil {
		return nil, err
	}
	limit := 10
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := t.store.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT ?", name), limit)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	defer rows.Close()

	result, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	return map[string]any{"table": name, "rows": result, "row_count": len(result)}, nil
}

// All returns the database server's tool set.
func All(store *Store) []tools.Tool {
	return []tools.Tool{
		&ExecuteQuery{store: store},
		&DescribeTable{store: store},
		&ListTables{store: store},
		&GetTableData{store: store},
	}
}
