package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSeeded(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background()))
	return store
}

func TestSeedIsIdempotent(t *testing.T) {
	store := openSeeded(t)
	require.NoError(t, store.Seed(context.Background()))

	out, err := (&ListTables{store: store}).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products"}, out.(map[string]any)["tables"])
}

func TestExecuteQuery_Select(t *testing.T) {
	store := openSeeded(t)
	tool := &ExecuteQuery{store: store}

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":  "SELECT name, price FROM products WHERE category = ? ORDER BY price",
		"params": []any{"subscription"},
	})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, 2, payload["row_count"])
	rows := payload["rows"].([]map[string]any)
	assert.Equal(t, "Starter Plan", rows[0]["name"])
}

func TestExecuteQuery_Write(t *testing.T) {
	store := openSeeded(t)
	tool := &ExecuteQuery{store: store}

	out, err := tool.Execute(context.Background(), map[string]any{
		"query": "UPDATE products SET stock = stock - 1 WHERE id = 1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.(map[string]any)["rows_affected"])
}

func TestExecuteQuery_BadSQL(t *testing.T) {
	store := openSeeded(t)
	tool := &ExecuteQuery{store: store}

	_, err := tool.Execute(context.Background(), map[string]any{
		"query": "SELECT * FROM no_such_table",
	})
	assert.Error(t, err)
}

func TestDescribeTable(t *testing.T) {
	store := openSeeded(t)
	tool := &DescribeTable{store: store}

	out, err := tool.Execute(context.Background(), map[string]any{"table_name": "products"})
	require.NoError(t, err)

	payload := out.(map[string]any)
	columns := payload["columns"].([]map[string]any)
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col["name"].(string))
	}
	assert.Contains(t, names, "price")
	assert.Contains(t, names, "stock")
}

func TestDescribeTable_RejectsBadIdentifier(t *testing.T) {
	store := openSeeded(t)
	tool := &DescribeTable{store: store}

	_, err := tool.Execute(context.Background(), map[string]any{"table_name": "products; DROP TABLE orders"})
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]any{"table_name": "missing_table"})
	assert.Error(t, err)
}

func TestGetTableData_Limit(t *testing.T) {
	store := openSeeded(t)
	tool := &GetTableData{store: store}

	out, err := tool.Execute(context.Background(), map[string]any{"table_name": "products", "limit": 2.0})
	require.NoError(t, err)

	payload := out.(map[string]any)
	assert.Equal(t, 2, payload["row_count"])
}

func TestAllToolNames(t *testing.T) {
	store := openSeeded(t)
	names := make([]string, 0)
	for _, tool := range All(store) {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"execute_query", "describe_table", "list_tables", "get_table_data"}, names)
}
