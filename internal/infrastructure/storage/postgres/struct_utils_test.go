package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stocktake/internal/domain/catalogs/product"
	"stocktake/internal/domain/reconciliation"
)

func TestExtractDBColumnsWalksEmbedded(t *testing.T) {
	cols := ExtractDBColumns[product.Product]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "code", "name", "barcode", "units_per_carton",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}

	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		assert.False(t, seen[col], "duplicate column %q", col)
		seen[col] = true
	}
}

func TestExtractDBColumnsSkipsIgnored(t *testing.T) {
	// Record.Lines carries db:"-" and must not leak into SQL.
	cols := ExtractDBColumns[reconciliation.Record]()
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap(t *testing.T) {
	prod := product.NewProduct("PR-1", "Cola 330ml", 12)

	m := StructToMap(prod)

	assert.Equal(t, "PR-1", m["code"])
	assert.Equal(t, "Cola 330ml", m["name"])
	assert.Equal(t, int64(12), m["units_per_carton"])
	assert.Equal(t, prod.ID, m["id"])
	assert.Equal(t, 1, m["version"])
}

func TestStructToMapNonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
