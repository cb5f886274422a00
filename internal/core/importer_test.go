package core

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressCall struct{ current, total int }

func recordProgress(calls *[]progressCall) ProgressFunc {
	return func(current, total int) {
		*calls = append(*calls, progressCall{current, total})
	}
}

func csvFile(t *testing.T, header string, rows ...string) string {
	t.Helper()
	body := header + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		body += "\n"
	}
	return writeTemp(t, "import.csv", body)
}

func TestImporter_SameChunkCaseInsensitiveDuplicate(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 100)
	path := csvFile(t, "sku,name,description,active",
		"SKU1,Widget,d1,true",
		"sku1,Widget2,d2,false",
	)

	res, err := im.Run(context.Background(), Job{ID: "j1", FilePath: path}, nil)
	require.NoError(t, err)

	products := store.all()
	require.Len(t, products, 1)
	assert.Equal(t, "sku1", products[0].SKU)
	assert.Equal(t, "Widget2", products[0].Name)
	assert.Equal(t, "d2", products[0].Description)
	assert.False(t, products[0].Active)

	assert.Equal(t, ImportResult{
		Status:    "completed",
		Total:     2,
		Processed: 1,
		Message:   "Successfully imported 1 products",
	}, res)
}

func TestImporter_LastOccurrenceWinsAcrossChunks(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 2)
	path := csvFile(t, "sku,name,description",
		"A,first,x",
		"B,b,x",
		"a,second,y",
		"C,c,z",
	)

	_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
	require.NoError(t, err)

	got, err := store.GetProductBySKU(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, "A", got.SKU, "sku is kept from the first insert")
	assert.Len(t, store.all(), 3)
	assert.Len(t, store.chunks, 2)
}

func TestImporter_DroppedRowsCountTowardTotal(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 10)
	path := csvFile(t, "sku,name,description",
		"A,a,",
		",no sku,",
		"B,,no name",
		"  ,  ,",
		"C,c,",
	)

	var calls []progressCall
	res, err := im.Run(context.Background(), Job{FilePath: path}, recordProgress(&calls))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []progressCall{{2, 5}}, calls)
}

func TestImporter_ProgressEverySecondChunkAndLast(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 2)

	rows := make([]string, 9)
	for i := range rows {
		rows[i] = fmt.Sprintf("S%d,n,d", i)
	}
	path := csvFile(t, "sku,name,description", rows...)

	var calls []progressCall
	_, err := im.Run(context.Background(), Job{FilePath: path}, recordProgress(&calls))
	require.NoError(t, err)

	// 5 chunks: reports after chunks 2, 4 and the final chunk 5.
	assert.Equal(t, []progressCall{{4, 9}, {8, 9}, {9, 9}}, calls)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].current, calls[i-1].current)
		assert.LessOrEqual(t, calls[i].current, calls[i].total)
	}
}

func TestImporter_ExactMultipleReportsLastOnce(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 2)
	path := csvFile(t, "sku,name,description", "A,a,", "B,b,", "C,c,", "D,d,", "E,e,", "F,f,")

	var calls []progressCall
	_, err := im.Run(context.Background(), Job{FilePath: path}, recordProgress(&calls))
	require.NoError(t, err)

	// 3 chunks: chunk 2 and the final chunk 3.
	assert.Equal(t, []progressCall{{4, 6}, {6, 6}}, calls)
}

func TestImporter_JobChunkSizeOverridesDefault(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 1000)
	path := csvFile(t, "sku,name,description", "A,a,", "B,b,", "C,c,")

	_, err := im.Run(context.Background(), Job{FilePath: path, ChunkSize: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, store.chunks, 3)
}

func TestImporter_Idempotent(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 2)
	content := "sku,name,description,active\nA,a,x,yes\nB,b,y,no\nb,B2,z,1\n"

	for i := 0; i < 2; i++ {
		path := writeTemp(t, "again.csv", content)
		_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
		require.NoError(t, err)
	}

	products := store.all()
	require.Len(t, products, 2)
	b, err := store.GetProductBySKU(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, "B2", b.Name)
	assert.True(t, b.Active)
}

func TestImporter_DeletesFileOnSuccess(t *testing.T) {
	im := NewImporter(newMemProducts(), 10)
	path := csvFile(t, "sku,name,description", "A,a,")

	_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImporter_InvalidActiveFailsAndDeletesFile(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 2)
	path := csvFile(t, "sku,name,description,active", "A,a,,yes", "B,b,,no", "C,c,,perhaps")

	_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid active value")

	// the first chunk committed independently; the failing chunk did not
	assert.Len(t, store.all(), 2)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImporter_StoreFailureStopsImport(t *testing.T) {
	store := newMemProducts()
	store.failOn = 2
	im := NewImporter(store, 1)
	path := csvFile(t, "sku,name,description", "A,a,", "B,b,", "C,c,")

	var calls []progressCall
	_, err := im.Run(context.Background(), Job{FilePath: path}, recordProgress(&calls))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2")
	assert.Empty(t, calls)
	assert.Len(t, store.all(), 1)
}

func TestImporter_MissingColumns(t *testing.T) {
	im := NewImporter(newMemProducts(), 10)
	path := csvFile(t, "sku,title", "A,a")

	_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
	assert.ErrorContains(t, err, "Missing required columns")
}

func TestImporter_HeaderOnly(t *testing.T) {
	im := NewImporter(newMemProducts(), 10)
	path := csvFile(t, "sku,name,description")

	var calls []progressCall
	res, err := im.Run(context.Background(), Job{FilePath: path}, recordProgress(&calls))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, []progressCall{{0, 0}}, calls)
}

func TestImporter_SanitizesEncoding(t *testing.T) {
	store := newMemProducts()
	im := NewImporter(store, 10)
	path := writeTemp(t, "latin.csv", "\ufeffSKU,Name,Description\nA,caf\xe9,x\n")

	_, err := im.Run(context.Background(), Job{FilePath: path}, nil)
	require.NoError(t, err)

	p, err := store.GetProductBySKU(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "caf\ufffd", p.Name)
}
