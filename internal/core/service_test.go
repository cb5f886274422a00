package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *Service
	products *memProducts
	hooks    *memWebhooks
	queue    *memQueue
	status   *memStatus
	dir      string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		products: newMemProducts(),
		hooks:    &memWebhooks{},
		queue:    newMemQueue(),
		status:   newMemStatus(),
		dir:      t.TempDir(),
	}
	f.svc = NewService(ServiceDeps{
		Products:   f.products,
		Webhooks:   f.hooks,
		Queue:      f.queue,
		Status:     f.status,
		Dispatcher: NewDispatcher(f.hooks, f.hooks, nil, time.Second),
	}, ServiceConfig{
		UploadDir:            f.dir,
		MaxFileSize:          1024,
		ChunkSize:            500,
		PollInterval:         time.Millisecond,
		MaxConcurrentUploads: 2,
		UploadWait:           50 * time.Millisecond,
	})
	return f
}

func (f *serviceFixture) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestReceiveUpload_Accepted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := ContextWithClientIP(context.Background(), "10.0.0.7")

	receipt, err := f.svc.ReceiveUpload(ctx, "products.csv", strings.NewReader("sku,name,description\nA,a,\n"))
	require.NoError(t, err)
	assert.Equal(t, UploadAccepted, receipt.Message)
	assert.NotEmpty(t, receipt.TaskID)

	snap, err := f.status.Get(context.Background(), receipt.TaskID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, snap.State)

	job := <-f.queue.jobs
	assert.Equal(t, receipt.TaskID, job.ID)
	assert.Equal(t, "products.csv", job.FileName)
	assert.Equal(t, 500, job.ChunkSize)
	assert.Equal(t, "10.0.0.7", job.ClientIP)
	assert.Equal(t, filepath.Join(f.dir, receipt.TaskID+"_products.csv"), job.FilePath)
	assert.FileExists(t, job.FilePath)
}

func TestReceiveUpload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantIs  error
		wantMsg string
	}{
		{"wrong extension", "products.xlsx", "sku,name,description\n", ErrInvalidExtension, "Only CSV files are allowed"},
		{"too large", "big.csv", "sku,name,description\n" + strings.Repeat("x", 2048), ErrFileTooLarge, "file too large"},
		{"missing columns", "bad.csv", "sku,title\nA,b\n", nil, "Missing required columns: name, description"},
		{"empty", "empty.csv", "", ErrUnreadableCSV, "error reading csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)

			_, err := f.svc.ReceiveUpload(context.Background(), tt.file, strings.NewReader(tt.body))
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, IsUploadRejected(err))
			assert.Empty(t, f.uploadedFiles(t), "rejected file must be removed")
			assert.Empty(t, f.queue.jobs)
		})
	}
}

func TestReceiveUpload_EnqueueFailureRemovesFile(t *testing.T) {
	f := newServiceFixture(t)
	f.queue.err = errors.New("redis: connection refused")

	_, err := f.svc.ReceiveUpload(context.Background(), "p.csv", strings.NewReader("sku,name,description\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue job")
	assert.Empty(t, f.uploadedFiles(t))
}

func TestReceiveUpload_StripsClientDirectories(t *testing.T) {
	f := newServiceFixture(t)

	receipt, err := f.svc.ReceiveUpload(context.Background(), `..\..\evil/../x.csv`, strings.NewReader("sku,name,description\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{receipt.TaskID + "_x.csv"}, f.uploadedFiles(t))
}

func TestCreateProduct_DuplicateSKUCaseInsensitive(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, ProductInput{SKU: "ABC-1", Name: "Widget"})
	require.NoError(t, err)

	_, err = f.svc.CreateProduct(ctx, ProductInput{SKU: "abc-1", Name: "Other"})
	assert.ErrorIs(t, err, ErrDuplicateSKU)
	assert.Equal(t, "SKU already exists", err.Error())
}

func TestUpdateProduct_RejectsSKUChange(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateProduct(ctx, ProductInput{SKU: "A", Name: "a"})
	require.NoError(t, err)

	sku := "B"
	_, err = f.svc.UpdateProduct(ctx, p.ID, ProductPatch{SKU: &sku})
	assert.ErrorIs(t, err, ErrSKUImmutable)

	name := "renamed"
	active := false
	got, err := f.svc.UpdateProduct(ctx, p.ID, ProductPatch{Name: &name, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.Active)

	_, err = f.svc.UpdateProduct(ctx, 999, ProductPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProducts_Pagination(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for _, sku := range []string{"a1", "a2", "a3", "b1", "b2"} {
		_, err := f.svc.CreateProduct(ctx, ProductInput{SKU: sku, Name: "n-" + sku})
		require.NoError(t, err)
	}

	page, err := f.svc.ListProducts(ctx, ProductFilter{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 2)

	page, err = f.svc.ListProducts(ctx, ProductFilter{SKU: "A", Page: 1, Size: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 1, page.Pages)

	page, err = f.svc.ListProducts(ctx, ProductFilter{SKU: "zzz", Page: 1, Size: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
	assert.Equal(t, 1, page.Pages)
	assert.NotNil(t, page.Items)

	_, err = f.svc.ListProducts(ctx, ProductFilter{Page: 1, Size: 101})
	assert.True(t, IsValidation(err))
}

func TestDeleteAllProducts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for _, sku := range []string{"x", "y"} {
		_, err := f.svc.CreateProduct(ctx, ProductInput{SKU: sku, Name: sku})
		require.NoError(t, err)
	}

	n, err := f.svc.DeleteAllProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, f.products.all())
}

func TestProductEventsArePublished(t *testing.T) {
	got := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get(EventHeader)
	}))
	defer srv.Close()

	f := newServiceFixture(t)
	ctx := context.Background()
	for _, ev := range []string{EventProductCreated, EventProductDeleted} {
		_, err := f.svc.CreateWebhook(ctx, WebhookInput{URL: srv.URL, EventType: ev})
		require.NoError(t, err)
	}

	p, err := f.svc.CreateProduct(ctx, ProductInput{SKU: "E1", Name: "evented"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteProduct(ctx, p.ID))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Drain(drainCtx))

	close(got)
	var events []string
	for ev := range got {
		events = append(events, ev)
	}
	assert.ElementsMatch(t, []string{EventProductCreated, EventProductDeleted}, events)
}

func TestWebhookCRUDAndTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	f := newServiceFixture(t)
	ctx := context.Background()

	h, err := f.svc.CreateWebhook(ctx, WebhookInput{URL: srv.URL, EventType: EventImportCompleted})
	require.NoError(t, err)
	assert.True(t, h.Enabled)

	disabled := false
	h, err = f.svc.UpdateWebhook(ctx, h.ID, WebhookPatch{Enabled: &disabled})
	require.NoError(t, err)
	assert.False(t, h.Enabled)

	res, err := f.svc.TestWebhook(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusAccepted, *res.StatusCode)

	hooks, err := f.svc.ListWebhooks(ctx, 0, DefaultWebhookLimit)
	require.NoError(t, err)
	assert.Len(t, hooks, 1)

	_, err = f.svc.ListWebhooks(ctx, -1, 10)
	assert.True(t, IsValidation(err))

	require.NoError(t, f.svc.DeleteWebhook(ctx, h.ID))
	_, err = f.svc.TestWebhook(ctx, h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobStatus_UnknownIsPending(t *testing.T) {
	f := newServiceFixture(t)
	snap, err := f.svc.JobStatus(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, StatePending, snap.State)
}
