package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// Webhook listing bounds.
const (
	DefaultWebhookLimit = 100
	MaxWebhookLimit     = 1000
)

// ServiceDeps are the collaborators a Service needs.
type ServiceDeps struct {
	Products   ProductStore
	Webhooks   WebhookStore
	Queue      JobQueue
	Status     JobStatusStore
	Dispatcher *Dispatcher
}

// ServiceConfig holds the tunables the Service reads.
type ServiceConfig struct {
	UploadDir            string
	MaxFileSize          int64
	ChunkSize            int
	PollInterval         time.Duration
	MaxConcurrentUploads int
	UploadWait           time.Duration
}

// Service is the entry point used by the HTTP layer.
type Service struct {
	products   ProductStore
	webhooks   WebhookStore
	queue      JobQueue
	status     JobStatusStore
	dispatcher *Dispatcher

	cfg      ServiceConfig
	uploads  *SlotLimiter
	streamer *ProgressStreamer
	events   sync.WaitGroup
	now      func() time.Time
}

// NewService creates a Service.
func NewService(deps ServiceDeps, cfg ServiceConfig) *Service {
	return &Service{
		products:   deps.Products,
		webhooks:   deps.Webhooks,
		queue:      deps.Queue,
		status:     deps.Status,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		uploads:    NewSlotLimiter(cfg.MaxConcurrentUploads, cfg.UploadWait),
		streamer:   NewProgressStreamer(deps.Status, cfg.PollInterval),
		now:        time.Now,
	}
}

// ListProducts returns one filtered page.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) (ProductPage, error) {
	if err := validatePaging(f.Page, f.Size); err != nil {
		return ProductPage{}, err
	}

	items, total, err := s.products.ListProducts(ctx, f)
	if err != nil {
		return ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	if items == nil {
		items = []Product{}
	}
	return ProductPage{
		Items: items,
		Total: total,
		Page:  f.Page,
		Size:  f.Size,
		Pages: pageCount(total, f.Size),
	}, nil
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.products.GetProduct(ctx, id)
}

// CreateProduct inserts a product, rejecting a sku that already exists in
// any letter case.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	in, err := ValidateProductInput(in)
	if err != nil {
		return Product{}, err
	}

	_, err = s.products.GetProductBySKU(ctx, in.SKU)
	switch {
	case err == nil:
		return Product{}, ErrDuplicateSKU
	case !errors.Is(err, ErrNotFound):
		return Product{}, fmt.Errorf("check sku: %w", err)
	}

	p, err := s.products.CreateProduct(ctx, in, s.now().UTC())
	if err != nil {
		return Product{}, err
	}

	logging.FromContext(ctx).Info("product created", "product_id", p.ID, "sku", p.SKU)
	s.publish(ctx, EventProductCreated, map[string]any{"event": EventProductCreated, "product": p})
	return p, nil
}

// UpdateProduct applies a partial update. The sku cannot change.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	current, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	patch, err = ValidateProductPatch(current, patch)
	if err != nil {
		return Product{}, err
	}

	p, err := s.products.UpdateProduct(ctx, id, patch, s.now().UTC())
	if err != nil {
		return Product{}, err
	}
	s.publish(ctx, EventProductUpdated, map[string]any{"event": EventProductUpdated, "product": p})
	return p, nil
}

// DeleteProduct removes one product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("product deleted", "product_id", id, "sku", p.SKU)
	s.publish(ctx, EventProductDeleted, map[string]any{
		"event":      EventProductDeleted,
		"product_id": id,
		"sku":        p.SKU,
	})
	return nil
}

// DeleteAllProducts empties the catalog and returns the number removed.
func (s *Service) DeleteAllProducts(ctx context.Context) (int64, error) {
	n, err := s.products.DeleteAllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all products: %w", err)
	}
	logging.FromContext(ctx).Warn("all products deleted", "count", n)
	return n, nil
}

// ListWebhooks returns subscriptions ordered by id.
func (s *Service) ListWebhooks(ctx context.Context, skip, limit int) ([]Webhook, error) {
	if skip < 0 {
		return nil, NewValidationError("skip", "must not be negative")
	}
	if limit < 1 || limit > MaxWebhookLimit {
		return nil, NewValidationError("limit", "must be between 1 and %d", MaxWebhookLimit)
	}
	hooks, err := s.webhooks.ListWebhooks(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	if hooks == nil {
		hooks = []Webhook{}
	}
	return hooks, nil
}

// GetWebhook returns a webhook by id.
func (s *Service) GetWebhook(ctx context.Context, id int64) (Webhook, error) {
	return s.webhooks.GetWebhook(ctx, id)
}

// CreateWebhook registers a subscription.
func (s *Service) CreateWebhook(ctx context.Context, in WebhookInput) (Webhook, error) {
	in, err := ValidateWebhookInput(in)
	if err != nil {
		return Webhook{}, err
	}
	return s.webhooks.CreateWebhook(ctx, in, s.now().UTC())
}

// UpdateWebhook applies a partial update.
func (s *Service) UpdateWebhook(ctx context.Context, id int64, patch WebhookPatch) (Webhook, error) {
	patch, err := ValidateWebhookPatch(patch)
	if err != nil {
		return Webhook{}, err
	}
	return s.webhooks.UpdateWebhook(ctx, id, patch, s.now().UTC())
}

// DeleteWebhook removes a subscription.
func (s *Service) DeleteWebhook(ctx context.Context, id int64) error {
	return s.webhooks.DeleteWebhook(ctx, id)
}

// TestWebhook probes the webhook's URL once, enabled or not.
func (s *Service) TestWebhook(ctx context.Context, id int64) (TestResult, error) {
	h, err := s.webhooks.GetWebhook(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	return s.dispatcher.Test(ctx, h.URL), nil
}

// JobStatus returns the latest snapshot for a job.
func (s *Service) JobStatus(ctx context.Context, jobID string) (JobSnapshot, error) {
	return s.status.Get(ctx, jobID)
}

// StreamProgress emits progress events for jobID until a terminal event.
func (s *Service) StreamProgress(ctx context.Context, jobID string, emit func(ProgressEvent) error) error {
	return s.streamer.Stream(ctx, jobID, emit)
}

// UploadStatus reports upload slot usage.
func (s *Service) UploadStatus() LimiterStatus {
	return s.uploads.Status()
}

// Drain waits for in-flight uploads and product event deliveries.
func (s *Service) Drain(ctx context.Context) error {
	if err := s.uploads.WaitForDrain(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.events.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish fans an event out in the background so the request never waits
// on subscribers.
func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.dispatcher == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.events.Add(1)
	go func() {
		defer s.events.Done()
		s.dispatcher.FanOut(detached, eventType, payload)
	}()
}
