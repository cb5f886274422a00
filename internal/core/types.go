package core

import (
	"context"
	"math"
	"time"
)

// Event types published to webhook subscribers.
const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
)

// KnownEvents lists every event type the service emits.
var KnownEvents = []string{
	EventImportCompleted,
	EventImportFailed,
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
}

// Product is a stored catalog entry. SKU is unique case-insensitively.
type Product struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput is the body of a create request.
type ProductInput struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ProductPatch is a partial update. Nil fields are left unchanged.
// SKU is accepted only when it matches the stored value.
type ProductPatch struct {
	SKU         *string `json:"sku,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ProductFilter narrows a product listing. String filters are
// case-insensitive substring matches.
type ProductFilter struct {
	SKU         string
	Name        string
	Description string
	Active      *bool
	Page        int
	Size        int
}

// Pagination bounds for product listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
	// MaxPage keeps the row offset within a Postgres int4.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// ProductPage is one page of a filtered listing.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
	Pages int       `json:"pages"`
}

// Webhook is a subscription to one event type.
type Webhook struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	EventType string    `json:"event_type"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WebhookInput is the body of a webhook create request.
type WebhookInput struct {
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

// WebhookPatch is a partial webhook update.
type WebhookPatch struct {
	URL       *string `json:"url,omitempty"`
	EventType *string `json:"event_type,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
}

// WebhookDelivery records the outcome of one fan-out call.
type WebhookDelivery struct {
	WebhookID      int64
	EventType      string
	Success        bool
	StatusCode     int
	ResponseTimeMS int64
	Error          string
	DeliveredAt    time.Time
}

// DeliveryResult is the in-memory outcome of one fan-out call.
type DeliveryResult struct {
	WebhookID  int64
	URL        string
	Success    bool
	StatusCode int
	Duration   time.Duration
	Err        error
}

// TestResult is the outcome of an on-demand webhook probe.
type TestResult struct {
	Success      bool     `json:"success"`
	StatusCode   *int     `json:"status_code,omitempty"`
	ResponseTime *float64 `json:"response_time,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// ProductStore is the durable product catalog.
type ProductStore interface {
	ChunkWriter
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductBySKU(ctx context.Context, sku string) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput, now time.Time) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p ProductPatch, now time.Time) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	DeleteAllProducts(ctx context.Context) (int64, error)
}

// ChunkWriter commits one deduplicated chunk as a single transaction and
// returns the number of rows written.
type ChunkWriter interface {
	UpsertChunk(ctx context.Context, rows []ProductRow, now time.Time) (int, error)
}

// WebhookStore is the subscription registry.
type WebhookStore interface {
	ListWebhooks(ctx context.Context, skip, limit int) ([]Webhook, error)
	GetWebhook(ctx context.Context, id int64) (Webhook, error)
	CreateWebhook(ctx context.Context, in WebhookInput, now time.Time) (Webhook, error)
	UpdateWebhook(ctx context.Context, id int64, p WebhookPatch, now time.Time) (Webhook, error)
	DeleteWebhook(ctx context.Context, id int64) error
	ListEnabledWebhooks(ctx context.Context, eventType string) ([]Webhook, error)
}

// DeliveryRecorder persists fan-out outcomes.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, d WebhookDelivery) error
}

// JobQueue hands each job to exactly one worker.
type JobQueue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks up to timeout and returns ErrQueueEmpty if nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (Job, error)
}

// JobStatusStore holds the latest snapshot per job. The worker executing a
// job is its only writer after the initial PENDING record.
type JobStatusStore interface {
	Get(ctx context.Context, jobID string) (JobSnapshot, error)
	Set(ctx context.Context, snap JobSnapshot) error
}
