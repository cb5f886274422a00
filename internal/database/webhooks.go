package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

const webhookColumns = "id, url, event_type, enabled, created_at, updated_at"

func (s *Store) ListWebhooks(ctx context.Context, skip, limit int) ([]core.Webhook, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+webhookColumns+" FROM webhooks ORDER BY id LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	hooks, err := pgx.CollectRows(rows, scanWebhook)
	if err != nil {
		return nil, fmt.Errorf("scan webhooks: %w", err)
	}
	return hooks, nil
}

// ListEnabledWebhooks returns the subscribers for one event type.
func (s *Store) ListEnabledWebhooks(ctx context.Context, eventType string) ([]core.Webhook, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+webhookColumns+" FROM webhooks WHERE enabled AND event_type = $1 ORDER BY id", eventType)
	if err != nil {
		return nil, fmt.Errorf("list enabled webhooks: %w", err)
	}
	hooks, err := pgx.CollectRows(rows, scanWebhook)
	if err != nil {
		return nil, fmt.Errorf("scan webhooks: %w", err)
	}
	return hooks, nil
}

func (s *Store) GetWebhook(ctx context.Context, id int64) (core.Webhook, error) {
	return s.oneWebhook(ctx, "SELECT "+webhookColumns+" FROM webhooks WHERE id = $1", id)
}

func (s *Store) CreateWebhook(ctx context.Context, in core.WebhookInput, now time.Time) (core.Webhook, error) {
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	return s.oneWebhook(ctx, `INSERT INTO webhooks (url, event_type, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
RETURNING `+webhookColumns, in.URL, in.EventType, enabled, now)
}

func (s *Store) UpdateWebhook(ctx context.Context, id int64, p core.WebhookPatch, now time.Time) (core.Webhook, error) {
	return s.oneWebhook(ctx, `UPDATE webhooks SET
	url        = COALESCE($2, url),
	event_type = COALESCE($3, event_type),
	enabled    = COALESCE($4, enabled),
	updated_at = $5
WHERE id = $1
RETURNING `+webhookColumns, id, p.URL, p.EventType, p.Enabled, now)
}

func (s *Store) DeleteWebhook(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM webhooks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete webhook %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// RecordDelivery appends one fan-out outcome to the delivery log.
func (s *Store) RecordDelivery(ctx context.Context, d core.WebhookDelivery) error {
	var status *int
	if d.StatusCode != 0 {
		status = &d.StatusCode
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO webhook_deliveries
	(webhook_id, event_type, success, status_code, response_time_ms, error, delivered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.WebhookID, d.EventType, d.Success, status, d.ResponseTimeMS, d.Error, d.DeliveredAt)
	if err != nil {
		return fmt.Errorf("record delivery for webhook %d: %w", d.WebhookID, err)
	}
	return nil
}

func (s *Store) oneWebhook(ctx context.Context, query string, args ...any) (core.Webhook, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return core.Webhook{}, translate(err)
	}
	h, err := pgx.CollectExactlyOneRow(rows, scanWebhook)
	if err != nil {
		return core.Webhook{}, translate(err)
	}
	return h, nil
}

func scanWebhook(row pgx.CollectableRow) (core.Webhook, error) {
	var h core.Webhook
	err := row.Scan(&h.ID, &h.URL, &h.EventType, &h.Enabled, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}
