package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// DefaultWebhookTimeout bounds each outbound call.
const DefaultWebhookTimeout = 10 * time.Second

// EventHeader names the event type on every outbound request.
const EventHeader = "X-Webhook-Event"

var testPayload = map[string]any{
	"test":    true,
	"message": "Webhook test from Product Importer",
}

// Dispatcher delivers events to subscribed webhooks. Delivery is best
// effort: one attempt per subscriber, failures are logged and recorded but
// never returned.
type Dispatcher struct {
	store    WebhookStore
	recorder DeliveryRecorder
	client   *http.Client
	timeout  time.Duration
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(store WebhookStore, recorder DeliveryRecorder, client *http.Client, timeout time.Duration) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Dispatcher{
		store:    store,
		recorder: recorder,
		client:   client,
		timeout:  timeout,
		now:      time.Now,
	}
}

// FanOut posts payload to every enabled webhook subscribed to eventType, all
// in parallel, each under its own timeout. Result order is not meaningful.
func (d *Dispatcher) FanOut(ctx context.Context, eventType string, payload any) []DeliveryResult {
	log := logging.WithFields(ctx, "event", eventType)

	hooks, err := d.store.ListEnabledWebhooks(ctx, eventType)
	if err != nil {
		log.Error("failed to load webhooks", "error", err)
		return nil
	}
	if len(hooks) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to encode webhook payload", "error", err)
		return nil
	}

	results := make([]DeliveryResult, len(hooks))
	var g errgroup.Group
	for i, h := range hooks {
		g.Go(func() error {
			results[i] = d.deliver(ctx, h, eventType, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if res.Success {
			continue
		}
		log.Warn("webhook delivery failed",
			"webhook_id", res.WebhookID,
			"url", res.URL,
			"status_code", res.StatusCode,
			"error", res.Err,
		)
	}
	return results
}

// deliver performs one attempt and records it.
func (d *Dispatcher) deliver(ctx context.Context, h Webhook, eventType string, body []byte) DeliveryResult {
	res := DeliveryResult{WebhookID: h.ID, URL: h.URL}

	start := time.Now()
	status, err := d.post(ctx, h.URL, eventType, body)
	res.Duration = time.Since(start)
	res.StatusCode = status

	switch {
	case err != nil:
		res.Err = err
	case status < 200 || status > 299:
		res.Err = fmt.Errorf("unexpected status %d", status)
	default:
		res.Success = true
	}

	if d.recorder != nil {
		rec := WebhookDelivery{
			WebhookID:      h.ID,
			EventType:      eventType,
			Success:        res.Success,
			StatusCode:     status,
			ResponseTimeMS: res.Duration.Milliseconds(),
			DeliveredAt:    d.now().UTC(),
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if err := d.recorder.RecordDelivery(context.WithoutCancel(ctx), rec); err != nil {
			logging.FromContext(ctx).Warn("failed to record webhook delivery", "webhook_id", h.ID, "error", err)
		}
	}
	return res
}

// post sends body and returns the response status code.
func (d *Dispatcher) post(ctx context.Context, url, eventType string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "product-importer-webhooks/1.0")
	if eventType != "" {
		req.Header.Set(EventHeader, eventType)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

// Test sends the fixed probe payload to url. Any HTTP response, whatever
// its status, counts as success. Transport failures are reported in the
// result, never as an error.
func (d *Dispatcher) Test(ctx context.Context, url string) TestResult {
	body, _ := json.Marshal(testPayload)

	start := time.Now()
	status, err := d.post(ctx, url, "", body)
	if err != nil {
		return TestResult{Success: false, Error: err.Error()}
	}

	elapsed := math.Round(time.Since(start).Seconds()*1000) / 1000
	return TestResult{
		Success:      true,
		StatusCode:   &status,
		ResponseTime: &elapsed,
	}
}
