package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// memProducts is a ProductStore keyed case-insensitively by sku, matching
// the unique index on lower(sku).
type memProducts struct {
	mu      sync.Mutex
	nextID  int64
	bySKU   map[string]*Product
	chunks  [][]ProductRow
	failOn  int // UpsertChunk call number (1-based) that fails; 0 = never
	upserts int
}

func newMemProducts() *memProducts {
	return &memProducts{bySKU: map[string]*Product{}}
}

func (m *memProducts) UpsertChunk(_ context.Context, rows []ProductRow, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	if m.failOn == m.upserts {
		return 0, errors.New("deadlock detected")
	}
	m.chunks = append(m.chunks, append([]ProductRow(nil), rows...))

	for _, r := range rows {
		if p, ok := m.bySKU[r.Key()]; ok {
			p.Name, p.Description, p.Active, p.UpdatedAt = r.Name, r.Description, r.Active, now
			continue
		}
		m.nextID++
		m.bySKU[r.Key()] = &Product{
			ID: m.nextID, SKU: r.SKU, Name: r.Name, Description: r.Description,
			Active: r.Active, CreatedAt: now, UpdatedAt: now,
		}
	}
	return len(rows), nil
}

func (m *memProducts) all() []Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.bySKU))
	for _, p := range m.bySKU {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memProducts) ListProducts(_ context.Context, f ProductFilter) ([]Product, int64, error) {
	var match []Product
	for _, p := range m.all() {
		if f.SKU != "" && !strings.Contains(strings.ToLower(p.SKU), strings.ToLower(f.SKU)) {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		match = append(match, p)
	}
	total := int64(len(match))
	start := (f.Page - 1) * f.Size
	if start > len(match) {
		start = len(match)
	}
	end := min(start+f.Size, len(match))
	return match[start:end], total, nil
}

func (m *memProducts) GetProduct(_ context.Context, id int64) (Product, error) {
	for _, p := range m.all() {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *memProducts) GetProductBySKU(_ context.Context, sku string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.bySKU[strings.ToLower(sku)]; ok {
		return *p, nil
	}
	return Product{}, ErrNotFound
}

func (m *memProducts) CreateProduct(_ context.Context, in ProductInput, now time.Time) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(in.SKU)
	if _, ok := m.bySKU[key]; ok {
		return Product{}, ErrDuplicateSKU
	}
	m.nextID++
	p := &Product{
		ID: m.nextID, SKU: in.SKU, Name: in.Name, Description: *in.Description,
		Active: *in.Active, CreatedAt: now, UpdatedAt: now,
	}
	m.bySKU[key] = p
	return *p, nil
}

func (m *memProducts) UpdateProduct(_ context.Context, id int64, patch ProductPatch, now time.Time) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.bySKU {
		if p.ID != id {
			continue
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Active != nil {
			p.Active = *patch.Active
		}
		p.UpdatedAt = now
		return *p, nil
	}
	return Product{}, ErrNotFound
}

func (m *memProducts) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, p := range m.bySKU {
		if p.ID == id {
			delete(m.bySKU, k)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memProducts) DeleteAllProducts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.bySKU))
	m.bySKU = map[string]*Product{}
	return n, nil
}

// memStatus is a JobStatusStore that keeps every accepted write.
type memStatus struct {
	mu      sync.Mutex
	latest  map[string]JobSnapshot
	history []JobSnapshot
	getErr  error
}

func newMemStatus() *memStatus {
	return &memStatus{latest: map[string]JobSnapshot{}}
}

func (m *memStatus) Get(_ context.Context, id string) (JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return JobSnapshot{}, m.getErr
	}
	if s, ok := m.latest[id]; ok {
		return s, nil
	}
	return PendingSnapshot(id), nil
}

func (m *memStatus) Set(_ context.Context, snap JobSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.latest[snap.JobID]; ok && !cur.CanTransition(snap.State) {
		return ErrTerminalState
	}
	m.latest[snap.JobID] = snap
	m.history = append(m.history, snap)
	return nil
}

func (m *memStatus) states(id string) []JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JobState
	for _, s := range m.history {
		if s.JobID == id {
			out = append(out, s.State)
		}
	}
	return out
}

// scriptedStatus returns a fixed sequence of snapshots, repeating the last.
type scriptedStatus struct {
	mu    sync.Mutex
	snaps []JobSnapshot
	reads int
}

func (s *scriptedStatus) Get(context.Context, string) (JobSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.reads, len(s.snaps)-1)
	s.reads++
	return s.snaps[i], nil
}

func (s *scriptedStatus) Set(context.Context, JobSnapshot) error { return nil }

// memQueue is an in-process JobQueue.
type memQueue struct {
	jobs chan Job
	err  error
}

func newMemQueue() *memQueue {
	return &memQueue{jobs: make(chan Job, 16)}
}

func (q *memQueue) Enqueue(_ context.Context, job Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs <- job
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (Job, error) {
	select {
	case j := <-q.jobs:
		return j, nil
	case <-time.After(timeout):
		return Job{}, ErrQueueEmpty
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// memWebhooks is a WebhookStore plus DeliveryRecorder.
type memWebhooks struct {
	mu         sync.Mutex
	hooks      []Webhook
	deliveries []WebhookDelivery
}

func (m *memWebhooks) ListWebhooks(_ context.Context, skip, limit int) ([]Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if skip >= len(m.hooks) {
		return nil, nil
	}
	end := min(skip+limit, len(m.hooks))
	return append([]Webhook(nil), m.hooks[skip:end]...), nil
}

func (m *memWebhooks) GetWebhook(_ context.Context, id int64) (Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hooks {
		if h.ID == id {
			return h, nil
		}
	}
	return Webhook{}, ErrNotFound
}

func (m *memWebhooks) CreateWebhook(_ context.Context, in WebhookInput, now time.Time) (Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := Webhook{
		ID: int64(len(m.hooks) + 1), URL: in.URL, EventType: in.EventType,
		Enabled: *in.Enabled, CreatedAt: now, UpdatedAt: now,
	}
	m.hooks = append(m.hooks, h)
	return h, nil
}

func (m *memWebhooks) UpdateWebhook(_ context.Context, id int64, p WebhookPatch, now time.Time) (Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.hooks {
		h := &m.hooks[i]
		if h.ID != id {
			continue
		}
		if p.URL != nil {
			h.URL = *p.URL
		}
		if p.EventType != nil {
			h.EventType = *p.EventType
		}
		if p.Enabled != nil {
			h.Enabled = *p.Enabled
		}
		h.UpdatedAt = now
		return *h, nil
	}
	return Webhook{}, ErrNotFound
}

func (m *memWebhooks) DeleteWebhook(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.hooks {
		if h.ID == id {
			m.hooks = append(m.hooks[:i], m.hooks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memWebhooks) ListEnabledWebhooks(_ context.Context, eventType string) ([]Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Webhook
	for _, h := range m.hooks {
		if h.Enabled && h.EventType == eventType {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memWebhooks) RecordDelivery(_ context.Context, d WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *memWebhooks) recorded() []WebhookDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WebhookDelivery(nil), m.deliveries...)
}
