package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOut_DeliversToEnabledSubscribersOnly(t *testing.T) {
	var hits atomic.Int32
	var gotEvent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotEvent.Store(r.Header.Get(EventHeader))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["task_id"] != "job-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := &memWebhooks{hooks: []Webhook{
		{ID: 1, URL: srv.URL, EventType: EventImportCompleted, Enabled: true},
		{ID: 2, URL: srv.URL, EventType: EventImportCompleted, Enabled: false},
		{ID: 3, URL: srv.URL, EventType: EventImportFailed, Enabled: true},
		{ID: 4, URL: srv.URL + "/second", EventType: EventImportCompleted, Enabled: true},
	}}
	d := NewDispatcher(store, store, srv.Client(), time.Second)

	results := d.FanOut(context.Background(), EventImportCompleted, map[string]any{"task_id": "job-1"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success, "webhook %d", r.WebhookID)
		assert.Equal(t, http.StatusNoContent, r.StatusCode)
	}
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, EventImportCompleted, gotEvent.Load())
	assert.Len(t, store.recorded(), 2)
}

func TestFanOut_FailuresAreRecordedNotReturned(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	store := &memWebhooks{hooks: []Webhook{
		{ID: 1, URL: ok.URL, EventType: EventImportFailed, Enabled: true},
		{ID: 2, URL: bad.URL, EventType: EventImportFailed, Enabled: true},
		{ID: 3, URL: closedURL, EventType: EventImportFailed, Enabled: true},
	}}
	d := NewDispatcher(store, store, nil, time.Second)

	results := d.FanOut(context.Background(), EventImportFailed, map[string]any{"error": "x"})

	byID := map[int64]DeliveryResult{}
	for _, r := range results {
		byID[r.WebhookID] = r
	}
	assert.True(t, byID[1].Success)
	assert.False(t, byID[2].Success)
	assert.Equal(t, http.StatusInternalServerError, byID[2].StatusCode)
	assert.False(t, byID[3].Success)
	assert.Error(t, byID[3].Err)

	recorded := store.recorded()
	require.Len(t, recorded, 3)
	failures := 0
	for _, rec := range recorded {
		if !rec.Success {
			failures++
			assert.NotEmpty(t, rec.Error)
		}
	}
	assert.Equal(t, 2, failures)
}

func TestFanOut_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	var fastDone atomic.Int64
	start := time.Now()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fastDone.Store(int64(time.Since(start)))
		w.WriteHeader(http.StatusOK)
	}))
	defer fast.Close()

	store := &memWebhooks{hooks: []Webhook{
		{ID: 1, URL: slow.URL, EventType: EventProductCreated, Enabled: true},
		{ID: 2, URL: fast.URL, EventType: EventProductCreated, Enabled: true},
	}}
	d := NewDispatcher(store, nil, nil, 100*time.Millisecond)

	results := d.FanOut(context.Background(), EventProductCreated, map[string]any{})

	require.Len(t, results, 2)
	assert.Less(t, time.Duration(fastDone.Load()), 100*time.Millisecond)
	for _, r := range results {
		if r.WebhookID == 1 {
			assert.False(t, r.Success, "slow subscriber should time out")
		} else {
			assert.True(t, r.Success)
		}
	}
}

func TestFanOut_NoSubscribers(t *testing.T) {
	d := NewDispatcher(&memWebhooks{}, nil, nil, time.Second)
	assert.Empty(t, d.FanOut(context.Background(), EventImportCompleted, nil))
}

func TestDispatcherTest_AnyResponseIsSuccess(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(&memWebhooks{}, nil, nil, time.Second)
	res := d.Test(context.Background(), srv.URL)

	assert.True(t, res.Success)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, *res.StatusCode)
	require.NotNil(t, res.ResponseTime)
	assert.GreaterOrEqual(t, *res.ResponseTime, 0.0)
	assert.Empty(t, res.Error)
	assert.Equal(t, true, body["test"])
	assert.Equal(t, "Webhook test from Product Importer", body["message"])
}

func TestDispatcherTest_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := NewDispatcher(&memWebhooks{}, nil, nil, time.Second)
	res := d.Test(context.Background(), url)

	assert.False(t, res.Success)
	assert.Nil(t, res.StatusCode)
	assert.Nil(t, res.ResponseTime)
	assert.NotEmpty(t, res.Error)
}
