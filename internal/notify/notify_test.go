package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/events"
)

func TestWebhookSinkPostsSummaryEvents(t *testing.T) {
	var got events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(config.NotifyConfig{WebhookURL: srv.URL})
	sink.Handle(events.PlanCommitted("pi-1", "team-a", 0.82))

	assert.Equal(t, events.TypePlanCommitted, got.Type)
	assert.Equal(t, "pi-1", got.PIID)
	assert.InDelta(t, 0.82, got.Readiness, 1e-9)
}

func TestWebhookSinkDropsProgressEvents(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	sink := NewWebhookSink(config.NotifyConfig{WebhookURL: srv.URL})
	sink.Handle(events.StageStarted("pi-1", "team-a", events.StageFetch, 1, 7))
	sink.Handle(events.ItemsProcessed("pi-1", "team-a", events.StageDecompose, 25, 100))

	assert.Equal(t, int32(0), calls.Load())
}

func TestWebhookSinkNeverPanicsOnFailure(t *testing.T) {
	sink := NewWebhookSink(config.NotifyConfig{WebhookURL: "http://127.0.0.1:1"})
	assert.NotPanics(t, func() {
		sink.Handle(events.ReadinessBelowThreshold("pi-1", "team-a", 0.3, "low readiness"))
	})
}

func TestEmptyURLYieldsNop(t *testing.T) {
	sink := NewWebhookSink(config.NotifyConfig{})
	_, ok := sink.(NopSink)
	assert.True(t, ok)
}
