package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/ego/metrics"
	"github.com/edenrobotics/egograph/episodic"
	"github.com/edenrobotics/egograph/graph"
	"github.com/edenrobotics/egograph/internal/profile"
	"github.com/edenrobotics/egograph/store"
	"github.com/edenrobotics/egograph/store/db/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "server_test.db"),
		Port:   0,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	embedder := ai.NewLocalEmbedder(64)
	g := graph.New(st, embedder.Model(), graph.DefaultConfig())
	require.NoError(t, g.Load(ctx))
	ep := episodic.New(st, embedder, episodic.DefaultConfig())
	require.NoError(t, ep.Load(ctx))

	cfg := ego.DefaultConfig()
	hub := NewHub()
	t.Cleanup(hub.Close)
	recorder := metrics.NewRecorder()

	engine := ego.NewEngine(
		cfg,
		ego.NewHeuristicScorer(cfg),
		ego.NewSemanticScorer(embedder, g, cfg),
		nil,
		g,
		ep,
		hub,
		recorder,
	)

	return NewServer(p, engine, g, ep, recorder, hub)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_ProcessEvent(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events",
		`{"description": "Ian just finished building the robot", "user_id": "ian", "detected_actions": ["completed"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var trace ego.ReasoningTrace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trace))
	assert.True(t, trace.Accepted)
	assert.Equal(t, ego.ActionAddedToGraph, trace.Action)
	assert.Equal(t, ego.NodeTypeAchievement, trace.NodeType)
	assert.NotNil(t, trace.MemoryID)
}

func TestServer_ProcessEventValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events", `{"description": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/events", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ProcessBatch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events/batch", `[
		{"description": "Ian just finished building the robot", "detected_actions": ["completed"]},
		{"description": "A cool and nice casual walk in the park"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result ego.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Committed)
	assert.Equal(t, 1, result.Episodic)
	assert.Zero(t, result.Errored)

	rec = doRequest(s, http.MethodPost, "/api/v1/events/batch", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Personality(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/personality", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var p ego.PersonalityVector
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, ego.DefaultPersonality(), p)

	rec = doRequest(s, http.MethodPut, "/api/v1/personality/Neuroticism", `{"value": 0.8}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.InDelta(t, 0.8, p.Neuroticism, 1e-9)

	rec = doRequest(s, http.MethodPut, "/api/v1/personality/Bravery", `{"value": 0.8}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GraphSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap graph.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, graph.SelfNodeID, snap.Nodes[0].ID)
	require.NotNil(t, snap.Nodes[0].Personality)
}

func TestServer_UserMemories(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events",
		`{"description": "Ian just finished building the robot", "user_id": "ian", "detected_actions": ["completed"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/memories?user=ian", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var nodes []graph.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	assert.Len(t, nodes, 1)

	rec = doRequest(s, http.MethodGet, "/api/v1/memories", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_EpisodicSearch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/events",
		`{"description": "A cool and nice casual walk in the park"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/episodic/search?q=casual+walk+park", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []episodic.ScoredEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.NotEmpty(t, results)

	rec = doRequest(s, http.MethodGet, "/api/v1/episodic/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/episodic/search?q=walk&limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Inject(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/inject/trauma", `{"description": "a catastrophic failure"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		MemoryID    string                `json:"memory_id"`
		Personality ego.PersonalityVector `json:"personality"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.MemoryID)
	assert.InDelta(t, 0.9, resp.Personality.Neuroticism, 1e-9)

	rec = doRequest(s, http.MethodPost, "/api/v1/inject/kindness", `{"description": "a stranger helped"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.3, resp.Personality.Agreeableness, 1e-9)

	rec = doRequest(s, http.MethodPost, "/api/v1/inject/trauma", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)

	doRequest(s, http.MethodPost, "/api/v1/events",
		`{"description": "Ian just finished building the robot", "detected_actions": ["completed"]}`)

	rec := doRequest(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "egograph_events_processed_total")
}

func TestHub_FanOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	first, cancelFirst := hub.Subscribe()
	second, cancelSecond := hub.Subscribe()
	defer cancelFirst()
	defer cancelSecond()
	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(ego.ChangeEvent{Type: ego.ChangeMemoryCommitted})

	for _, ch := range []<-chan ego.ChangeEvent{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, ego.ChangeMemoryCommitted, event.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; Publish must never block.
		for i := 0; i < 100; i++ {
			hub.Publish(ego.ChangeEvent{Type: ego.ChangeMemoryCommitted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()
	assert.Zero(t, hub.SubscriberCount())

	_, open := <-ch
	assert.False(t, open, "canceled subscription closes the channel")
}
