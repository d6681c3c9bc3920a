package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/replan"
	"github.com/aretw0/replan/pkg/adapters/memory"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/oracle/scripted"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemoEngine(t *testing.T) *replan.Engine {
	t.Helper()
	eng, err := replan.New(replan.WithOracles(scripted.Demo()))
	require.NoError(t, err)
	return eng
}

func decodeEvents(t *testing.T, body io.Reader) []runner.Event {
	t.Helper()
	var events []runner.Event
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		var ev runner.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev), scanner.Text())
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestStartRun_StreamsAndArchives(t *testing.T) {
	store := memory.NewStore()
	handler := NewHandler(newDemoEngine(t), WithStore(store), WithLocker(memory.NewLocker()))

	body := `{"objective": "` + scripted.DemoObjective + `", "config": {"run_id": "nba"}}`
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nba", rec.Header().Get("X-Run-ID"))

	events := decodeEvents(t, rec.Body)
	require.Len(t, events, 7)
	assert.Equal(t, runner.EventStart, events[0].Type)
	assert.Equal(t, "planner", events[1].Node)
	last := events[len(events)-1]
	assert.Equal(t, runner.EventResult, last.Type)
	assert.Equal(t, domain.StatusCompleted, last.Status)
	assert.Contains(t, last.Answer, "Akron, Ohio")

	record, err := store.Load(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Len(t, record.Steps, 5)
}

func TestStartRun_RecursionLimitIsReportedInTrailer(t *testing.T) {
	handler := NewHandler(newDemoEngine(t))

	body := `{"objective": "x", "config": {"recursion_limit": 2}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeEvents(t, rec.Body)
	require.Len(t, events, 4)
	last := events[3]
	assert.Equal(t, domain.StatusAborted, last.Status)
	assert.Contains(t, last.Error, "recursion limit")
}

func TestStartRun_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"objective":`, "invalid request body"},
		{"blank objective", `{"objective": "   "}`, "invalid objective"},
		{"unknown config key", `{"objective": "x", "config": {"temperature": 1}}`, "invalid run config"},
		{"bad limit", `{"objective": "x", "config": {"recursion_limit": 0}}`, "recursion_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(newDemoEngine(t))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Contains(t, resp["error"], tt.want)
		})
	}
}

func TestRunsCRUD(t *testing.T) {
	store := memory.NewStore()
	handler := NewHandler(newDemoEngine(t), WithStore(store))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs",
		strings.NewReader(`{"objective": "x", "config": {"run_id": "r1"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string][]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, []string{"r1"}, list["runs"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
	assert.Equal(t, "r1", record.ID)
	assert.Equal(t, "x", record.Objective)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/runs/r1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_NoStore(t *testing.T) {
	handler := NewHandler(newDemoEngine(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/anything", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGraph(t *testing.T) {
	store := memory.NewStore()
	handler := NewHandler(newDemoEngine(t), WithStore(store))

	t.Run("mermaid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "graph TD")
		assert.Contains(t, rec.Body.String(), `replan -- "done" --> __end__`)
	})

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph?format=json", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var topo struct {
			Entry string   `json:"entry"`
			Nodes []string `json:"nodes"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&topo))
		assert.Equal(t, "planner", topo.Entry)
		assert.ElementsMatch(t, []string{"planner", "agent", "replan"}, topo.Nodes)
	})

	t.Run("overlay of unknown run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph?run=missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "replan_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	handler := NewHandler(newDemoEngine(t), WithGatherer(reg))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "replan_test_total 1")
}

func TestHealthAndInfo(t *testing.T) {
	handler := NewHandler(newDemoEngine(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.JSONEq(t, `{"app":"replan-http","version":"`+replan.Version+`"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	handler := NewHandler(newDemoEngine(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/runs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_RelaysLiveRun(t *testing.T) {
	srv := NewServer(newDemoEngine(t))
	handler := srv.Routes()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sseRec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/runs/live/events", nil).WithContext(ctx)
		handler.ServeHTTP(sseRec, req)
	}()

	require.Eventually(t, func() bool {
		return srv.Streams.Subscribers("live") == 1
	}, time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs",
		strings.NewReader(`{"objective": "x", "config": {"run_id": "live"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("SSE handler did not return after the result event")
	}

	out := sseRec.Body.String()
	assert.Equal(t, "text/event-stream", sseRec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(out, "event: ping\ndata: connected\n\n"))
	assert.Equal(t, 7, strings.Count(out, "data: {"))
	assert.Contains(t, out, `data: {"type":"result"`)
	assert.Equal(t, 0, srv.Streams.Subscribers("live"))
}

func TestBroadcastWriter_SplitsLines(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("r")
	defer cancel()

	w := sm.Writer("r")
	_, _ = io.WriteString(w, `{"a":1}`+"\n"+`{"b":`)
	_, _ = io.WriteString(w, `2}`+"\n")

	assert.Equal(t, `{"a":1}`, <-ch)
	assert.Equal(t, `{"b":2}`, <-ch)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("r")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		sm.Broadcast("r", "msg")
	}
	assert.Len(t, ch, subscriberBuffer)

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("r"))
}
