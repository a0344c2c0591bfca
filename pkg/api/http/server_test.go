package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/dapipe/internal/application/monitor"
	"github.com/aescanero/dapipe/internal/application/orchestrator"
	"github.com/aescanero/dapipe/internal/application/queue"
	"github.com/aescanero/dapipe/internal/application/workers"
	bridgemem "github.com/aescanero/dapipe/pkg/adapters/bridge/memory"
	metrics "github.com/aescanero/dapipe/pkg/adapters/metrics/prometheus"
	storemem "github.com/aescanero/dapipe/pkg/adapters/storage/memory"
	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	server *Server
	queue  *queue.Registry
	hub    *bridgemem.Hub
	worker *workers.QueueWorker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(reg)
	hub := bridgemem.NewHub(16)
	q := queue.NewRegistry(t.TempDir())
	manager := orchestrator.NewManager(
		orchestrator.NewRegistry(nil),
		monitor.New(),
		hub,
		storemem.NewStatsStore(),
		collector,
		zap.NewNop(),
		"",
	)
	worker := workers.NewQueueWorker(q, manager, collector, zap.NewNop(), time.Minute)
	health := workers.NewHealthMonitor(worker, q, collector, time.Minute, zap.NewNop())

	return &testServer{
		server: NewServer(&Config{
			Version:  "test",
			Manager:  manager,
			Queue:    q,
			Health:   health,
			Gatherer: reg,
			Logger:   zap.NewNop(),
		}),
		queue:  q,
		hub:    hub,
		worker: worker,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func samplePayload() map[string]any {
	return map[string]any{
		"data": []any{
			map[string]any{
				"ObjectIdentifier": "Computer",
				"Properties":       map[string]any{"name": "ws01"},
				"Rels":             []any{map[string]any{"RelType": "AdminTo"}},
			},
		},
	}
}

func TestRootAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	root := decode[map[string]any](t, rec)
	assert.Equal(t, "dapipe", root["name"])
	assert.Equal(t, "test", root["version"])

	rec = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]any](t, rec)["status"])
}

func TestHealthUnhealthyAfterShutdown(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.worker.Start())
	require.NoError(t, ts.worker.Shutdown(t.Context()))

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode[map[string]any](t, rec)["status"])
}

func TestOrchestrate(t *testing.T) {
	t.Run("runs pipeline and updates monitor", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/orchestrate", OrchestrateRequest{
			PipelineID:  "p1",
			Source:      "bloodhound",
			Destination: "neo4j",
			Payload:     samplePayload(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[OrchestrateResponse](t, rec)
		assert.Equal(t, "p1", resp.PipelineID)
		assert.Equal(t, 1, resp.Nodes)
		assert.Equal(t, 1, resp.Edges)

		rec = ts.do(t, http.MethodGet, "/api/v1/monitor", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		stats := decode[domain.MonitoringStats](t, rec)
		assert.Equal(t, 1, stats.ActivePipelines)
		assert.Equal(t, uint64(2), stats.DataProcessed)

		assert.Len(t, ts.hub.Messages(), 1)
	})

	t.Run("generates an id when missing", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/orchestrate", map[string]any{
			"source":      "s",
			"destination": "d",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode[OrchestrateResponse](t, rec).PipelineID)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/orchestrate", map[string]any{"source": "s"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, rec).Error.Code)
	})
}

func TestQueueEndpoints(t *testing.T) {
	t.Run("persists record and notifies", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/queue", QueueRequest{
			ID:           "job-1",
			Source:       "s",
			Transformers: []string{"normalize"},
			Destination:  "d",
			Payload:      samplePayload(),
		})
		require.Equal(t, http.StatusAccepted, rec.Code)

		resp := decode[QueueResponse](t, rec)
		assert.Equal(t, "job-1", resp.ID)
		assert.Equal(t, filepath.Join(ts.queue.WorkDir(), "job-1.json"), resp.Path)
		_, err := os.Stat(resp.Path)
		require.NoError(t, err)

		msgs := ts.hub.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, orchestrator.EventPipelineQueued, msgs[0].Payload.(map[string]any)["event"])

		rec = ts.do(t, http.MethodGet, "/api/v1/queue", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.QueueSnapshot{Pending: 1}, decode[domain.QueueSnapshot](t, rec))
	})

	t.Run("requires transformers", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/queue", QueueRequest{Source: "s", Destination: "d"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.hub.Messages())
	})

	t.Run("conflicting file name is refused", func(t *testing.T) {
		ts := newTestServer(t)
		req := QueueRequest{ID: "a:b", Source: "s", Transformers: []string{"t"}, Destination: "d"}

		rec := ts.do(t, http.MethodPost, "/api/v1/queue", req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		req.ID = "a_b"
		rec = ts.do(t, http.MethodPost, "/api/v1/queue", req)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "QUEUE_CONFLICT", decode[ErrorResponse](t, rec).Error.Code)
		assert.Len(t, ts.hub.Messages(), 1)
	})

	t.Run("rejects invalid record", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/v1/queue", QueueRequest{
			Source:       "s",
			Transformers: []string{""},
			Destination:  "d",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPipelineEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/orchestrate", OrchestrateRequest{
		PipelineID: "p1", Source: "s", Destination: "d",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/pipelines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	rec = ts.do(t, http.MethodGet, "/api/v1/pipelines/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[domain.Pipeline](t, rec)
	assert.Equal(t, "p1", p.ID)
	assert.True(t, p.Status.IsActive())

	rec = ts.do(t, http.MethodGet, "/api/v1/pipelines/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/pipelines/p1/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/pipelines/missing/stop", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/monitor", nil)
	assert.Equal(t, 0, decode[domain.MonitoringStats](t, rec).ActivePipelines)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/v1/orchestrate", OrchestrateRequest{Source: "s", Destination: "d"})

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dapipe_pipeline_runs_total")
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/extract", samplePayload())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ExtractResponse](t, rec)
	assert.Equal(t, 1, resp.NodesCount)
	assert.Equal(t, 1, resp.EdgesCount)
	require.NotNil(t, resp.Graph)
	assert.Equal(t, "bloodhound", resp.Graph.Metadata.Source)
	assert.Empty(t, ts.server.manager.ListPipelines())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"data": [`))
	bad := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "EXTRACTION_FAILED", decode[ErrorResponse](t, bad).Error.Code)
}

func TestLastRunEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/orchestrate", OrchestrateRequest{
		PipelineID: "p1", Source: "s", Destination: "d", Payload: samplePayload(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/pipelines/p1/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[domain.PipelineRunStats](t, rec)
	assert.Equal(t, 1, run.NodesCount)
	assert.Equal(t, 1, run.EdgesCount)

	rec = ts.do(t, http.MethodGet, "/api/v1/pipelines/missing/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
