package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	lowStockCalls int
	overdueCalls  int
	err           error
}

func (f *fakeEnqueuer) EnqueueLowStockScan(_ context.Context) (*asynq.TaskInfo, error) {
	f.lowStockCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) EnqueueOverdueScan(_ context.Context) (*asynq.TaskInfo, error) {
	f.overdueCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "task-2", Queue: QueueDefault}, nil
}

func newJobsRouter(queue Enqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.Default(), queue).MountRoutes(r)
	return r
}

func TestTriggerScansEnqueue(t *testing.T) {
	queue := &fakeEnqueuer{}
	router := newJobsRouter(queue)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/lowstock-scan", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, queue.lowStockCalls)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "task-1", body["task_id"])
	require.Equal(t, QueueDefault, body["queue"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/overdue-scan", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, queue.overdueCalls)
}

func TestTriggerScanEnqueueFailure(t *testing.T) {
	queue := &fakeEnqueuer{err: errors.New("redis down")}
	router := newJobsRouter(queue)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/lowstock-scan", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
