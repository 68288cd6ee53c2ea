package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/storage"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/syncq"
)

type okRemote struct{}

func (okRemote) CreateCompulsion(context.Context, *models.Compulsion) error   { return nil }
func (okRemote) UpdateCompulsion(context.Context, *models.Compulsion) error   { return nil }
func (okRemote) DeleteCompulsion(context.Context, string) error               { return nil }
func (okRemote) CreateERPSession(context.Context, *models.ERPSession) error   { return nil }
func (okRemote) CompleteERPSession(context.Context, *models.ERPSession) error { return nil }
func (okRemote) UpdateUserProgress(context.Context, *models.UserProgress) error {
	return nil
}

type badPinger struct{}

func (badPinger) Ping(context.Context) error { return errors.New("storage down") }

func newTestServer(t *testing.T) (*Server, *syncq.Manager) {
	t.Helper()
	l := zerolog.Nop()
	store := storage.NewMemoryStore()
	queue, err := syncq.NewManager(context.Background(), store, okRemote{}, nil, &l, syncq.Options{})
	require.NoError(t, err)
	return NewServer(0, store, queue, false, &l), queue
}

func TestHealthzHealthy(t *testing.T) {
	srv, queue := newTestServer(t)
	queue.SetOnline(true)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["storage"])
	assert.Equal(t, true, body["online"])
	assert.Equal(t, float64(0), body["pending"])
}

func TestHealthzStorageFailure(t *testing.T) {
	l := zerolog.Nop()
	store := storage.NewMemoryStore()
	queue, err := syncq.NewManager(context.Background(), store, okRemote{}, nil, &l, syncq.Options{})
	require.NoError(t, err)
	srv := NewServer(0, badPinger{}, queue, false, &l)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSyncNowRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleSyncNow(rec, httptest.NewRequest(http.MethodGet, "/sync/now", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSyncNowDrainsQueue(t *testing.T) {
	srv, queue := newTestServer(t)

	// Enqueue while offline so the item stays put.
	_, done := queue.Enqueue(context.Background(), models.OpCreate, models.EntityCompulsion, models.SyncPayload{
		Compulsion: &models.Compulsion{ID: "c1", UserID: "u1", Type: "checking"},
	})
	<-done
	require.Len(t, queue.Pending(), 1)

	queue.SetOnline(true)
	require.Eventually(t, func() bool { return len(queue.Pending()) == 0 }, time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	srv.handleSyncNow(rec, httptest.NewRequest(http.MethodPost, "/sync/now", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["drained"])
	assert.Empty(t, queue.Pending())
}

func TestSyncNowOffline(t *testing.T) {
	srv, queue := newTestServer(t)
	require.False(t, queue.Online())

	rec := httptest.NewRecorder()
	srv.handleSyncNow(rec, httptest.NewRequest(http.MethodPost, "/sync/now", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["online"])
	assert.Equal(t, false, body["drained"])
}

func TestQuarantineEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleQuarantine(rec, httptest.NewRequest(http.MethodGet, "/sync/quarantine", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var items []models.SyncItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Empty(t, items)
}

func TestReplayEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleReplay(rec, httptest.NewRequest(http.MethodPost, "/sync/replay", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["replayed"])

	rec = httptest.NewRecorder()
	srv.handleReplay(rec, httptest.NewRequest(http.MethodGet, "/sync/replay", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
