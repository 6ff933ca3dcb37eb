package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaworks/orderdesk/board"
	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]orders.Order
	listErr error
	failAll error
}

func (s *fakeStore) List(ctx context.Context, filter orders.Filter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status orders.Status) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return orders.Order{}, s.failAll
	}
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return o, nil
}

type fixture struct {
	store *fakeStore
	mux   *http.ServeMux
}

func newFixture(t *testing.T, seed ...orders.Order) *fixture {
	t.Helper()
	store := &fakeStore{orders: make(map[string]orders.Order)}
	for _, o := range seed {
		store.orders[o.ID] = o
	}

	bus := events.NewBus(nil)
	t.Cleanup(bus.Close)

	b := board.New(store, bus, nil)
	require.NoError(t, b.Load(context.Background(), orders.Filter{}))

	scanner := board.NewScanner(b, store, 0, nil)
	coordinator := board.NewCoordinator(b, store, bus, nil)
	srv := New(b, scanner, coordinator, nil)

	mux := http.NewServeMux()
	srv.RegisterHandlers(mux)

	return &fixture{store: store, mux: mux}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, &buf))
	return rec
}

func TestHandleBoard(t *testing.T) {
	f := newFixture(t,
		orders.Order{ID: "o1", Status: orders.StatusNew},
		orders.Order{ID: "o2", Status: orders.StatusVerbal},
	)

	rec := f.get(t, "/api/board")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BoardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Columns, 5, "all five columns present")
	require.Len(t, resp.Columns["new"], 1)
	assert.Equal(t, "o1", resp.Columns["new"][0].ID)
	require.Len(t, resp.Columns["in_progress"], 1, "verbal orders surface in the in-progress column")
	assert.Equal(t, "ustne", resp.Columns["in_progress"][0].Status)
	assert.Empty(t, resp.Columns["issued"])
}

func TestHandleBoard_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.post(t, "/api/board", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleTransition(t *testing.T) {
	f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusInProgress})

	rec := f.post(t, "/api/orders/o1/transition", TransitionRequest{Stage: "ready"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TransitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Moved)
	assert.Equal(t, "ready", resp.Card.Stage)
	assert.Equal(t, "do_wydania", resp.Card.Status)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleTransition_Noop(t *testing.T) {
	f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusInProgress})

	rec := f.post(t, "/api/orders/o1/transition", TransitionRequest{Stage: "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TransitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Moved)
}

func TestHandleTransition_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		req      TransitionRequest
		failAll  error
		wantCode int
		wantErr  string
	}{
		{
			name:     "unknown stage",
			path:     "/api/orders/o1/transition",
			req:      TransitionRequest{Stage: "archived"},
			wantCode: http.StatusBadRequest,
			wantErr:  "unknown_stage",
		},
		{
			name:     "unknown order",
			path:     "/api/orders/ghost/transition",
			req:      TransitionRequest{Stage: "paid"},
			wantCode: http.StatusNotFound,
			wantErr:  "order_not_found",
		},
		{
			name:     "stale version",
			path:     "/api/orders/o1/transition",
			req:      TransitionRequest{Stage: "paid", BaseVersion: 99},
			wantCode: http.StatusConflict,
			wantErr:  "stale_version",
		},
		{
			name:     "backend write failure",
			path:     "/api/orders/o1/transition",
			req:      TransitionRequest{Stage: "paid"},
			failAll:  errors.New("backend unavailable"),
			wantCode: http.StatusBadGateway,
			wantErr:  "write_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusNew})
			f.store.failAll = tt.failAll

			rec := f.post(t, tt.path, tt.req)
			require.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestHandleTransition_FailureRollsBack(t *testing.T) {
	f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusNew})
	f.store.failAll = errors.New("backend unavailable")

	rec := f.post(t, "/api/orders/o1/transition", TransitionRequest{Stage: "paid"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The board shows the pre-drag state again.
	rec = f.get(t, "/api/board")
	var resp BoardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Columns["new"], 1)
	assert.Equal(t, "do_wykonania", resp.Columns["new"][0].Status)
	assert.Empty(t, resp.Columns["paid"])
}

func TestHandleTransition_BadBody(t *testing.T) {
	f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusNew})
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/api/orders/o1/transition", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReload(t *testing.T) {
	f := newFixture(t, orders.Order{
		ID:     "o1",
		Status: orders.StatusNew,
		Transactions: []orders.Transaction{
			{Type: orders.TransactionIncome, Amount: 150},
		},
	})

	rec := f.post(t, "/api/board/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Orders)
	assert.Equal(t, 1, resp.Reconciled, "the paid-but-new order gets corrected on reload")
}

func TestHandleReload_BackendDown(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("backend unavailable")

	rec := f.post(t, "/api/board/reload", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleOrder_BadPaths(t *testing.T) {
	f := newFixture(t, orders.Order{ID: "o1", Status: orders.StatusNew})

	rec := f.post(t, "/api/orders/o1/frobnicate", TransitionRequest{Stage: "paid"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.post(t, "/api/orders/", TransitionRequest{Stage: "paid"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
