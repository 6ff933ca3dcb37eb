// Package server exposes the order board to the web UI over HTTP: the
// column view, the drag transition endpoint, and a reload trigger.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linguaworks/orderdesk/board"
	"github.com/linguaworks/orderdesk/orders"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

// Server handles board HTTP requests.
type Server struct {
	board       *board.Board
	scanner     *board.Scanner
	coordinator *board.Coordinator
	logger      *slog.Logger
}

// New creates a board HTTP server. scanner may be nil when
// reconciliation is disabled.
func New(b *board.Board, scanner *board.Scanner, coordinator *board.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		board:       b,
		scanner:     scanner,
		coordinator: coordinator,
		logger:      logger,
	}
}

// RegisterHandlers registers all board endpoints on the mux:
//
//	GET  /api/board
//	POST /api/board/reload
//	POST /api/orders/{id}/transition
//	GET  /healthz
//	GET  /metrics
func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/board", s.handleBoard)
	mux.HandleFunc("/api/board/reload", s.handleReload)
	mux.HandleFunc("/api/orders/", s.handleOrder)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
}

// Card is the JSON representation of one board entry.
type Card struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Stage    string     `json:"stage"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Version  int64      `json:"version"`
	InFlight bool       `json:"in_flight"`
}

func cardFromEntry(e board.Entry) Card {
	return Card{
		ID:       e.Order.ID,
		Status:   string(e.Order.Status),
		Stage:    string(e.Stage),
		Deadline: e.Order.Deadline,
		Version:  e.Version,
		InFlight: e.InFlight,
	}
}

// BoardResponse is the JSON response for GET /api/board.
type BoardResponse struct {
	Columns map[string][]Card `json:"columns"`
	Total   int               `json:"total"`
}

// handleBoard returns the five columns with their cards.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	columns := make(map[string][]Card, len(board.Stages))
	total := 0
	for stage, entries := range s.board.Columns() {
		cards := make([]Card, 0, len(entries))
		for _, e := range entries {
			cards = append(cards, cardFromEntry(e))
		}
		columns[string(stage)] = cards
		total += len(cards)
	}

	writeJSON(w, http.StatusOK, BoardResponse{Columns: columns, Total: total})
}

// ReloadResponse is the JSON response for POST /api/board/reload.
type ReloadResponse struct {
	Orders     int `json:"orders"`
	Reconciled int `json:"reconciled"`
}

// handleReload re-pulls the collection from the backend and runs the
// reconciliation pass over it.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.board.Load(r.Context(), orders.Filter{}); err != nil {
		s.logger.Error("Board reload failed", slog.String("error", err.Error()))
		writeJSONError(w, http.StatusBadGateway, "load_failed", err.Error())
		return
	}

	reconciled := 0
	if s.scanner != nil {
		reconciled = s.scanner.Run(r.Context())
	}

	writeJSON(w, http.StatusOK, ReloadResponse{Orders: s.board.Len(), Reconciled: reconciled})
}

// TransitionRequest is the JSON body for POST /api/orders/{id}/transition.
type TransitionRequest struct {
	Stage       string `json:"stage"`
	BaseVersion int64  `json:"base_version,omitempty"`
}

// TransitionResponse is the JSON response for a settled transition.
type TransitionResponse struct {
	Card      Card   `json:"card"`
	Moved     bool   `json:"moved"`
	RequestID string `json:"request_id,omitempty"`
}

// handleOrder routes /api/orders/{id}/transition.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	id, action, found := strings.Cut(rest, "/")
	if !found || action != "transition" || id == "" {
		http.NotFound(w, r)
		return
	}
	s.handleTransition(w, r, id)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TransitionRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "Invalid JSON body: "+err.Error())
		return
	}

	result, err := s.coordinator.Move(r.Context(), board.MoveRequest{
		OrderID:     id,
		Target:      board.Stage(req.Stage),
		BaseVersion: req.BaseVersion,
	})
	if err != nil {
		s.writeMoveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransitionResponse{
		Card:      cardFromEntry(result.Entry),
		Moved:     result.Moved,
		RequestID: result.RequestID,
	})
}

// writeMoveError maps coordinator errors onto HTTP statuses: bad stage
// 400, unknown order 404, stale version 409, failed backend write 502.
func (s *Server) writeMoveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrUnknownStage):
		writeJSONError(w, http.StatusBadRequest, "unknown_stage", err.Error())
	case errors.Is(err, board.ErrOrderNotFound):
		writeJSONError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, board.ErrStaleVersion):
		writeJSONError(w, http.StatusConflict, "stale_version", err.Error())
	default:
		// The optimistic state was already rolled back.
		writeJSONError(w, http.StatusBadGateway, "write_failed", err.Error())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("Board API listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing to do.
		_ = err
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
