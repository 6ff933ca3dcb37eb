// Package main implements a mock order-management backend for local
// development and e2e testing of the board. It serves the two endpoints
// orderdesk consumes — order listing and partial status update — from an
// in-memory collection, eliminating the need for a real backend during
// UI and engine work.
//
// Usage:
//
//	mock-backend -port 9810 -seed /path/to/orders.json
//
// The seed file is a JSON array of orders in the backend wire format.
// Without -seed, a small built-in collection covering every workflow
// status and both side facts is served. The optional -fail-rate flag
// makes a fraction of status updates return 500, for exercising the
// board's rollback path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/linguaworks/orderdesk/orders"
)

type backend struct {
	mu       sync.Mutex
	orders   map[string]orders.Order
	ids      []string
	failRate float64
}

func main() {
	port := flag.Int("port", 9810, "listen port")
	seedPath := flag.String("seed", "", "JSON seed file (array of orders)")
	failRate := flag.Float64("fail-rate", 0, "fraction of status updates to fail with 500")
	flag.Parse()

	b := &backend{
		orders:   make(map[string]orders.Order),
		failRate: *failRate,
	}

	seed := builtinSeed()
	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Fatalf("read seed file: %v", err)
		}
		if err := json.Unmarshal(data, &seed); err != nil {
			log.Fatalf("parse seed file: %v", err)
		}
	}
	for _, o := range seed {
		b.orders[o.ID] = o
		b.ids = append(b.ids, o.ID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", b.handleList)
	mux.HandleFunc("/orders/", b.handleUpdate)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock order backend listening on %s (%d orders, fail rate %.2f)",
		addr, len(b.ids), b.failRate)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (b *backend) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	statusFilter := r.URL.Query().Get("status")

	b.mu.Lock()
	out := make([]orders.Order, 0, len(b.ids))
	for _, id := range b.ids {
		o := b.orders[id]
		if statusFilter != "" && string(o.Status) != statusFilter {
			continue
		}
		out = append(out, o)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/orders/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	var patch struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}
	if !patch.Status.Known() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   "validation",
			"message": fmt.Sprintf("unknown status %q", patch.Status),
		})
		return
	}

	if b.failRate > 0 && rand.Float64() < b.failRate {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "flaky",
			"message": "injected failure",
		})
		return
	}

	b.mu.Lock()
	o, ok := b.orders[id]
	if ok {
		o.Status = patch.Status
		b.orders[id] = o
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "not_found",
			"message": "no such order",
		})
		return
	}
	log.Printf("order %s -> %s", id, patch.Status)
	writeJSON(w, http.StatusOK, o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// builtinSeed covers every workflow status plus both side-fact shapes.
func builtinSeed() []orders.Order {
	deliveredAt := time.Now().Add(-48 * time.Hour)
	deadline := func(days int) *time.Time {
		t := time.Now().Add(time.Duration(days) * 24 * time.Hour)
		return &t
	}

	return []orders.Order{
		{ID: "ord-1001", Status: orders.StatusNew, Deadline: deadline(7)},
		{ID: "ord-1002", Status: orders.StatusVerbal, Deadline: deadline(3)},
		{ID: "ord-1003", Status: orders.StatusInProgress, Deadline: deadline(5)},
		{ID: "ord-1004", Status: orders.StatusReady, Deadline: deadline(1)},
		{ID: "ord-1005", Status: orders.StatusClosed},
		{
			// Paid by transaction but never flagged: reconciliation bait.
			ID:     "ord-1006",
			Status: orders.StatusNew,
			Transactions: []orders.Transaction{
				{Type: orders.TransactionIncome, Amount: 240},
			},
			Deadline: deadline(10),
		},
		{
			// Delivered through the locker network but still open.
			ID:     "ord-1007",
			Status: orders.StatusReady,
			Transactions: []orders.Transaction{
				{Type: orders.TransactionIncome, Amount: 180},
				{Type: orders.TransactionExpense, Amount: 35},
			},
			Delivery: &orders.Delivery{
				Method:      orders.DeliveryMethodParcelLocker,
				DeliveredAt: &deliveredAt,
			},
		},
	}
}
