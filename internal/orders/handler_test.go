package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stockflow/stockflow/internal/auth"
)

func newTestHandler(store *fakeStore) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(newTestService(store, nil), nil, nil, logger)
}

type fakeIdemStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{keys: make(map[string]bool)}
}

func (f *fakeIdemStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdemStore) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func asBuyer(req *http.Request) *http.Request {
	ctx := auth.WithPrincipal(req.Context(),
		auth.NewPrincipal("alice", auth.CapPlaceOrder, auth.CapCancelOrder))
	return req.WithContext(ctx)
}

func TestHandler_HandlePlace(t *testing.T) {
	t.Run("places a valid order", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		handler := newTestHandler(store)

		body := `{"company_id":"c1","lines":[{"product_id":"p1","quantity":3}]}`
		req := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var result PlacementResult
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.OrderID == "" {
			t.Error("expected order id to be set")
		}
		if result.Total.StringFixed(2) != "15.00" {
			t.Errorf("expected total 15.00, got %s", result.Total)
		}
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		handler := newTestHandler(newFakeStore())

		req := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{")))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("returns 403 without capability", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		handler := newTestHandler(store)

		body := `{"company_id":"c1","lines":[{"product_id":"p1","quantity":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on insufficient stock", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 2, 0)
		handler := newTestHandler(store)

		body := `{"company_id":"c1","lines":[{"product_id":"p1","quantity":5}]}`
		req := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown buyer", func(t *testing.T) {
		handler := newTestHandler(newFakeStore())

		body := `{"company_id":"ghost","lines":[{"product_id":"p1","quantity":1}]}`
		req := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
		rec := httptest.NewRecorder()

		handler.HandlePlace(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandlePlace_Idempotency(t *testing.T) {
	placeWithKey := func(handler *Handler, key string) *httptest.ResponseRecorder {
		body := `{"company_id":"c1","lines":[{"product_id":"p1","quantity":3}]}`
		req := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		handler.HandlePlace(rec, req)
		return rec
	}

	t.Run("replayed key after success is rejected", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := NewHandler(newTestService(store, nil), nil, newFakeIdemStore(), logger)

		if rec := placeWithKey(handler, "key-1"); rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201 on first attempt, got %d: %s", rec.Code, rec.Body.String())
		}

		rec := placeWithKey(handler, "key-1")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409 on replay, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "duplicate request") {
			t.Errorf("expected duplicate-request error, got %s", rec.Body.String())
		}
		if got := store.stock("p1"); got != 7 {
			t.Errorf("expected stock decremented once to 7, got %d", got)
		}
	})

	t.Run("key is released when placement fails", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 2, 0)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := NewHandler(newTestService(store, nil), nil, newFakeIdemStore(), logger)

		rec := placeWithKey(handler, "key-1")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409 for insufficient stock, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "duplicate request") {
			t.Fatalf("expected an insufficient-stock error, got %s", rec.Body.String())
		}

		// Stock arrives; the same key must be usable for the retry.
		store.addProduct("p1", "Widget", "5.00", 10, 0)

		rec = placeWithKey(handler, "key-1")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201 on retry with same key, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := store.stock("p1"); got != 7 {
			t.Errorf("expected stock 7 after retried placement, got %d", got)
		}
	})
}

func TestHandler_HandleCancel(t *testing.T) {
	t.Run("cancels a placed order", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		handler := newTestHandler(store)

		body := `{"company_id":"c1","lines":[{"product_id":"p1","quantity":3}]}`
		placeReq := asBuyer(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
		placeRec := httptest.NewRecorder()
		handler.HandlePlace(placeRec, placeReq)

		var placed PlacementResult
		if err := json.NewDecoder(placeRec.Body).Decode(&placed); err != nil {
			t.Fatalf("failed to decode placement: %v", err)
		}

		cancelReq := asBuyer(httptest.NewRequest(http.MethodDelete, "/orders/"+placed.OrderID, nil))
		cancelReq.SetPathValue("id", placed.OrderID)
		cancelRec := httptest.NewRecorder()

		handler.HandleCancel(cancelRec, cancelReq)

		if cancelRec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", cancelRec.Code, cancelRec.Body.String())
		}
		if got := store.stock("p1"); got != 10 {
			t.Errorf("expected stock restored to 10, got %d", got)
		}
	})

	t.Run("returns 404 for unknown order", func(t *testing.T) {
		handler := newTestHandler(newFakeStore())

		req := asBuyer(httptest.NewRequest(http.MethodDelete, "/orders/ghost", nil))
		req.SetPathValue("id", "ghost")
		rec := httptest.NewRecorder()

		handler.HandleCancel(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
