package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTokenServer(t *testing.T, wantID, wantSecret string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != wantID || secret != wantSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.FormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	}))
}

func TestClient_CreateSalesOrderInstance(t *testing.T) {
	tokenServer := newTokenServer(t, "client-id", "client-secret")
	defer tokenServer.Close()

	var gotBody map[string]any
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "wf-123"})
	}))
	defer apiServer.Close()

	client := NewClient(tokenServer.URL, apiServer.URL, "client-id", "client-secret", "salesorder.approval", nil)

	instance, err := client.CreateSalesOrderInstance(context.Background(), SalesOrderContext{
		CompanyID: "c1",
		ProductID: "p1",
		Quantity:  4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if instance.ID != "wf-123" {
		t.Errorf("expected instance id wf-123, got %q", instance.ID)
	}
	if instance.Status != "created" {
		t.Errorf("expected status created, got %q", instance.Status)
	}

	if gotBody["definitionId"] != "salesorder.approval" {
		t.Errorf("expected definitionId salesorder.approval, got %v", gotBody["definitionId"])
	}
	wfCtx, ok := gotBody["context"].(map[string]any)
	if !ok {
		t.Fatalf("expected context object in request body, got %v", gotBody["context"])
	}
	if wfCtx["company_id"] != "c1" || wfCtx["product_id"] != "p1" || wfCtx["quantity"] != float64(4) {
		t.Errorf("unexpected workflow context: %v", wfCtx)
	}
}

func TestClient_CreateSalesOrderInstance_BadCredentials(t *testing.T) {
	tokenServer := newTokenServer(t, "client-id", "client-secret")
	defer tokenServer.Close()

	client := NewClient(tokenServer.URL, "http://unused.invalid", "client-id", "wrong-secret", "salesorder.approval", nil)

	_, err := client.CreateSalesOrderInstance(context.Background(), SalesOrderContext{CompanyID: "c1", ProductID: "p1", Quantity: 1})
	if err == nil {
		t.Fatal("expected error for rejected credentials, got nil")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("expected token status error, got %v", err)
	}
}

func TestClient_CreateSalesOrderInstance_EmptyToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": ""})
	}))
	defer tokenServer.Close()

	client := NewClient(tokenServer.URL, "http://unused.invalid", "id", "secret", "def", nil)

	_, err := client.CreateSalesOrderInstance(context.Background(), SalesOrderContext{CompanyID: "c1", ProductID: "p1", Quantity: 1})
	if err == nil {
		t.Fatal("expected error for empty access token, got nil")
	}
}

func TestClient_CreateSalesOrderInstance_APIFailure(t *testing.T) {
	tokenServer := newTokenServer(t, "id", "secret")
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer apiServer.Close()

	client := NewClient(tokenServer.URL, apiServer.URL, "id", "secret", "def", nil)

	_, err := client.CreateSalesOrderInstance(context.Background(), SalesOrderContext{CompanyID: "c1", ProductID: "p1", Quantity: 1})
	if err == nil {
		t.Fatal("expected error for API failure, got nil")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("expected workflow API status error, got %v", err)
	}
}
