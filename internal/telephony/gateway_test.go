package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewayConnect(t *testing.T) {
	var gotBody ConnectRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls/connect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"call_id": "CA42"})
	}))
	defer srv.Close()

	g := NewGateway(GatewayConfig{BaseURL: srv.URL, APIKey: "secret"})
	ref, err := g.Connect(context.Background(), ConnectRequest{
		From: "(555) 010-0000", To: "+1 555 020 0000", CompanyID: "co-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.CallID != "CA42" {
		t.Fatalf("expected CA42, got %s", ref.CallID)
	}
	if gotBody.From == "" || gotBody.To == "" {
		t.Fatal("from/to must be sent")
	}
}

func TestGatewayConnectErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGateway(GatewayConfig{BaseURL: srv.URL})
	if _, err := g.Connect(context.Background(), ConnectRequest{From: "+15550100", To: "+15550200"}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestGatewayCallDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls/CA42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("company_id") != "co-1" {
			t.Errorf("missing company_id")
		}
		json.NewEncoder(w).Encode(CallDetails{
			CallID: "CA42", Status: StatusCompleted, DurationSeconds: 30,
			RecordingURL: "https://cdn.example.com/rec.mp3",
		})
	}))
	defer srv.Close()

	g := NewGateway(GatewayConfig{BaseURL: srv.URL})
	details, err := g.CallDetails(context.Background(), "CA42", "co-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.Status != StatusCompleted || details.DurationSeconds != 30 {
		t.Fatalf("unexpected details %+v", details)
	}
}
