package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

func testPayload() Payload {
	return Payload{
		URL:              "https://cdn.example.com/rec.mp3",
		Name:             "rec.mp3",
		RecordingID:      uuid.New(),
		AnalysisID:       uuid.New(),
		UserID:           uuid.New(),
		Timestamp:        time.Now(),
		Source:           "dashboard",
		URLValidated:     true,
		ValidationMethod: "https",
	}
}

func TestDeliverFirstTierSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type")
		}
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	d := New(srv.URL, logger.New("development"))
	if err := d.Deliver(context.Background(), testPayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

func TestDeliverFallsBackOnErrorStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "cross-origin rejected", http.StatusForbidden)
	}))
	defer srv.Close()

	d := New(srv.URL, logger.New("development"))
	// Tier 1 fails on the 403; tier 2 only needs the request to leave, so the
	// chain still reports success.
	if err := d.Deliver(context.Background(), testPayload()); err != nil {
		t.Fatalf("fallback chain should absorb an error status: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected tier 1 + tier 2 requests, got %d", hits.Load())
	}
}

func TestDeliverUnreachableWorkerErrorsQuietly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := New(srv.URL, logger.New("development"))
	if err := d.Deliver(context.Background(), testPayload()); err == nil {
		t.Fatal("expected an error when all tiers fail")
	}
}

func TestDispatchDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := New(srv.URL, logger.New("development"))
	done := make(chan struct{})
	go func() {
		d.Dispatch(testPayload())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Dispatch must return without waiting for delivery")
	}
}
