package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeliver_SignsBody(t *testing.T) {
	var gotSig string
	var gotEvent Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		if want := Sign("s3cret", body); gotSig != want {
			t.Errorf("signature = %q, want %q", gotSig, want)
		}
		_ = json.Unmarshal(body, &gotEvent)
	}))
	defer srv.Close()

	ev := &Event{Type: "batch.completed", JobID: "b1", Timestamp: 1, Data: map[string]int{"total": 2}}
	if err := Deliver(context.Background(), srv.URL, "s3cret", ev); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotEvent.JobID != "b1" || gotEvent.Type != "batch.completed" {
		t.Errorf("unexpected event received: %+v", gotEvent)
	}
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sig := r.Header.Get(SignatureHeader); sig != "" {
			t.Errorf("unexpected signature %q", sig)
		}
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", &Event{Type: "x"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliverWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	delays := []time.Duration{0, time.Millisecond, time.Millisecond}
	if err := DeliverWithRetry(context.Background(), srv.URL, "", &Event{Type: "x"}, delays); err != nil {
		t.Fatalf("DeliverWithRetry: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestDeliverWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := DeliverWithRetry(context.Background(), srv.URL, "", &Event{Type: "x"}, []time.Duration{0, 0})
	if err == nil {
		t.Fatal("expected an error after all attempts fail")
	}
}
