package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

func TestWebhook_SendDeliversJSON(t *testing.T) {
	var got Event
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL)
	ev := Event{
		AttemptID: "a-1",
		Kind:      gesture.KindBlink,
		Outcome:   "confirmed",
		FrameID:   "f-9",
		At:        time.Now(),
	}
	if err := hook.Send(ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if got.AttemptID != "a-1" || got.Kind != gesture.KindBlink || got.Outcome != "confirmed" {
		t.Errorf("payload = %+v", got)
	}
}

func TestWebhook_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL)
	if err := hook.Send(Event{AttemptID: "a-1", Outcome: "failed"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestWebhook_EmptyURLIsNoop(t *testing.T) {
	hook := NewWebhook("")
	if hook.Enabled() {
		t.Error("empty URL should not be enabled")
	}
	if err := hook.Send(Event{AttemptID: "a-1"}); err != nil {
		t.Errorf("no-op Send returned %v", err)
	}
}
