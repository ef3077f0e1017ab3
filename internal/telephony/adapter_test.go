package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPlaceCallReturnsCallSid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("To") != "+15551234567" {
			t.Errorf("expected To=+15551234567, got %q", r.FormValue("To"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sid":"CA123"}`))
	}))
	defer srv.Close()

	a := New("AC1", "token", "+15559999999", srv.URL)
	sid, err := a.PlaceCall(context.Background(), PlaceCallParams{
		Target:         "+15551234567",
		AnswerURL:      "https://example.com/call/webhook/sess1",
		StatusURL:      "https://example.com/call/status/sess1",
		TimeoutSeconds: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid != "CA123" {
		t.Fatalf("expected sid CA123, got %q", sid)
	}
}

func TestPlaceCallPropagatesCarrierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid number"}`))
	}))
	defer srv.Close()

	a := New("AC1", "token", "+15559999999", srv.URL)
	if _, err := a.PlaceCall(context.Background(), PlaceCallParams{Target: "bad", TimeoutSeconds: 30}); err == nil {
		t.Fatal("expected error from carrier rejection")
	}
}

func TestHangupSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New("AC1", "token", "+15559999999", srv.URL)
	if err := a.Hangup(context.Background(), "CA123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
