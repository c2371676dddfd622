package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSavePostsRecording(t *testing.T) {
	var got Recording
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/recording/save" {
			http.Error(w, "wrong route", http.StatusNotFound)
			return
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"success":true,"recording_id":"rec-1","message":"Recording saved"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	res, err := c.Save(context.Background(), Recording{
		Filename:        "guitar_abc.wav",
		Instrument:      "guitar",
		DurationSeconds: 12.5,
		FilePath:        "recordings/guitar_abc.wav",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !res.Success || res.RecordingID != "rec-1" {
		t.Errorf("result = %+v", res)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got.Filename != "guitar_abc.wav" || got.Instrument != "guitar" || got.DurationSeconds != 12.5 {
		t.Errorf("server received %+v", got)
	}
}

func TestSaveWireFormat(t *testing.T) {
	data, err := json.Marshal(Recording{Filename: "a.wav", Instrument: "flute", DurationSeconds: 1, FilePath: "/r/a.wav"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"filename"`, `"instrument":"flute"`, `"duration_seconds"`, `"file_path"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("wire format %s missing %s", data, key)
		}
	}
}

func TestSaveErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Invalid instrument"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Save(context.Background(), Recording{Filename: "x.wav"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "Invalid instrument") {
		t.Errorf("error = %v, want status and body", err)
	}
}

func TestSaveNoTokenNoHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "").Save(context.Background(), Recording{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if hadAuth {
		t.Error("Authorization header sent without a token")
	}
}
