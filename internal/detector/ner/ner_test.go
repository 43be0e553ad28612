package ner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"anonymizer-service/internal/detector/ner"
)

func TestDetect_MapsSidecarEntities(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":[
			{"entity_type":"PERSON","value":"Jane Doe","start":18,"end":26},
			{"entity_type":"LOCATION","value":"Athens","start":40,"end":46}
		]}`))
	}))
	defer srv.Close()

	client := ner.New(map[string]string{"el": srv.URL})

	candidates, err := client.Detect(context.Background(), "Hello, my name is Jane Doe.", "el")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if gotPath != "/analyze" {
		t.Fatalf("expected POST /analyze, got %s", gotPath)
	}
	if gotBody["text"] != "Hello, my name is Jane Doe." || gotBody["language"] != "el" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", candidates)
	}
	if candidates[0].EntityType != "PERSON" || candidates[0].Start != 18 || candidates[0].End != 26 {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
}

func TestDetect_NoModelForLanguage(t *testing.T) {
	client := ner.New(map[string]string{"el": "http://ner-el:8001"})

	_, err := client.Detect(context.Background(), "some text", "fr")
	if err == nil {
		t.Fatal("expected an error for an unprovisioned language")
	}
}

func TestDetect_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ner.New(map[string]string{"el": srv.URL})

	_, err := client.Detect(context.Background(), "some text", "el")
	if err == nil {
		t.Fatal("expected an error on sidecar failure")
	}
}

func TestDetect_HonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := ner.New(map[string]string{"el": srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Detect(ctx, "some text", "el")
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestLanguages_SortedTags(t *testing.T) {
	client := ner.New(map[string]string{"en": "http://a", "el": "http://b"})

	langs := client.Languages()
	if len(langs) != 2 || langs[0] != "el" || langs[1] != "en" {
		t.Fatalf("expected [el en], got %v", langs)
	}
}
