package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hospital-jobs/internal/config"
)

func TestNew_NoURLIsNil(t *testing.T) {
	if c := New(config.ClassifierConfig{}, nil); c != nil {
		t.Fatalf("expected nil client without url")
	}
}

func TestLabel_SendsPromptAndKey(t *testing.T) {
	var gotAuth, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/label" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body labelRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPrompt = body.Prompt
		_, _ = w.Write([]byte(`{"label":" Relevant "}`))
	}))
	defer server.Close()

	c := New(config.ClassifierConfig{URL: server.URL + "/", APIKey: "k-1"}, nil)
	label, err := c.Label(context.Background(), "Title: Hebamme")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if label != "relevant" {
		t.Fatalf("expected normalized label, got %q", label)
	}
	if gotAuth != "Bearer k-1" {
		t.Fatalf("expected bearer key, got %q", gotAuth)
	}
	if !strings.Contains(gotPrompt, "Hebamme") {
		t.Fatalf("expected prompt to be forwarded, got %q", gotPrompt)
	}
}

func TestLabel_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(config.ClassifierConfig{URL: server.URL}, nil)
	if _, err := c.Label(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on 429")
	}
}
