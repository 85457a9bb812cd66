package mealplan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cartsmith/cartsmith/internal/recipe"
)

func TestYouTubeFinder_NoKeySkipsLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("lookup performed without an API key")
	}))
	defer srv.Close()

	f := NewYouTubeFinder("", nil)
	f.endpoint = srv.URL

	url, err := f.FindVideo(context.Background(), "pancakes")
	if err != nil {
		t.Fatalf("FindVideo() err = %v", err)
	}
	if url != recipe.PlaceholderVideoURL {
		t.Errorf("url = %q, want placeholder", url)
	}
}

func TestYouTubeFinder_ReturnsTopResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "pancakes" {
			t.Errorf("q = %q, want pancakes", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "1" {
			t.Errorf("maxResults = %q, want 1", got)
		}
		w.Write([]byte(`{"items": [{"id": {"videoId": "dQw4w9WgXcQ"}}]}`))
	}))
	defer srv.Close()

	f := NewYouTubeFinder("test-key", nil)
	f.endpoint = srv.URL

	url, err := f.FindVideo(context.Background(), "pancakes")
	if err != nil {
		t.Fatalf("FindVideo() err = %v", err)
	}
	if want := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestYouTubeFinder_NoMatchesFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	f := NewYouTubeFinder("test-key", nil)
	f.endpoint = srv.URL

	url, err := f.FindVideo(context.Background(), "pancakes")
	if err != nil {
		t.Fatalf("FindVideo() err = %v", err)
	}
	if url != recipe.PlaceholderVideoURL {
		t.Errorf("url = %q, want placeholder", url)
	}
}

func TestYouTubeFinder_ServerErrorReported(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewYouTubeFinder("test-key", nil)
	f.endpoint = srv.URL

	if _, err := f.FindVideo(context.Background(), "pancakes"); err == nil {
		t.Error("FindVideo() err = nil, want error for non-200 response")
	}
}
