package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const resultsPage = `<script>var ytInitialData = {"contents":[
{"url":"/watch?v=AAAAAAAAAAA&pp=x"},
{"url":"/watch?v=BBBBBBBBBBB"},
{"url":"/watch?v=AAAAAAAAAAA"},
{"url":"/watch?v=CCCCCCCCCCC"}
]};</script>`

func TestSearchVideoIDs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		io.WriteString(w, resultsPage)
	}))
	defer srv.Close()

	r := NewResolver()
	r.BaseURL = srv.URL

	ids, err := r.SearchVideoIDs(context.Background(), "lofi beats", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "lofi beats" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(ids) != 2 || ids[0] != "AAAAAAAAAAA" || ids[1] != "BBBBBBBBBBB" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestSearchVideoIDsNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>nothing here</html>")
	}))
	defer srv.Close()

	r := NewResolver()
	r.BaseURL = srv.URL

	if _, err := r.SearchVideoIDs(context.Background(), "x", 1); !errors.Is(err, ErrNoVideoMatch) {
		t.Fatalf("expected ErrNoVideoMatch, got %v", err)
	}
}

func TestSearchVideoIDsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewResolver()
	r.BaseURL = srv.URL

	if _, err := r.SearchVideoIDs(context.Background(), "x", 1); err == nil {
		t.Fatal("expected status error")
	}
}
