package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testClient builds a client against srv with pacing disabled and sleeps
// recorded instead of taken.
func testClient(srv *httptest.Server, slept *[]time.Duration) *ScryfallClient {
	c := NewScryfallClient(srv.URL)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
	}
	return c
}

func TestFetchPage_NotFoundIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"object":"error"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)

	err := c.EachSearchCard(context.Background(), "no such card", func(ScryfallCard) error {
		t.Fatal("callback invoked for empty result")
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
}

func TestFetchPage_RetryAfterHonored(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"object":"list","data":[{"id":"c1","name":"Llanowar Elves"}],"has_more":false}`)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)

	var got []string
	err := c.EachSearchCard(context.Background(), "llanowar", func(card ScryfallCard) error {
		got = append(got, card.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "Llanowar Elves" {
		t.Errorf("expected one card after retry, got %v", got)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Errorf("expected one 3s sleep from Retry-After, got %v", slept)
	}
}

func TestFetchPage_RateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)
	c.maxRetries = 2

	err := c.EachSearchCard(context.Background(), "anything", func(ScryfallCard) error { return nil })

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", rle.Attempts)
	}
	if len(slept) != 2 {
		t.Errorf("expected 2 backoff sleeps before giving up, got %d", len(slept))
	}
}

func TestFetchPage_ServerErrorBackoffCurve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)
	c.maxRetries = 3

	err := c.EachSearchCard(context.Background(), "anything", func(ScryfallCard) error { return nil })

	var ue *UpstreamUnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamUnavailableError, got %v", err)
	}
	if ue.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", ue.Status)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), slept)
	}
	for i, d := range want {
		if slept[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, slept[i])
		}
	}
}

func TestFetchPage_OtherStatusIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)

	err := c.EachSearchCard(context.Background(), "><", func(ScryfallCard) error { return nil })

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", ue.Status)
	}
	if len(slept) != 0 {
		t.Errorf("4xx must not retry, slept %v", slept)
	}
}

func TestEachSearchCard_FollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"object":"list","data":[{"id":"c2","name":"Llanowar Tribe"}],"has_more":false}`)
			return
		}
		fmt.Fprintf(w, `{"object":"list","data":[{"id":"c1","name":"Llanowar Elves"}],"has_more":true,"next_page":%q}`,
			srv.URL+"/cards/search?page=2")
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)

	var got []string
	err := c.EachSearchCard(context.Background(), "llanowar", func(card ScryfallCard) error {
		got = append(got, card.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "Llanowar Elves" || got[1] != "Llanowar Tribe" {
		t.Errorf("expected both pages in order, got %v", got)
	}
}

func TestListSets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sets" {
			t.Errorf("expected /sets path, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"object":"list","data":[{"id":"s1","code":"neo","name":"Kamigawa: Neon Dynasty","card_count":302}]}`)
	}))
	defer srv.Close()

	var slept []time.Duration
	c := testClient(srv, &slept)

	sets, err := c.ListSets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 1 || sets[0].Code != "neo" || sets[0].CardCount != 302 {
		t.Errorf("unexpected sets: %+v", sets)
	}
}
