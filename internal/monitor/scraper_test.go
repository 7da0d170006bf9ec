package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

const listingPage = `<html><body>
  <a href="/bids/rfp-7.pdf">RFP-7 Storm Sewer Lining Services</a>
  <a href="/about">About the purchasing office</a>
</body></html>`

func newTestScraper() *CollyScraper {
	s := NewCollyScraper(nil)
	s.Backoff = time.Millisecond
	return s
}

func testSource(url string) SourceConfig {
	return SourceConfig{ID: "test", Name: "Test City", URL: url, Type: "Municipal", Mode: ModeLinks, MinTextLength: 15, TimeoutSeconds: 5}
}

func TestCollyScraper_ParsesPage(t *testing.T) {
	userAgents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case userAgents <- r.UserAgent():
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	s := newTestScraper()
	doc, err := s.Scrape(context.Background(), testSource(srv.URL+"/purchasing/"))
	check.NoError(t, err)
	check.Equal(t, s.UserAgent, <-userAgents)
	check.Equal(t, srv.URL+"/purchasing/", doc.Url.String())

	bids := ExtractBids(doc, testSource(srv.URL), testKeywords, time.Now())
	check.Equal(t, 1, len(bids))
	check.Equal(t, srv.URL+"/bids/rfp-7.pdf", bids[0].URL)
	check.Equal(t, "RFP-7", bids[0].BidNumber)
}

func TestCollyScraper_ConvertsCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body><p>Caf\xe9 drainage</p></body></html>"))
	}))
	defer srv.Close()

	doc, err := newTestScraper().Scrape(context.Background(), testSource(srv.URL))
	check.NoError(t, err)
	check.Equal(t, "Café drainage", doc.Find("p").Text())
}

func TestCollyScraper_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	doc, err := newTestScraper().Scrape(context.Background(), testSource(srv.URL))
	check.NoError(t, err)
	check.Equal(t, int32(3), hits.Load())
	check.Equal(t, 2, doc.Find("a").Length())
}

func TestCollyScraper_GivesUpAfterRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
	}{
		{name: "default retries", maxRetries: 2},
		{name: "no retries", maxRetries: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				http.NotFound(w, r)
			}))
			defer srv.Close()

			s := newTestScraper()
			s.MaxRetries = tt.maxRetries

			doc, err := s.Scrape(context.Background(), testSource(srv.URL))
			check.Error(t, err)
			check.True(t, doc == nil)
			check.Equal(t, int32(tt.maxRetries+1), hits.Load())
			check.True(t, strings.Contains(err.Error(), "scrape test after"))
		})
	}
}

func TestCollyScraper_StopsWhenCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestScraper().Scrape(ctx, testSource(srv.URL))
	check.Error(t, err)
	check.True(t, errors.Is(err, context.DeadlineExceeded))
	check.True(t, time.Since(start) < 3*time.Second)
}

func TestCollyScraper_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScraper().Scrape(ctx, testSource("http://127.0.0.1:1/"))
	check.True(t, errors.Is(err, context.Canceled))
}
