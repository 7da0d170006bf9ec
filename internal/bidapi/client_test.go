package bidapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestFetchBids(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, http.MethodGet, r.Method)
		check.Equal(t, "/api/bids", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"count":2,"last_update":"2024-03-05T12:00:00Z","bids":[
			{"title":"Storm Sewer Cleaning","type":"Municipal","location":"Cleveland, OH","bid_number":"RFP-1","posted_date":"2024-03-01","source":"City of Cleveland","url":"https://example.gov/1"},
			{"title":"Drainage","type":"County","location":"Franklin County, OH","deadline":"2024-04-01","source":"Franklin County","url":"https://example.gov/2"}
		]}`))
	})

	resp, err := client.FetchBids(context.Background())
	check.NoError(t, err)
	check.Equal(t, 2, resp.Count)
	check.Equal(t, 2, len(resp.Bids))
	check.Equal(t, "RFP-1", resp.Bids[0].BidNumber)
	check.Equal(t, "2024-04-01", resp.Bids[1].Deadline)
	check.Equal(t, "", resp.Bids[1].Description)
	check.True(t, resp.LastUpdate != nil)
	check.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), resp.LastUpdate.UTC())
}

func TestFetchBids_LastUpdateForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "zoneless with microseconds", raw: `"2024-03-05T12:34:56.123456"`, want: time.Date(2024, 3, 5, 12, 34, 56, 123456000, time.Local)},
		{name: "zoneless seconds", raw: `"2024-03-05T12:34:56"`, want: time.Date(2024, 3, 5, 12, 34, 56, 0, time.Local)},
		{name: "offset", raw: `"2024-03-05T12:34:56+02:00"`, want: time.Date(2024, 3, 5, 10, 34, 56, 0, time.UTC)},
		{name: "unreadable", raw: `"yesterday"`},
		{name: "not a string", raw: `12345`},
		{name: "empty", raw: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success":true,"count":1,"last_update":` + tt.raw + `,"bids":[{"title":"Culvert Replacement","type":"State"}]}`))
			})

			resp, err := client.FetchBids(context.Background())
			check.NoError(t, err)
			check.Equal(t, 1, len(resp.Bids))
			check.True(t, resp.LastUpdate != nil)
			check.True(t, tt.want.Equal(resp.LastUpdate.Time))
		})
	}
}

func TestFetchBids_NullLastUpdate(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"count":0,"last_update":null,"bids":[]}`))
	})

	resp, err := client.FetchBids(context.Background())
	check.NoError(t, err)
	check.True(t, resp.LastUpdate == nil)
}

func TestFetchBids_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantMsg: "unexpected status code 500"},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantMsg: "decode /api/bids response"},
		{name: "unsuccessful", status: http.StatusOK, body: `{"success":false}`, wantMsg: ErrUnsuccessful.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchBids(context.Background())
			check.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.wantMsg))
		})
	}
}

func TestFetchBids_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, time.Second).FetchBids(context.Background())
	check.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "failed to execute request"))
}

func TestRefresh(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, http.MethodPost, r.Method)
		check.Equal(t, "/api/refresh", r.URL.Path)
		w.Write([]byte(`{"success":true,"message":"Found 3 bids","bids_count":3,"run_id":"ab12cd34"}`))
	})

	resp, err := client.Refresh(context.Background())
	check.NoError(t, err)
	check.Equal(t, 3, resp.BidsCount)
	check.Equal(t, "ab12cd34", resp.RunID)
}

func TestRefresh_Unsuccessful(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"all sources failed"}`))
	})

	_, err := client.Refresh(context.Background())
	check.True(t, errors.Is(err, ErrUnsuccessful))
	check.True(t, strings.Contains(err.Error(), "all sources failed"))
}

func TestStatistics(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, "/api/statistics", r.URL.Path)
		w.Write([]byte(`{"success":true,"statistics":{"total":5,"municipal":2,"county":2,"state":1}}`))
	})

	resp, err := client.Statistics(context.Background())
	check.NoError(t, err)
	check.Equal(t, 5, resp.Statistics.Total)
	check.Equal(t, 1, resp.Statistics.State)
}
