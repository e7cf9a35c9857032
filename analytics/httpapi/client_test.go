package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache/analytics"
)

func TestDecodesPayloadAndSendsFilters(t *testing.T) {
	var gotQuery, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotQuery = req.URL.RawQuery
		gotAuth = req.Header.Get("Authorization")
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`[{"brokerId":"b1","name":"Ana","rank":1,"deals":6,"revenue":910000.5}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithBearerToken("s3cret"))
	got, err := c.BrokerRankings(context.Background(), analytics.Filters{Period: "30d", TeamID: "north"})
	require.NoError(t, err)

	assert.Equal(t, "/analytics/broker-rankings", gotPath)
	assert.Equal(t, "period=30d&team_id=north", gotQuery)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, []analytics.BrokerRanking{{BrokerID: "b1", Name: "Ana", Rank: 1, Deals: 6, Revenue: 910000.5}}, got)
}

func TestEveryEndpoint(t *testing.T) {
	paths := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		paths[req.URL.Path] = true
		switch req.URL.Path {
		case pathPending, pathBrokers:
			_, _ = rw.Write([]byte(`[]`))
		default:
			_, _ = rw.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)
	f := analytics.Filters{}
	_, err := c.CompanyPerformance(ctx, f)
	require.NoError(t, err)
	_, err = c.PendingMatches(ctx, f)
	require.NoError(t, err)
	_, err = c.BrokerRankings(ctx, f)
	require.NoError(t, err)
	_, err = c.ChurnAnalysis(ctx, f)
	require.NoError(t, err)
	_, err = c.ConversionFunnel(ctx, f)
	require.NoError(t, err)
	_, err = c.CaptureStats(ctx, f)
	require.NoError(t, err)

	assert.Len(t, paths, 6)
}

func TestErrorResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadGateway, `{"message":"warehouse timeout"}`, "/analytics/churn: warehouse timeout"},
		{"error field", http.StatusForbidden, `{"error":"team scope denied"}`, "/analytics/churn: team scope denied"},
		{"plain text", http.StatusInternalServerError, "boom\n", "/analytics/churn: boom"},
		{"empty body", http.StatusServiceUnavailable, "", "/analytics/churn: 503 Service Unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
				rw.WriteHeader(tc.status)
				_, _ = rw.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).ChurnAnalysis(context.Background(), analytics.Filters{})
			require.Error(t, err)
			assert.EqualError(t, err, tc.want)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
		})
	}
}

func TestMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"stages": "not a list"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ConversionFunnel(context.Background(), analytics.Filters{})
	assert.ErrorContains(t, err, "malformed response")
}

func TestContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL).CaptureStats(ctx, analytics.Filters{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
