package crawlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceQuerier_BuildURL(t *testing.T) {
	querier := NewSourceQuerier(NewDocumentFetcher(FetcherConfig{}, nil), 0)

	raw, err := querier.BuildURL(models.SourceDescriptor{
		Name:       "ACT",
		Endpoint:   "https://api.morph.io/planningalerts-scrapers/act/data.json",
		Credential: "secret-key",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, `select * from "data" order by date_received desc limit 200`, parsed.Query().Get("query"))
	assert.Equal(t, "secret-key", parsed.Query().Get("key"))

	raw, err = NewSourceQuerier(nil, 5).BuildURL(models.SourceDescriptor{Name: "X", Endpoint: "https://example.com/data.json"})
	require.NoError(t, err)
	parsed, _ = url.Parse(raw)
	assert.False(t, parsed.Query().Has("key"))
	assert.Contains(t, parsed.Query().Get("query"), "limit 5")
}

func TestSourceQuerier_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"council_reference": "D/2024/1", "address": "1 George St", "info_url": " https://example.com/da/1 "},
			{"council_reference": 2024002, "address": null, "description": "New dwelling", "info_url": null},
			{"council_reference": null, "address": "3 Main Rd", "date_received": "2024-05-01"}
		]`))
	}))
	defer server.Close()

	querier := NewSourceQuerier(NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil), 200)
	records, err := querier.Query(context.Background(), models.SourceDescriptor{Name: "Test", Endpoint: server.URL + "/data.json", Credential: "k1"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.Record{Reference: "D/2024/1", Address: "1 George St", DetailURL: "https://example.com/da/1"}, records[0])
	assert.Equal(t, "2024002", records[1].Reference)
	assert.Equal(t, "New dwelling", records[1].DisplayAddress())
	assert.False(t, records[1].HasDetailURL())
	assert.Equal(t, "", records[2].Reference)
}

func TestSourceQuerier_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad-json" {
			w.Write([]byte(`{"error": "invalid api key"}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	querier := NewSourceQuerier(NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil), 200)

	_, err := querier.Query(context.Background(), models.SourceDescriptor{Name: "A", Endpoint: server.URL + "/bad-json", Credential: "JQLGaiTjLU8qg8RhfZL"})
	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchDecode, fetchErr.Kind)
	assert.NotContains(t, err.Error(), "JQLGaiTjLU8qg8RhfZL")

	_, err = querier.Query(context.Background(), models.SourceDescriptor{Name: "B", Endpoint: server.URL + "/down", Credential: "JQLGaiTjLU8qg8RhfZL"})
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchStatus, fetchErr.Kind)
	assert.NotContains(t, err.Error(), "JQLGaiTjLU8qg8RhfZL")
}

func TestFlexString(t *testing.T) {
	var row sourceRow
	require.NoError(t, (&row).CouncilReference.UnmarshalJSON([]byte(`"abc"`)))
	assert.Equal(t, flexString("abc"), row.CouncilReference)

	require.NoError(t, (&row).CouncilReference.UnmarshalJSON([]byte(`12.5`)))
	assert.Equal(t, flexString("12.5"), row.CouncilReference)

	require.NoError(t, (&row).CouncilReference.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, flexString(""), row.CouncilReference)
}
