package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/plugin/ai"
)

func TestSearch(t *testing.T) {
	var got requestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","search_result":[
			{"title":"Go 并发","content":"goroutine","link":"https://go.dev","media":"go.dev","publish_date":"2025-01-01"},
			{"title":"Channels","content":"chan","link":"https://example.com","media":"example"}]}`))
	}))
	defer srv.Close()

	client := NewClient(ai.SearchConfig{APIKey: "secret", URL: srv.URL, Count: 3, Recency: "oneYear", ContentSize: "medium"})
	resp, err := client.Search(context.Background(), Request{Query: strings.Repeat("并", 100), UserID: "7"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://go.dev", resp.Results[0].Link)
	assert.Equal(t, "2025-01-01", resp.Results[0].PublishDate)

	assert.Equal(t, MaxQueryRunes, utf8.RuneCountInString(got.SearchQuery))
	assert.Equal(t, "search_std", got.SearchEngine)
	assert.False(t, got.SearchIntent)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, "oneYear", got.SearchRecencyFilter)
	assert.Equal(t, "7", got.UserID)
	assert.NotEmpty(t, got.RequestID)
}

func TestSearchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := NewClient(ai.SearchConfig{APIKey: "k", URL: srv.URL})
	_, err := client.Search(context.Background(), Request{Query: "go"})

	var searchErr *Error
	require.True(t, errors.As(err, &searchErr))
	assert.Equal(t, http.StatusTooManyRequests, searchErr.StatusCode)
	assert.Contains(t, searchErr.Error(), "rate limited")
}

func TestSearchEmptyQuery(t *testing.T) {
	client := NewClient(ai.SearchConfig{URL: "http://unused"})
	_, err := client.Search(context.Background(), Request{Query: "   "})
	assert.Error(t, err)
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "go", TruncateQuery("  go "))
	assert.Equal(t, MaxQueryRunes, utf8.RuneCountInString(TruncateQuery(strings.Repeat("ab", 50))))
}
