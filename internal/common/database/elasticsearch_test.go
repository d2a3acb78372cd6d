package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-pipeline/internal/common/config"
)

func newESServer(t *testing.T, status int, handler func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The v8 client rejects responses without the product header.
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if handler != nil {
			handler(r)
		}
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIndex_SendsDocument(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := newESServer(t, http.StatusCreated, func(r *http.Request) {
		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			gotPath = r.URL.Path
			gotBody, _ = io.ReadAll(r.Body)
		}
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = client.Index(context.Background(), "notification-audit", "doc-1", strings.NewReader(`{"step":"token_saved"}`))
	require.NoError(t, err)

	assert.Equal(t, "/notification-audit/_doc/doc-1", gotPath)
	assert.JSONEq(t, `{"step":"token_saved"}`, string(gotBody))
}

func TestIndex_ServerErrorIsReturned(t *testing.T) {
	srv := newESServer(t, http.StatusServiceUnavailable, nil)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = client.Index(context.Background(), "notification-audit", "doc-1", strings.NewReader(`{}`))
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := newESServer(t, http.StatusOK, nil)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	assert.NoError(t, client.Ping())
}
