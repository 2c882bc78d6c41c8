package crawlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHeaders http.Header

func (h staticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(h), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/da/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><a href="/docs/noise.pdf">Noise Report</a></body></html>`))
	})
	mux.HandleFunc("/docs/noise.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 noise"))
	})
	mux.HandleFunc("/docs/brotli.pdf", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("%PDF-1.7 brotli body"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/docs/empty.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/docs/partial.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-12/13")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("%PDF-1.4 data"))
	})
	mux.HandleFunc("/docs/mirror.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		w.Write([]byte("%PDF-1.4 data"))
	})
	mux.HandleFunc("/docs/moved.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/noise.pdf", http.StatusFound)
	})
	mux.HandleFunc("/docs/not-modified.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("User-Agent")))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDocumentFetcher_FetchPage(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	html, err := fetcher.FetchPage(context.Background(), server.URL+"/da/1")
	require.NoError(t, err)
	assert.Contains(t, html, "Noise Report")
}

func TestDocumentFetcher_StatusError(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	_, err := fetcher.FetchPage(context.Background(), server.URL+"/missing")
	require.Error(t, err)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestDocumentFetcher_SuccessStatuses(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"206 Partial Content", "/docs/partial.pdf", "%PDF-1.4 data"},
		{"203 Non-Authoritative", "/docs/mirror.pdf", "%PDF-1.4 data"},
		{"跟随重定向", "/docs/moved.pdf", "%PDF-1.4 noise"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fetcher.DownloadFile(context.Background(), server.URL+tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestDocumentFetcher_NonSuccessStatus(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	_, err := fetcher.DownloadFile(context.Background(), server.URL+"/docs/not-modified.pdf")
	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchStatus, fetchErr.Kind)
	assert.Equal(t, http.StatusNotModified, fetchErr.StatusCode)
}

func TestIsSuccessStatus(t *testing.T) {
	for _, code := range []int{200, 203, 206, 299} {
		assert.True(t, isSuccessStatus(code), code)
	}
	for _, code := range []int{0, 199, 300, 304, 404, 500} {
		assert.False(t, isSuccessStatus(code), code)
	}
}

func TestDocumentFetcher_Timeout(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 200 * time.Millisecond}, nil)

	start := time.Now()
	_, err := fetcher.DownloadFile(context.Background(), server.URL+"/slow")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchTimeout, fetchErr.Kind)
}

func TestDocumentFetcher_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 2 * time.Second}, nil)
	_, err := fetcher.FetchPage(context.Background(), addr+"/da/1")

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchNetwork, fetchErr.Kind)
}

func TestDocumentFetcher_DownloadFile(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	// 同一URL可重复下载
	for i := 0; i < 2; i++ {
		data, err := fetcher.DownloadFile(context.Background(), server.URL+"/docs/noise.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 noise"), data)
	}
}

func TestDocumentFetcher_DownloadBrotli(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	data, err := fetcher.DownloadFile(context.Background(), server.URL+"/docs/brotli.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 brotli body", string(data))
}

func TestDocumentFetcher_EmptyBody(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	_, err := fetcher.DownloadFile(context.Background(), server.URL+"/docs/empty.pdf")
	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, models.FetchEmpty, fetchErr.Kind)
}

func TestDocumentFetcher_AppliesHeaders(t *testing.T) {
	server := newTestServer(t)
	headers := staticHeaders{"User-Agent": {"DAReportFinder-Test/1.0"}}
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, headers)

	resp, err := fetcher.Get(context.Background(), server.URL+"/ua")
	require.NoError(t, err)
	assert.Equal(t, "DAReportFinder-Test/1.0", string(resp.Body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocumentFetcher_CancelledContext(t *testing.T) {
	server := newTestServer(t)
	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 5 * time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.FetchPage(ctx, server.URL+"/da/1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeBody(t *testing.T) {
	plain := []byte("raw bytes")
	out, err := decodeBody("identity", plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	out, err = decodeBody("gzip", plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out, "gzip已由colly解码,原样返回")

	_, err = decodeBody("br", []byte("not brotli"))
	assert.Error(t, err)
}
