package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"virtualcare/internal/config"
	"virtualcare/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientFor(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cfg := config.DefaultConfig()
	cfg.Endpoints.BaseURL = ts.URL
	return NewClientWithHTTP(cfg, ts.Client())
}

func TestUploadPhotosMultipart(t *testing.T) {
	var names, types []string
	c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/dqp/v1/upload-photo", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		for _, fh := range r.MultipartForm.File[UploadField] {
			names = append(names, fh.Filename)
			types = append(types, fh.Header.Get("Content-Type"))
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"urls": {"https://cdn/a.jpg", "https://cdn/b.jpg"}})
	})

	urls, err := c.UploadPhotos(context.Background(), []*media.File{
		{Name: "a.jpg", MIME: "image/jpeg", Data: []byte("a")},
		{Name: `b"q.jpg`, MIME: "image/jpeg", Data: []byte("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, urls)
	assert.Equal(t, []string{"a.jpg", `b"q.jpg`}, names)
	assert.Equal(t, []string{"image/jpeg", "image/jpeg"}, types)
}

func TestUploadPhotosURLCountMismatch(t *testing.T) {
	c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"urls":[]}`))
	})
	_, err := c.UploadPhotos(context.Background(), []*media.File{{Name: "a.jpg", MIME: "image/jpeg", Data: []byte("a")}})
	var uerr *UploadError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusOK, uerr.Status)
}

func TestCompleteNon2xx(t *testing.T) {
	c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	err := c.Complete(context.Background(), Payload{Email: "x@y.z"})
	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusBadGateway, cerr.Status)
	assert.Contains(t, err.Error(), "nope")
}

func TestCompleteSendsPayload(t *testing.T) {
	var got Payload
	c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})
	p := Payload{Email: "x@y.z", SubmissionFrom: "Virtual Care App", Answers: map[string]Answer{"0": {Question: "Q", Value: "A"}}}
	require.NoError(t, c.Complete(context.Background(), p))
	assert.Equal(t, p, got)
}

func TestReportErrorWrapsBody(t *testing.T) {
	var raw map[string]json.RawMessage
	c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/hqa/v1/assessment-error", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	})
	require.NoError(t, c.ReportError(context.Background(), map[string]string{"message": "boom"}))
	assert.JSONEq(t, `{"message":"boom"}`, string(raw["error_body"]))
}
