package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"virtualcare/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DevServer.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.DevServer.PublicURL = ""

	s, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, cfg
}

func multipartBody(t *testing.T, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadReturnsURLsInOrder(t *testing.T) {
	s, ts, cfg := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"front.jpg": "AAA", "left side.jpg": "BBB"}, []string{"front.jpg", "left side.jpg"})
	resp, err := http.Post(ts.URL+cfg.Endpoints.UploadPath, ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		URLs []string `json:"urls"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.URLs, 2)
	assert.True(t, strings.HasSuffix(out.URLs[0], "-front.jpg"))
	assert.True(t, strings.HasSuffix(out.URLs[1], "-left_side.jpg"))
	assert.True(t, strings.HasPrefix(out.URLs[0], ts.URL+"/uploads/"))
	assert.Len(t, s.Uploads(), 2)

	get, err := http.Get(out.URLs[1])
	require.NoError(t, err)
	defer get.Body.Close()
	data, _ := io.ReadAll(get.Body)
	assert.Equal(t, "BBB", string(data))
}

func TestUploadRequiresFiles(t *testing.T) {
	_, ts, cfg := newTestServer(t)
	body, ct := multipartBody(t, nil, nil)
	resp, err := http.Post(ts.URL+cfg.Endpoints.UploadPath, ct, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteRecordsSubmission(t *testing.T) {
	s, ts, cfg := newTestServer(t)

	payload := `{"email":"pat@example.com","answers":{"0":{"question":"Q","value":"A"}},"submissionFrom":"Virtual Care App"}`
	resp, err := http.Post(ts.URL+cfg.Endpoints.CompletePath, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := s.Completions()
	require.Len(t, got, 1)
	assert.Equal(t, "pat@example.com", got[0].Email)
	assert.Equal(t, "Virtual Care App", got[0].SubmissionFrom)
	assert.Contains(t, got[0].Answers, "0")
}

func TestCompleteRejectsMissingEmail(t *testing.T) {
	s, ts, cfg := newTestServer(t)
	resp, err := http.Post(ts.URL+cfg.Endpoints.CompletePath, "application/json", strings.NewReader(`{"answers":{}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, s.Completions())
}

func TestErrorReportAndFailureInjection(t *testing.T) {
	s, ts, cfg := newTestServer(t)

	s.FailWith(EndpointComplete, http.StatusBadGateway)
	resp, err := http.Post(ts.URL+cfg.Endpoints.CompletePath, "application/json", strings.NewReader(`{"email":"x@y.z"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, err = http.Post(ts.URL+cfg.Endpoints.ErrorPath, "application/json", strings.NewReader(`{"error_body":{"message":"boom"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reports := s.Reports()
	require.Len(t, reports, 1)
	assert.JSONEq(t, `{"message":"boom"}`, string(reports[0]))

	s.FailWith(EndpointComplete, 0)
	resp, err = http.Post(ts.URL+cfg.Endpoints.CompletePath, "application/json", strings.NewReader(`{"email":"x@y.z"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetUploadRejectsTraversal(t *testing.T) {
	_, ts, cfg := newTestServer(t)
	secret := filepath.Join(filepath.Dir(cfg.DevServer.UploadDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0644))

	resp, err := http.Get(ts.URL + "/uploads/..%2Fsecret.txt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b.jpg", sanitize("a b.jpg"))
	assert.Equal(t, "evil.jpg", sanitize("../../evil.jpg"))
	assert.Equal(t, "x.png", sanitize(`C:\photos\x.png`))
}
