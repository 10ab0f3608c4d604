package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"virtualcare/internal/catalog"
	"virtualcare/internal/config"
	"virtualcare/internal/devserver"
	"virtualcare/internal/imaging"
	"virtualcare/internal/journal"
	"virtualcare/internal/media"
	"virtualcare/internal/sequencer"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingCollector struct {
	pageViews   atomic.Int32
	conversions atomic.Int32
}

func (c *countingCollector) PageView(context.Context, string) { c.pageViews.Add(1) }
func (c *countingCollector) Conversion(context.Context, string, string) {
	c.conversions.Add(1)
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *memJournal) Record(_ context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) outcomes() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.entries {
		out = append(out, e.Outcome)
	}
	return out
}

func pngFile(t *testing.T, name string) *media.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return &media.File{Name: name, MIME: "image/png", Data: buf.Bytes()}
}

func answers(t *testing.T, photos ...*media.File) []sequencer.AnswerRecord {
	t.Helper()
	return []sequencer.AnswerRecord{
		{QuestionID: 0, Prompt: "What are your treatment goals?", Value: sequencer.Text("straighter smile"), Kind: catalog.KindShortText},
		{QuestionID: 1, Prompt: "Where should we email your consultation?", Value: sequencer.Text("pat@example.com"), Kind: catalog.KindShortText},
		{QuestionID: 5, Prompt: "Appliance?", Value: sequencer.Text("Metal Braces"), Kind: catalog.KindSingleChoice},
		{QuestionID: 6, Prompt: "Photos", Value: sequencer.FileList(photos), Kind: catalog.KindMultiImage},
	}
}

type harness struct {
	dev       *devserver.Server
	ts        *httptest.Server
	requests  atomic.Int32
	collector *countingCollector
	journal   *memJournal
	sub       *Submitter
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DevServer.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.DevServer.PublicURL = ""
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{collector: &countingCollector{}, journal: &memJournal{}}
	dev, err := devserver.New(cfg)
	require.NoError(t, err)
	h.dev = dev
	handler := dev.Handler()
	h.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(h.ts.Close)

	cfg.Endpoints.BaseURL = h.ts.URL
	client := NewClientWithHTTP(cfg, h.ts.Client())
	h.sub = New(client, imaging.DefaultPipeline(), h.collector, h.journal, OptionsFromConfig(cfg))
	t.Cleanup(h.sub.Wait)
	return h
}

func TestSubmitMissingTokenMakesNoRequest(t *testing.T) {
	h := newHarness(t, nil)

	outcome, err := h.sub.Submit(context.Background(), Request{
		Answers: answers(t, pngFile(t, "front.png")),
		Email:   "pat@example.com",
	})

	assert.Equal(t, OutcomePending, outcome)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, MsgMissingToken, UserMessage(err))
	assert.True(t, IsLocal(err))
	assert.Zero(t, h.requests.Load())
	assert.Equal(t, []string{journal.OutcomeRejected}, h.journal.outcomes())
	assert.Equal(t, OutcomePending, h.sub.Outcome())
}

func TestSubmitMissingEmail(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.sub.Submit(context.Background(), Request{Answers: answers(t), Email: "  ", Token: "tok"})
	assert.Equal(t, MsgMissingEmail, UserMessage(err))
	assert.Zero(t, h.requests.Load())
}

func TestSubmitSuccessEndToEnd(t *testing.T) {
	h := newHarness(t, nil)

	outcome, err := h.sub.Submit(context.Background(), Request{
		Answers: answers(t, pngFile(t, "front.png"), pngFile(t, "left.png")),
		Email:   "pat@example.com",
		Token:   "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, int32(1), h.collector.conversions.Load())

	uploads := h.dev.Uploads()
	require.Len(t, uploads, 2)
	assert.Contains(t, uploads[0], "front.jpg")
	assert.Contains(t, uploads[1], "left.jpg")

	completions := h.dev.Completions()
	require.Len(t, completions, 1)
	c := completions[0]
	assert.Equal(t, "pat@example.com", c.Email)
	assert.Equal(t, "Virtual Care App", c.SubmissionFrom)

	var photos Answer
	require.NoError(t, json.Unmarshal(c.Answers["6"], &photos))
	assert.Equal(t, "image", photos.Type)
	urls, ok := photos.Value.([]any)
	require.True(t, ok)
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "front.jpg")

	var goal Answer
	require.NoError(t, json.Unmarshal(c.Answers["0"], &goal))
	assert.Equal(t, "straighter smile", goal.Value)
	assert.Empty(t, goal.Type)

	_, err = h.sub.Submit(context.Background(), Request{Answers: answers(t), Email: "pat@example.com", Token: "tok"})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, int32(1), h.collector.conversions.Load())
	assert.Equal(t, []string{journal.OutcomeSuccess}, h.journal.outcomes())
}

func TestSubmitSkippedPhotosSkipsUpload(t *testing.T) {
	h := newHarness(t, nil)
	outcome, err := h.sub.Submit(context.Background(), Request{Answers: answers(t), Email: "pat@example.com", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Empty(t, h.dev.Uploads())
	assert.Equal(t, int32(1), h.requests.Load(), "only the completion request")
}

func TestSubmitCompletionFailureReportsOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.dev.FailWith(devserver.EndpointComplete, http.StatusInternalServerError)

	outcome, err := h.sub.Submit(context.Background(), Request{Answers: answers(t), Email: "pat@example.com", Token: "tok"})
	assert.Equal(t, OutcomeError, outcome)
	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusInternalServerError, cerr.Status)
	assert.False(t, IsLocal(err))

	h.sub.Wait()
	reports := h.dev.Reports()
	require.Len(t, reports, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(reports[0], &body))
	assert.EqualValues(t, 500, body["status"])
	assert.Zero(t, h.collector.conversions.Load())

	_, err = h.sub.Submit(context.Background(), Request{Answers: answers(t), Email: "pat@example.com", Token: "tok"})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, []string{journal.OutcomeError}, h.journal.outcomes())
}

func TestSubmitUploadFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.dev.FailWith(devserver.EndpointUpload, http.StatusServiceUnavailable)

	outcome, err := h.sub.Submit(context.Background(), Request{
		Answers: answers(t, pngFile(t, "front.png")),
		Email:   "pat@example.com",
		Token:   "tok",
	})
	assert.Equal(t, OutcomeError, outcome)
	var uerr *UploadError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusServiceUnavailable, uerr.Status)
	assert.Empty(t, h.dev.Completions())

	h.sub.Wait()
	assert.Len(t, h.dev.Reports(), 1)
	assert.Equal(t, []string{journal.OutcomeUploadFail}, h.journal.outcomes())
}

func TestSubmitUploadFailureContinues(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Submission.UploadFailure = config.UploadFailureContinue })
	h.dev.FailWith(devserver.EndpointUpload, http.StatusServiceUnavailable)

	outcome, err := h.sub.Submit(context.Background(), Request{
		Answers: answers(t, pngFile(t, "front.png")),
		Email:   "pat@example.com",
		Token:   "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	completions := h.dev.Completions()
	require.Len(t, completions, 1)
	var photos Answer
	require.NoError(t, json.Unmarshal(completions[0].Answers["6"], &photos))
	assert.Equal(t, []any{"front.png"}, photos.Value)
	assert.Empty(t, photos.Type)
}

func TestSubmitOversizedFile(t *testing.T) {
	h := newHarness(t, nil)
	big := &media.File{Name: "huge.jpg", MIME: "image/jpeg", Data: make([]byte, media.MaxUploadBytes+1)}

	outcome, err := h.sub.Submit(context.Background(), Request{Answers: answers(t, big), Email: "pat@example.com", Token: "tok"})
	assert.Equal(t, OutcomePending, outcome)
	var ferr *FileTooLargeError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, `File "huge.jpg" exceeds 10MB.`, UserMessage(err))
	assert.Zero(t, h.requests.Load())
}

func TestSubmitProcessingErrorIsRetryable(t *testing.T) {
	h := newHarness(t, nil)
	corrupt := &media.File{Name: "broken.png", MIME: "image/png", Data: []byte("nope")}

	outcome, err := h.sub.Submit(context.Background(), Request{Answers: answers(t, pngFile(t, "ok.png"), corrupt), Email: "pat@example.com", Token: "tok"})
	assert.Equal(t, OutcomePending, outcome)
	assert.Equal(t, "Error processing broken.png", UserMessage(err))
	assert.Zero(t, h.requests.Load())

	outcome, err = h.sub.Submit(context.Background(), Request{Answers: answers(t, pngFile(t, "ok.png")), Email: "pat@example.com", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

type blockingPreparer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPreparer) Prepare(ctx context.Context, f *media.File) (*media.File, error) {
	close(b.entered)
	<-b.release
	return f, nil
}

type nopEndpoints struct{}

func (nopEndpoints) UploadPhotos(_ context.Context, files []*media.File) ([]string, error) {
	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = "https://cdn.example.com/" + f.Name
	}
	return urls, nil
}
func (nopEndpoints) Complete(context.Context, Payload) error { return nil }
func (nopEndpoints) ReportError(context.Context, any) error { return nil }

func TestSubmitInFlightGuard(t *testing.T) {
	prep := &blockingPreparer{entered: make(chan struct{}), release: make(chan struct{})}
	sub := New(nopEndpoints{}, prep, nil, nil, Options{From: "Virtual Care App"})
	req := Request{Answers: answers(t, pngFile(t, "a.png")), Email: "pat@example.com", Token: "tok"}

	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background(), req)
		done <- err
	}()
	<-prep.entered

	_, err := sub.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrInFlight)

	close(prep.release)
	require.NoError(t, <-done)
	assert.Equal(t, OutcomeSuccess, sub.Outcome())
}

func TestBuildPayload(t *testing.T) {
	single := &media.File{Name: "smile.jpg"}
	a, b := &media.File{Name: "a.jpg"}, &media.File{Name: "b.jpg"}
	recs := []sequencer.AnswerRecord{
		{QuestionID: 0, Prompt: "Name", Value: sequencer.Text("Pat"), Kind: catalog.KindShortText},
		{QuestionID: 1, Prompt: "Smile", Value: sequencer.FileValue{File: single}, Kind: catalog.KindSingleImage},
		{QuestionID: 2, Prompt: "More", Value: sequencer.FileList{a, b}, Kind: catalog.KindMultiImage},
		{QuestionID: 3, Prompt: "Skipped", Value: sequencer.FileList{}, Kind: catalog.KindMultiImage},
	}

	got := BuildPayload(recs, "pat@example.com", "Virtual Care App", []string{"u1", "u2", "u3"})
	want := Payload{
		Email:          "pat@example.com",
		SubmissionFrom: "Virtual Care App",
		Answers: map[string]Answer{
			"0": {Question: "Name", Value: "Pat"},
			"1": {Question: "Smile", Value: "u1", Type: "image"},
			"2": {Question: "More", Value: []string{"u2", "u3"}, Type: "image"},
			"3": {Question: "Skipped", Value: []string{}, Type: "image"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	fallback := BuildPayload(recs, "pat@example.com", "Virtual Care App", nil)
	assert.Equal(t, Answer{Question: "Smile", Value: "smile.jpg"}, fallback.Answers["1"])
	assert.Equal(t, Answer{Question: "More", Value: []string{"a.jpg", "b.jpg"}}, fallback.Answers["2"])
}
