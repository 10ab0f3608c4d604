// Package submission uploads image answers, merges the returned URLs into
// the answer set and posts it to the completion endpoint. A Submitter is
// one-shot: once it reaches success or error it refuses further attempts.
package submission

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"virtualcare/internal/analytics"
	"virtualcare/internal/config"
	"virtualcare/internal/journal"
	"virtualcare/internal/logging"
	"virtualcare/internal/media"
	"virtualcare/internal/sequencer"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Outcome is the submission state.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	default:
		return "pending"
	}
}

// Preparer normalizes an image before upload.
type Preparer interface {
	Prepare(ctx context.Context, f *media.File) (*media.File, error)
}

// Recorder stores submission attempts.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options configures a Submitter.
type Options struct {
	From                    string
	ContinueOnUploadFailure bool
	Workers                 int
	ReportTimeout           time.Duration
}

// OptionsFromConfig reads submission options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		From:                    cfg.Submission.From,
		ContinueOnUploadFailure: cfg.ContinueOnUploadFailure(),
		Workers:                 cfg.Submission.PrepareWorkers,
		ReportTimeout:           30 * time.Second,
	}
}

// Request is what the finalization panel hands over.
type Request struct {
	Answers []sequencer.AnswerRecord
	Email   string
	Token   string // anti-automation token; only its presence is checked
}

// Submitter runs the submission pipeline.
type Submitter struct {
	endpoints Endpoints
	preparer  Preparer
	analytics analytics.Collector
	recorder  Recorder // may be nil
	opts      Options
	log       *zap.Logger

	sem     *semaphore.Weighted
	mu      sync.Mutex
	outcome Outcome
	reports sync.WaitGroup
}

// New creates a Submitter. recorder may be nil.
func New(ep Endpoints, prep Preparer, coll analytics.Collector, recorder Recorder, opts Options) *Submitter {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = 30 * time.Second
	}
	if coll == nil {
		coll = analytics.Nop{}
	}
	return &Submitter{
		endpoints: ep,
		preparer:  prep,
		analytics: coll,
		recorder:  recorder,
		opts:      opts,
		log:       logging.Get(logging.CategorySubmission),
		sem:       semaphore.NewWeighted(1),
	}
}

// Outcome returns the current state.
func (s *Submitter) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Wait blocks until any diagnostic report has been delivered or given up.
func (s *Submitter) Wait() { s.reports.Wait() }

// Submit runs the pipeline. Validation and image failures leave the
// outcome pending and make no network call; upload (unless configured to
// continue) and completion failures are terminal.
func (s *Submitter) Submit(ctx context.Context, req Request) (Outcome, error) {
	if o := s.Outcome(); o != OutcomePending {
		return o, ErrAlreadySubmitted
	}
	if !s.sem.TryAcquire(1) {
		return OutcomePending, ErrInFlight
	}
	defer s.sem.Release(1)
	if o := s.Outcome(); o != OutcomePending {
		return o, ErrAlreadySubmitted
	}

	entry := journal.Entry{ID: uuid.NewString(), At: time.Now(), Email: strings.TrimSpace(req.Email)}
	log := s.log.With(zap.String("submission", entry.ID))

	if req.Token == "" {
		return s.reject(entry, &ValidationError{Message: MsgMissingToken})
	}
	if entry.Email == "" {
		return s.reject(entry, &ValidationError{Message: MsgMissingEmail})
	}

	files, err := collectFiles(req.Answers)
	entry.FileCount = len(files)
	if err != nil {
		return s.reject(entry, err)
	}

	prepared, err := s.prepareAll(ctx, files)
	if err != nil {
		return s.reject(entry, err)
	}

	var urls []string
	if len(prepared) > 0 {
		urls, err = s.endpoints.UploadPhotos(ctx, prepared)
		if err != nil {
			if !s.opts.ContinueOnUploadFailure {
				log.Error("photo upload failed, aborting", zap.Error(err))
				entry.Outcome = journal.OutcomeUploadFail
				return s.fail(entry, err)
			}
			log.Warn("photo upload failed, continuing without urls", zap.Error(err))
			urls = nil
		} else {
			entry.Uploaded = len(urls)
			log.Info("photos uploaded", zap.Int("count", len(urls)))
		}
	}

	payload := BuildPayload(req.Answers, entry.Email, s.opts.From, urls)
	if err := s.endpoints.Complete(ctx, payload); err != nil {
		log.Error("assessment completion failed", zap.Error(err))
		entry.Outcome = journal.OutcomeError
		return s.fail(entry, err)
	}

	s.analytics.Conversion(ctx, analytics.ConversionCategory, analytics.ConversionAction)

	s.setOutcome(OutcomeSuccess)
	entry.Outcome = journal.OutcomeSuccess
	s.record(entry)
	log.Info("assessment submitted", zap.Int("answers", len(payload.Answers)), zap.Int("photos", entry.Uploaded))
	return OutcomeSuccess, nil
}

func (s *Submitter) setOutcome(o Outcome) {
	s.mu.Lock()
	s.outcome = o
	s.mu.Unlock()
}

func (s *Submitter) reject(entry journal.Entry, err error) (Outcome, error) {
	s.log.Warn("submission rejected", zap.String("submission", entry.ID), zap.Error(err))
	entry.Outcome = journal.OutcomeRejected
	entry.Error = err.Error()
	s.record(entry)
	return OutcomePending, err
}

func (s *Submitter) fail(entry journal.Entry, err error) (Outcome, error) {
	s.setOutcome(OutcomeError)
	entry.Error = err.Error()
	s.record(entry)

	body := map[string]any{
		"submission_id": entry.ID,
		"message":       err.Error(),
		"status":        statusOf(err),
	}
	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ReportTimeout)
		defer cancel()
		if rerr := s.endpoints.ReportError(ctx, body); rerr != nil {
			s.log.Warn("diagnostic report failed", zap.String("submission", entry.ID), zap.Error(rerr))
		}
	}()
	return OutcomeError, err
}

func (s *Submitter) record(entry journal.Entry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.Background(), entry); err != nil {
		s.log.Warn("journal write failed", zap.String("submission", entry.ID), zap.Error(err))
	}
}

// collectFiles gathers files from image-kind answers in answer order and
// re-checks the upload limit.
func collectFiles(answers []sequencer.AnswerRecord) ([]*media.File, error) {
	var files []*media.File
	for _, rec := range answers {
		if !rec.Kind.IsImage() {
			continue
		}
		for _, f := range sequencer.Files(rec.Value) {
			if f.Size() > media.MaxUploadBytes {
				return nil, &FileTooLargeError{Filename: f.Name}
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// prepareAll runs the image pipeline over files with bounded parallelism,
// keeping input order.
func (s *Submitter) prepareAll(ctx context.Context, files []*media.File) ([]*media.File, error) {
	out := make([]*media.File, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			p, err := s.preparer.Prepare(gctx, f)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildPayload assembles the completion body. urls are consumed in answer
// order by image answers; when urls is nil, file answers are sent as file
// names.
func BuildPayload(answers []sequencer.AnswerRecord, email, from string, urls []string) Payload {
	p := Payload{
		Email:          email,
		Answers:        make(map[string]Answer, len(answers)),
		SubmissionFrom: from,
	}
	next := 0
	take := func() string {
		if next >= len(urls) {
			return ""
		}
		u := urls[next]
		next++
		return u
	}

	for _, rec := range answers {
		key := strconv.Itoa(rec.QuestionID)
		a := Answer{Question: rec.Prompt}

		switch v := rec.Value.(type) {
		case sequencer.Text:
			a.Value = string(v)
		case sequencer.FileValue:
			if urls != nil {
				a.Value, a.Type = take(), "image"
			} else if v.File != nil {
				a.Value = v.File.Name
			}
		case sequencer.FileList:
			vals := make([]string, 0, len(v))
			for _, f := range v {
				if urls != nil {
					vals = append(vals, take())
				} else {
					vals = append(vals, f.Name)
				}
			}
			a.Value = vals
			if urls != nil || len(v) == 0 {
				a.Type = "image"
			}
		}
		p.Answers[key] = a
	}
	return p
}

// IsLocal reports whether err is a pre-network failure the user can
// correct: a validation failure, an oversized file or an unprocessable
// image.
func IsLocal(err error) bool {
	var verr *ValidationError
	var ferr *FileTooLargeError
	return errors.As(err, &verr) || errors.As(err, &ferr) || isProcessing(err)
}
