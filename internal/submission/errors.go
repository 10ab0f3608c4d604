package submission

import (
	"errors"
	"fmt"

	"virtualcare/internal/imaging"
)

var (
	// ErrAlreadySubmitted is returned once a submission reached a terminal
	// outcome.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrInFlight is returned while another Submit call is outstanding.
	ErrInFlight = errors.New("submission already in progress")
)

// User-facing wording for local validation failures.
const (
	MsgMissingToken = "Please complete captcha first."
	MsgMissingEmail = "Please enter a valid email."
)

// ValidationError is a precondition failure detected before any network
// call. Message is shown to the user as a warning.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FileTooLargeError reports an image answer over the upload limit.
type FileTooLargeError struct {
	Filename string
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("File %q exceeds 10MB.", e.Filename)
}

// UploadError reports a failed photo upload. Status is zero when no
// response was received.
type UploadError struct {
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("photo upload failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("photo upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// CompletionError reports a failed completion request.
type CompletionError struct {
	Status int
	Err    error
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("assessment completion failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("assessment completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// statusOf extracts the HTTP status carried by an endpoint error.
func statusOf(err error) int {
	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr.Status
	}
	var cerr *CompletionError
	if errors.As(err, &cerr) {
		return cerr.Status
	}
	return 0
}

func isProcessing(err error) bool {
	var perr *imaging.ProcessingError
	return errors.As(err, &perr)
}

// UserMessage returns the wording shown to the user for a failed Submit.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var ferr *FileTooLargeError
	if errors.As(err, &ferr) {
		return ferr.Error()
	}
	var perr *imaging.ProcessingError
	if errors.As(err, &perr) {
		return fmt.Sprintf("Error processing %s", perr.Filename)
	}
	switch {
	case errors.Is(err, ErrInFlight):
		return "Please wait, your results are being submitted."
	case errors.Is(err, ErrAlreadySubmitted):
		return "Your results were already submitted."
	}
	return "Something went wrong."
}
