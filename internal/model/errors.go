package model

import (
	"errors"
	"fmt"
)

var (
	// Pipeline failures. Any of the first two aborts the submission.
	ErrStagingFailed      = errors.New("staging failed")
	ErrPersistenceFailed  = errors.New("persistence failed")
	ErrNotificationFailed = errors.New("notification failed")

	// ErrSubmissionFailed is what the wizard reports for any fatal pipeline error
	ErrSubmissionFailed = errors.New("submission failed")

	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrInvalidStep          = errors.New("operation not allowed in current step")
	ErrSessionNotFound      = errors.New("session not found")
	ErrRecordNotFound       = errors.New("submission not found")
	ErrInvalidStatus        = errors.New("invalid submission status")
)

// SubmissionFailedMessage is the single user-facing text for fatal pipeline errors
const SubmissionFailedMessage = "Submission failed. Please try again."

// ValidationError is returned when a gated transition is attempted with a
// required field, consent, or signature missing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// CaptureReason classifies a microphone acquisition fault
type CaptureReason string

const (
	CapturePermissionDenied CaptureReason = "permission_denied"
	CaptureDeviceNotFound   CaptureReason = "device_not_found"
	CaptureOther            CaptureReason = "other"
)

// CaptureUnavailableError is returned when recording cannot start
type CaptureUnavailableError struct {
	Reason CaptureReason
	Err    error
}

func (e *CaptureUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture unavailable (%s)", e.Reason)
}

func (e *CaptureUnavailableError) Unwrap() error {
	return e.Err
}

// Remediation returns the text shown to the applicant for this fault
func (e *CaptureUnavailableError) Remediation() string {
	switch e.Reason {
	case CapturePermissionDenied:
		return "Microphone access denied. Please enable microphone permissions in your browser settings to record audio."
	case CaptureDeviceNotFound:
		return "No microphone found. Please connect a microphone or upload an MP3 file instead."
	default:
		return "Could not access microphone. Please upload an MP3 instead."
	}
}
