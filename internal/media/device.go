package media

import (
	"context"
	"errors"

	"github.com/aiimpactmedia/casting/internal/model"
)

// Faults a Device may return from Acquire. Anything else is classified as
// model.CaptureOther.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
)

// Device is the platform microphone
type Device interface {
	// Acquire opens a capture stream. The caller owns the stream and must
	// Close it exactly once.
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an open capture resource
type Stream interface {
	// Chunks delivers captured audio. It is closed once Close returns.
	Chunks() <-chan []byte
	// Close releases the underlying device
	Close() error
}

// DeviceFunc adapts a function to Device
type DeviceFunc func(ctx context.Context) (Stream, error)

func (f DeviceFunc) Acquire(ctx context.Context) (Stream, error) {
	return f(ctx)
}

func classifyCaptureFault(err error) *model.CaptureUnavailableError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &model.CaptureUnavailableError{Reason: model.CapturePermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &model.CaptureUnavailableError{Reason: model.CaptureDeviceNotFound, Err: err}
	default:
		return &model.CaptureUnavailableError{Reason: model.CaptureOther, Err: err}
	}
}
