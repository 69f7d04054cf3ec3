package media

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotRecording = errors.New("no active recording")
	ErrStreamFull   = errors.New("recording buffer full")
)

const pushBufferSize = 256

// PushDevice is a Device fed by a remote client that uploads captured
// audio chunks over HTTP. Only one stream is open at a time.
type PushDevice struct {
	mu        sync.Mutex
	available bool
	active    *pushStream
}

// NewPushDevice creates a device. When available is false every Acquire
// fails with ErrDeviceNotFound.
func NewPushDevice(available bool) *PushDevice {
	return &PushDevice{available: available}
}

func (d *PushDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return nil, ErrDeviceNotFound
	}
	if d.active != nil {
		return nil, errors.New("microphone already in use")
	}
	s := &pushStream{device: d, ch: make(chan []byte, pushBufferSize)}
	d.active = s
	return s, nil
}

// Push forwards one chunk to the open stream. The chunk is copied.
func (d *PushDevice) Push(chunk []byte) error {
	d.mu.Lock()
	s := d.active
	d.mu.Unlock()

	if s == nil {
		return ErrNotRecording
	}
	return s.push(chunk)
}

func (d *PushDevice) release(s *pushStream) {
	d.mu.Lock()
	if d.active == s {
		d.active = nil
	}
	d.mu.Unlock()
}

type pushStream struct {
	device *PushDevice
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *pushStream) Chunks() <-chan []byte {
	return s.ch
}

func (s *pushStream) push(chunk []byte) error {
	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotRecording
	}
	select {
	case s.ch <- buf:
		return nil
	default:
		return ErrStreamFull
	}
}

func (s *pushStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.device.release(s)
	return nil
}
