// Package session provides the caller-facing facades over the connection
// manager and the codec: a blocking Session and a queue-backed AsyncSession
// sharing the same state machine and retry logic.
package session

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/manager"
)

// Session is the blocking facade: every call occupies the calling goroutine
// for the duration of the radio operation. Concurrent callers serialize
// through the manager's operation lock and never corrupt in-flight reads.
type Session struct {
	mgr    *manager.Manager
	codec  *imu.Codec
	logger *logrus.Logger
}

// New creates a synchronous session for one device identity.
func New(id device.Identity, transport device.Transport, opts manager.Options, logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	mgr, err := manager.New(id, transport, opts, logger)
	if err != nil {
		return nil, err
	}
	return &Session{
		mgr:    mgr,
		codec:  imu.NewCodec(nil),
		logger: logger,
	}, nil
}

// State returns the connection state, read-only.
func (s *Session) State() manager.State {
	return s.mgr.State()
}

// Reset returns a failed session to the disconnected state.
func (s *Session) Reset() error {
	return s.mgr.Reset()
}

// Connection is the scoped acquisition entry point: it connects, runs fn,
// and disconnects on every exit path, so no link outlives the scope even
// when fn fails or panics.
func (s *Session) Connection(ctx context.Context, fn func(s *Session) error) error {
	if err := s.mgr.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.mgr.Disconnect(); err != nil {
			s.logger.WithError(err).Warn("Error during disconnect")
		}
	}()
	return fn(s)
}

// ReadIMUData reads and decodes the current sample of one sensor kind,
// blocking until the transport read completes or times out.
//
// A transient connection failure or a malformed payload triggers one
// transparent reconnect-and-retry cycle (itself bounded by the manager's
// policy) before the error surfaces. Topology errors and exhausted retry
// budgets surface immediately.
func (s *Session) ReadIMUData(ctx context.Context, kind imu.Kind) (imu.Sample, error) {
	charUUID, err := s.mgr.Identity().Characteristic(kind)
	if err != nil {
		return imu.Sample{}, err
	}

	sample, err := s.readOnce(ctx, kind, charUUID)
	if err != nil && retryable(err) {
		s.logger.WithFields(logrus.Fields{
			"kind":  kind,
			"error": err,
		}).Warn("Read failed, retrying once")
		sample, err = s.readOnce(ctx, kind, charUUID)
	}
	return sample, err
}

// readOnce performs one ensure-connect / lock / read / decode / unlock cycle.
func (s *Session) readOnce(ctx context.Context, kind imu.Kind, charUUID string) (imu.Sample, error) {
	var sample imu.Sample
	err := s.mgr.Do(ctx, func(opCtx context.Context, link device.Link) error {
		data, err := link.Read(opCtx, charUUID)
		if err != nil {
			return err
		}
		decoded, err := s.codec.Decode(kind, data)
		if err != nil {
			return err
		}
		sample = decoded
		return nil
	})
	return sample, err
}

// retryable reports whether a read failure deserves the single transparent
// retry: transient connection errors, and decode failures (a bad payload is
// a transient read failure one layer up; the same bytes are never re-decoded,
// the read itself is reissued).
func retryable(err error) bool {
	if device.Transient(err) {
		return true
	}
	var derr *imu.DecodeError
	return errors.As(err, &derr)
}
