package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/codegithubka/ble-server/internal/imu"
)

// Watch subscribes to one sensor kind's notifications and streams decoded
// samples until ctx is cancelled or the link drops. Payloads that fail
// validation are dropped (and logged); they never reach the caller as
// samples. The returned channel has overwrite-oldest semantics with the
// given capacity and is closed after the subscription is torn down, so a
// ranging consumer always terminates.
func (s *Session) Watch(ctx context.Context, kind imu.Kind, capacity int) (<-chan imu.Sample, error) {
	charUUID, err := s.mgr.Identity().Characteristic(kind)
	if err != nil {
		return nil, err
	}

	ring := newSampleRing[imu.Sample](capacity)
	err = s.mgr.Subscribe(ctx, charUUID, func(data []byte) {
		sample, err := s.codec.Decode(kind, data)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"kind":  kind,
				"error": err,
			}).Debug("Dropping invalid notification payload")
			return
		}
		ring.Send(sample)
	})
	if err != nil {
		return nil, err
	}

	// The stream has two terminations: the caller cancelling, and the link
	// dying under the subscription. Either way the ring closes so the
	// consumer is never left blocked on a dead stream.
	drop := s.mgr.LinkDropped()
	go func() {
		select {
		case <-ctx.Done():
		case <-drop:
			s.logger.WithField("kind", kind).Warn("Link dropped, closing sample stream")
		}
		if err := s.mgr.Unsubscribe(charUUID); err != nil {
			s.logger.WithError(err).Warn("Failed to unsubscribe from notifications")
		}
		ring.Close()
	}()

	return ring.C(), nil
}
