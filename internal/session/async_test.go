package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/manager"
	"github.com/codegithubka/ble-server/internal/session"
	"github.com/codegithubka/ble-server/internal/testutils"
)

func newAsync(t *testing.T, address string, transport device.Transport) *session.AsyncSession {
	t.Helper()
	a, err := session.NewAsync(testutils.TestIdentity(address), transport, fastOpts(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAsyncCompletionFollowsSubmissionOrder(t *testing.T) {
	// GOAL: Verify FIFO completion: results arrive in submission order, not in latency order
	//
	// TEST SCENARIO: Latencies reversed (accel slowest, mag fastest) -> submit accel, gyro, mag
	// -> when mag's result arrives, accel's and gyro's have already been delivered

	transport := testutils.NewFakeTransport()
	want := seedSamples(transport)
	transport.Latency = map[string]time.Duration{
		testutils.TestAccelUUID: 30 * time.Millisecond,
		testutils.TestGyroUUID:  20 * time.Millisecond,
		testutils.TestMagUUID:   time.Millisecond,
	}
	a := newAsync(t, "AC:00:00:00:00:01", transport)

	err := a.Connection(context.Background(), func(a *session.AsyncSession) error {
		ctx := context.Background()
		accelCh := a.ReadIMUDataAsync(ctx, imu.Accel)
		gyroCh := a.ReadIMUDataAsync(ctx, imu.Gyro)
		magCh := a.ReadIMUDataAsync(ctx, imu.Mag)

		magRes := <-magCh
		require.NoError(t, magRes.Err)
		assert.Equal(t, want[imu.Mag].Z, magRes.Sample.Z)

		// The fastest read completed last, so the earlier submissions
		// must already have results buffered.
		select {
		case accelRes := <-accelCh:
			require.NoError(t, accelRes.Err)
			assert.Equal(t, want[imu.Accel].Z, accelRes.Sample.Z, "accel MUST complete before mag despite being slower")
		default:
			t.Fatal("accel result MUST be ready before mag's is delivered")
		}
		select {
		case gyroRes := <-gyroCh:
			require.NoError(t, gyroRes.Err)
			assert.Equal(t, want[imu.Gyro].Z, gyroRes.Sample.Z, "gyro MUST complete before mag despite being slower")
		default:
			t.Fatal("gyro result MUST be ready before mag's is delivered")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAsyncCancelledPendingRequestSkipped(t *testing.T) {
	// GOAL: Verify cancelling a queued request removes it without affecting others
	//
	// TEST SCENARIO: Slow read in flight -> submit a request with a cancelled context -> submit a live one
	// -> cancelled request errors without touching the radio, live one completes

	transport := testutils.NewFakeTransport()
	want := seedSamples(transport)
	transport.Latency = map[string]time.Duration{
		testutils.TestAccelUUID: 30 * time.Millisecond,
	}
	a := newAsync(t, "AC:00:00:00:00:02", transport)

	err := a.Connection(context.Background(), func(a *session.AsyncSession) error {
		slowCh := a.ReadIMUDataAsync(context.Background(), imu.Accel)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		cancelledCh := a.ReadIMUDataAsync(cancelled, imu.Gyro)

		liveCh := a.ReadIMUDataAsync(context.Background(), imu.Mag)

		slowRes := <-slowCh
		require.NoError(t, slowRes.Err)

		cancelledRes := <-cancelledCh
		require.ErrorIs(t, cancelledRes.Err, context.Canceled, "a cancelled pending request MUST report cancellation")

		liveRes := <-liveCh
		require.NoError(t, liveRes.Err, "requests behind a cancelled one MUST be unaffected")
		assert.Equal(t, want[imu.Mag].X, liveRes.Sample.X)

		assert.Equal(t, 2, transport.LastLink().Reads(), "the cancelled request MUST never reach the radio")
		return nil
	})
	require.NoError(t, err)
}

func TestAsyncSubmitAfterClose(t *testing.T) {
	// GOAL: Verify submissions after Close fail fast instead of deadlocking
	//
	// TEST SCENARIO: Close -> submit -> immediate NotConnected result

	transport := testutils.NewFakeTransport()
	a := newAsync(t, "AC:00:00:00:00:03", transport)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "Close MUST be idempotent")

	res := <-a.ReadIMUDataAsync(context.Background(), imu.Accel)
	require.ErrorIs(t, res.Err, device.ErrNotConnected)
}

func TestAsyncConnectionScope(t *testing.T) {
	// GOAL: Verify the async facade honors the same scoped acquisition contract as the sync one
	//
	// TEST SCENARIO: Connected inside the scope, Disconnected after it

	transport := testutils.NewFakeTransport()
	seedSamples(transport)
	a := newAsync(t, "AC:00:00:00:00:04", transport)

	err := a.Connection(context.Background(), func(a *session.AsyncSession) error {
		assert.Equal(t, manager.Connected, a.State())
		res := <-a.ReadIMUDataAsync(context.Background(), imu.Accel)
		return res.Err
	})
	require.NoError(t, err)
	assert.Equal(t, manager.Disconnected, a.State(), "the scope MUST release the connection")
}
