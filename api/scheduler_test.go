package api

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls atomic.Int64
	err   error
}

func (f *fakeRefresher) RefreshBidCorrections(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

func TestRefreshScheduler_RunsImmediatelyOnStart(t *testing.T) {
	// GIVEN: a scheduler with an interval far longer than the test
	refresher := &fakeRefresher{}
	rs := NewRefreshScheduler(refresher, nil)
	rs.CheckInterval = time.Hour

	// WHEN: started
	rs.Start()
	defer rs.Stop()

	// THEN: one refresh runs without waiting for the ticker
	require.Eventually(t, func() bool { return rs.Runs() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), refresher.calls.Load())
}

func TestRefreshScheduler_TicksUntilStopped(t *testing.T) {
	// GIVEN: a short interval
	refresher := &fakeRefresher{}
	rs := NewRefreshScheduler(refresher, nil)
	rs.CheckInterval = 10 * time.Millisecond

	// WHEN: it runs for a while and is stopped
	rs.Start()
	require.Eventually(t, func() bool { return rs.Runs() >= 3 }, 2*time.Second, 5*time.Millisecond)
	rs.Stop()
	stopped := rs.Runs()

	// THEN: no refresh happens after Stop
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, rs.Runs())
}

func TestRefreshScheduler_Disabled(t *testing.T) {
	// GIVEN: a disabled scheduler
	refresher := &fakeRefresher{}
	rs := NewRefreshScheduler(refresher, nil)
	rs.Enabled = false

	// WHEN: started
	rs.Start()
	rs.Stop()

	// THEN: nothing ran
	assert.Equal(t, 0, rs.Runs())
	assert.Equal(t, int64(0), refresher.calls.Load())
}

func TestRefreshScheduler_ErrorsDoNotStopTheLoop(t *testing.T) {
	// GIVEN: a refresher that always fails
	refresher := &fakeRefresher{err: errors.New("store unavailable")}
	rs := NewRefreshScheduler(refresher, nil)
	rs.CheckInterval = 10 * time.Millisecond

	// WHEN: started
	rs.Start()
	defer rs.Stop()

	// THEN: it keeps ticking
	require.Eventually(t, func() bool { return rs.Runs() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshScheduler_RestartAfterStop(t *testing.T) {
	// GIVEN: a scheduler that was started and stopped
	refresher := &fakeRefresher{}
	rs := NewRefreshScheduler(refresher, nil)
	rs.Start()
	require.Eventually(t, func() bool { return rs.Runs() == 1 }, time.Second, 5*time.Millisecond)
	rs.Stop()

	// WHEN: started again
	rs.Start()
	defer rs.Stop()

	// THEN: the immediate refresh runs again
	require.Eventually(t, func() bool { return rs.Runs() == 2 }, time.Second, 5*time.Millisecond)
}
