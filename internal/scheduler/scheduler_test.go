package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterIngest/internal/domain"
)

type fakeTimer struct {
	fn      func()
	when    time.Time
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// fakeClock fires timers synchronously when advanced, making retry and
// eviction behavior deterministic.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{fn: fn, when: c.now.Add(d)}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
	for {
		fired := false
		for _, t := range c.timers {
			if !t.fired && !t.stopped && !t.when.After(c.now) {
				t.fired = true
				t.fn()
				fired = true
			}
		}
		if !fired {
			return
		}
	}
}

func (c *fakeClock) pending() int {
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type stubRunner struct {
	calls     int
	failTimes int // fail this many leading calls, then succeed
	oneCalls  []string
}

func (r *stubRunner) SyncAll(context.Context) (domain.SyncSummary, error) {
	r.calls++
	if r.calls <= r.failTimes {
		return domain.SyncSummary{}, fmt.Errorf("fetch failed (call %d)", r.calls)
	}
	return domain.SyncSummary{Success: true}, nil
}

func (r *stubRunner) SyncOne(_ context.Context, id string) (domain.PublicationResult, error) {
	r.oneCalls = append(r.oneCalls, id)
	return domain.PublicationResult{PublicationID: id, Success: true}, nil
}

func testConfig() Config {
	return Config{
		Enabled:      true,
		Interval:     time.Hour,
		WarmupDelay:  time.Second,
		MaxRetries:   2,
		RetryDelay:   time.Minute,
		HistoryLimit: 5,
	}
}

func TestSchedulerRunsOnWarmupAndInterval(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	assert.Equal(t, 0, runner.calls)

	clock.advance(time.Second)
	assert.Equal(t, 1, runner.calls)

	clock.advance(time.Hour)
	assert.Equal(t, 2, runner.calls)

	clock.advance(time.Hour)
	clock.advance(time.Hour)
	assert.Equal(t, 4, runner.calls)

	history := s.JobHistory(0)
	require.Len(t, history, 4)
	for _, job := range history {
		assert.Equal(t, domain.JobCompleted, job.Status)
		assert.Equal(t, "interval", job.Trigger)
	}
}

func TestSchedulerRetryExhaustion(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{failTimes: 100}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	clock.advance(time.Second)

	// First failure schedules a retry.
	job := s.JobHistory(1)[0]
	assert.Equal(t, domain.JobRetrying, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.NotEmpty(t, job.Error)

	clock.advance(time.Minute)
	job = s.JobHistory(1)[0]
	assert.Equal(t, domain.JobRetrying, job.Status)
	assert.Equal(t, 2, job.RetryCount)

	// Third failure exhausts maxRetries=2: terminally failed.
	clock.advance(time.Minute)
	job = s.JobHistory(1)[0]
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, 2, job.RetryCount)
	assert.Contains(t, job.Error, "fetch failed")

	// No further retry timer: only the next interval tick remains.
	calls := runner.calls
	clock.advance(10 * time.Minute)
	assert.Equal(t, calls, runner.calls)
}

func TestSchedulerRecoversAfterRetry(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{failTimes: 1}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	clock.advance(time.Second)
	require.Equal(t, domain.JobRetrying, s.JobHistory(1)[0].Status)

	clock.advance(time.Minute)
	job := s.JobHistory(1)[0]
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	require.NotNil(t, job.Results)
	assert.True(t, job.Results.Success)
}

func TestSchedulerStopCancelsTimers(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{failTimes: 100}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	clock.advance(time.Second) // run once, retry scheduled
	require.Equal(t, 1, runner.calls)

	s.Stop()
	assert.Equal(t, 0, clock.pending())

	clock.advance(24 * time.Hour)
	assert.Equal(t, 1, runner.calls)
}

// stoppingRunner calls Stop from inside the pass, simulating a shutdown
// racing an in-flight sync.
type stoppingRunner struct {
	s     *Scheduler
	calls int
}

func (r *stoppingRunner) SyncAll(context.Context) (domain.SyncSummary, error) {
	r.calls++
	r.s.Stop()
	return domain.SyncSummary{}, fmt.Errorf("source unavailable")
}

func (r *stoppingRunner) SyncOne(_ context.Context, id string) (domain.PublicationResult, error) {
	return domain.PublicationResult{PublicationID: id}, nil
}

func TestSchedulerStopDuringPassPreventsRetry(t *testing.T) {
	clock := newFakeClock()
	runner := &stoppingRunner{}
	s := New(runner, testConfig(), clock, nil)
	runner.s = s

	s.Start()
	clock.advance(time.Second)
	require.Equal(t, 1, runner.calls)

	// The failing pass must not schedule a retry after Stop; the job
	// fails terminally and nothing remains armed.
	job := s.JobHistory(1)[0]
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, 0, clock.pending())

	clock.advance(24 * time.Hour)
	assert.Equal(t, 1, runner.calls)
}

func TestSchedulerNoRetryWhileStopped(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{failTimes: 100}
	s := New(runner, testConfig(), clock, nil)

	// Manual job without the scheduler ever starting.
	job := s.newJob("manual")
	s.runJob(job, s.syncAll)
	require.Equal(t, 1, runner.calls)

	assert.Equal(t, domain.JobFailed, s.JobHistory(1)[0].Status)
	assert.Equal(t, 0, clock.pending())

	s.Stop()
	clock.advance(24 * time.Hour)
	assert.Equal(t, 1, runner.calls)
}

func TestSchedulerDisabledDoesNotStart(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.Enabled = false
	runner := &stubRunner{}
	s := New(runner, cfg, clock, nil)

	s.Start()
	clock.advance(24 * time.Hour)
	assert.Equal(t, 0, runner.calls)
	assert.False(t, s.GetStatus().Running)
}

func TestSchedulerHistoryEviction(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	clock.advance(time.Second)
	for i := 0; i < 9; i++ {
		clock.advance(time.Hour)
	}

	assert.Equal(t, 10, runner.calls)
	history := s.JobHistory(0)
	assert.Len(t, history, 5)
	assert.Equal(t, 5, s.GetStatus().TotalJobCount)
}

func TestSchedulerStatus(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{}
	s := New(runner, testConfig(), clock, nil)

	status := s.GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, -1, status.NextSyncInMinutes)
	assert.Nil(t, status.LastJob)

	s.Start()
	clock.advance(time.Second)

	status = s.GetStatus()
	assert.True(t, status.Running)
	assert.Equal(t, 60, status.NextSyncInMinutes)
	require.NotNil(t, status.LastJob)
	assert.Equal(t, domain.JobCompleted, status.LastJob.Status)
	assert.Equal(t, 0, status.ActiveJobCount)
}

func TestSchedulerManualTrigger(t *testing.T) {
	runner := &stubRunner{}
	s := New(runner, testConfig(), newFakeClock(), nil)

	job := s.newJob("manual")
	s.runJob(job, s.syncAll)

	assert.Equal(t, 1, runner.calls)
	history := s.JobHistory(1)
	require.Len(t, history, 1)
	assert.Equal(t, "manual", history[0].Trigger)
	assert.Equal(t, domain.JobCompleted, history[0].Status)
}

func TestSchedulerTriggerPublicationUsesJobMachinery(t *testing.T) {
	runner := &stubRunner{}
	s := New(runner, testConfig(), newFakeClock(), nil)

	job := s.newJob("manual")
	s.runJob(job, func(ctx context.Context) (domain.SyncSummary, error) {
		result, err := runner.SyncOne(ctx, "pub-9")
		return domain.SyncSummary{Publications: []domain.PublicationResult{result}, Success: result.Success}, err
	})

	assert.Equal(t, []string{"pub-9"}, runner.oneCalls)
	job2 := s.JobHistory(1)[0]
	require.NotNil(t, job2.Results)
	require.Len(t, job2.Results.Publications, 1)
	assert.Equal(t, "pub-9", job2.Results.Publications[0].PublicationID)
}

func TestSchedulerUpdateConfigRestartsOnIntervalChange(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{}
	s := New(runner, testConfig(), clock, nil)

	s.Start()
	clock.advance(time.Second)
	require.Equal(t, 1, runner.calls)

	newInterval := 30 * time.Minute
	cfg := s.UpdateConfig(ConfigPatch{Interval: &newInterval})
	assert.Equal(t, newInterval, cfg.Interval)

	// Restart re-applies the warm-up, then the new cadence.
	clock.advance(time.Second)
	assert.Equal(t, 2, runner.calls)
	clock.advance(30 * time.Minute)
	assert.Equal(t, 3, runner.calls)
}

func TestSchedulerUpdateConfigDisableStops(t *testing.T) {
	clock := newFakeClock()
	runner := &stubRunner{}
	s := New(runner, testConfig(), clock, nil)
	s.Start()

	disabled := false
	s.UpdateConfig(ConfigPatch{Enabled: &disabled})
	assert.False(t, s.GetStatus().Running)

	clock.advance(24 * time.Hour)
	assert.Equal(t, 0, runner.calls)
}
