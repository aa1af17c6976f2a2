package perception

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"kabuten/internal/logging"
)

// =============================================================================
// API SCHEDULER
// =============================================================================
//
// Scheduler wraps a Reasoner and bounds outbound calls process-wide:
// - at most MaxConcurrentAPICalls calls hold a slot at once
// - a caller waits at most SlotAcquireTimeout for a slot
// - call starts are spaced by at least MinRequestInterval
// - Request.Timeout bounds the call once the slot is held
//
// Slot wait does not count against Request.Timeout.

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	MaxConcurrentAPICalls int
	SlotAcquireTimeout    time.Duration
	MinRequestInterval    time.Duration
}

// DefaultSchedulerConfig returns the defaults used by the CLI.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentAPICalls: 8,
		SlotAcquireTimeout:    5 * time.Minute,
		MinRequestInterval:    100 * time.Millisecond,
	}
}

// Scheduler is a Reasoner that rate-limits another Reasoner.
type Scheduler struct {
	next   Reasoner
	config SchedulerConfig
	slots  *semaphore.Weighted
	closed atomic.Bool

	paceMu    sync.Mutex
	nextStart time.Time

	currentlyExecuting int32
	currentlyWaiting   int32
	totalCalls         int64
	failedCalls        int64
	timedOutCalls      int64
	totalWaitTime      int64
}

// NewScheduler wraps next with the given limits.
func NewScheduler(next Reasoner, config SchedulerConfig) *Scheduler {
	if config.MaxConcurrentAPICalls <= 0 {
		config.MaxConcurrentAPICalls = DefaultSchedulerConfig().MaxConcurrentAPICalls
	}
	if config.SlotAcquireTimeout <= 0 {
		config.SlotAcquireTimeout = DefaultSchedulerConfig().SlotAcquireTimeout
	}
	if config.MinRequestInterval < 0 {
		config.MinRequestInterval = 0
	}
	return &Scheduler{
		next:   next,
		config: config,
		slots:  semaphore.NewWeighted(int64(config.MaxConcurrentAPICalls)),
	}
}

// Invoke waits for a slot, paces the call start, and forwards to the wrapped
// Reasoner under Request.Timeout. A call that runs out its own timeout while
// ctx is still live returns an error matching context.DeadlineExceeded.
func (s *Scheduler) Invoke(ctx context.Context, req Request) (string, error) {
	if s.closed.Load() {
		return "", ErrSchedulerClosed
	}

	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	if err := s.pace(ctx); err != nil {
		return "", err
	}

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	out, err := s.next.Invoke(callCtx, req)
	atomic.AddInt64(&s.totalCalls, 1)
	if err != nil {
		atomic.AddInt64(&s.failedCalls, 1)
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			atomic.AddInt64(&s.timedOutCalls, 1)
			return "", fmt.Errorf("reasoning call timed out after %v: %w", req.Timeout, context.DeadlineExceeded)
		}
		return "", err
	}
	return out, nil
}

func (s *Scheduler) acquire(ctx context.Context) error {
	start := time.Now()
	atomic.AddInt32(&s.currentlyWaiting, 1)
	defer atomic.AddInt32(&s.currentlyWaiting, -1)

	acquireCtx, cancel := context.WithTimeout(ctx, s.config.SlotAcquireTimeout)
	defer cancel()

	if err := s.slots.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.PerceptionWarn("APIScheduler: slot wait exceeded %v (active=%d waiting=%d)",
			s.config.SlotAcquireTimeout, atomic.LoadInt32(&s.currentlyExecuting), atomic.LoadInt32(&s.currentlyWaiting))
		return fmt.Errorf("failed to acquire API slot within %v: %w", s.config.SlotAcquireTimeout, err)
	}

	wait := time.Since(start)
	atomic.AddInt64(&s.totalWaitTime, int64(wait))
	atomic.AddInt32(&s.currentlyExecuting, 1)
	if wait > time.Second {
		logging.PerceptionDebug("APIScheduler: acquired slot after %v", wait)
	}
	return nil
}

func (s *Scheduler) release() {
	atomic.AddInt32(&s.currentlyExecuting, -1)
	s.slots.Release(1)
}

// pace reserves the next start time and sleeps until it.
func (s *Scheduler) pace(ctx context.Context) error {
	if s.config.MinRequestInterval == 0 {
		return nil
	}
	s.paceMu.Lock()
	now := time.Now()
	start := now
	if s.nextStart.After(now) {
		start = s.nextStart
	}
	s.nextStart = start.Add(s.config.MinRequestInterval)
	s.paceMu.Unlock()

	if d := start.Sub(now); d > 0 {
		return sleepCtx(ctx, d)
	}
	return nil
}

// Close makes later calls fail with ErrSchedulerClosed. In-flight calls finish.
func (s *Scheduler) Close() {
	s.closed.Store(true)
}

// SchedulerMetrics provides observability into scheduler state.
type SchedulerMetrics struct {
	MaxSlots       int
	ActiveSlots    int
	WaitingForSlot int
	TotalCalls     int64
	FailedCalls    int64
	TimedOutCalls  int64
	TotalWaitTime  time.Duration
}

// GetMetrics returns a snapshot of the scheduler counters.
func (s *Scheduler) GetMetrics() SchedulerMetrics {
	return SchedulerMetrics{
		MaxSlots:       s.config.MaxConcurrentAPICalls,
		ActiveSlots:    int(atomic.LoadInt32(&s.currentlyExecuting)),
		WaitingForSlot: int(atomic.LoadInt32(&s.currentlyWaiting)),
		TotalCalls:     atomic.LoadInt64(&s.totalCalls),
		FailedCalls:    atomic.LoadInt64(&s.failedCalls),
		TimedOutCalls:  atomic.LoadInt64(&s.timedOutCalls),
		TotalWaitTime:  time.Duration(atomic.LoadInt64(&s.totalWaitTime)),
	}
}

func (m SchedulerMetrics) String() string {
	return fmt.Sprintf("slots=%d/%d waiting=%d calls=%d failed=%d timed_out=%d wait=%v",
		m.ActiveSlots, m.MaxSlots, m.WaitingForSlot, m.TotalCalls, m.FailedCalls, m.TimedOutCalls, m.TotalWaitTime)
}
