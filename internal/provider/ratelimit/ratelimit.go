package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
	// safetyMargin is added to every computed wait so a call is never
	// admitted right on the window edge.
	safetyMargin = time.Second
)

// ErrWaitTimeout is returned when a queued call would have to wait longer
// than the configured maximum before a slot frees up.
var ErrWaitTimeout = errors.New("rate limit wait exceeds maximum")

// Task is a unit of work admitted by the Limiter.
type Task func(ctx context.Context) (any, error)

type outcome struct {
	value any
	err   error
}

type job struct {
	ctx      context.Context
	task     Task
	enqueued time.Time
	done     chan outcome
}

// Stats is a snapshot of sliding-window usage. Queued counts jobs waiting
// for admission plus the one being admitted or run; jobs whose caller gave
// up are not counted.
type Stats struct {
	CallsLastMinute int `json:"calls_last_minute"`
	CallsLastDay    int `json:"calls_last_day"`
	MaxPerMinute    int `json:"max_per_minute"`
	MaxPerDay       int `json:"max_per_day"`
	Queued          int `json:"queued"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%d/%d calls this minute, %d/%d calls today",
		s.CallsLastMinute, s.MaxPerMinute, s.CallsLastDay, s.MaxPerDay)
}

// Limiter admits calls so that at most MaxPerMinute calls happen in any
// 60s window and at most MaxPerDay in any 24h window.
//
// Submitted tasks are admitted in FIFO order by a single drain goroutine
// and run one at a time: the next task is not admitted until the previous
// one has returned.
type Limiter struct {
	maxPerMinute int
	maxPerDay    int
	maxWait      time.Duration

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	journal Journal
	log     logrus.FieldLogger
	metrics *metrics

	mu       sync.Mutex
	calls    []time.Time // ascending admission times, pruned to 24h
	queue    []*job
	current  *job
	draining bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMaxWait bounds how long a queued call may wait for a free slot,
// measured from submission. Zero means unbounded.
func WithMaxWait(d time.Duration) Option {
	return func(l *Limiter) {
		l.maxWait = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSleep replaces the function used to wait for a window to open.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.sleep = sleep
	}
}

// WithJournal persists admissions so usage survives restarts. Call Restore
// to load the persisted history.
func WithJournal(j Journal) Option {
	return func(l *Limiter) {
		l.journal = j
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Limiter) {
		l.log = log
	}
}

// New creates a Limiter. Negative limits are treated as zero, which makes
// every call wait (and eventually time out when a max wait is set).
func New(maxPerMinute, maxPerDay int, opts ...Option) *Limiter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Limiter{
		maxPerMinute: max(maxPerMinute, 0),
		maxPerDay:    max(maxPerDay, 0),
		now:          time.Now,
		sleep:        sleepCtx,
		log:          discard,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore loads the last 24h of admissions from the journal.
func (l *Limiter) Restore(ctx context.Context) error {
	if l.journal == nil {
		return nil
	}
	now := l.now()
	ts, err := l.journal.Load(ctx, now.Add(-dayWindow))
	if err != nil {
		return fmt.Errorf("restore rate limit journal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, ts...)
	sort.Slice(l.calls, func(i, j int) bool { return l.calls[i].Before(l.calls[j]) })
	l.prune(now)
	l.log.WithField("calls_last_day", len(l.calls)).Info("rate limit history restored")
	return nil
}

// Do queues task and blocks until it has run, returning exactly the task's
// result. If ctx ends while the task is still queued, Do returns ctx.Err()
// and the task is never admitted.
func (l *Limiter) Do(ctx context.Context, task Task) (any, error) {
	j := &job{ctx: ctx, task: task, enqueued: l.now(), done: make(chan outcome, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, j)
	start := !l.draining
	l.draining = true
	l.mu.Unlock()

	if start {
		go l.drain()
	}

	select {
	case out := <-j.done:
		return out.value, out.err
	case <-ctx.Done():
		l.remove(j)
		return nil, ctx.Err()
	}
}

// remove drops j from the queue if the drain loop has not picked it up.
func (l *Limiter) remove(j *job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, q := range l.queue {
		if q == j {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// Execute runs fn through l and returns its typed result.
func Execute[T any](ctx context.Context, l *Limiter, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := l.Do(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Stats prunes the history and reports current usage.
func (l *Limiter) Stats() Stats {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(now)
	minute, day := l.count(now)
	return Stats{
		CallsLastMinute: minute,
		CallsLastDay:    day,
		MaxPerMinute:    l.maxPerMinute,
		MaxPerDay:       l.maxPerDay,
		Queued:          l.queued(),
	}
}

func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.current = j
		l.mu.Unlock()

		l.process(j)

		l.mu.Lock()
		l.current = nil
		l.mu.Unlock()
	}
}

func (l *Limiter) process(j *job) {
	var waited time.Duration
	var at time.Time
	for {
		if err := j.ctx.Err(); err != nil {
			j.done <- outcome{err: err}
			return
		}
		now := l.now()
		wait := l.admit(now)
		if wait == 0 {
			at = now
			break
		}
		if l.maxWait > 0 && now.Add(wait).After(j.enqueued.Add(l.maxWait)) {
			l.metrics.timeout()
			j.done <- outcome{err: fmt.Errorf("%w: next slot in %s", ErrWaitTimeout, wait.Round(time.Second))}
			return
		}
		l.log.WithField("wait", wait.String()).Debug("rate limit reached, waiting for window")
		if err := l.sleep(j.ctx, wait); err != nil {
			j.done <- outcome{err: err}
			return
		}
		waited += wait
	}
	l.metrics.admitted(waited)

	if l.journal != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), 2*time.Second)
		if err := l.journal.Record(rctx, at); err != nil {
			l.log.WithError(err).Warn("rate limit journal record failed")
		}
		cancel()
	}

	j.done <- l.run(j)
}

func (l *Limiter) run(j *job) (out outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = outcome{err: fmt.Errorf("rate limited task panicked: %v", rec)}
		}
	}()
	v, err := j.task(j.ctx)
	return outcome{value: v, err: err}
}

// admit records now as a call and returns 0 if both windows have room,
// otherwise it returns how long to wait before re-checking.
func (l *Limiter) admit(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)
	minute, day := l.count(now)

	var wait time.Duration
	if minute >= l.maxPerMinute {
		wait = max(wait, l.waitFor(now, minuteWindow))
	}
	if day >= l.maxPerDay {
		wait = max(wait, l.waitFor(now, dayWindow))
	}
	if wait > 0 {
		return wait
	}
	l.calls = append(l.calls, now)
	return 0
}

// waitFor returns the time until the oldest call inside window leaves it,
// plus the safety margin. With no call in the window (a zero limit) only
// the margin is returned.
func (l *Limiter) waitFor(now time.Time, window time.Duration) time.Duration {
	for _, t := range l.calls {
		if now.Sub(t) < window {
			return t.Add(window).Sub(now) + safetyMargin
		}
	}
	return safetyMargin
}

func (l *Limiter) queued() int {
	n := len(l.queue)
	if l.current != nil {
		n++
	}
	return n
}

func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.calls) && now.Sub(l.calls[i]) >= dayWindow {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

func (l *Limiter) count(now time.Time) (minute, day int) {
	for _, t := range l.calls {
		if now.Sub(t) < minuteWindow {
			minute++
		}
	}
	return minute, len(l.calls)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
