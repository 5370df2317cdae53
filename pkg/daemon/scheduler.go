package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type NotifyFunc func(data any)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task on a cron schedule. Runs whose PreCheck fails are
// skipped rather than retried, since the next poll is never far away.
type Scheduler struct {
	OnError  NotifyFunc // called on task or precheck error
	Task     TaskFunc   // task callback
	PreCheck TaskFunc   // condition check callback

	parser cron.Parser

	spec     string
	schedule cron.Schedule
	nextRun  time.Time

	mu      sync.Mutex
	running bool

	// lastPrecheckErr suppresses repeated identical precheck errors.
	lastPrecheckErr string

	controlCh chan controlMsg
	stopCh    chan struct{}
}

// internal control kinds (not user visible events)
type controlKind int

const (
	ctrlRecalculate controlKind = iota // timer needs recalculation due to schedule change
)

type controlMsg struct {
	kind controlKind
	data any
}

func newCronParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// scheduleInterval returns the shortest gap between the next activations of
// sh after now. regular is false when the gaps differ, as for
// "0,30 * * * * 1-5".
func scheduleInterval(sh cron.Schedule, now time.Time) (d time.Duration, regular bool) {
	const samples = 8

	regular = true
	prev := sh.Next(now)
	for i := 0; i < samples; i++ {
		next := sh.Next(prev)
		if next.IsZero() {
			return d, false
		}
		gap := next.Sub(prev)
		switch {
		case i == 0:
			d = gap
		case gap != d:
			regular = false
			d = min(d, gap)
		}
		prev = next
	}
	return d, regular
}

// specInterval parses expr and returns its activation period.
func specInterval(expr string, now time.Time) (time.Duration, bool, error) {
	sh, err := newCronParser().Parse(expr)
	if err != nil {
		return 0, false, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	d, regular := scheduleInterval(sh, now)
	return d, regular, nil
}

func NewScheduler(task, preCheck TaskFunc, onError NotifyFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	s := &Scheduler{
		OnError:   onError,
		Task:      task,
		PreCheck:  preCheck,
		parser:    newCronParser(),
		controlCh: make(chan controlMsg, 4),
		stopCh:    make(chan struct{}),
	}
	return s
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

// Schedule replaces the schedule with cronExpr. It takes effect immediately
// on a running scheduler.
func (s *Scheduler) Schedule(cronExpr string) error {
	sh, err := s.parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cronExpr, err)
	}

	s.mu.Lock()
	s.spec = cronExpr
	running := s.running
	if !running {
		s.schedule = sh
		s.nextRun = sh.Next(time.Now())
	}
	s.mu.Unlock()

	if running {
		s.trySendControl(ctrlRecalculate, sh)
	}
	return nil
}

// Status returns the next run time and whether the scheduler is running.
func (s *Scheduler) Status() (nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextRun = s.nextRun
	running = s.running
	return
}

// Spec returns the current schedule expression.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		schedule, nextRun := s.snapshot()
		var timer *time.Timer
		if schedule == nil || nextRun.IsZero() {
			timer = time.NewTimer(time.Hour * 10000)
		} else {
			wait := time.Until(nextRun)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
		}

		select {
		case <-timer.C:
			if schedule == nil || nextRun.IsZero() {
				continue
			}

			logrus.Tracef("running scheduled task at %s", nextRun.Format(time.DateTime))

			if s.PreCheck != nil {
				if err := s.PreCheck(); err != nil {
					s.reportPrecheck(err)
					s.advanceNextRun()
					continue
				}
				s.reportPrecheck(nil)
			}

			go func() {
				if err := s.Task(); err != nil {
					s.sendError(fmt.Errorf("task failed: %w", err))
				}
			}()
			s.advanceNextRun()
		case <-s.stopCh:
			timer.Stop()
			return
		case msg := <-s.controlCh: // internal control messages
			timer.Stop()
			logrus.WithFields(logrus.Fields{
				"kind": msg.kind,
				"data": msg.data,
			}).Debug("received control msg")

			if msg.kind == ctrlRecalculate {
				sh := msg.data.(cron.Schedule)
				s.mu.Lock()
				s.schedule = sh
				s.nextRun = sh.Next(time.Now())
				s.mu.Unlock()
			}
		}
	}
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

// advanceNextRun moves to the next activation. Activations that already
// passed while the host was busy or asleep are dropped, not replayed.
func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	next := s.schedule.Next(s.nextRun)
	if now := time.Now(); next.Before(now) {
		next = s.schedule.Next(now)
	}
	s.nextRun = next
}

func (s *Scheduler) reportPrecheck(err error) {
	s.mu.Lock()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	changed := msg != s.lastPrecheckErr
	s.lastPrecheckErr = msg
	s.mu.Unlock()

	if err != nil && changed {
		s.sendError(fmt.Errorf("precheck failed: %w", err))
	}
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}

func (s *Scheduler) trySendControl(kind controlKind, data any) {
	select {
	case s.controlCh <- controlMsg{kind: kind, data: data}:
	default:
	}
}
