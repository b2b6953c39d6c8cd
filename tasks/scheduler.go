package tasks

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/context"
)

const deleteTimeout = 5 * time.Second

// Scheduler arms one timer per pending task and runs the registered Runner
// for its kind when the timer fires.
type Scheduler struct {
	store Store
	log   *slog.Logger
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runners map[Kind]Runner
	pending map[string]Task
	timers  map[string]*time.Timer
	stopped bool
}

func NewScheduler(store Store, log *slog.Logger) *Scheduler {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:   store,
		log:     log,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		runners: map[Kind]Runner{},
		pending: map[string]Task{},
		timers:  map[string]*time.Timer{},
	}
}

func (s *Scheduler) Register(kind Kind, runner Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[kind] = runner
}

// Start re-arms every persisted task. Overdue tasks fire immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	stored, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range stored {
		if _, ok := s.pending[task.ID]; ok {
			continue
		}
		s.arm(task)
	}
	s.log.Info("scheduler started", "pending", len(stored))
	return nil
}

// Schedule persists the task and arms it. An empty ID is filled with a new
// UUID.
func (s *Scheduler) Schedule(ctx context.Context, task Task) (Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return task, fmt.Errorf("scheduling task %s: %w", task.ID, ErrStopped)
	}
	if err := s.store.Save(ctx, task); err != nil {
		return task, fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	s.arm(task)
	s.log.Debug("task scheduled", "id", task.ID, "kind", task.Kind, "due", task.DueAt)
	return task, nil
}

// arm must be called with mu held.
func (s *Scheduler) arm(task Task) {
	delay := task.DueAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.pending[task.ID] = task
	s.timers[task.ID] = time.AfterFunc(delay, func() {
		s.fire(task.ID)
	})
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	task, ok := s.pending[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	delete(s.timers, id)
	runner := s.runners[task.Kind]
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if runner == nil {
		s.log.Warn("no runner for task kind", "id", id, "kind", task.Kind)
	} else if err := s.run(runner, task); err != nil {
		s.log.Error("task failed", "id", id, "kind", task.Kind, "err", err)
	}
	// s.ctx is cancelled by Stop, which must not leave a delivered task behind
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error("failed to delete fired task", "id", id, "err", err)
	}
}

func (s *Scheduler) run(runner Runner, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return runner(s.ctx, task)
}

// Cancel disarms and forgets a pending task.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	timer, ok := s.timers[id]
	if ok {
		timer.Stop()
		delete(s.timers, id)
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// Pending lists armed tasks matching filter, soonest first.
func (s *Scheduler) Pending(filter Filter) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.pending))
	for _, task := range s.pending {
		if filter.Match(task) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// After runs fn once after d without persisting anything. The returned
// func stops it.
func (s *Scheduler) After(d time.Duration, fn func(ctx context.Context)) (stop func() bool) {
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		fn(s.ctx)
	})
	return timer.Stop
}

// Stop disarms every timer and waits for running tasks. Persisted tasks
// stay in the store for the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
