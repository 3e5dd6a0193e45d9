package checker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/logger"
	"github.com/lukemcguire/linkreaper/result"
)

// ErrAlreadyRun is returned when Run is called on a session more than once.
var ErrAlreadyRun = errors.New("session already run")

// Session is one pass of the checker over a queue of bookmarks. Records are
// drained from the front in batches; each batch is checked concurrently and
// batches run one after another.
type Session struct {
	checker *Checker
	id      string
	queue   []*bookmark.Record

	mu      sync.Mutex
	results map[string]CheckResult

	ran      atomic.Bool
	active   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSession creates a session over records. Only records still pending are
// queued; their order is kept.
func (c *Checker) NewSession(records []*bookmark.Record) *Session {
	queue := make([]*bookmark.Record, 0, len(records))
	for _, rec := range records {
		if rec.Status == bookmark.Pending {
			queue = append(queue, rec)
		}
	}
	return &Session{
		checker: c,
		id:      uuid.NewString(),
		queue:   queue,
		results: make(map[string]CheckResult, len(queue)),
		stop:    make(chan struct{}),
	}
}

// ID returns the unique ID of this session.
func (s *Session) ID() string { return s.id }

// Len returns the number of queued bookmarks.
func (s *Session) Len() int { return len(s.queue) }

// Active reports whether Run is in progress and has not been stopped.
func (s *Session) Active() bool { return s.active.Load() }

// Stop halts the session at the next batch boundary. The batch in flight
// finishes; nothing is rolled back. Stop may be called more than once and
// from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.active.Store(false)
		close(s.stop)
	})
}

// Result returns the result recorded for a bookmark ID, if any.
func (s *Session) Result(id string) (CheckResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok
}

// Run drains the queue and returns the report. Events are sent on events if
// it is non-nil; sends block, so the receiver must keep reading until Run
// returns. Cancelling ctx has the same effect as Stop.
func (s *Session) Run(ctx context.Context, events chan<- Event) (*result.Report, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	start := time.Now()
	log := s.checker.log.With(logger.String("session", s.id))
	cfg := s.checker.cfg

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.active.Store(!s.halted(ctx))
	defer s.active.Store(false)
	log.Info("session started", logger.Int("queued", len(s.queue)), logger.Int("batch_size", cfg.BatchSize))

	emit := func(ev Event) {
		if events != nil {
			events <- ev
		}
	}

	total := len(s.queue)
	checked := 0
	stopped := false
	for batchNo, next := 1, 0; next < total; batchNo++ {
		if s.halted(ctx) {
			stopped = true
			break
		}

		end := min(next+cfg.BatchSize, total)
		batch := s.queue[next:end]
		next = end

		ids := make([]string, len(batch))
		for i, rec := range batch {
			rec.Advance(bookmark.Checking)
			ids[i] = rec.ID
		}
		emit(Event{Kind: EventBatchStarted, Batch: batchNo, IDs: ids, Checked: checked, Total: total})

		batchResults := s.checkBatch(ctx, batch)
		checked += len(batch)
		emit(Event{
			Kind:    EventProgress,
			Batch:   batchNo,
			IDs:     ids,
			Results: batchResults,
			Checked: checked,
			Total:   total,
		})

		if next < total {
			timer := time.NewTimer(cfg.BatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-s.stop:
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	report := s.report(stopped, time.Since(start))
	if stopped {
		log.Info("session stopped", logger.Int("checked", checked), logger.Int("total", total))
	} else {
		log.Info("session complete", logger.Int("broken", report.Stats.Broken()), logger.Duration("duration", report.Stats.Duration))
		emit(Event{Kind: EventComplete, Checked: checked, Total: total})
	}
	return report, nil
}

func (s *Session) halted(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// checkBatch checks every record of batch concurrently and waits for all.
// Each goroutine writes only its own record.
func (s *Session) checkBatch(ctx context.Context, batch []*bookmark.Record) map[string]CheckResult {
	batchResults := make(map[string]CheckResult, len(batch))
	var batchMu sync.Mutex

	var group errgroup.Group
	for _, rec := range batch {
		group.Go(func() error {
			res := s.checker.CheckOne(ctx, rec.URL)
			rec.Advance(res.Status)

			s.mu.Lock()
			s.results[rec.ID] = res
			s.mu.Unlock()

			batchMu.Lock()
			batchResults[rec.ID] = res
			batchMu.Unlock()
			return nil
		})
	}
	_ = group.Wait() // goroutines never fail; CheckOne folds errors into results

	return batchResults
}

// report builds the session report in queue order. Records never reached
// are left out.
func (s *Session) report(stopped bool, elapsed time.Duration) *result.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := &result.Report{
		RunID:   s.id,
		Results: make([]result.LinkResult, 0, len(s.results)),
		Stopped: stopped,
	}
	for _, rec := range s.queue {
		res, ok := s.results[rec.ID]
		if !ok {
			continue
		}
		rep.Results = append(rep.Results, result.LinkResult{
			ID:            rec.ID,
			Title:         rec.Title,
			URL:           rec.URL,
			Folder:        rec.Path,
			Status:        res.Status,
			Skipped:       res.Skipped,
			StatusCode:    res.StatusCode,
			Error:         res.Error,
			ErrorCategory: res.Category,
			Attempts:      res.Attempts,
		})
	}
	rep.Stats.Total = len(s.queue)
	rep.Stats.Duration = elapsed
	rep.Tally()
	return rep
}
