package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
)

// Task kinds handled by the worker pool.
const (
	TaskScoreContent  = "score_content"
	TaskUpdateUser    = "update_user"
	TaskUpdateContent = "update_content"
)

// Task is one unit of background work.
type Task struct {
	Kind      string
	UserID    int64
	ContentID int64
	Force     bool
}

// WorkerPool runs threshold-triggered recomputations off the request path.
// Submission never blocks: a full queue drops the task, which is safe because
// every producer re-submits on the next behavior touching the same subject.
// It satisfies Scheduler.
type WorkerPool struct {
	engine  *ScoringEngine
	updater *ProfileUpdater
	metrics *Metrics
	logger  *logrus.Logger

	tasks        chan Task
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	rootCtx      context.Context
	cancel       context.CancelFunc
	taskTimeout  time.Duration
	drainTimeout time.Duration
}

// NewWorkerPool starts cfg.Count workers immediately.
func NewWorkerPool(engine *ScoringEngine, updater *ProfileUpdater, cfg *config.WorkerConfig, metrics *Metrics, logger *logrus.Logger) *WorkerPool {
	count := cfg.Count
	if count <= 0 {
		count = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	taskTimeout := cfg.UpdateTimeout
	if taskTimeout <= 0 {
		taskTimeout = 2 * time.Minute
	}
	drainTimeout := cfg.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		engine:       engine,
		updater:      updater,
		metrics:      metrics,
		logger:       logger,
		tasks:        make(chan Task, queueSize),
		stopChan:     make(chan struct{}),
		rootCtx:      rootCtx,
		cancel:       cancel,
		taskTimeout:  taskTimeout,
		drainTimeout: drainTimeout,
	}

	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	logger.WithFields(logrus.Fields{
		"workers":    count,
		"queue_size": queueSize,
	}).Info("Worker pool started")

	return p
}

// Stop lets the workers drain the queue for the grace period, then abandons
// whatever is left and cancels in-flight work.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool drained")
	case <-time.After(p.drainTimeout):
		p.logger.Warn("Worker pool drain timed out, abandoning queued work")
	}
	p.cancel()
}

func (p *WorkerPool) ScheduleScoreContent(contentID int64) {
	p.submit(Task{Kind: TaskScoreContent, ContentID: contentID})
}

func (p *WorkerPool) ScheduleUserUpdate(userID int64, force bool) {
	p.submit(Task{Kind: TaskUpdateUser, UserID: userID, Force: force})
}

func (p *WorkerPool) ScheduleContentUpdate(contentID int64) {
	p.submit(Task{Kind: TaskUpdateContent, ContentID: contentID})
}

func (p *WorkerPool) submit(task Task) bool {
	select {
	case p.tasks <- task:
		p.metrics.WorkerQueueDepth.Inc()
		return true
	default:
		p.metrics.WorkerDropped.WithLabelValues(task.Kind).Inc()
		p.logger.WithFields(logrus.Fields{
			"kind":       task.Kind,
			"user_id":    task.UserID,
			"content_id": task.ContentID,
		}).Warn("Worker queue full, dropping task")
		return false
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			p.handle(task)
		case <-p.stopChan:
			// Finish what is already queued, then exit.
			for {
				select {
				case task := <-p.tasks:
					p.handle(task)
				default:
					return
				}
			}
		}
	}
}

func (p *WorkerPool) handle(task Task) {
	p.metrics.WorkerQueueDepth.Dec()

	ctx, cancel := context.WithTimeout(p.rootCtx, p.taskTimeout)
	defer cancel()

	var err error
	switch task.Kind {
	case TaskScoreContent:
		_, err = p.engine.EnsureScored(ctx, task.ContentID)
	case TaskUpdateUser:
		_, err = p.updater.UpdateUserFromBehaviors(ctx, task.UserID, task.Force, 0)
	case TaskUpdateContent:
		_, err = p.updater.UpdateContentFromUsers(ctx, task.ContentID, task.Force)
	default:
		p.logger.WithField("kind", task.Kind).Error("Unknown task kind")
		return
	}

	fields := logrus.Fields{
		"kind":       task.Kind,
		"user_id":    task.UserID,
		"content_id": task.ContentID,
	}
	switch {
	case err == nil:
		p.logger.WithFields(fields).Debug("Background task done")
	case errors.Is(err, ErrNotDue),
		errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrNoLabeledUsers):
		p.logger.WithFields(fields).WithError(err).Debug("Background update skipped")
	case errors.Is(err, ErrConflict):
		p.logger.WithFields(fields).Debug("Background update lost a concurrent race, skipping")
	case errors.Is(err, context.Canceled):
		// Shutdown path, nothing to report.
	default:
		p.logger.WithFields(fields).WithError(err).Warn("Background task failed")
	}
}
