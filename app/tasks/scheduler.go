package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Scheduler struct {
	pipeline         *Pipeline
	interval         time.Duration
	workerCount      int
	reconcileOnStart bool
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(pipeline *Pipeline, interval time.Duration, workerCount int, reconcileOnStart bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}

	return &Scheduler{
		pipeline:         pipeline,
		interval:         interval,
		workerCount:      workerCount,
		reconcileOnStart: reconcileOnStart,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 16),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerIngest enqueues an ingestion run and returns its task id.
func (s *Scheduler) TriggerIngest() (string, error) {
	task := NewIngestFeedTask(s.pipeline)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

// TriggerReconcile enqueues a reconciliation pass and returns its task id.
func (s *Scheduler) TriggerReconcile() (string, error) {
	task := NewReconcileReportsTask(s.pipeline)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.reconcileOnStart {
		if _, err := s.TriggerReconcile(); err != nil {
			slog.Warn("Failed to enqueue ReconcileReportsTask", "error", err)
		}
	}

	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	if _, err := s.TriggerIngest(); err != nil {
		slog.Warn("Failed to enqueue IngestFeedTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
	}
}
