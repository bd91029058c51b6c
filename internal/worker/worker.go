package worker

import (
	"context"
	"log"
	"sync"

	"echolot/internal/models"
	"echolot/internal/storage"
)

// TaskHandler runs the pipeline for a claimed task and returns the
// serialized result.
type TaskHandler func(ctx context.Context, task *models.Task) (string, error)

// Worker executes claimed tasks off the request path.
type Worker struct {
	tasks   *storage.TaskRepository
	handler TaskHandler
	queue   chan string
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewWorker creates a worker with the given queue capacity.
func NewWorker(tasks *storage.TaskRepository, handler TaskHandler, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		tasks:   tasks,
		handler: handler,
		queue:   make(chan string, queueSize),
		stop:    make(chan struct{}),
	}
}

// Start begins processing with n concurrent executors.
func (w *Worker) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
	log.Printf("Worker started with %d executors", n)
}

// Stop drains nothing and waits for in-flight tasks to finish.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Println("Worker stopped")
}

// Enqueue schedules a claimed task for execution. It reports false when the
// queue is full; the task then stays in processing until re-enqueued.
func (w *Worker) Enqueue(taskID string) bool {
	select {
	case w.queue <- taskID:
		return true
	default:
		log.Printf("Worker queue full, task %s not enqueued", taskID)
		return false
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case taskID := <-w.queue:
			w.process(ctx, taskID)
		}
	}
}

func (w *Worker) process(ctx context.Context, taskID string) {
	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		log.Printf("Error loading task %s: %v", taskID, err)
		return
	}
	if task == nil {
		log.Printf("Task %s vanished before processing", taskID)
		return
	}

	log.Printf("Processing task %s (%s)", task.ID, task.Filename)

	result, err := w.handler(ctx, task)
	if err != nil {
		log.Printf("Task %s failed: %v", task.ID, err)
		if ferr := w.tasks.Fail(ctx, task.ID, err.Error()); ferr != nil {
			log.Printf("Error failing task %s: %v", task.ID, ferr)
		}
		return
	}

	if err := w.tasks.Complete(ctx, task.ID, result); err != nil {
		log.Printf("Error completing task %s: %v", task.ID, err)
		return
	}
	log.Printf("Task %s completed", task.ID)
}
