package scheduler

import "errors"

// Errors for the sync scheduler
var (
	// ErrInvalidConfig indicates invalid scheduler configuration
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
	// ErrSchedulerNotRunning indicates the scheduler is not running
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	// ErrJobQueueFull indicates the job queue is at capacity
	ErrJobQueueFull = errors.New("scheduler: job queue is full")
)
