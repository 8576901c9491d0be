package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background runs.
// Example usage:
//
//	scheduler := NewScheduler(pipeline, interval, workerCount, reconcileOnStart)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestFeedTask(pipeline))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerIngest() (string, error)
	TriggerReconcile() (string, error)
}
