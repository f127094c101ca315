package job

import (
	"context"
	"errors"

	"github.com/mikiec84/p5-MediaCloud-JobManager/internal/broker"
)

// fakeBroker is a minimal broker.Broker stub for exercising Function
// and Configuration without a real transport.
type fakeBroker struct {
	syncResult  any
	syncErr     error
	asyncJobID  string
	asyncErr    error
	startCalled bool
	startErr    error

	lastFunction string
	lastArgs     map[string]any
	lastPriority broker.Priority
	lastRetries  int
}

func (f *fakeBroker) StartWorker(ctx context.Context, functionName string, spec broker.ExecutorSpec) error {
	f.startCalled = true
	f.lastFunction = functionName
	return f.startErr
}

func (f *fakeBroker) RunJobAsync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (string, error) {
	f.lastFunction, f.lastArgs, f.lastPriority, f.lastRetries = functionName, args, priority, retries
	return f.asyncJobID, f.asyncErr
}

func (f *fakeBroker) RunJobSync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (any, error) {
	f.lastFunction, f.lastArgs, f.lastPriority, f.lastRetries = functionName, args, priority, retries
	return f.syncResult, f.syncErr
}

func (f *fakeBroker) JobIDFromHandle(handle string) (string, error) { return handle, nil }

func (f *fakeBroker) SetJobProgress(ctx context.Context, jobID string, num, denom int) error {
	return nil
}

func (f *fakeBroker) JobStatus(ctx context.Context, jobID string) (broker.JobStatusInfo, error) {
	return broker.JobStatusInfo{}, errors.New("not implemented")
}

func (f *fakeBroker) ShowJobs(ctx context.Context) ([]broker.JobStatusInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBroker) CancelJob(ctx context.Context, jobID string) error {
	return errors.New("not implemented")
}

func (f *fakeBroker) ServerStatus(ctx context.Context) (broker.ServerStatusInfo, error) {
	return broker.ServerStatusInfo{}, errors.New("not implemented")
}

func (f *fakeBroker) Workers(ctx context.Context) ([]broker.WorkerInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBroker) Close() error { return nil }
