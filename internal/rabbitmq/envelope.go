package rabbitmq

// taskEnvelope is the Celery-compatible task message published to a
// function's task exchange.
type taskEnvelope struct {
	ID        string         `json:"id"`
	Task      string         `json:"task"`
	Kwargs    map[string]any `json:"kwargs"`
	Args      []any          `json:"args"`
	Retries   int            `json:"retries"`
	Expires   any            `json:"expires"`
	UTC       bool           `json:"utc"`
	Chord     any            `json:"chord"`
	Callbacks any            `json:"callbacks"`
	Errbacks  any            `json:"errbacks"`
	Taskset   any            `json:"taskset"`
	TimeLimit [2]any         `json:"timelimit"`
	ETA       any            `json:"eta"`
}

func newTaskEnvelope(jobID, functionName string, args map[string]any, retries int) taskEnvelope {
	return taskEnvelope{
		ID:        jobID,
		Task:      functionName,
		Kwargs:    args,
		Args:      []any{},
		Retries:   retries,
		Expires:   nil,
		UTC:       true,
		Chord:     nil,
		Callbacks: nil,
		Errbacks:  nil,
		Taskset:   nil,
		TimeLimit: [2]any{nil, nil},
		ETA:       nil,
	}
}

const (
	statusSuccess = "SUCCESS"
	statusFailure = "FAILURE"
)

// resultEnvelope is the Celery-compatible result message published to
// a job's reply-to queue.
type resultEnvelope struct {
	Status    string `json:"status"`
	TaskID    string `json:"task_id"`
	Result    any    `json:"result,omitempty"`
	Traceback string `json:"traceback,omitempty"`
	Children  []any  `json:"children"`
}

func newSuccessEnvelope(jobID string, result any) resultEnvelope {
	return resultEnvelope{
		Status:   statusSuccess,
		TaskID:   jobID,
		Result:   result,
		Children: []any{},
	}
}

func newFailureEnvelope(jobID string, err error) resultEnvelope {
	return resultEnvelope{
		Status:    statusFailure,
		TaskID:    jobID,
		Traceback: "Job died: " + err.Error(),
		Result: map[string]any{
			"exc_message": "Task has failed",
			"exc_type":    "Exception",
		},
		Children: []any{},
	}
}
