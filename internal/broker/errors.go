package broker

import "errors"

// Sentinel errors for the error taxonomy in §7. Every error a broker
// returns wraps exactly one of these via fmt.Errorf("...: %w", ...), so
// callers can distinguish failure kinds with errors.Is. The exception
// is context cancellation: ctx.Err() is returned as-is.
var (
	// ErrTransport covers connect/declare/publish/consume/ack failures.
	// Fatal to the current call; a worker loop that hits ErrTransport
	// terminates rather than retrying silently.
	ErrTransport = errors.New("broker: transport error")

	// ErrProtocol covers a task delivery with an empty correlation_id or
	// reply_to, an unknown status, a task-name mismatch, or a task_id
	// that does not match the expected job id. Indicates a configuration
	// bug or a misrouted message. The delivery tag is not checked, and
	// an empty body surfaces as ErrDecode.
	ErrProtocol = errors.New("broker: protocol error")

	// ErrDecode covers a message body that is not valid JSON, or that
	// decodes to something other than an object.
	ErrDecode = errors.New("broker: decode error")

	// ErrJobFailed wraps the traceback string of a FAILURE result
	// envelope. Returned by RunJobSync to the caller; never returned by
	// StartWorker, which instead converts the underlying function
	// failure into a FAILURE envelope and keeps consuming.
	ErrJobFailed = errors.New("broker: job failed")

	// ErrNotImplemented is returned by the admin surface
	// (JobStatus, ShowJobs, CancelJob, ServerStatus, Workers) on the
	// RabbitMQ broker.
	ErrNotImplemented = errors.New("broker: not implemented")
)
