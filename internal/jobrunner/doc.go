// Package jobrunner executes a function's run routine in-process,
// under a retry loop, with structured logging of each attempt and the
// total elapsed time.
//
// It is the single execution path shared by runLocally (called
// directly in the client's own process) and the RabbitMQ broker's
// worker loop (called after a task message is received) — the two
// call sites §4.2 requires to share retry accounting and timing.
package jobrunner
