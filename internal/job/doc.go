// Package job implements the function descriptor and client submission
// helpers described in §4.2: a named, immutable function definition
// plus the three ways a caller can invoke it — in-process
// (RunLocally), synchronously over the broker (RunRemotely), and
// fire-and-forget (AddToQueue) — and the per-process Configuration that
// carries the active broker handle.
package job
