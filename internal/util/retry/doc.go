// Package retry provides backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. [WithFixedDelay] is the constant-delay
// variant used by the SSH connect loop. Provider API calls wrap permanent
// failures with [Fatal] so they are returned immediately.
package retry
