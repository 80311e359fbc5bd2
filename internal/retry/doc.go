// Package retry wraps a single remote call with exponential backoff and jitter.
//
// A Retrier re-invokes an operation while its error is classified as transient
// (server overload or internal error) and the retry budget is not exhausted.
// Any other error is returned unchanged on the first occurrence. Backoff timing
// and cancellation are delegated to github.com/sethvargo/go-retry.
package retry
