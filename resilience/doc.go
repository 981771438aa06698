// Package resilience provides the flow-control primitives used by the HTTP
// backends and clients.
//
//   - Retry: retries an operation with exponential backoff and jitter
//   - Bulkhead: bounds concurrent work with a weighted semaphore; slots can
//     be held across goroutines
//   - RateLimiter: token bucket pacing built on golang.org/x/time/rate
//   - CircuitBreaker: fails fast while a peer keeps failing
//
// The suspending adapter holds one bulkhead slot per in-flight exchange and
// retries connection failures of safe requests through Retry:
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 64})
//	release, err := bh.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
package resilience
