// Package memory sizes the Go heap for the container and pauses upload
// storage while the heap is close to its limit.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// unless GOMEMLIMIT is already set. A [Monitor] samples heap usage every
// CheckInterval. Above CriticalWaterMark it pauses: upload workers block in
// [Monitor.WaitIfPaused] and the upload endpoint refuses new batches. It
// resumes once usage drops below HighWaterMark.
package memory
