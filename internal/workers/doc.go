/*
Package workers sizes and runs the background worker pools.

Worker counts follow runtime.GOMAXPROCS rather than runtime.NumCPU, so a
container limited to 2 CPUs on a 64-core node gets 2-based counts:

	numWorkers := workers.ForIO(16) // 2 per CPU, at most 16

The UPLOAD_WORKERS environment variable pins the count:

	env:
	- name: UPLOAD_WORKERS
	  value: "4"

Pool is a fixed-size goroutine pool fed through a bounded queue:

	pool := workers.NewPool(ctx, workers.ForIO(8), 64, func(ctx context.Context, job Job) {
		...
	})
	pool.Submit(ctx, job)
	defer pool.Close()

Close drains the queue; Stop cancels the context handed to running jobs and
discards whatever is still queued.
*/
package workers
