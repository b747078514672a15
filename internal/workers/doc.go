/*
Package workers sizes and runs the shared worker pool.

Sizing is container aware: GOMAXPROCS is set from cgroup CPU limits, so
counts are derived from it rather than runtime.NumCPU.

	pool := workers.NewPool(workers.ForIO(16), 64)
	defer pool.Close()

	if err := pool.Submit(func() { ... }); err != nil {
		// workers.ErrPoolClosed
	}

The WORKERS environment variable overrides the computed count for every
helper, still capped by the helper's limit.

A task that panics is recovered and logged so one bad item cannot take a
worker down with it.
*/
package workers
