// Package pool runs jobs on a fixed set of workers, each owning its own
// state for its whole life.
//
// Shared-memory stores must be attached inside the worker that uses them, so
// Setup runs on the worker itself and Teardown runs on every exit path:
//
//	p := pool.New(pool.Config{Workers: 4, Name: "reader"},
//	    func(ctx context.Context, w *pool.Worker) (*shmimg.Store[float32], error) {
//	        return shmimg.Open("frames", layout, shmimg.Float32(shmimg.Single))
//	    },
//	    func(w *pool.Worker, s *shmimg.Store[float32]) error { return s.Finalize() },
//	)
//	sums, err := pool.Map(ctx, p, slots, sumSlot)
//
// The first failing job cancels the rest; Map returns its error after every
// worker has torn down.
package pool
