// Package task runs child processes behind a handle with a status,
// cancellation and a typed stream of progress events parsed from the child's
// stdout.
//
//	h, err := task.Start(ctx, "ingest", os.Args[0], []string{"ingest"})
//	for ev := range h.Events() {
//	    // progress.KindProgress, KindError, KindBuildTimestamp
//	}
//	err = h.Wait(ctx)
package task
