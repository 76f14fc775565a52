package replay

import (
	tomb "gopkg.in/tomb.v2"

	"github.com/rs/zerolog/log"
)

// Job is one scripted market to replay: a freshly constructed Runner and
// the Script to drive it with. Each Job is independent of every other —
// the determinism invariant (spec §3) is per-market, so nothing stops
// separate markets from replaying concurrently.
type Job struct {
	Name   string
	Runner *Runner
	Script *Script
}

// RunPool replays every job concurrently, bounded to at most concurrency
// workers at once, and returns the first error encountered (if any),
// after every job has finished or the pool was asked to stop early.
// Grounded on the teacher's internal/worker.go WorkerPool: the same
// tomb.Tomb-supervised fixed-size goroutine pool, generalized from "TCP
// connections to service" to "scripts to replay".
func RunPool(jobs []Job, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	t := &tomb.Tomb{}
	queue := make(chan Job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	for i := 0; i < concurrency; i++ {
		t.Go(func() error {
			for {
				select {
				case <-t.Dying():
					return nil
				case job, ok := <-queue:
					if !ok {
						return nil
					}
					log.Info().Str("job", job.Name).Msg("replay starting")
					if err := job.Runner.Run(job.Script); err != nil {
						log.Error().Str("job", job.Name).Err(err).Msg("replay failed")
						return err
					}
					log.Info().Str("job", job.Name).Msg("replay finished")
				}
			}
		})
	}

	return t.Wait()
}
