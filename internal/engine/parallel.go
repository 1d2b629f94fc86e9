package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/rules"
)

// Job is one independent resolution, typically one target platform.
type Job struct {
	// Name identifies the job in errors, usually the platform name.
	Name string

	// Seed is the registry to resolve. ResolveAll clones it, so several
	// jobs may share one seed.
	Seed *flags.Registry

	// Rules is the rule subset for this job.
	Rules *rules.RuleSet
}

// ResolveAll resolves every job concurrently and returns the results in job
// order. Each job gets its own engine and registry copy. The first failure
// cancels the jobs that have not started yet and is returned wrapped with
// the job name.
func ResolveAll(ctx context.Context, jobs []Job, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := New(job.Rules, opts...).Resolve(job.Seed)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
