// Package api is the programmatic entry point to chkconf: resolve a rule-set
// definition for a platform and read the outcome.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/chkconf/internal/bootstrap"
	"github.com/canonica-labs/chkconf/internal/engine"
	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/observability"
	"github.com/canonica-labs/chkconf/internal/platform"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// Version of the chkconf API and report format.
const Version = "0.1.0"

// Options configures a resolution.
type Options struct {
	// Platform is the target port. Empty means base.
	Platform string

	// Mode is auto-correct (default) or strict.
	Mode string

	// Overrides are explicit NAME=VALUE settings.
	Overrides []string

	// MaxPasses overrides the pass bound when positive.
	MaxPasses int

	// Logger receives pass and conflict messages. Nil discards them.
	Logger *slog.Logger
}

// Result is a successful resolution for one platform.
type Result struct {
	*engine.Result

	// RunID identifies this resolution in logs and the report store.
	RunID string

	RuleSet  string
	Platform platform.Platform
}

// Selector returns the read-only view consumers query.
func (r *Result) Selector() *platform.Selector {
	return platform.NewSelector(r.Snapshot)
}

// Traits selects the platform traits for the resolved flags.
func (r *Result) Traits() (platform.Traits, error) {
	return platform.SelectTraits(r.Selector(), r.Platform)
}

// Report converts the result into its external representation.
func (r *Result) Report() *models.Report {
	report := &models.Report{
		ID:          r.RunID,
		CreatedAt:   time.Now().UTC(),
		RuleSet:     r.RuleSet,
		Platform:    string(r.Platform),
		Mode:        string(r.Mode),
		Passes:      r.Passes,
		Bound:       r.Bound,
		Outcome:     observability.OutcomeResolved,
		Flags:       make([]models.FlagState, 0, r.Snapshot.Len()),
		Changes:     make([]models.Change, 0, len(r.Changes)),
		Diagnostics: make([]models.DiagnosticReport, 0, len(r.Diagnostics)),
	}
	for _, f := range r.Snapshot.All() {
		report.Flags = append(report.Flags, models.FlagState{
			Name:    f.Name,
			Value:   f.Value.Bool(),
			Origin:  f.Origin.String(),
			Default: f.Default.String(),
			Sources: r.Sources[f.Name],
		})
	}
	for _, c := range r.Changes {
		report.Changes = append(report.Changes, models.Change{
			Pass:   c.Pass,
			Flag:   c.Flag,
			Old:    c.Old.String(),
			New:    c.New.String(),
			Origin: c.Origin.String(),
			Rule:   c.RuleID,
		})
	}
	for _, d := range r.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, diagnosticReport(d))
	}
	return report
}

// FailureReport builds the report of a failed resolution. It carries the
// error as a diagnostic and no flag values.
func FailureReport(ruleSet, platformName, mode string, err error) *models.Report {
	return &models.Report{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		RuleSet:     ruleSet,
		Platform:    platformName,
		Mode:        mode,
		Outcome:     observability.OutcomeOf(err),
		Error:       err.Error(),
		Flags:       []models.FlagState{},
		Changes:     []models.Change{},
		Diagnostics: []models.DiagnosticReport{diagnosticReport(engine.ErrorDiagnostic(err))},
	}
}

func diagnosticReport(d engine.Diagnostic) models.DiagnosticReport {
	return models.DiagnosticReport{
		Kind:     string(d.Kind),
		Severity: string(d.Severity),
		Message:  d.Message,
		Flags:    d.Flags,
		Rules:    d.Rules,
	}
}

// Resolve builds def, applies the overrides and resolves for one platform.
func Resolve(def *bootstrap.Definition, opts Options) (*Result, error) {
	job, engineOpts, err := prepare(def, opts.Platform, opts)
	if err != nil {
		return nil, err
	}
	res, err := engine.New(job.Rules, engineOpts...).Resolve(job.Seed)
	if err != nil {
		return nil, err
	}
	return wrap(def, job.Name, res), nil
}

// ResolvePlatforms resolves def for several platforms concurrently. Results
// are in platform order; the first failure is returned wrapped with its
// platform name.
func ResolvePlatforms(ctx context.Context, def *bootstrap.Definition, platforms []string, opts Options) ([]*Result, error) {
	jobs := make([]engine.Job, 0, len(platforms))
	var engineOpts []engine.Option
	for _, p := range platforms {
		job, eo, err := prepare(def, p, opts)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
		engineOpts = eo
	}

	results, err := engine.ResolveAll(ctx, jobs, engineOpts...)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, len(results))
	for i, res := range results {
		out[i] = wrap(def, jobs[i].Name, res)
	}
	return out, nil
}

// prepare validates the options and builds the seed and rule subset.
func prepare(def *bootstrap.Definition, platformName string, opts Options) (engine.Job, []engine.Option, error) {
	if platformName == "" {
		platformName = string(platform.Base)
	}
	p, err := platform.Parse(platformName)
	if err != nil {
		return engine.Job{}, nil, err
	}
	mode, err := engine.ParseMode(opts.Mode)
	if err != nil {
		return engine.Job{}, nil, errors.NewInvalidOverride("mode="+opts.Mode, err.Error())
	}

	seed, rs, err := def.Build()
	if err != nil {
		return engine.Job{}, nil, err
	}
	if err := ApplyOverrides(seed, opts.Overrides); err != nil {
		return engine.Job{}, nil, err
	}

	engineOpts := []engine.Option{
		engine.WithMode(mode),
		engine.WithMaxPasses(opts.MaxPasses),
		engine.WithLogger(opts.Logger),
	}
	return engine.Job{Name: string(p), Seed: seed, Rules: platform.RulesFor(p, rs)}, engineOpts, nil
}

// ApplyOverrides sets each NAME=VALUE entry on reg with user origin. Later
// entries win over earlier ones.
func ApplyOverrides(reg *flags.Registry, overrides []string) error {
	for _, o := range overrides {
		name, v, err := flags.ParseAssignment(o)
		if err != nil {
			return err
		}
		if !reg.Has(name) {
			return errors.NewUnknownFlag(name, "override "+o)
		}
		if _, err := reg.Set(name, v, flags.OriginUser); err != nil {
			return err
		}
	}
	return nil
}

func wrap(def *bootstrap.Definition, platformName string, res *engine.Result) *Result {
	name := def.Name
	if def.Path() != "" {
		name = def.Path()
	}
	return &Result{
		Result:   res,
		RunID:    uuid.NewString(),
		RuleSet:  name,
		Platform: platform.Platform(platformName),
	}
}
