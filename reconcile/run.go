package reconcile

import (
	"context"
	"regexp"

	"github.com/anncsu/anncsu-update/executor"
	"github.com/anncsu/anncsu-update/geodiff"
	"github.com/anncsu/anncsu-update/geometry"
	"github.com/anncsu/anncsu-update/reconcile/report"
	"github.com/anncsu/anncsu-update/registry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const DefaultAPIType = "pa"

// Deps are the collaborators a run talks to. They are owned by the caller.
type Deps struct {
	Lookup   registry.Lookup
	Executor executor.Executor
	Decoder  geometry.Decoder
}

type RunResult struct {
	Outcomes []EntryOutcome
	Success  bool
}

type RunOpt func(*runOpts)

type runOpts struct {
	apiType     string
	opener      geodiff.Opener
	tableFilter *regexp.Regexp
	dryRun      bool
}

// WithAPIType sets the API type used to authenticate the executor.
func WithAPIType(apiType string) RunOpt {
	return func(o *runOpts) {
		o.apiType = apiType
	}
}

// WithOpener allows the report source to be a remote object.
func WithOpener(opener geodiff.Opener) RunOpt {
	return func(o *runOpts) {
		o.opener = opener
	}
}

// WithTableFilter only processes entries whose table matches re.
func WithTableFilter(re *regexp.Regexp) RunOpt {
	return func(o *runOpts) {
		o.tableFilter = re
	}
}

func WithDryRun(dryRun bool) RunOpt {
	return func(o *runOpts) {
		o.dryRun = dryRun
	}
}

// Run loads the report at source, authenticates the executor and reconciles
// every entry in document order. Failing to load the report or to
// authenticate aborts the run before any entry is touched; any other failure
// is recorded in the entry's outcome and the run carries on.
func Run(
	ctx context.Context,
	source string,
	cfg Config,
	logger zerolog.Logger,
	reporter report.Reporter,
	deps Deps,
	inOpts ...RunOpt,
) (RunResult, error) {
	opts := runOpts{apiType: DefaultAPIType}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	loadOpts := []geodiff.LoadOpt{geodiff.WithLogger(logger)}
	if opts.opener != nil {
		loadOpts = append(loadOpts, geodiff.WithOpener(opts.opener))
	}
	rep, err := geodiff.Load(ctx, source, loadOpts...)
	if err != nil {
		return RunResult{}, errors.Mark(errors.Wrap(err, "error loading geodiff report"), ErrReportLoad)
	}
	logger.Info().Int("entries", len(rep.Entries)).Msgf("loaded geodiff report")

	if err := authenticate(ctx, logger, deps.Executor, opts.apiType); err != nil {
		return RunResult{}, err
	}
	reporter.Report(report.StatusReport{Info: "authenticated against the ANNCSU register"})

	engine := NewEngine(cfg, logger, reporter, deps.Lookup, deps.Executor, deps.Decoder)
	ret := RunResult{Outcomes: []EntryOutcome{}, Success: true}
	failures := 0
	for _, entry := range rep.Entries {
		if opts.tableFilter != nil && !opts.tableFilter.MatchString(entry.Table) {
			logger.Debug().Str("table", entry.Table).Msgf("table filtered out; skipping entry")
			continue
		}
		o := engine.Process(ctx, entry)
		ret.Outcomes = append(ret.Outcomes, o)
		if !o.Success {
			ret.Success = false
			failures++
		}
	}
	reporter.Report(report.RunSummary{Entries: len(ret.Outcomes), Failed: failures})
	return ret, nil
}

func authenticate(ctx context.Context, logger zerolog.Logger, exec executor.Executor, apiType string) error {
	login := executor.Login{APIType: apiType}
	logger.Info().Str("api", apiType).Msgf("authenticating")
	res, err := exec.Invoke(ctx, login)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "error running anncsu authentication"), ErrAuthentication)
	}
	if res.ExitStatus != 0 {
		return errors.Mark(
			errors.Newf("anncsu authentication exited with status %d: %s", res.ExitStatus, res.Output),
			ErrAuthentication,
		)
	}
	return nil
}
