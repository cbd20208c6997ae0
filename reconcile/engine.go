// Package reconcile decides, entry by entry, whether the coordinates in a
// geodiff report need to be pushed to the ANNCSU register.
package reconcile

import (
	"context"

	"github.com/anncsu/anncsu-update/executor"
	"github.com/anncsu/anncsu-update/geodiff"
	"github.com/anncsu/anncsu-update/geometry"
	"github.com/anncsu/anncsu-update/reconcile/report"
	"github.com/anncsu/anncsu-update/registry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultDistanceThreshold = 1e-5
	DefaultUpdateMethod      = "4"
)

type Config struct {
	// MunicipalityCode is the ISTAT code passed as --codcom.
	MunicipalityCode string
	// DistanceThreshold is the per-axis tolerance below which coordinates
	// are considered unchanged.
	DistanceThreshold float64
	// UpdateMethod is the acquisition method code passed as --metodo.
	UpdateMethod string
	// DryRun makes the update decision without invoking the executor.
	DryRun bool
}

type Engine struct {
	cfg      Config
	logger   zerolog.Logger
	reporter report.Reporter
	lookup   registry.Lookup
	exec     executor.Executor
	decoder  geometry.Decoder

	processed int
}

func NewEngine(
	cfg Config,
	logger zerolog.Logger,
	reporter report.Reporter,
	lookup registry.Lookup,
	exec executor.Executor,
	decoder geometry.Decoder,
) *Engine {
	if cfg.UpdateMethod == "" {
		cfg.UpdateMethod = DefaultUpdateMethod
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		reporter: reporter,
		lookup:   lookup,
		exec:     exec,
		decoder:  decoder,
	}
}

// Process reconciles a single entry. It never returns an error: every
// failure ends up in the outcome.
func (e *Engine) Process(ctx context.Context, entry geodiff.Entry) EntryOutcome {
	fields := ExtractFields(entry)
	logger := e.logger.With().
		Str("table", entry.Table).
		Str("kind", entry.Kind.String()).
		Logger()
	if fields.ID != nil {
		logger = logger.With().Int64("id", *fields.ID).Logger()
	}
	if fields.SecondaryRef != nil {
		logger = logger.With().Int64("secondary_ref", *fields.SecondaryRef).Logger()
	}

	o := e.process(ctx, logger, entry, fields)
	o.Kind = entry.Kind.String()
	o.Table = entry.Table
	o.ID = fields.ID

	if o.Success {
		logger.Info().Str("reason", o.Reason.String()).Msgf("entry reconciled")
	} else {
		logger.Warn().Str("reason", o.Reason.String()).Msgf("entry failed: %s", o.ErrorMessage())
	}
	e.reporter.Report(report.EntryResult{
		Index:   e.processed,
		Table:   o.Table,
		Kind:    o.Kind,
		ID:      o.ID,
		Success: o.Success,
		Reason:  o.Reason.String(),
		Err:     o.Err,
	})
	e.processed++
	return o
}

func failed(reason Reason, err error) EntryOutcome {
	return EntryOutcome{Reason: reason, Err: err}
}

func succeeded(reason Reason) EntryOutcome {
	return EntryOutcome{Success: true, Reason: reason}
}

func (e *Engine) process(
	ctx context.Context, logger zerolog.Logger, entry geodiff.Entry, fields Fields,
) EntryOutcome {
	if fields.ID == nil {
		return failed(ReasonMissingIdentifier, ErrMissingIdentifier)
	}
	id := *fields.ID

	// Neither deletes nor unknown kinds look at the geometry.
	switch entry.Kind {
	case geodiff.Insert, geodiff.Update:
	case geodiff.Delete:
		logger.Info().Msgf("delete of %d values from %s is not propagated", len(entry.Changes), entry.Table)
		return succeeded(ReasonDeleteNoop)
	default:
		return failed(ReasonUnknownActionKind, errors.Wrapf(ErrUnknownActionKind, "%s", entry.Kind))
	}

	if fields.Geometry == nil {
		return failed(ReasonMissingGeometry, ErrMissingGeometry)
	}
	coords, err := geometry.Decode(*fields.Geometry, e.decoder)
	if err != nil {
		return failed(ReasonInvalidGeometry, err)
	}
	logger.Debug().Float64("x", coords.X).Float64("y", coords.Y).Msgf("decoded geometry")

	if entry.Kind == geodiff.Insert && id < 0 {
		return failed(ReasonUnsupportedInsert, ErrUnsupportedInsert)
	}

	res, err := e.lookup.LookupByID(ctx, id)
	if err != nil {
		return failed(ReasonLookupFailed, errors.Mark(errors.Wrapf(err, "registry lookup for %d", id), ErrLookupFailed))
	}
	if res.Status != registry.StatusOK {
		return failed(ReasonLookupFailed, errors.Mark(
			errors.Newf("registry lookup for %d returned %s: %s", id, res.Status, res.Message),
			ErrLookupFailed,
		))
	}
	switch len(res.Records) {
	case 0:
		return failed(ReasonRecordNotFound, ErrRecordNotFound)
	case 1:
	default:
		return failed(ReasonAmbiguousRecord, errors.Wrapf(ErrAmbiguousRecord, "%d records for %d", len(res.Records), id))
	}

	if stored, ok := res.Records[0].Coordinates(); ok {
		if coords.Within(stored, e.cfg.DistanceThreshold) {
			e.reporter.Report(report.CoordinatesMatch{Table: entry.Table, ID: id, Coordinates: coords})
			return succeeded(ReasonUnchanged)
		}
		e.reporter.Report(report.CoordinateDrift{
			Table:     entry.Table,
			ID:        id,
			Local:     coords,
			Registry:  stored,
			Threshold: e.cfg.DistanceThreshold,
		})
	} else {
		logger.Info().Msgf("register has no stored coordinate; updating")
	}

	op := executor.CoordinateUpdate{
		MunicipalityCode: e.cfg.MunicipalityCode,
		ID:               id,
		X:                coords.X,
		Y:                coords.Y,
		Method:           e.cfg.UpdateMethod,
	}
	issued := report.CommandIssued{
		Table:     entry.Table,
		ID:        id,
		Operation: op.Name(),
		Args:      op.Args(),
		DryRun:    e.cfg.DryRun,
	}
	if e.cfg.DryRun {
		e.reporter.Report(issued)
		return succeeded(ReasonDryRun)
	}
	result, err := e.exec.Invoke(ctx, op)
	if err != nil {
		return failed(ReasonCommandFailed, errors.Mark(err, ErrCommandFailed))
	}
	issued.ExitStatus = result.ExitStatus
	issued.Output = result.Output
	e.reporter.Report(issued)
	if result.ExitStatus != 0 {
		return failed(ReasonCommandFailed, errors.Mark(
			errors.Newf("%s exited with status %d: %s", op.Name(), result.ExitStatus, result.Output),
			ErrCommandFailed,
		))
	}
	return succeeded(ReasonUpdated)
}
