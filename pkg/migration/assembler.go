package migration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agowa/dbatools/pkg/logger"
)

// Assembler builds a migration report for one source/destination pair.
type Assembler struct {
	Collector Collector
	Logger    *logger.Logger

	// Parallelism bounds concurrent databases. Values below 2 run sequentially.
	Parallelism int

	// FailFast turns the first per-database error into a run error.
	FailFast bool
}

// NewAssembler creates a sequential assembler.
func NewAssembler(collector Collector, log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.Nop()
	}
	return &Assembler{Collector: collector, Logger: log, Parallelism: 1}
}

// BuildReport checks the run preconditions once, then collects and classifies
// every database. Results keep the order of databases. Offline databases are
// skipped with a warning and produce no record.
func (a *Assembler) BuildReport(ctx context.Context, source, dest ServerInfo, databases []DatabaseRef) (*Report, error) {
	log := a.Logger
	if log == nil {
		log = logger.Nop()
	}

	requested := make([]string, 0, len(databases))
	for _, db := range databases {
		requested = append(requested, db.Name)
	}

	warnings, err := CheckPreconditions(source, dest, requested)
	for _, w := range warnings {
		log.Warnf("%s", w)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       uuid.NewString(),
		Source:      source,
		Destination: dest,
		Results:     make([]Result, len(databases)),
	}

	if len(databases) == 0 {
		log.Info("no databases to check on %s", source.Name)
		report.Results = nil
		return report, nil
	}

	log.WithFields(map[string]string{
		"run":         report.RunID,
		"source":      source.Name,
		"destination": dest.Name,
	}).Debug(fmt.Sprintf("checking %d database(s)", len(databases)))

	limit := a.Parallelism
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, db := range databases {
		i, db := i, db
		g.Go(func() error {
			res := a.check(gctx, log, source, dest, db)
			report.Results[i] = res
			if a.FailFast && res.Err != nil {
				return res.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report, nil
}

func (a *Assembler) check(ctx context.Context, log *logger.Logger, source, dest ServerInfo, db DatabaseRef) Result {
	fields := map[string]string{"server": source.Name, "database": db.Name}

	if db.Offline() {
		log.WithFields(fields).Warn(fmt.Sprintf("database %s is offline and cannot be checked", db.Name))
		return Result{Database: db.Name, Skipped: true}
	}

	if err := ctx.Err(); err != nil {
		return Result{Database: db.Name, Err: err}
	}

	features, err := a.Collector.CollectFeatures(ctx, db.Name)
	if err != nil {
		log.WithFields(fields).Warn(err.Error())
		return Result{Database: db.Name, Err: err}
	}
	log.WithFields(fields).Debug(fmt.Sprintf("features in use: %q", features.String()))

	verdict, err := Classify(source, dest, features)
	if err != nil {
		log.WithFields(fields).Warn(err.Error())
		return Result{Database: db.Name, Err: fmt.Errorf("classify database %s: %w", db.Name, err)}
	}

	return Result{
		Database: db.Name,
		Record: &Record{
			SourceInstance:      source.Name,
			DestinationInstance: dest.Name,
			SourceVersion:       source.VersionLabel(),
			DestinationVersion:  dest.VersionLabel(),
			Database:            db.Name,
			FeaturesInUse:       features.String(),
			IsMigratable:        verdict.CanMigrate,
			Notes:               verdict.Note,
		},
	}
}
