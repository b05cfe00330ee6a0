// Package constraint runs the migration constraint check for one source
// instance against one or more destination instances.
package constraint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/agowa/dbatools/cmd/cli/internal/output"
	"github.com/agowa/dbatools/pkg/logger"
	"github.com/agowa/dbatools/pkg/migration"
	"github.com/agowa/dbatools/pkg/sqlserver"
)

// ErrReported means the failure was already logged; the caller only has to exit non-zero.
var ErrReported = errors.New("migration constraint check failed")

// Options are the command line inputs of one run.
type Options struct {
	Source              string
	Destinations        []string
	SourceUser          string
	SourcePassword      string
	DestinationUser     string
	DestinationPassword string
	Databases           []string
	ExcludeDatabases    []string
	Output              string
	Parallel            int
	EnableException     bool
	UseKeyring          bool
}

// Instance is a connected SQL Server.
type Instance interface {
	migration.Querier
	Info() migration.ServerInfo
	Databases(ctx context.Context) ([]migration.DatabaseRef, error)
	Close() error
}

// Dialer connects to the instance at address.
type Dialer func(ctx context.Context, address string, creds sqlserver.Credentials) (Instance, error)

// SQLServerDialer dials with go-mssqldb. Addresses without a port or instance name use port.
func SQLServerDialer(port int, opts sqlserver.Options) Dialer {
	return func(ctx context.Context, address string, creds sqlserver.Credentials) (Instance, error) {
		addr, err := sqlserver.ParseInstanceWithPort(address, port)
		if err != nil {
			return nil, err
		}
		srv, err := sqlserver.Connect(ctx, addr, creds, opts)
		if err != nil {
			return nil, err
		}
		return srv, nil
	}
}

// Runner executes a check. Dial and Out are required.
type Runner struct {
	Dial        Dialer
	Credentials *CredentialResolver
	Logger      *logger.Logger
	Out         io.Writer

	// QueryTimeout bounds each feature query; zero disables it.
	QueryTimeout time.Duration
}

// Run connects to the source, resolves the databases to check, builds one report
// per destination and renders all records to Out.
//
// Without EnableException, fatal errors are logged as warnings and Run returns
// ErrReported. A destination that cannot be checked does not stop the others.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}

	format, err := output.ParseFormat(opts.Output)
	if err != nil {
		return err
	}
	if len(opts.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}

	source, err := r.connect(ctx, opts.Source, opts.SourceUser, opts.SourcePassword, opts.UseKeyring)
	if err != nil {
		return r.fail(log, opts, err)
	}
	defer source.Close()

	available, err := source.Databases(ctx)
	if err != nil {
		return r.fail(log, opts, fmt.Errorf("list databases on %s: %w", source.Info().Name, err))
	}
	databases := SelectDatabases(available, opts.Databases, opts.ExcludeDatabases, log)

	var querier migration.Querier = source
	if r.QueryTimeout > 0 {
		querier = &timeoutQuerier{next: source, timeout: r.QueryTimeout}
	}

	var (
		reports []*migration.Report
		failed  bool
	)
	for _, address := range opts.Destinations {
		report, err := r.checkDestination(ctx, opts, source.Info(), querier, databases, address)
		if err != nil {
			if opts.EnableException {
				return err
			}
			log.WithFields(map[string]string{"destination": address}).Warn(err.Error())
			failed = true
			continue
		}
		reports = append(reports, report)
	}

	if err := output.Render(r.Out, format, reports); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if failed {
		return ErrReported
	}
	return nil
}

func (r *Runner) checkDestination(ctx context.Context, opts Options, source migration.ServerInfo, q migration.Querier, databases []migration.DatabaseRef, address string) (*migration.Report, error) {
	dest, err := r.connect(ctx, address, opts.DestinationUser, opts.DestinationPassword, opts.UseKeyring)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	assembler := migration.NewAssembler(migration.NewFeatureCollector(source.Name, q), r.Logger)
	assembler.Parallelism = opts.Parallel
	assembler.FailFast = opts.EnableException

	report, err := assembler.BuildReport(ctx, source, dest.Info(), databases)
	if err != nil {
		return nil, fmt.Errorf("check %s against %s: %w", source.Name, dest.Info().Name, err)
	}
	return report, nil
}

func (r *Runner) connect(ctx context.Context, address, user, password string, useKeyring bool) (Instance, error) {
	creds, err := r.Credentials.Resolve(address, user, password, useKeyring)
	if err != nil {
		return nil, err
	}
	return r.Dial(ctx, address, creds)
}

func (r *Runner) fail(log *logger.Logger, opts Options, err error) error {
	if opts.EnableException {
		return err
	}
	log.Warnf("%s", err)
	return ErrReported
}

type timeoutQuerier struct {
	next    migration.Querier
	timeout time.Duration
}

func (q *timeoutQuerier) RunQuery(ctx context.Context, query, database string) ([]map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return q.next.RunQuery(ctx, query, database)
}
