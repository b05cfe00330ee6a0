package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agowa/dbatools/pkg/logger"
)

type fakeQuerier struct {
	mu      sync.Mutex
	rows    map[string][]map[string]string
	fail    map[string]error
	queries []string
	delay   time.Duration
}

func (f *fakeQuerier) RunQuery(ctx context.Context, query, database string) ([]map[string]string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, database)
	if err, ok := f.fail[database]; ok {
		return nil, err
	}
	return f.rows[database], nil
}

func featureRows(names ...string) []map[string]string {
	rows := make([]map[string]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, map[string]string{"feature_name": n})
	}
	return rows
}

func quietLogger() (*logger.Logger, <-chan logger.LogEntry) {
	l := logger.New("migration-test", "1.0.0")
	l.DisableConsoleOutput()
	return l, l.Subscribe()
}

func drain(ch <-chan logger.LogEntry) []logger.LogEntry {
	var out []logger.LogEntry
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestCollectFeatures(t *testing.T) {
	q := &fakeQuerier{rows: map[string][]map[string]string{
		"sales": featureRows("Compression", "ChangeCapture"),
	}}

	features, err := CollectFeatures(context.Background(), q, "src", "sales")
	require.NoError(t, err)
	assert.Equal(t, FeatureSet{"Compression", "ChangeCapture"}, features)
	assert.Equal(t, "Compression, ChangeCapture", features.String())
}

func TestCollectFeatures_NoRows(t *testing.T) {
	q := &fakeQuerier{}

	features, err := NewFeatureCollector("src", q).CollectFeatures(context.Background(), "empty")
	require.NoError(t, err)
	assert.NotNil(t, features)
	assert.Empty(t, features)
}

func TestCollectFeatures_QueryFailure(t *testing.T) {
	cause := errors.New("login failed for database")
	q := &fakeQuerier{fail: map[string]error{"locked": cause}}

	features, err := CollectFeatures(context.Background(), q, "src", "locked")
	assert.Nil(t, features)

	var ce *CollectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "src", ce.Server)
	assert.Equal(t, "locked", ce.Database)
	assert.True(t, errors.Is(err, ErrCollectionFailed))
	assert.True(t, errors.Is(err, cause))
}

func TestBuildReport(t *testing.T) {
	source := server("src", "Enterprise Edition (64-bit)", "12.0.5000.0")
	dest := server("dst", "Standard Edition (64-bit)", "12.0.5000.0")

	q := &fakeQuerier{
		rows: map[string][]map[string]string{
			"sales": featureRows("Compression"),
			"hr":    nil,
		},
		fail: map[string]error{"broken": errors.New("database is in recovery")},
	}
	log, entries := quietLogger()
	a := NewAssembler(NewFeatureCollector(source.Name, q), log)

	report, err := a.BuildReport(context.Background(), source, dest, []DatabaseRef{
		{Name: "sales"},
		{Name: "archive", Status: StatusOffline | StatusReadOnly},
		{Name: "broken"},
		{Name: "hr"},
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Results, 4)
	assert.Equal(t, "sales", report.Results[0].Database)
	assert.True(t, report.Results[1].Skipped)
	assert.Error(t, report.Results[2].Err)
	assert.NotNil(t, report.Results[3].Record)

	records := report.Records()
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		SourceInstance:      "src",
		DestinationInstance: "dst",
		SourceVersion:       "SQL Server 2014 Enterprise Edition",
		DestinationVersion:  "SQL Server 2014 Standard Edition",
		Database:            "sales",
		FeaturesInUse:       "Compression",
		IsMigratable:        false,
		Notes:               noteFeaturesUnavailable,
	}, records[0])

	assert.Equal(t, "hr", records[1].Database)
	assert.True(t, records[1].IsMigratable)
	assert.Empty(t, records[1].FeaturesInUse)

	for _, r := range records {
		assert.NotEqual(t, "archive", r.Database, "offline databases never appear in the report")
	}
	assert.NotContains(t, q.queries, "archive", "offline databases are never queried")

	errs := report.Errors()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrCollectionFailed))

	var warned []string
	for _, e := range drain(entries) {
		if e.Level == "WARN" {
			warned = append(warned, e.Fields["database"])
		}
	}
	assert.ElementsMatch(t, []string{"archive", "broken"}, warned)
}

func TestBuildReport_PreconditionAbortsBeforeCollection(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Standard Edition", "13.0.4001.0")
	q := &fakeQuerier{}

	report, err := NewAssembler(NewFeatureCollector(source.Name, q), logger.Nop()).
		BuildReport(context.Background(), source, dest, []DatabaseRef{{Name: "sales"}, {Name: "master"}})

	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrPreconditionViolation))
	assert.Empty(t, q.queries)
}

func TestBuildReport_HigherToLowerAborts(t *testing.T) {
	source := server("src", "Enterprise Edition", "14.0.1000.169")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")
	q := &fakeQuerier{}

	report, err := NewAssembler(NewFeatureCollector(source.Name, q), nil).
		BuildReport(context.Background(), source, dest, []DatabaseRef{{Name: "sales"}})

	assert.Nil(t, report)
	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, RuleVersionDirection, pe.Rule)
	assert.Empty(t, q.queries)
}

func TestBuildReport_NoDatabases(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")
	log, entries := quietLogger()

	report, err := NewAssembler(NewFeatureCollector(source.Name, &fakeQuerier{}), log).
		BuildReport(context.Background(), source, dest, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Records())

	var infos []string
	for _, e := range drain(entries) {
		if e.Level == "INFO" {
			infos = append(infos, e.Message)
		}
	}
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], "no databases to check")
}

func TestBuildReport_CollationMismatchWarnsAndContinues(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")
	dest.Collation = "Latin1_General_BIN"
	log, entries := quietLogger()

	report, err := NewAssembler(NewFeatureCollector(source.Name, &fakeQuerier{}), log).
		BuildReport(context.Background(), source, dest, []DatabaseRef{{Name: "sales"}})
	require.NoError(t, err)
	assert.Len(t, report.Records(), 1)

	found := false
	for _, e := range drain(entries) {
		if e.Level == "WARN" && strings.HasPrefix(e.Message, "collation") {
			found = true
		}
	}
	assert.True(t, found, "expected a collation warning")
}

func TestBuildReport_FailFast(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")
	q := &fakeQuerier{fail: map[string]error{"broken": errors.New("timeout")}}

	a := NewAssembler(NewFeatureCollector(source.Name, q), logger.Nop())
	a.FailFast = true

	report, err := a.BuildReport(context.Background(), source, dest, []DatabaseRef{{Name: "broken"}, {Name: "sales"}})
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrCollectionFailed))
}

func TestBuildReport_UnknownEditionIsPerDatabase(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Web Edition", "12.0.5000.0")
	q := &fakeQuerier{rows: map[string][]map[string]string{"a": featureRows("Compression")}}

	report, err := NewAssembler(NewFeatureCollector(source.Name, q), logger.Nop()).
		BuildReport(context.Background(), source, dest, []DatabaseRef{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	require.Len(t, report.Errors(), 1)
	assert.True(t, errors.Is(report.Errors()[0], ErrUnknownEdition))

	records := report.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Database)
	assert.True(t, records[0].IsMigratable, "a database without features is not held back by the edition lookup")
}

type countingCollector struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingCollector) CollectFeatures(ctx context.Context, database string) (FeatureSet, error) {
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	c.inFlight.Add(-1)
	return FeatureSet{"Compression"}, nil
}

func TestBuildReport_ParallelKeepsOrder(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")

	var dbs []DatabaseRef
	for i := 0; i < 20; i++ {
		dbs = append(dbs, DatabaseRef{Name: fmt.Sprintf("db%02d", i)})
	}

	c := &countingCollector{}
	a := NewAssembler(c, logger.Nop())
	a.Parallelism = 4

	report, err := a.BuildReport(context.Background(), source, dest, dbs)
	require.NoError(t, err)

	records := report.Records()
	require.Len(t, records, len(dbs))
	for i, r := range records {
		assert.Equal(t, dbs[i].Name, r.Database)
	}
	assert.LessOrEqual(t, c.peak.Load(), int32(4))
}

func TestBuildReport_CanceledContext(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Enterprise Edition", "13.0.4001.0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewAssembler(NewFeatureCollector(source.Name, &fakeQuerier{}), logger.Nop()).
		BuildReport(ctx, source, dest, []DatabaseRef{{Name: "sales"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, errors.Is(report.Results[0].Err, context.Canceled))
}

func TestDatabaseStatus(t *testing.T) {
	s := StatusOffline | StatusReadOnly
	assert.True(t, s.Has(StatusOffline))
	assert.False(t, s.Has(StatusRestoring))
	assert.False(t, StatusNormal.Has(StatusNormal))
	assert.Equal(t, "Offline, ReadOnly", s.String())
	assert.Equal(t, "Normal", StatusNormal.String())
	assert.True(t, DatabaseRef{Name: "x", Status: s}.Offline())
}
