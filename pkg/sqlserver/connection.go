package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/agowa/dbatools/pkg/migration"
)

const serverInfoQuery = `
	SELECT
		CAST(SERVERPROPERTY('ServerName') AS nvarchar(256)) AS ServerName,
		CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128)) AS Version,
		CAST(SERVERPROPERTY('Edition') AS nvarchar(128)) AS Edition,
		CAST(SERVERPROPERTY('ProductLevel') AS nvarchar(128)) AS ProductLevel,
		CAST(SERVERPROPERTY('Collation') AS nvarchar(128)) AS Collation`

// User databases only: database_id 1-4 are master, tempdb, model and msdb.
const userDatabasesQuery = `
	SELECT name, state_desc, is_read_only, user_access_desc
	FROM sys.databases
	WHERE database_id > 4 AND is_distributor = 0
	ORDER BY name`

var _ migration.Querier = (*Server)(nil)

// Server is an open connection to one instance together with the snapshot of
// its properties taken at connect time.
type Server struct {
	db     *sql.DB
	info   migration.ServerInfo
	closed atomic.Bool
}

// Connect establishes a connection to a Microsoft SQL Server instance and reads
// its properties. Every failure is returned as a *ConnectionError.
func Connect(ctx context.Context, addr *InstanceAddress, creds Credentials, opts Options) (*Server, error) {
	connErr := func(err error) error {
		return &ConnectionError{Instance: addr.String(), Host: addr.Host, Port: addr.Port, Cause: err}
	}

	db, err := sql.Open("sqlserver", addr.DSN(creds, opts))
	if err != nil {
		return nil, connErr(fmt.Errorf("error opening connection: %w", err))
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connErr(fmt.Errorf("error pinging instance: %w", err))
	}

	srv, err := NewServer(ctx, db)
	if err != nil {
		db.Close()
		return nil, connErr(err)
	}
	if srv.info.Name == "" {
		srv.info.Name = addr.String()
	}
	return srv, nil
}

// NewServer wraps an open database handle and reads the instance properties.
func NewServer(ctx context.Context, db *sql.DB) (*Server, error) {
	info, err := readServerInfo(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Server{db: db, info: info}, nil
}

func readServerInfo(ctx context.Context, db *sql.DB) (migration.ServerInfo, error) {
	var name, version, edition, level, collation sql.NullString
	err := db.QueryRowContext(ctx, serverInfoQuery).Scan(&name, &version, &edition, &level, &collation)
	if err != nil {
		return migration.ServerInfo{}, fmt.Errorf("error fetching server properties: %w", err)
	}

	major, minor, err := parseVersion(version.String)
	if err != nil {
		return migration.ServerInfo{}, err
	}

	return migration.ServerInfo{
		Name:          name.String,
		VersionMajor:  major,
		VersionMinor:  minor,
		VersionString: version.String,
		Edition:       edition.String,
		ProductLevel:  level.String,
		Collation:     collation.String,
	}, nil
}

// parseVersion extracts major and minor from a product version such as "13.0.4001.0".
func parseVersion(version string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected product version %q", version)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected product version %q: %w", version, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected product version %q: %w", version, err)
	}
	return major, minor, nil
}

// Info returns the properties captured at connect time.
func (s *Server) Info() migration.ServerInfo {
	return s.info
}

// Name returns the server name reported by the instance.
func (s *Server) Name() string {
	return s.info.Name
}

// Databases enumerates the user databases of the instance.
func (s *Server) Databases(ctx context.Context) ([]migration.DatabaseRef, error) {
	if s.closed.Load() {
		return nil, ErrConnectionClosed
	}

	rows, err := s.db.QueryContext(ctx, userDatabasesQuery)
	if err != nil {
		return nil, wrapQuery(s.info.Name, "", "list_databases", err)
	}
	defer rows.Close()

	var dbs []migration.DatabaseRef
	for rows.Next() {
		var name, state, access string
		var readOnly bool
		if err := rows.Scan(&name, &state, &readOnly, &access); err != nil {
			return nil, wrapQuery(s.info.Name, "", "list_databases", err)
		}
		dbs = append(dbs, migration.DatabaseRef{Name: name, Status: databaseStatus(state, readOnly, access)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(s.info.Name, "", "list_databases", err)
	}
	return dbs, nil
}

// databaseStatus maps sys.databases columns to status flags.
func databaseStatus(state string, readOnly bool, access string) migration.DatabaseStatus {
	var s migration.DatabaseStatus
	switch strings.ToUpper(state) {
	case "OFFLINE", "OFFLINE_SECONDARY":
		s |= migration.StatusOffline
	case "RESTORING":
		s |= migration.StatusRestoring
	case "RECOVERING", "RECOVERY_PENDING":
		s |= migration.StatusRecovering
	case "SUSPECT":
		s |= migration.StatusSuspect
	case "EMERGENCY":
		s |= migration.StatusEmergency
	}
	if readOnly {
		s |= migration.StatusReadOnly
	}
	if strings.EqualFold(access, "SINGLE_USER") {
		s |= migration.StatusSingleUser
	}
	return s
}

// QuoteName delimits an identifier the way QUOTENAME does.
func QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// RunQuery runs query in the context of database and returns every row as a
// column-name to value map. A dedicated connection is used so the database
// context never leaks to other callers.
func (s *Server) RunQuery(ctx context.Context, query, database string) ([]map[string]string, error) {
	if s.closed.Load() {
		return nil, ErrConnectionClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, wrapQuery(s.info.Name, database, "acquire_connection", err)
	}
	defer conn.Close()

	if database != "" {
		if _, err := conn.ExecContext(ctx, "USE "+QuoteName(database)); err != nil {
			return nil, wrapQuery(s.info.Name, database, "use_database", err)
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapQuery(s.info.Name, database, "execute_query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapQuery(s.info.Name, database, "execute_query", err)
	}

	var result []map[string]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapQuery(s.info.Name, database, "scan_row", err)
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = values[i].String
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(s.info.Name, database, "execute_query", err)
	}

	return result, nil
}

// Close releases the connection pool. It is safe to call more than once.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
