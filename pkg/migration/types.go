// Package migration decides whether databases can be moved from a source SQL
// Server instance to a destination of equal or lower edition/version, based on
// the edition-restricted features each database has persisted.
package migration

import (
	"strings"

	"github.com/agowa/dbatools/pkg/editions"
)

// ServerInfo is an immutable snapshot of an instance captured once per run.
type ServerInfo struct {
	Name          string `json:"name" yaml:"name"`
	VersionMajor  int    `json:"version_major" yaml:"version_major"`
	VersionMinor  int    `json:"version_minor" yaml:"version_minor"`
	VersionString string `json:"version_string" yaml:"version_string"`
	Edition       string `json:"edition" yaml:"edition"`
	ProductLevel  string `json:"product_level" yaml:"product_level"`
	Collation     string `json:"collation" yaml:"collation"`
}

// EditionID resolves the edition string against the editions registry.
func (s ServerInfo) EditionID() (editions.ID, bool) {
	return editions.Parse(s.Edition)
}

// VersionLabel renders the product name and edition, e.g. "SQL Server 2016 Standard Edition".
func (s ServerInfo) VersionLabel() string {
	return editions.Label(s.VersionMajor, s.VersionMinor, s.Edition)
}

// DatabaseStatus is a set of database state flags.
type DatabaseStatus uint16

// StatusNormal is the empty flag set.
const StatusNormal DatabaseStatus = 0

const (
	StatusOffline DatabaseStatus = 1 << iota
	StatusRestoring
	StatusRecovering
	StatusSuspect
	StatusEmergency
	StatusReadOnly
	StatusSingleUser
)

var statusNames = []struct {
	flag DatabaseStatus
	name string
}{
	{StatusOffline, "Offline"},
	{StatusRestoring, "Restoring"},
	{StatusRecovering, "Recovering"},
	{StatusSuspect, "Suspect"},
	{StatusEmergency, "Emergency"},
	{StatusReadOnly, "ReadOnly"},
	{StatusSingleUser, "SingleUser"},
}

// Has reports whether every flag in f is set.
func (s DatabaseStatus) Has(f DatabaseStatus) bool {
	return f != 0 && s&f == f
}

func (s DatabaseStatus) String() string {
	if s == StatusNormal {
		return "Normal"
	}
	var names []string
	for _, sn := range statusNames {
		if s.Has(sn.flag) {
			names = append(names, sn.name)
		}
	}
	return strings.Join(names, ", ")
}

// DatabaseRef identifies a database on the source instance.
type DatabaseRef struct {
	Name   string
	Status DatabaseStatus
}

// Offline reports whether the database is offline and cannot be inspected.
func (d DatabaseRef) Offline() bool {
	return d.Status.Has(StatusOffline)
}

// FeatureSet is the list of persisted SKU features found in one database.
// Duplicates are kept as reported.
type FeatureSet []string

// Contains reports whether name is in the set (exact match, as the DMV reports it).
func (f FeatureSet) Contains(name string) bool {
	for _, n := range f {
		if n == name {
			return true
		}
	}
	return false
}

func (f FeatureSet) String() string {
	return strings.Join(f, ", ")
}

// Verdict is the outcome of classifying one database.
type Verdict struct {
	CanMigrate bool
	Note       string
}

// Record is one row of a migration report.
type Record struct {
	SourceInstance      string `json:"source_instance" yaml:"source_instance"`
	DestinationInstance string `json:"destination_instance" yaml:"destination_instance"`
	SourceVersion       string `json:"source_version" yaml:"source_version"`
	DestinationVersion  string `json:"destination_version" yaml:"destination_version"`
	Database            string `json:"database" yaml:"database"`
	FeaturesInUse       string `json:"features_in_use" yaml:"features_in_use"`
	IsMigratable        bool   `json:"is_migratable" yaml:"is_migratable"`
	Notes               string `json:"notes" yaml:"notes"`
}

// Result is the outcome for one database. Exactly one of Record, Skipped or Err is set.
type Result struct {
	Database string
	Record   *Record
	Skipped  bool
	Err      error
}

// Report is the ordered set of per-database results for one source/destination pair.
type Report struct {
	RunID       string
	Source      ServerInfo
	Destination ServerInfo
	Results     []Result
}

// Records returns the successful records in input order.
func (r *Report) Records() []Record {
	if r == nil {
		return nil
	}
	out := make([]Record, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Record != nil {
			out = append(out, *res.Record)
		}
	}
	return out
}

// Errors returns the per-database errors in input order.
func (r *Report) Errors() []error {
	if r == nil {
		return nil
	}
	var out []error
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Err)
		}
	}
	return out
}
