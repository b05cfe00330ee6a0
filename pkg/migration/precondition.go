package migration

import (
	"fmt"
	"strings"
)

// systemDatabases cannot be migrated with this check.
var systemDatabases = []string{"master", "msdb", "tempdb"}

// IsSystemDatabase reports whether name is one of the system databases the checks refuse.
func IsSystemDatabase(name string) bool {
	for _, s := range systemDatabases {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// CheckPreconditions validates that a migration between source and dest can be
// evaluated at all. Rules run in a fixed order and the first violation is
// returned as a *PreconditionError. A collation mismatch is not fatal and is
// returned as a warning.
func CheckPreconditions(source, dest ServerInfo, requested []string) ([]string, error) {
	var warnings []string

	for _, name := range requested {
		if IsSystemDatabase(name) {
			return warnings, &PreconditionError{
				Rule:    RuleSystemDatabase,
				Message: "migrating system databases is not supported",
			}
		}
	}

	if source.VersionMajor < 9 && dest.VersionMajor > 10 {
		return warnings, &PreconditionError{
			Rule:    RuleCrossEra,
			Message: "SQL Server 2000 databases cannot be migrated to SQL Server 2012 and above",
		}
	}

	if source.Collation != dest.Collation {
		warnings = append(warnings, fmt.Sprintf("collation on %s, %s differs from the %s, %s",
			source.Name, source.Collation, dest.Name, dest.Collation))
	}

	if source.VersionMajor > dest.VersionMajor {
		return warnings, &PreconditionError{
			Rule:    RuleVersionDirection,
			Message: "cannot migrate databases from a higher version to a lower one",
		}
	}

	if source.VersionMajor < 10 {
		return warnings, &PreconditionError{
			Rule:    RuleVersionFloor,
			Message: "this validation only supports source version SQL Server 2008 (v10) or higher",
		}
	}

	return warnings, nil
}
