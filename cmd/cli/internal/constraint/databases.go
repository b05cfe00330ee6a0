package constraint

import (
	"strings"

	"github.com/agowa/dbatools/pkg/logger"
	"github.com/agowa/dbatools/pkg/migration"
)

// SelectDatabases picks the databases to check from the user databases of the source.
//
// With no include list every available database is checked. Otherwise the
// included names are matched case-insensitively and kept in request order;
// names the source does not have are warned about and dropped, except system
// database names, which are kept so the run is rejected for them. Excluded
// names are removed last.
func SelectDatabases(available []migration.DatabaseRef, include, exclude []string, log *logger.Logger) []migration.DatabaseRef {
	if log == nil {
		log = logger.Nop()
	}

	var selected []migration.DatabaseRef
	if len(include) == 0 {
		selected = append(selected, available...)
	} else {
		byName := make(map[string]migration.DatabaseRef, len(available))
		for _, db := range available {
			byName[strings.ToLower(db.Name)] = db
		}

		seen := make(map[string]bool, len(include))
		for _, name := range include {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			if db, ok := byName[key]; ok {
				selected = append(selected, db)
				continue
			}
			if migration.IsSystemDatabase(key) {
				selected = append(selected, migration.DatabaseRef{Name: strings.TrimSpace(name)})
				continue
			}
			log.Warn("database %s was not found on the source instance", name)
		}
	}

	if len(exclude) == 0 {
		return selected
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(name))] = true
	}
	kept := selected[:0]
	for _, db := range selected {
		if !excluded[strings.ToLower(db.Name)] {
			kept = append(kept, db)
		}
	}
	return kept
}
