package editions

import (
	"strings"
)

// ID is the canonical identifier of a SQL Server edition.
type ID string

const (
	Enterprise ID = "enterprise"
	Developer  ID = "developer"
	Evaluation ID = "evaluation"
	Standard   ID = "standard"
	Express    ID = "express"

	// Unknown is returned by Parse for edition names missing from the registry.
	Unknown ID = "unknown"
)

// Capability describes an edition in a way the migration checks can consume uniformly.
type Capability struct {
	// Human-friendly edition name, e.g., "Enterprise".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see ID constants).
	ID ID `json:"id"`

	// Weight is a total-order proxy for capability breadth. Before SQL Server 2016 SP1
	// a higher weight means a superset of the SKU features of any lower weight.
	Weight int `json:"weight"`
}

// All is a registry of capabilities keyed by the canonical edition ID.
var All = map[ID]Capability{
	Enterprise: {
		Name:   "Enterprise",
		ID:     Enterprise,
		Weight: 10,
	},
	Developer: {
		Name:   "Developer",
		ID:     Developer,
		Weight: 10,
	},
	Evaluation: {
		Name:   "Evaluation",
		ID:     Evaluation,
		Weight: 10,
	},
	Standard: {
		Name:   "Standard",
		ID:     Standard,
		Weight: 5,
	},
	Express: {
		Name:   "Express",
		ID:     Express,
		Weight: 1,
	},
}

// ExpressWeight is the weight of the lowest tier. Change data capture is never
// available on an edition of this weight, whatever the engine version.
const ExpressWeight = 1

// nameToID is a normalized lookup index from ID and display name to the canonical ID.
var nameToID map[string]ID

func init() {
	nameToID = make(map[string]ID, len(All))
	for id, cap := range All {
		nameToID[strings.ToLower(string(id))] = id
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
	}
}

// BaseName returns the first whitespace-delimited token of an edition string.
func BaseName(edition string) string {
	fields := strings.Fields(edition)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Parse resolves an edition string as reported by the server to a canonical ID.
// Returns Unknown and false when the base name is not in the registry.
func Parse(edition string) (ID, bool) {
	n := strings.ToLower(BaseName(edition))
	if n == "" {
		return Unknown, false
	}
	id, ok := nameToID[n]
	if !ok {
		return Unknown, false
	}
	return id, true
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id ID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// Weight returns the weight of the edition, or 0 for IDs outside the registry.
// Callers that must not treat an unknown edition as the lowest tier check Parse's
// boolean first.
func Weight(id ID) int {
	c, ok := Get(id)
	if !ok {
		return 0
	}
	return c.Weight
}

// IsExpressClass reports whether the edition sits in the lowest weight tier.
func IsExpressClass(id ID) bool {
	c, ok := Get(id)
	return ok && c.Weight == ExpressWeight
}
