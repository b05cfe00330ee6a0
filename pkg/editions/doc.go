// Package editions provides a shared registry describing the SQL Server
// editions known to the migration checks. Callers use it to turn the free-form
// edition string reported by SERVERPROPERTY('Edition') into a canonical ID and
// to compare the capability breadth of two editions.
//
// Minimal usage example:
//
//	import "github.com/agowa/dbatools/pkg/editions"
//
//	func lowerTier(source, dest string) bool {
//	    s, _ := editions.Parse(source)
//	    d, _ := editions.Parse(dest)
//	    return editions.Weight(d) < editions.Weight(s)
//	}
//
// Only the first whitespace-delimited token of the edition string is used, so
// "Enterprise Edition: Core-based Licensing (64-bit)" resolves to Enterprise and
// "Express Edition with Advanced Services (64-bit)" resolves to Express.
//
// The package also maps major/minor engine versions to product names
// (see ProductName) for report labels.
package editions
