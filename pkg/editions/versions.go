package editions

import (
	"fmt"
	"strings"
)

// productNames maps engine major versions to marketing names.
var productNames = map[int]string{
	8:  "SQL Server 2000",
	9:  "SQL Server 2005",
	10: "SQL Server 2008",
	11: "SQL Server 2012",
	12: "SQL Server 2014",
	13: "SQL Server 2016",
	14: "SQL Server 2017",
	15: "SQL Server 2019",
	16: "SQL Server 2022",
	17: "SQL Server 2025",
}

// ProductName returns the product name for an engine version. 10.50 is 2008 R2.
func ProductName(major, minor int) string {
	if major == 10 && minor == 50 {
		return "SQL Server 2008 R2"
	}
	if name, ok := productNames[major]; ok {
		return name
	}
	return fmt.Sprintf("SQL Server v%d", major)
}

// Label renders a version label such as "SQL Server 2014 Enterprise Edition".
func Label(major, minor int, edition string) string {
	edition = strings.TrimSpace(strings.Replace(edition, " (64-bit)", "", 1))
	if edition == "" {
		return ProductName(major, minor)
	}
	return ProductName(major, minor) + " " + edition
}
