package migration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agowa/dbatools/pkg/editions"
)

// SP1Threshold is the destination version number of SQL Server 2016 SP1
// ("13.0.4001.0" with the dots removed). From this build on most SKU features
// are available on every edition.
const SP1Threshold int64 = 13040010

// ChangeCaptureFeature is the persisted feature name of change data capture.
const ChangeCaptureFeature = "ChangeCapture"

const (
	noteExpressChangeCapture = "destination edition is EXPRESS which does not support 'ChangeCapture' feature that is in use."
	noteFeaturesUnavailable  = "there are features in use not available on the destination instance."
)

// DestVersionNumber removes the dots from a version string and parses what is
// left as an integer: "13.0.4001.0" becomes 13040010. This is a plain digit
// concatenation, not a version comparison; "13.0.400.1" gives 1304001 which is
// lower than "12.0.5000.0" (12050000). Thresholds are expressed in the same form.
func DestVersionNumber(version string) (int64, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(version), ".", "")
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return n, nil
}

// Classify decides whether a database using features can move from source to dest.
// It has no side effects; identical inputs produce identical verdicts.
func Classify(source, dest ServerInfo, features FeatureSet) (Verdict, error) {
	destNumber, err := DestVersionNumber(dest.VersionString)
	if err != nil {
		return Verdict{}, err
	}

	if destNumber >= SP1Threshold {
		destID, _ := dest.EditionID()
		if editions.IsExpressClass(destID) && features.Contains(ChangeCaptureFeature) {
			return Verdict{CanMigrate: false, Note: noteExpressChangeCapture}, nil
		}
		return Verdict{CanMigrate: true}, nil
	}

	// Without features the edition gap cannot block the move.
	if len(features) == 0 {
		return Verdict{CanMigrate: true}, nil
	}

	destID, ok := dest.EditionID()
	if !ok {
		return Verdict{}, &UnknownEditionError{Server: dest.Name, Edition: dest.Edition}
	}
	sourceID, ok := source.EditionID()
	if !ok {
		return Verdict{}, &UnknownEditionError{Server: source.Name, Edition: source.Edition}
	}

	if editions.Weight(destID) < editions.Weight(sourceID) {
		return Verdict{CanMigrate: false, Note: noteFeaturesUnavailable}, nil
	}
	return Verdict{CanMigrate: true}, nil
}
