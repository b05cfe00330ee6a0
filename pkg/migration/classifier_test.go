package migration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func server(name, edition, version string) ServerInfo {
	return ServerInfo{
		Name:          name,
		VersionMajor:  majorOf(version),
		VersionString: version,
		Edition:       edition,
		Collation:     "SQL_Latin1_General_CP1_CI_AS",
	}
}

func majorOf(version string) int {
	major := 0
	for _, c := range version {
		if c == '.' {
			break
		}
		major = major*10 + int(c-'0')
	}
	return major
}

func TestDestVersionNumber(t *testing.T) {
	tests := []struct {
		version  string
		expected int64
	}{
		{"13.0.4001.0", 13040010},
		{"12.0.5000.0", 12050000},
		{"14.0.1000.169", 1401000169},
		{"10.50.6000.34", 1050600034},
		{" 13.0.4001.0 ", 13040010},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			n, err := DestVersionNumber(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

// The derivation concatenates digits; it is not a semantic version comparison.
func TestDestVersionNumber_NotSemantic(t *testing.T) {
	low, err := DestVersionNumber("13.0.400.1")
	require.NoError(t, err)
	older, err := DestVersionNumber("12.0.5000.0")
	require.NoError(t, err)

	assert.Less(t, low, older, "13.0.400.1 concatenates to fewer digits than 12.0.5000.0")
	assert.Less(t, low, SP1Threshold)
}

func TestDestVersionNumber_Invalid(t *testing.T) {
	_, err := DestVersionNumber("thirteen")
	assert.True(t, errors.Is(err, ErrInvalidVersion))

	_, err = DestVersionNumber("")
	assert.True(t, errors.Is(err, ErrInvalidVersion))

	for _, v := range []string{"+13.0.4001.0", "-13.0.4001.0", "13.0.4001.0 RTM", "..."} {
		_, err = DestVersionNumber(v)
		assert.True(t, errors.Is(err, ErrInvalidVersion), "%q should be rejected", v)
	}
}

func TestClassify_Examples(t *testing.T) {
	tests := []struct {
		name       string
		source     ServerInfo
		dest       ServerInfo
		features   FeatureSet
		canMigrate bool
		note       string
	}{
		{
			name:       "enterprise to standard before SP1 with compression",
			source:     server("src", "Enterprise Edition (64-bit)", "12.0.5000.0"),
			dest:       server("dst", "Standard Edition (64-bit)", "12.0.5000.0"),
			features:   FeatureSet{"Compression"},
			canMigrate: false,
			note:       "there are features in use not available on the destination instance.",
		},
		{
			name:       "enterprise to standard before SP1 without features",
			source:     server("src", "Enterprise Edition (64-bit)", "12.0.5000.0"),
			dest:       server("dst", "Standard Edition (64-bit)", "12.0.5000.0"),
			features:   FeatureSet{},
			canMigrate: true,
		},
		{
			name:       "express at SP1 with change capture",
			source:     server("src", "Enterprise Edition (64-bit)", "12.0.5000.0"),
			dest:       server("dst", "Express Edition (64-bit)", "13.0.4001.0"),
			features:   FeatureSet{"ChangeCapture"},
			canMigrate: false,
			note:       "destination edition is EXPRESS which does not support 'ChangeCapture' feature that is in use.",
		},
		{
			name:       "express at SP1 with compression only",
			source:     server("src", "Enterprise Edition (64-bit)", "12.0.5000.0"),
			dest:       server("dst", "Express Edition (64-bit)", "13.0.4001.0"),
			features:   FeatureSet{"Compression"},
			canMigrate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Classify(tt.source, tt.dest, tt.features)
			require.NoError(t, err)
			assert.Equal(t, tt.canMigrate, v.CanMigrate)
			assert.Equal(t, tt.note, v.Note)
		})
	}
}

var allEditions = []string{
	"Enterprise Edition (64-bit)",
	"Developer Edition (64-bit)",
	"Evaluation Edition",
	"Standard Edition",
	"Express Edition",
}

var weightOf = map[string]int{
	"Enterprise Edition (64-bit)": 10,
	"Developer Edition (64-bit)":  10,
	"Evaluation Edition":          10,
	"Standard Edition":            5,
	"Express Edition":             1,
}

func TestClassify_PreSP1Grid(t *testing.T) {
	featureSets := []FeatureSet{{}, {"Compression"}, {"ChangeCapture", "Partitioning"}}

	for _, src := range allEditions {
		for _, dst := range allEditions {
			for _, fs := range featureSets {
				source := server("src", src, "11.0.7001.0")
				dest := server("dst", dst, "12.0.6024.0")

				v, err := Classify(source, dest, fs)
				require.NoError(t, err)

				blocked := weightOf[dst] < weightOf[src] && len(fs) > 0
				assert.Equal(t, !blocked, v.CanMigrate, "%s -> %s with %v", src, dst, fs)
				if blocked {
					assert.Equal(t, noteFeaturesUnavailable, v.Note)
				} else {
					assert.Empty(t, v.Note)
				}
			}
		}
	}
}

func TestClassify_PostSP1Grid(t *testing.T) {
	featureSets := []FeatureSet{{}, {"Compression"}, {"ChangeCapture"}, {"Compression", "ChangeCapture"}}

	for _, src := range allEditions {
		for _, dst := range allEditions {
			for _, fs := range featureSets {
				source := server("src", src, "12.0.5000.0")
				dest := server("dst", dst, "14.0.1000.169")

				v, err := Classify(source, dest, fs)
				require.NoError(t, err)

				blocked := weightOf[dst] == 1 && fs.Contains("ChangeCapture")
				assert.Equal(t, !blocked, v.CanMigrate, "%s -> %s with %v", src, dst, fs)
			}
		}
	}
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	features := FeatureSet{"Compression"}

	before := server("dst", "Express Edition", "13.0.4000.9")
	v, err := Classify(source, before, features)
	require.NoError(t, err)
	assert.False(t, v.CanMigrate, "13.0.4000.9 is below the SP1 threshold so edition weights apply")

	at := server("dst", "Express Edition", "13.0.4001.0")
	v, err = Classify(source, at, features)
	require.NoError(t, err)
	assert.True(t, v.CanMigrate)
}

func TestClassify_UnknownEdition(t *testing.T) {
	features := FeatureSet{"Compression"}

	_, err := Classify(
		server("src", "Enterprise Edition", "12.0.5000.0"),
		server("dst", "Web Edition", "12.0.5000.0"),
		features)
	var ue *UnknownEditionError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "dst", ue.Server)
	assert.True(t, errors.Is(err, ErrUnknownEdition))

	_, err = Classify(
		server("src", "Web Edition", "12.0.5000.0"),
		server("dst", "Standard Edition", "12.0.5000.0"),
		features)
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "src", ue.Server)

	// No features means nothing the edition gap could block.
	v, err := Classify(
		server("src", "Enterprise Edition", "12.0.5000.0"),
		server("dst", "Business Intelligence Edition", "12.0.5000.0"),
		FeatureSet{})
	require.NoError(t, err)
	assert.True(t, v.CanMigrate)
	assert.Empty(t, v.Note)

	// After SP1 only the Express check consults the edition.
	v, err = Classify(
		server("src", "Enterprise Edition", "12.0.5000.0"),
		server("dst", "Web Edition", "13.0.4001.0"),
		FeatureSet{"ChangeCapture"})
	require.NoError(t, err)
	assert.True(t, v.CanMigrate)
}

func TestClassify_InvalidDestVersion(t *testing.T) {
	_, err := Classify(
		server("src", "Enterprise Edition", "12.0.5000.0"),
		ServerInfo{Name: "dst", Edition: "Standard Edition", VersionString: "n/a"},
		nil)
	assert.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestClassify_Idempotent(t *testing.T) {
	source := server("src", "Enterprise Edition", "12.0.5000.0")
	dest := server("dst", "Standard Edition", "12.0.5000.0")
	features := FeatureSet{"Compression", "Partitioning"}

	first, err := Classify(source, dest, features)
	require.NoError(t, err)
	second, err := Classify(source, dest, features)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
