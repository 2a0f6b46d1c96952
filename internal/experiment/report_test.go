package experiment

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/qkd-net/cascade/internal/cascade"
)

func TestReportWriteCSV(t *testing.T) {
	require := require.New(t)
	fs := afero.NewMemMapFs()
	report := NewReport(fs)

	results := []Result{
		{
			Combination: Combination{Variant: "original", ErrorMethod: cascade.ErrorMethodExact, ErrorRate: 0.05, KeySize: 1000},
			Stats: cascade.Stats{
				NormalIterations: 4,
				AskParityBlocks:  37,
			},
			RemainingBitErrors: 0,
		},
	}

	require.NoError(report.WriteCSV("out/results.csv", results))

	data, err := afero.ReadFile(fs, "out/results.csv")
	require.NoError(err)
	content := string(data)

	require.True(strings.HasPrefix(content, "variant,error_method,error_rate,key_size"))
	require.Contains(content, "original,exact,0.05,1000,4,0,0,37")
}

func TestReportWriteCSVEmptyResults(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := NewReport(fs)
	if err := report.WriteCSV("empty.csv", nil); err != nil {
		t.Fatalf("unexpected error writing an empty report: %v", err)
	}
	exists, err := afero.Exists(fs, "empty.csv")
	if err != nil || !exists {
		t.Fatalf("expected empty.csv to exist, err=%v exists=%v", err, exists)
	}
}
