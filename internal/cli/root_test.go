package cli

import (
	"bytes"
	"testing"
)

func TestVariantsCommandListsAllPresets(t *testing.T) {
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"variants"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := out.String()
	for _, name := range []string{"original", "biconf", "yanetal", "option3", "option4", "option7", "option8"} {
		if !bytes.Contains([]byte(output), []byte(name)) {
			t.Errorf("expected variant %q in output, got:\n%s", name, output)
		}
	}
}

func TestRunCommandWritesReport(t *testing.T) {
	root := NewRootCommand()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{
		"run",
		"--algorithm", "original",
		"--key-size", "200",
		"--error-rate", "0.03",
		"--runs", "1",
		"--workers", "2",
		"--output-dir", dir,
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFloatSweepSingleValueWithoutMax(t *testing.T) {
	values := floatSweep(0.05, 0, 5)
	if len(values) != 1 || values[0] != 0.05 {
		t.Fatalf("expected a single value [0.05], got %v", values)
	}
}

func TestFloatSweepRange(t *testing.T) {
	values := floatSweep(0.01, 0.05, 5)
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}
	if values[0] != 0.01 || values[4] != 0.05 {
		t.Fatalf("expected sweep endpoints 0.01 and 0.05, got %v", values)
	}
}

func TestIntSweepRange(t *testing.T) {
	values := intSweep(100, 500, 5)
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}
	if values[0] != 100 || values[4] != 500 {
		t.Fatalf("expected sweep endpoints 100 and 500, got %v", values)
	}
}
