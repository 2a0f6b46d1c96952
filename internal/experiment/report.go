package experiment

import (
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
)

// Report writes experiment results to a filesystem, abstracted via afero so tests (and a
// future in-memory dry-run mode) never have to touch disk.
type Report struct {
	fs afero.Fs
}

// NewReport creates a Report backed by fs. A nil fs defaults to the real OS filesystem.
func NewReport(fs afero.Fs) *Report {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Report{fs: fs}
}

var csvHeader = []string{
	"variant", "error_method", "error_rate", "key_size",
	"normal_iterations", "biconf_iterations",
	"ask_parity_messages", "ask_parity_blocks", "infer_parity_blocks",
	"ask_parity_bits", "reply_parity_bits",
	"remaining_bit_errors", "remaining_frame_in_error",
	"unrealistic_efficiency", "realistic_efficiency",
	"elapsed_real_time_seconds", "elapsed_process_time_seconds",
}

// WriteCSV writes one row per Result to path, creating parent directories as needed.
func (r *Report) WriteCSV(path string, results []Result) error {
	if err := r.fs.MkdirAll(parentDir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, res := range results {
		row := []string{
			res.Combination.Variant,
			string(res.Combination.ErrorMethod),
			strconv.FormatFloat(res.Combination.ErrorRate, 'g', -1, 64),
			strconv.Itoa(res.Combination.KeySize),
			strconv.Itoa(res.Stats.NormalIterations),
			strconv.Itoa(res.Stats.BiconfIterations),
			strconv.Itoa(res.Stats.AskParityMessages),
			strconv.Itoa(res.Stats.AskParityBlocks),
			strconv.Itoa(res.Stats.InferParityBlocks),
			strconv.Itoa(res.Stats.AskParityBits),
			strconv.Itoa(res.Stats.ReplyParityBits),
			strconv.Itoa(res.Stats.RemainingBitErrors),
			strconv.FormatBool(res.Stats.RemainingFrameInError),
			strconv.FormatFloat(res.Stats.UnrealisticEfficiency, 'g', -1, 64),
			strconv.FormatFloat(res.Stats.RealisticEfficiency, 'g', -1, 64),
			strconv.FormatFloat(res.Stats.ElapsedRealTime.Seconds(), 'g', -1, 64),
			strconv.FormatFloat(res.Stats.ElapsedProcessTime.Seconds(), 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
