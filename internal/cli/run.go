package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qkd-net/cascade/internal/cascade"
	"github.com/qkd-net/cascade/internal/experiment"
)

const sweepSteps = 5

type runFlags struct {
	algorithm    string
	errorMethod  string
	errorRate    float64
	errorRateMax float64
	keySize      int
	keySizeMax   int
	runs         int
	workers      int
	outputDir    string
	metricsAddr  string
}

func newRunCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment matrix and write a CSV report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExperiment(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.algorithm, "algorithm", "original", "cascade algorithm variant (see 'cascade variants')")
	cmd.Flags().StringVar(&flags.errorMethod, "error-method", string(cascade.ErrorMethodExact), "noise method: exact or bernoulli")
	cmd.Flags().Float64Var(&flags.errorRate, "error-rate", 0.01, "estimated/actual bit error rate")
	cmd.Flags().Float64Var(&flags.errorRateMax, "error-rate-max", 0, "if set, sweep error-rate up to this value")
	cmd.Flags().IntVar(&flags.keySize, "key-size", 10000, "key size in bits")
	cmd.Flags().IntVar(&flags.keySizeMax, "key-size-max", 0, "if set, sweep key-size up to this value")
	cmd.Flags().IntVar(&flags.runs, "runs", 1, "number of repeats per matrix combination")
	cmd.Flags().IntVar(&flags.workers, "workers", 4, "number of reconciliations to run concurrently")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", ".", "directory to write the CSV report into")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address while running")

	return cmd
}

func runExperiment(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	errorRates := floatSweep(flags.errorRate, flags.errorRateMax, sweepSteps)
	keySizes := intSweep(flags.keySize, flags.keySizeMax, sweepSteps)

	matrix := experiment.NewMatrix(
		[]string{flags.algorithm},
		cascade.ErrorMethod(flags.errorMethod),
		errorRates,
		keySizes,
		flags.runs,
	)

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	var metrics *experiment.Metrics
	if flags.metricsAddr != "" {
		metrics = experiment.NewMetrics()
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(serveCtx, flags.metricsAddr); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	runner := &experiment.Runner{Workers: flags.workers, Logger: logger}
	if metrics != nil {
		runner.Observer = metrics
	}
	results, err := runner.Run(ctx, matrix)
	if err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}

	report := experiment.NewReport(afero.NewOsFs())
	path := flags.outputDir + "/cascade-results.csv"
	if err := report.WriteCSV(path, results); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d results to %s\n", len(results), path)
	return nil
}

func floatSweep(min, max float64, steps int) []float64 {
	if max <= min {
		return []float64{min}
	}
	values := make([]float64, steps)
	step := (max - min) / float64(steps-1)
	for i := range values {
		values[i] = min + float64(i)*step
	}
	return values
}

func intSweep(min, max, steps int) []int {
	if max <= min {
		return []int{min}
	}
	values := make([]int, steps)
	step := float64(max-min) / float64(steps-1)
	for i := range values {
		values[i] = min + int(float64(i)*step)
	}
	return values
}
