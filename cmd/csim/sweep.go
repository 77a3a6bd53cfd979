package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/sweep"
	"github.com/sarchlab/csim/trace"
)

func newSweepCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		tracePath  string
		configPath string
		setBits    []int
		lines      []int
		blockBits  []int
		policy     string
		format     string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "sweep -t <file> (--config <sweep.json> | --set-bits ... --lines ... --block-bits ...)",
		Short: "Replay one trace against many cache geometries.",
		Example: "  " + programName + " sweep -t traces/yi.trace --config sweep.json\n" +
			"  " + programName + " sweep -t traces/yi.trace --set-bits 2,4 --lines 1,2,4 --block-bits 4 --format csv",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tracePath == "" {
				return &usageError{err: errors.New("missing required option -t")}
			}

			cfg, err := sweepConfig(configPath, setBits, lines, blockBits, policy)
			if err != nil {
				return err
			}

			harnessConfig := sweep.DefaultConfig()
			harnessConfig.Output = stdout
			if cfg.Workers > 0 {
				harnessConfig.Workers = cfg.Workers
			}
			if cmd.Flags().Changed("workers") {
				harnessConfig.Workers = workers
			}

			return runSweep(cmd.Context(), tracePath, format, cfg,
				sweep.NewHarness(harnessConfig), log.New(stderr, "", 0))
		},
	}

	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&tracePath, "trace", "t", "", "Trace file.")
	flags.StringVar(&configPath, "config", "", "JSON file listing the geometries.")
	flags.IntSliceVar(&setBits, "set-bits", nil, "Set index bit widths to sweep.")
	flags.IntSliceVar(&lines, "lines", nil, "Associativities to sweep.")
	flags.IntSliceVar(&blockBits, "block-bits", nil, "Block offset bit widths to sweep.")
	flags.StringVar(&policy, "policy", string(cache.PolicyCounter), "Replacement policy for the grid.")
	flags.StringVar(&format, "format", "table", "Output format: table, csv or json.")
	flags.IntVar(&workers, "workers", 0, "Sessions replayed at once. Default: number of CPUs.")

	return cmd
}

func sweepConfig(
	configPath string,
	setBits, lines, blockBits []int,
	policy string,
) (*sweep.Config, error) {
	var cfg *sweep.Config

	switch {
	case configPath != "":
		loaded, err := sweep.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case len(setBits) > 0 && len(lines) > 0 && len(blockBits) > 0:
		p, err := cache.ParsePolicy(policy)
		if err != nil {
			return nil, &usageError{err: err}
		}
		cfg = &sweep.Config{Entries: sweep.Grid(setBits, lines, blockBits, p)}
	default:
		return nil, &usageError{err: errors.New(
			"either --config or all of --set-bits, --lines and --block-bits are required")}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runSweep(
	ctx context.Context,
	tracePath, format string,
	cfg *sweep.Config,
	harness *sweep.Harness,
	logger *log.Logger,
) error {
	switch format {
	case "table", "csv", "json":
	default:
		return &usageError{err: fmt.Errorf("unknown output format %q", format)}
	}

	src, err := trace.Open(tracePath)
	if err != nil {
		return err
	}
	buf, err := trace.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return err
	}

	if t := buf.Truncated(); t != nil {
		logger.Printf("Trace ended early: %v\n", t)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	harness.AddEntries(cfg.Entries)

	results, err := harness.Run(ctx, buf)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		harness.PrintCSV(results)
	case "json":
		return harness.PrintJSON(tracePath, buf, results)
	default:
		harness.PrintResults(results)
	}

	return nil
}
