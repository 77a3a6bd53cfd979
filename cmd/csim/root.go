package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/cache"
	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/recording"
	"github.com/sarchlab/csim/replay"
	"github.com/sarchlab/csim/trace"
)

type rootFlags struct {
	opts       *config.Options
	policy     string
	configPath string
	cpuProfile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &rootFlags{opts: config.DefaultOptions()}

	cmd := &cobra.Command{
		Use:   programName + " [-hv] -s <num> -E <num> -b <num> -t <file>",
		Short: "Replay a memory trace against a set-associative cache model.",
		Long: `csim replays the data accesses of a memory trace against a ` +
			`set-associative cache and reports how many hit, missed, or ` +
			`evicted a line.`,
		Example: "  " + programName + " -s 4 -E 1 -b 4 -t traces/yi.trace\n" +
			"  " + programName + " -v -s 8 -E 2 -b 4 -t traces/yi.trace",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.resolve(cmd)
			if err != nil {
				return err
			}

			stop, err := startCPUProfile(f.cpuProfile)
			if err != nil {
				return err
			}
			defer stop()

			return simulate(opts, stdout, log.New(stderr, "", 0))
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.IntVarP(&f.opts.SetIndexBits, "set-bits", "s", 0,
		"Number of set index bits.")
	flags.IntVarP(&f.opts.LinesPerSet, "lines", "E", 0,
		"Number of lines per set.")
	flags.IntVarP(&f.opts.BlockOffsetBits, "block-bits", "b", 0,
		"Number of block offset bits.")
	flags.StringVarP(&f.opts.TracePath, "trace", "t", "",
		"Trace file.")
	flags.BoolVarP(&f.opts.Verbose, "verbose", "v", false,
		"Optional verbose flag.")
	flags.StringVar(&f.policy, "policy", string(cache.PolicyCounter),
		"Replacement policy: counter or lru.")
	flags.StringVar(&f.opts.RecordPath, "record", "",
		"Record the session into <name>.sqlite3.")
	flags.StringVar(&f.configPath, "config", "",
		"JSON file with default options; flags override it.")
	flags.StringVar(&f.cpuProfile, "cpuprofile", "",
		"Write a CPU profile to this file.")

	cmd.AddCommand(newSweepCmd(stdout, stderr))
	cmd.AddCommand(newSessionsCmd(stdout))

	return cmd
}

// resolve merges the config file, if any, with the flags that were set.
func (f *rootFlags) resolve(cmd *cobra.Command) (*config.Options, error) {
	f.opts.Policy = cache.Policy(f.policy)

	opts := f.opts.Clone()

	if f.configPath != "" {
		base, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}

		flags := cmd.Flags()
		if flags.Changed("set-bits") {
			base.SetIndexBits = f.opts.SetIndexBits
		}
		if flags.Changed("lines") {
			base.LinesPerSet = f.opts.LinesPerSet
		}
		if flags.Changed("block-bits") {
			base.BlockOffsetBits = f.opts.BlockOffsetBits
		}
		if flags.Changed("trace") {
			base.TracePath = f.opts.TracePath
		}
		if flags.Changed("verbose") {
			base.Verbose = f.opts.Verbose
		}
		if flags.Changed("policy") {
			base.Policy = f.opts.Policy
		}
		if flags.Changed("record") {
			base.RecordPath = f.opts.RecordPath
		}

		opts = base
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// simulate runs one session and prints its summary.
func simulate(opts *config.Options, stdout io.Writer, logger *log.Logger) error {
	src, err := trace.Open(opts.TracePath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	model, err := cache.NewModel(opts.Geometry(), opts.Policy)
	if err != nil {
		return err
	}

	var driverOpts []replay.Option
	if opts.Verbose {
		driverOpts = append(driverOpts, replay.WithVerbose(stdout))
	}

	var recorder *recording.Recorder
	if opts.RecordPath != "" {
		recorder, err = recording.New(opts.RecordPath, recording.SessionInfo{
			Trace:    opts.TracePath,
			Geometry: opts.Geometry(),
			Policy:   opts.Policy,
		}, recording.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = recorder.Close() }()

		driverOpts = append(driverOpts, replay.WithObserver(recorder))
	}

	summary, err := replay.NewDriver(model, driverOpts...).Run(src)
	if err != nil {
		return err
	}

	if summary.Truncated != nil && opts.Verbose {
		logger.Printf("Trace ended early: %v\n", summary.Truncated)
	}

	if recorder != nil {
		if err := recorder.Finish(summary); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(stdout, summary.String())

	return err
}

func startCPUProfile(path string) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}
