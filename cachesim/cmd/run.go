package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run TRACE",
		Short: "Replay a trace against one or more caches.",
		Long: "`run TRACE` replays the trace against a cache described by " +
			"--size, --ways, and --log2-block-size, or against every cache " +
			"listed in the file given by --config, and prints a report for " +
			"each cache.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builders, err := runBuilders(cmd.Flags())
			if err != nil {
				return err
			}

			options, err := readSimOptions(cmd.Flags(), args[0])
			if err != nil {
				return err
			}

			caches, err := newSimulation(options, builders).run()
			if err != nil {
				return err
			}

			return printReports(cmd.OutOrStdout(), caches)
		},
	}

	addGeometryFlags(runCmd.Flags())
	runCmd.Flags().Int("ways", 4, "Number of ways in each set.")
	runCmd.Flags().String("name", "L1", "Name of the cache.")
	runCmd.Flags().String("config", "",
		"YAML file that lists the caches to simulate. "+
			"Overrides the geometry flags.")
	addSimFlags(runCmd.Flags())

	return runCmd
}

func addGeometryFlags(flags *pflag.FlagSet) {
	flags.Uint64("size", 16*cache.KB, "Capacity of the cache in bytes.")
	flags.Int("log2-block-size", 6, "Log2 of the block size in bytes.")
}

func addSimFlags(flags *pflag.FlagSet) {
	flags.String("record", "",
		"Record every access and the final counters into NAME.sqlite3.")
	flags.String("trace-log", "", "Log every access into the given file.")
	flags.Bool("unique-ids", false,
		"Give accesses globally unique IDs instead of line-ordered ones.")
	flags.Bool("monitor", false, "Serve the monitoring page while running.")
	flags.Int("monitor-port", 0,
		"Port of the monitoring server. 0 picks a free port.")
	flags.Bool("open-browser", false,
		"Open the monitoring page in a browser.")
}

func readSimOptions(flags *pflag.FlagSet, tracePath string) (simOptions, error) {
	var err error

	options := simOptions{tracePath: tracePath}

	if options.recordName, err = flags.GetString("record"); err != nil {
		return options, err
	}

	if options.traceLog, err = flags.GetString("trace-log"); err != nil {
		return options, err
	}

	if options.uniqueIDs, err = flags.GetBool("unique-ids"); err != nil {
		return options, err
	}

	if options.monitor, err = flags.GetBool("monitor"); err != nil {
		return options, err
	}

	if options.monitorPort, err = flags.GetInt("monitor-port"); err != nil {
		return options, err
	}

	if options.openBrowser, err = flags.GetBool("open-browser"); err != nil {
		return options, err
	}

	return options, nil
}

func runBuilders(flags *pflag.FlagSet) ([]namedBuilder, error) {
	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	if configFile != "" {
		config, err := loadConfig(configFile)
		if err != nil {
			return nil, err
		}

		return config.builders()
	}

	name, _ := flags.GetString("name")
	ways, _ := flags.GetInt("ways")

	err = sim.ValidateName(name)
	if err != nil {
		return nil, err
	}

	b, err := geometryBuilder(flags)
	if err != nil {
		return nil, err
	}

	b = b.WithWayAssociativity(ways)

	err = b.Validate()
	if err != nil {
		return nil, err
	}

	return []namedBuilder{{name: name, builder: b}}, nil
}

func geometryBuilder(flags *pflag.FlagSet) (cache.Builder, error) {
	size, err := flags.GetUint64("size")
	if err != nil {
		return cache.Builder{}, err
	}

	log2BlockSize, err := flags.GetInt("log2-block-size")
	if err != nil {
		return cache.Builder{}, err
	}

	return cache.MakeBuilder().
		WithByteSize(size).
		WithLog2BlockSize(log2BlockSize), nil
}
