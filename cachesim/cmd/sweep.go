package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep TRACE",
		Short: "Compare associativities at a fixed cache size.",
		Long: "`sweep TRACE --ways 1,2,4,8` replays the trace against one " +
			"cache per associativity, all with the same size and block " +
			"size, and prints a summary table followed by the reports.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ways, err := cmd.Flags().GetIntSlice("ways")
			if err != nil {
				return err
			}

			base, err := geometryBuilder(cmd.Flags())
			if err != nil {
				return err
			}

			builders, err := sweepBuilders(base, ways)
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

			err = printSummary(cmd.OutOrStdout(), caches)
			if err != nil {
				return err
			}

			return printReports(cmd.OutOrStdout(), caches)
		},
	}

	addGeometryFlags(sweepCmd.Flags())
	sweepCmd.Flags().IntSlice("ways", []int{1, 2, 4, 8},
		"Associativities to compare.")
	addSimFlags(sweepCmd.Flags())

	return sweepCmd
}

func sweepBuilders(base cache.Builder, ways []int) ([]namedBuilder, error) {
	if len(ways) == 0 {
		return nil, fmt.Errorf("no associativity to sweep")
	}

	builders := make([]namedBuilder, 0, len(ways))
	seen := make(map[int]bool)

	for _, w := range ways {
		if seen[w] {
			continue
		}
		seen[w] = true

		b := base.WithWayAssociativity(w)

		err := b.Validate()
		if err != nil {
			return nil, fmt.Errorf("%d ways: %w", w, err)
		}

		builders = append(builders, namedBuilder{
			name:    sim.BuildNameWithIndex("", "Ways", w),
			builder: b,
		})
	}

	return builders, nil
}

func printSummary(w io.Writer, caches []*cache.Cache) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CACHE\tSETS\tWAYS\tACCESSES\tHITS\tMISSES\t"+
		"EVICTIONS\tWRITEBACKS\tHIT RATIO")

	for _, c := range caches {
		s := c.Stats().Snapshot()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f%%\n",
			c.Name(), c.NumSets(), c.NumWays(),
			s.TotalAccesses, s.Hits, s.Misses,
			s.Evictions, s.Writebacks, s.HitRatio())
	}

	_, err := fmt.Fprintln(tw)
	if err != nil {
		return err
	}

	return tw.Flush()
}
