package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/trace"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report RECORDING",
		Short: "Print the reports stored in a recording.",
		Long: "`report RECORDING` prints the report of every cache stored in " +
			"a .sqlite3 file written by --record.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			caches, err := trace.ReadRecordedCaches(cmd.Context(), reader)
			if err != nil {
				return err
			}

			if len(caches) == 0 {
				return fmt.Errorf("%s does not hold any cache", args[0])
			}

			w := cmd.OutOrStdout()
			for _, c := range caches {
				_, err = fmt.Fprintf(w, "%s: %d bytes, %d sets, %d ways\n",
					c.Name, c.ByteSize, c.NumSets, c.NumWays)
				if err != nil {
					return err
				}

				err = c.Stats.Report(w)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}
