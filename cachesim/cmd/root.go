// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

const envPrefix = "CACHESIM_"

// NewRootCmd creates the base command with all the subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "cachesim",
		Short: "cachesim replays memory access traces against " +
			"set-associative caches.",
		Long: `cachesim replays memory access traces against set-associative ` +
			`caches that use a recency-bit replacement policy, and reports ` +
			`hits, misses, evictions, and writebacks. Flags that are not ` +
			`given on the command line are read from CACHESIM_<FLAG> ` +
			`environment variables, which may also come from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")

			err := loadEnvFile(envFile)
			if err != nil {
				return err
			}

			return applyEnv(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().String("env-file", ".env",
		"File that holds CACHESIM_* environment variables.")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

// Execute runs the root command with the process arguments.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// applyEnv sets every flag that is not given on the command line from the
// matching CACHESIM_ variable. The flag "log2-block-size" maps to
// CACHESIM_LOG2_BLOCK_SIZE.
func applyEnv(flags *pflag.FlagSet) error {
	var firstErr error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}

		name := envName(f.Name)

		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		err := flags.Set(f.Name, value)
		if err != nil {
			firstErr = fmt.Errorf("invalid value %q in %s: %w", value, name, err)
		}
	})

	return firstErr
}

func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
