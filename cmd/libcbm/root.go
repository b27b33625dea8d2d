package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

var (
	bundleFile string
	vcfg       = viper.New()
)

// rootCmd is the main command, in the shape of the teacher's own RootCmd
// (cmd/inmap/root.go): a PersistentPreRunE loads shared configuration
// before any subcommand runs.
var rootCmd = &cobra.Command{
	Use:   "libcbm",
	Short: "Forest carbon pool and flux simulation engine.",
	Long: `libcbm runs the spinup and annual-step carbon dynamics kernel over a
population of forest stands, driven by a parameter bundle and an
inventory/spinup-input file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if bundleFile == "" {
			return nil
		}
		vcfg.SetConfigFile(bundleFile)
		return vcfg.ReadInConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bundleFile, "bundle", "", "parameter bundle file (YAML, JSON or TOML)")
	rootCmd.AddCommand(versionCmd, spinupCmd, runCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of libcbm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("libcbm v" + version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
