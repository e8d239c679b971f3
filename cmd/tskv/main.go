package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tskv",
	Short: "Time-series SQL layer over a partitioned key/value store",
	Long: `tskv serves SQL-like statements against time-series tables whose rows
are range-scanned records under a composite partition key. SELECTs are
compiled into quantum-aligned sub-queries, fanned out to their primary
owners, and reassembled in coverage-plan order.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tskv version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tskv %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
