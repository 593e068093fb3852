package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Global flags
var envFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nthmin",
	Short: "Find the N-th smallest distinct value in an Excel workbook",
	Long: `nthmin reads the first column of the first sheet of a local .xlsx
workbook and returns the N-th smallest distinct integer in it.

Run "nthmin find" for a one-shot lookup or "nthmin serve" to start the
HTTP service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	findCmd.Flags().StringVarP(&findFile, "file", "f", "", "path to the .xlsx workbook")
	findCmd.Flags().StringVarP(&findN, "n", "n", "", "1-based rank of the value to return")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(findCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
