package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/nthmin/internal/application"
	"github.com/JonMunkholm/nthmin/internal/config"
	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/JonMunkholm/nthmin/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	findFile string
	findN    string
	findJSON bool
)

// findCmd runs a single lookup
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Print the N-th smallest distinct value of a workbook",
	Long: `Reads column A of the first sheet of the workbook and prints the N-th
smallest distinct integer in it.

Example:
  nthmin find --file ./numbers.xlsx --n 3`,
	Args: cobra.NoArgs,
	RunE: runFind,
}

type findResult struct {
	FileLink string `json:"fileLink"`
	N        int    `json:"n"`
	Value    int64  `json:"value"`
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Keep stdout for the result.
	logging.SetDefault(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	link, n := strings.TrimSpace(findFile), strings.TrimSpace(findN)
	svc := application.NewService(cfg, nil)

	value, err := svc.ComputeNthMinimal(cmd.Context(), link, n)
	if err != nil {
		if core.IsUserFacing(err) {
			return errors.New(core.FormatUserError(err))
		}
		return err
	}

	out := cmd.OutOrStdout()
	if findJSON {
		nVal, _ := strconv.Atoi(n)
		return json.NewEncoder(out).Encode(findResult{FileLink: link, N: nVal, Value: value})
	}
	_, err = fmt.Fprintln(out, value)
	return err
}

// loadConfig reads the optional dotenv file, then the environment.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return config.Load()
}
