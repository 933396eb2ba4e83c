package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rebeliceyang/lazytable/internal/config"
	"github.com/rebeliceyang/lazytable/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "lazytable",
	Short:         "Query, filter, sort and page tabular data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: config.yaml in the user config dir, . or ./config)")
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newDSNCmd())
}

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and initializes logging from it
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}
