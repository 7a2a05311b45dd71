package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/config"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/logging"
)

// #region globals
var (
	cfgPath  string
	logLevel string

	cfg    config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:               "trackreward",
		Short:             "Score, replay and serve racetrack rewards",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

// exitCodeError carries a process exit code through cobra.
// 1 means a replay diverged, 2 means the command could not run.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// #endregion globals

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug|info|warn|error)")

	rootCmd.AddCommand(evalCmd, replayCmd, serveCmd, inspectCmd, exportCmd)
}

// #region main
func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var ee *exitCodeError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(2)
}

// #endregion main

// #region setup
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	encoding := cfg.Log.Encoding
	if cmd.Name() != "serve" && cfgPath == "" {
		// interactive commands default to human-readable logs
		encoding = "console"
	}
	logger, err = logging.NewLogger(cfg.Log.Level, encoding)
	return err
}

// #endregion setup
