package cli

import (
	"fmt"
	"os"

	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const app = "job-tracker"

type rootOptions struct {
	cfgFile string
	debug   bool
	json    bool
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           app,
		Short:         "job-tracker tracks job applications and scores resume fit with a language model",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "a config file (default is jobtracker.yaml in current directory)")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose/debug output")
	cmd.PersistentFlags().BoolVarP(&opts.json, "json", "j", false, "json format for logging")

	cmd.AddCommand(newServeCmd(opts), newScoreCmd(opts), newGmailAuthCmd(opts))
	return cmd
}

// setup loads configuration and builds the logger every command shares.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.New(), o.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if o.json {
		cfg.Log.JSON = true
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}
