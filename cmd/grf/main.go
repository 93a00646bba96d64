// Command grf trains generalized random forests on CSV data and predicts with them.
package main

import (
	"os"
	"strings"

	"github.com/YuminosukeSato/grf/config"
	"github.com/YuminosukeSato/grf/pkg/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "grf",
		Short: "Generalized random forests for regression and causal effects",
		Long: `grf grows honest random forests on CSV data and predicts conditional
means or treatment effects with jackknife confidence intervals.

Configuration is read from the file given with --config and may be
overridden with GRF_ environment variables, e.g. GRF_FOREST_NUM_TREES=500.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newTrainCmd(a))
	root.AddCommand(newPredictCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads the configuration and installs the configured log provider.
// Records go to stderr so that stdout stays free for results.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	switch strings.ToLower(cfg.Log.Format) {
	case config.LogFormatZerolog:
		p := log.NewZerologProvider(cmd.ErrOrStderr(), level)
		p.InstallWarnings()
		log.SetProvider(p)
	default:
		log.SetProvider(log.NewSlogProvider(cmd.ErrOrStderr(), level))
	}
	a.cfg = cfg
	return nil
}
