package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/proxylog/internal/config"
	"github.com/telhawk-systems/proxylog/internal/logging"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "proxylog",
		Short: "Proxy access log analyzer",
		Long: `proxylog computes statistics over proxy access logs.

Each log line holds ten whitespace separated fields: timestamp, response
header size, client IP, response code, response size, request method, URL,
username, destination IP and response type. Results are written as JSON by
default.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.proxylog/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json")

	rootCmd.AddCommand(newAnalyzeCmd(a), newSeedCmd(a), newConfigCmd(a))
	return rootCmd
}

// Execute runs the proxylog command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(a.logger)
	return nil
}
