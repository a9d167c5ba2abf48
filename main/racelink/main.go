package main

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jd3nn1s/racelink"
	"github.com/jd3nn1s/racelink/telemetry"
)

const defaultConfigFile = "racelink.toml"

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "racelink",
		Short:        "Telemetry link between the race car and the pit wall",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return errors.Wrapf(err, "invalid log level %q", logLevel)
			}
			log.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile,
		"config file, looked up next to the binary when not found")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"one of panic, fatal, error, warn, info, debug, trace")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReceiveCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newLayoutCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing default file is not an
// error, the built in defaults are used instead.
func loadConfig(cmd *cobra.Command) (*racelink.Config, error) {
	config, err := racelink.LoadConfig(cfgFile)
	if err != nil && !cmd.Flags().Changed("config") && errors.Is(err, os.ErrNotExist) {
		log.Infof("%s not found, using defaults", cfgFile)
		return racelink.DefaultConfig(), nil
	}
	return config, err
}

// addVersionFlag lets a command override the layout version of the config.
func addVersionFlag(fs *pflag.FlagSet, version *string) {
	fs.StringVar(version, "version", "",
		"telemetry layout version, name or number (default from config)")
}

func telemetryVersion(config *racelink.Config, override string) (telemetry.Version, error) {
	if override != "" {
		return telemetry.ParseVersion(override)
	}
	return config.TelemetryVersion()
}
