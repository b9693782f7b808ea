package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openciq/gsl/ciq"
	"github.com/openciq/gsl/internal/config"
	"github.com/openciq/gsl/internal/output"
	"github.com/openciq/gsl/session"
)

var (
	// Global flags
	cfgFile      string
	devicePath   string
	outputFormat string
	sessionToken string
	verbose      bool

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	formatter output.Formatter
)

// rootCmd is the base command for gsl.
var rootCmd = &cobra.Command{
	Use:   "gsl",
	Short: "Manage Garmin wearables: identify, list apps, install packages, apply updates",
	Long: `gsl talks to a Garmin watch over its USB service protocol and to the
Connect IQ store. It can identify a connected watch, list its installed
apps, push application, settings and firmware packages, and apply the
store's pending updates in one run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flags override the config file.
		if devicePath != "" {
			cfg.DevicePath = devicePath
		}
		if outputFormat != "" {
			cfg.OutputFormat = outputFormat
		}
		if sessionToken != "" {
			cfg.SessionToken = sessionToken
		}

		formatter = output.NewFormatter(cfg.OutputFormat)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.gsl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&devicePath, "device", "d", "", "serial endpoint of the watch, e.g. /dev/ttyACM0")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&sessionToken, "token", "", "apps.garmin.com session cookie value")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// connect opens a session against the configured device.
func connect() (*session.Session, error) {
	if cfg.DevicePath == "" {
		return nil, fmt.Errorf("no device path: pass --device or set device_path in the config")
	}
	return session.Connect(cfg.DevicePath, session.WithLogger(newLogger(verbose)))
}

// storeClient builds a Connect IQ client from the loaded config.
func storeClient() *ciq.Client {
	var opts []ciq.ClientOption
	if cfg.SessionToken != "" {
		opts = append(opts, ciq.WithSessionToken(cfg.SessionToken))
	}
	return ciq.NewClient(opts...)
}
