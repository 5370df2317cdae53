package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pcdshub/rixcalc/pkg/client"
	"github.com/pcdshub/rixcalc/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/rixcalc.sock"
	configPath     = "/etc/rixcalc.json"
	envFile        = ""
)

var apiClient = client.NewClient(unixSocketPath)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

// offlineAnnotation marks commands that never talk to the daemon.
const offlineAnnotation = "offline"

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.DateTime,
		})
	}

	return nil
}

// loadEnv reads RIXCALC_* settings from envFile, or from ./.env when no file
// was given. Variables already set in the environment win.
func loadEnv() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func getVersion() (clientVersion string, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	return version.Version, daemonVersion, err
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: rixcalc daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Is --daemon-socket pointing at it?")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with '--always-allow-non-root-access' to grant permissions to your user")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rixcalc",
		Short: "rixcalc derives RIX beamline focus, photon energy and dispersion",
		Long: `rixcalc derives RIX beamline quantities from motor readbacks.

Once per poll period the daemon reads the bender motor positions, the SP1K1
monochromator pitches and the FEL set energy, and publishes the mirror focus
positions, the photon energy and the reciprocal linear dispersion.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			if err := loadEnv(); err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			if c.Annotations[offlineAnnotation] != "" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. rixcalc may not work as expected.")
				}
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "rixcalc daemon unix socket path")
	globalFlags.StringVar(&envFile, "env-file", envFile, "file with RIXCALC_* environment variables (default ./.env if present)")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewGetCommand(),
		NewInputsCommand(),
		NewWatchCommand(),
		NewCycleCommand(),
		NewReloadCommand(),
		NewIntervalCommand(),
		NewComputeCommand(),
		NewPlotCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
