package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: map[string]string{offlineAnnotation: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewGetCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "get [output...]",
		Short:   "Print the latest computed outputs",
		GroupID: gBasic,
		Long: `Print the latest computed outputs.

Without arguments every output computed so far is printed. Outputs may be named
by suffix (MONO_E) or by full name (RIX:CALC:01:MONO_E).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var values []publish.Value
			if len(args) == 0 {
				var err error
				values, err = apiClient.GetOutputs()
				if err != nil {
					return err
				}
			}
			for _, name := range args {
				v, err := apiClient.GetOutput(name)
				if err != nil {
					return err
				}
				values = append(values, *v)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), values)
			}
			printValues(cmd, values)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func NewInputsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "inputs",
		Short:   "Print the inputs read in the last cycle",
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := apiClient.GetInputs()
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), inputs)
			}

			for _, in := range inputs {
				if !in.Present {
					cmd.Printf("  %-28s %s\n", in.Name, faint("absent"))
					continue
				}
				cmd.Printf("  %-28s %s  %s\n", in.Name, bold("%g", in.Value), faint("%s ago", time.Since(in.Received).Round(time.Millisecond)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func NewCycleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "cycle",
		Short:   "Run a poll cycle now",
		GroupID: gAdvanced,
		Long: `Run a poll cycle now, without waiting for the schedule.

The cycle reads all inputs, computes every group and publishes to every sink,
exactly like a scheduled cycle.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := apiClient.TriggerCycle()
			if err != nil {
				return err
			}

			printValues(cmd, msg.Values)
			printReports(cmd, msg.Reports)
			return nil
		},
	}
}

func NewReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reload",
		Short:   "Reload calibration tables",
		GroupID: gBasic,
		Long: `Make the daemon re-read its calibration tables.

If any table fails to load, the daemon keeps using the tables it has. To also
re-read the config file, send SIGHUP to the daemon instead.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos, err := apiClient.ReloadCalibration()
			if err != nil {
				return err
			}

			for _, t := range infos {
				logrus.WithFields(logrus.Fields{
					"location": t.Location,
					"rows":     t.Rows,
				}).Infof("loaded %s", t.Name)
			}
			logrus.Info("successfully reloaded calibration")
			return nil
		},
	}
}

func NewIntervalCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "interval [duration]",
		Short:   "Set the poll interval",
		GroupID: gBasic,
		Long: `Set the poll interval, for example "2s" or "1m".

The interval must be at least 1s. It replaces any cron poll schedule and is
saved to the config file.`,
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := parseDurationArg(args, "interval")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetPollInterval(d)
			if err != nil {
				return fmt.Errorf("failed to set poll interval: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}
}
