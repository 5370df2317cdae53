package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/types"
)

type statusData struct {
	status  *types.Status
	outputs []publish.Value
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	st, err := apiClient.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	outputs, err := apiClient.GetOutputs()
	if err != nil {
		return nil, fmt.Errorf("failed to get outputs: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		status:  st,
		outputs: outputs,
		config:  conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of rixcalc",
		Long:    `Get the poll loop state, the latest outputs, the calibration tables, and the configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), data.status)
			}

			printStatus(cmd, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the daemon status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, data *statusData) {
	st := data.status
	conf := config.NewFileFromConfig(data.config, "")

	// Poll loop.
	cmd.Println(bold("Poll loop:"))
	cmd.Printf("  Running: %s\n", bool2Text(st.Scheduled))
	cmd.Printf("  Schedule: %s\n", bold("%s", st.Schedule))
	if !st.NextCycle.IsZero() {
		cmd.Printf("  Next cycle: %s\n", bold("in %s", time.Until(st.NextCycle).Round(time.Millisecond)))
	}
	if st.LastCycle.IsZero() {
		cmd.Printf("  Last cycle: %s\n", faint("never"))
	} else {
		cmd.Printf("  Last cycle: %s\n", bold("%s ago", time.Since(st.LastCycle).Round(time.Millisecond)))
	}
	cmd.Printf("  Cycles: %s\n", bold("%d", st.Cycles))
	if st.MissedCycles {
		cmd.Println("  " + color.New(color.Bold, color.FgYellow).Sprint("Recent cycles did not keep up with the schedule."))
	}

	cmd.Println()

	// Outputs.
	cmd.Println(bold("Outputs:"))
	printValues(cmd, data.outputs)
	if len(st.Groups) > 0 {
		cmd.Println()
		cmd.Println(bold("Last cycle groups:"))
		printReports(cmd, st.Groups)
	}

	cmd.Println()

	// Calibration.
	cmd.Println(bold("Calibration:"))
	for _, t := range st.Calibration {
		cmd.Printf("  %-6s %s  %s\n", t.Name, bold("%d rows", t.Rows), faint("%s, loaded %s", t.Location, t.LoadedAt.Format(time.DateTime)))
	}

	cmd.Println()

	// Config.
	cmd.Println(bold("Configuration:"))
	cmd.Printf("  Prefix: %s\n", bold("%s", conf.Prefix()))
	cmd.Printf("  Source: %s\n", bold("%s", st.Source))
	cmd.Printf("  Sinks: %s\n", bold("%v", st.Sinks))
	c := conf.Constants()
	cmd.Printf("  KB offsets (H/V): %s\n", bold("%g / %g m", c.KBOffsets.Horizontal, c.KBOffsets.Vertical))
	cmd.Printf("  Grating groove density: %s\n", bold("%g l/mm", c.Mono.GrooveDensity))
	cmd.Printf("  Event subscribers: %s\n", bold("%d", st.Subscribers))
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
	cmd.Printf("  Version: %s\n", bold("%s", st.Version))
}
