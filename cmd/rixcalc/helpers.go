package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

func parseDurationArg(args []string, valueName string) (time.Duration, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := time.ParseDuration(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

// parseAssignments parses NAME=VALUE pairs naming known inputs.
func parseAssignments(pairs []string) (map[pv.Input]float64, error) {
	known := make(map[pv.Input]bool, len(pv.Inputs))
	for _, in := range pv.Inputs {
		known[in] = true
	}

	ret := make(map[pv.Input]float64, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input %q: expected NAME=VALUE", p)
		}
		in := pv.Input(strings.TrimSpace(name))
		if !known[in] {
			return nil, fmt.Errorf("unknown input %q", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %v", name, err)
		}
		ret[in] = v
	}
	return ret, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printValues(cmd *cobra.Command, values []publish.Value) {
	if len(values) == 0 {
		cmd.Println(faint("  no outputs computed yet"))
		return
	}
	for _, v := range values {
		cmd.Printf("  %-24s %s\n", v.PV, bold("%.*f %s", v.Precision, v.Value, v.Units))
	}
}

func printReports(cmd *cobra.Command, reports []beamline.GroupReport) {
	for _, r := range reports {
		line := fmt.Sprintf("  %-18s %s", r.Group, status2Text(r.Status))
		if r.Reason != "" {
			line += "  " + faint("%s", r.Reason)
		}
		cmd.Println(line)
	}
}

func status2Text(s beamline.Status) string {
	switch s {
	case beamline.StatusOK:
		return color.New(color.Bold, color.FgGreen).Sprint("ok")
	case beamline.StatusSkipped:
		return color.New(color.Bold, color.FgYellow).Sprint("skipped")
	default:
		return color.New(color.Bold, color.FgRed).Sprint(string(s))
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func faint(format string, a ...interface{}) string {
	return color.New(color.Faint).Sprintf(format, a...)
}
