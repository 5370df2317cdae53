package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/events"
	"github.com/pcdshub/rixcalc/pkg/publish"
)

func NewWatchCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Stream cycle events from the daemon",
		GroupID: gBasic,
		Long: `Stream cycle events from the daemon until interrupted.

Every cycle prints its outputs on one line. Failed groups and calibration
reloads are printed as they happen.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for ev := range apiClient.SubscribeEvents(ctx) {
				if raw {
					cmd.Printf("%s %s\n", ev.Name, ev.Data)
					continue
				}
				line, err := formatEvent(ev)
				if err != nil {
					return err
				}
				cmd.Println(line)
			}

			if ctx.Err() == nil {
				return fmt.Errorf("event stream closed by daemon")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print event names and JSON payloads as received")

	return cmd
}

func formatEvent(ev events.Event) (string, error) {
	switch ev.Name {
	case events.Cycle:
		msg, err := events.DecodeAs[publish.Message](ev)
		if err != nil {
			return "", fmt.Errorf("failed to decode cycle event: %w", err)
		}
		parts := make([]string, 0, len(msg.Values))
		for _, v := range msg.Values {
			parts = append(parts, fmt.Sprintf("%s=%.*f", v.Name, v.Precision, v.Value))
		}
		return fmt.Sprintf("%s  %s", msg.Time.Local().Format(time.TimeOnly), strings.Join(parts, " ")), nil
	case events.GroupFailed:
		p, err := events.DecodeAs[events.GroupFailedEvent](ev)
		if err != nil {
			return "", fmt.Errorf("failed to decode group event: %w", err)
		}
		return fmt.Sprintf("%s  %s failed: %s", time.Unix(p.Ts, 0).Format(time.TimeOnly), p.Group, p.Message), nil
	case events.CalibrationReloaded:
		p, err := events.DecodeAs[events.CalibrationReloadedEvent](ev)
		if err != nil {
			return "", fmt.Errorf("failed to decode calibration event: %w", err)
		}
		names := make([]string, 0, len(p.Tables))
		for name, rows := range p.Tables {
			names = append(names, fmt.Sprintf("%s(%d rows)", name, rows))
		}
		sort.Strings(names)
		return fmt.Sprintf("%s  calibration reloaded: %s", time.Unix(p.Ts, 0).Format(time.TimeOnly), strings.Join(names, " ")), nil
	default:
		return fmt.Sprintf("%s %s", ev.Name, ev.Data), nil
	}
}
