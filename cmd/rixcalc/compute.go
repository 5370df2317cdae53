package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/objstore"
	"github.com/pcdshub/rixcalc/pkg/publish"
	"github.com/pcdshub/rixcalc/pkg/pv"
	"github.com/pcdshub/rixcalc/pkg/signals"
)

// calibrationFlags override the calibration locations of the config file.
type calibrationFlags struct {
	mr1k1 string
	mr3k2 string
	mr4k2 string
}

func (f *calibrationFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.mr1k1, "mr1k1", "", "MR1K1 calibration table (path or s3://bucket/key)")
	flags.StringVar(&f.mr3k2, "mr3k2", "", "MR3K2 calibration table (path or s3://bucket/key)")
	flags.StringVar(&f.mr4k2, "mr4k2", "", "MR4K2 calibration table (path or s3://bucket/key)")
}

func (f *calibrationFlags) locations(conf config.Config) calib.Locations {
	loc := conf.Calibration()
	if f.mr1k1 != "" {
		loc.MR1K1 = f.mr1k1
	}
	if f.mr3k2 != "" {
		loc.MR3K2 = f.mr3k2
	}
	if f.mr4k2 != "" {
		loc.MR4K2 = f.mr4k2
	}
	return loc
}

// loadCalibration loads the tables at loc, reading s3:// locations from the
// configured object storage.
func loadCalibration(ctx context.Context, conf config.Config, loc calib.Locations) (*calib.Set, error) {
	s3 := conf.S3()
	opener, err := objstore.NewOpener(objstore.Config{
		Endpoint:  s3.Endpoint,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		Secure:    s3.Secure,
	})
	if err != nil {
		return nil, err
	}
	return calib.LoadSet(ctx, loc, opener)
}

// compute runs one cycle over the given input values.
func compute(ctx context.Context, set *calib.Set, c beamline.Constants, values map[pv.Input]float64) (*beamline.Result, error) {
	calc, err := beamline.New(set, c)
	if err != nil {
		return nil, err
	}

	src := signals.NewMemory()
	for name, v := range values {
		src.Set(name, v)
	}
	snap, err := src.Read(ctx, pv.Inputs)
	if err != nil {
		return nil, err
	}

	return calc.Compute(snap), nil
}

type computeJSON struct {
	publish.Message
	Diagnostics beamline.Diagnostics `json:"diagnostics"`
}

func NewComputeCommand() *cobra.Command {
	var (
		calFlags calibrationFlags
		inputs   []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:         "compute",
		Short:       "Compute outputs from given inputs without the daemon",
		GroupID:     gAdvanced,
		Annotations: map[string]string{offlineAnnotation: "true"},
		Long: `Compute outputs from given inputs without the daemon.

Calibration locations and constants come from the config file unless
overridden by flags. Inputs not given are absent, so the groups that need them
are skipped.

Example:
  rixcalc compute --mr1k1 MR1K1.txt \
    --input MR1K1:BEND:MMS:US.RBV=5 --input MR1K1:BEND:MMS:DS.RBV=10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			values, err := parseAssignments(inputs)
			if err != nil {
				return err
			}

			set, err := loadCalibration(cmd.Context(), conf, calFlags.locations(conf))
			if err != nil {
				return fmt.Errorf("failed to load calibration: %w", err)
			}

			res, err := compute(cmd.Context(), set, conf.Constants(), values)
			if err != nil {
				return err
			}

			msg := publish.NewMessage(conf.Prefix(), res)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), computeJSON{Message: msg, Diagnostics: res.Diagnostics})
			}

			cmd.Println(bold("Outputs:"))
			printValues(cmd, msg.Values)
			cmd.Println()
			cmd.Println(bold("Groups:"))
			printReports(cmd, msg.Reports)
			printDiagnostics(cmd, res.Diagnostics)
			return nil
		},
	}

	calFlags.register(cmd)
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "input value as NAME=VALUE (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func printDiagnostics(cmd *cobra.Command, d beamline.Diagnostics) {
	if d.FixedFocus == nil && d.KB == nil && d.Dispersion == nil {
		return
	}

	cmd.Println()
	cmd.Println(bold("Diagnostics:"))
	if ff := d.FixedFocus; ff != nil {
		if ff.CurrentErr == "" {
			cmd.Printf("  Cff (current): %s\n", bold("%.6f", ff.Current))
		} else {
			cmd.Printf("  Cff (current): %s\n", faint("%s", ff.CurrentErr))
		}
		if ff.TargetErr == "" {
			cmd.Printf("  Cff (target): %s\n", bold("%.6f", ff.Target))
		} else {
			cmd.Printf("  Cff (target): %s\n", faint("%s", ff.TargetErr))
		}
	}
	if kb := d.KB; kb != nil {
		cmd.Printf("  MR3K2 focus (upstream/downstream): %s\n", bold("%.3f / %.3f m", kb.HorizontalUpstream, kb.HorizontalDownstream))
		cmd.Printf("  MR4K2 focus (upstream/downstream): %s\n", bold("%.3f / %.3f m", kb.VerticalUpstream, kb.VerticalDownstream))
	}
	if disp := d.Dispersion; disp != nil {
		cmd.Printf("  Diffraction angle: %s\n", bold("%.6f deg", disp.Beta))
		if disp.BetaClamped {
			cmd.Println("    " + faint("clamped to 0, grating equation has no solution"))
		}
		cmd.Printf("  R': %s\n", bold("%.3f", disp.RPrime))
	}
}
