package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/optics"
)

type plotOptions struct {
	output string
	points int
	// pitchSpan is the grating pitch sweep around its offset, in urad.
	pitchSpan float64
	// mirror is the fixed pre-mirror pitch in urad. Zero means its offset.
	mirror float64
	eMin   float64
	eMax   float64
}

func NewPlotCommand() *cobra.Command {
	var (
		calFlags calibrationFlags
		o        plotOptions
	)

	cmd := &cobra.Command{
		Use:         "plot",
		Short:       "Plot calibration tables and mono curves to an HTML file",
		GroupID:     gAdvanced,
		Annotations: map[string]string{offlineAnnotation: "true"},
		Long: `Plot calibration tables and mono curves to an HTML file.

The page shows focus parameter against bender position for each calibration
table, photon energy against grating pitch, and reciprocal linear dispersion
against photon energy, using the constants of the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.points < 2 {
				return fmt.Errorf("need at least 2 points, got %d", o.points)
			}
			if o.eMin <= 0 || o.eMax <= o.eMin {
				return fmt.Errorf("invalid energy range %g..%g", o.eMin, o.eMax)
			}

			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			set, err := loadCalibration(cmd.Context(), conf, calFlags.locations(conf))
			if err != nil {
				return fmt.Errorf("failed to load calibration: %w", err)
			}

			f, err := os.Create(o.output)
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			defer f.Close()

			if err := renderPlots(f, set, conf.Constants(), o); err != nil {
				return err
			}

			logrus.Infof("plots written to %s", o.output)
			return nil
		},
	}

	calFlags.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "rixcalc.html", "output HTML file")
	f.IntVar(&o.points, "points", 200, "points per curve")
	f.Float64Var(&o.pitchSpan, "pitch-span", 20000, "grating pitch sweep around its offset (urad)")
	f.Float64Var(&o.mirror, "mirror-pitch", 0, "pre-mirror pitch for the energy curve (urad, default its offset)")
	f.Float64Var(&o.eMin, "energy-min", 250, "lowest photon energy for the dispersion curve (eV)")
	f.Float64Var(&o.eMax, "energy-max", 1600, "highest photon energy for the dispersion curve (eV)")

	return cmd
}

func renderPlots(w io.Writer, set *calib.Set, c beamline.Constants, o plotOptions) error {
	page := components.NewPage()
	page.PageTitle = "rixcalc"
	for _, t := range []*calib.Table{set.MR1K1, set.MR3K2, set.MR4K2} {
		page.AddCharts(calibrationChart(t))
	}
	page.AddCharts(energyChart(c.Mono, o), dispersionChart(c.Dispersion, o))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render plots: %w", err)
	}
	return nil
}

func newLineChart(title, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			BackgroundColor: "#ffffff",
			Width:           "900px",
			Height:          "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "5%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "cross",
				Snap: opts.Bool(true),
			},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:  xName,
			Type:  "value",
			Scale: opts.Bool(true),
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  yName,
			Type:  "value",
			Scale: opts.Bool(true),
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
	)
	return line
}

func xyData(xs, ys []float64) []opts.LineData {
	data := make([]opts.LineData, len(xs))
	for i := range xs {
		data[i] = opts.LineData{Value: []interface{}{xs[i], ys[i]}}
	}
	return data
}

func calibrationChart(t *calib.Table) *charts.Line {
	line := newLineChart(t.Name+" calibration", "bender position", "focus parameter")
	line.AddSeries("upstream", xyData(t.Upstream, t.Parameter))
	line.AddSeries("downstream", xyData(t.Downstream, t.Parameter))
	return line
}

// sweep returns n evenly spaced points from lo to hi.
func sweep(lo, hi float64, n int) []float64 {
	xs := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range xs {
		xs[i] = lo + float64(i)*step
	}
	return xs
}

func energyChart(m optics.MonoConstants, o plotOptions) *charts.Line {
	mirror := o.mirror
	if mirror == 0 {
		mirror = m.OffsetM2 * 1e6
	}
	center := m.OffsetG * 1e6

	var xs, ys []float64
	for _, g := range sweep(center-o.pitchSpan, center+o.pitchSpan, o.points) {
		e, err := m.Energy(optics.Pitch{Grating: g, Mirror: mirror})
		if err != nil {
			continue
		}
		xs = append(xs, g)
		ys = append(ys, e)
	}

	line := newLineChart("Photon energy", "grating pitch (urad)", "energy (eV)")
	line.AddSeries(fmt.Sprintf("mirror pitch %.0f urad", mirror), xyData(xs, ys))
	return line
}

func dispersionChart(d optics.DispersionConstants, o plotOptions) *charts.Line {
	var xs, ys []float64
	for _, e := range sweep(o.eMin, o.eMax, o.points) {
		disp, err := d.LinearDispersion(e)
		if err != nil || disp.NoDispersion {
			continue
		}
		xs = append(xs, e)
		ys = append(ys, disp.Value)
	}

	line := newLineChart("Reciprocal linear dispersion", "energy (eV)", "dispersion (meV/um)")
	line.AddSeries("dispersion", xyData(xs, ys))
	return line
}
