package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotPNG renders the feedback of a run against its threshold.
func PlotPNG(rec Record, filename string) error {
	if len(rec.Samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Kp=%g Ki=%g Kd=%g", rec.Kp, rec.Ki, rec.Kd)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "reflected light"
	p.Add(plotter.NewGrid())

	feedback := make(plotter.XYs, len(rec.Samples))
	for i, s := range rec.Samples {
		feedback[i].X = s.T
		feedback[i].Y = float64(s.Feedback)
	}
	line, err := plotter.NewLine(feedback)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1)

	first, last := rec.Samples[0].T, rec.Samples[len(rec.Samples)-1].T
	threshold, err := plotter.NewLine(plotter.XYs{
		{X: first, Y: float64(rec.Threshold)},
		{X: last, Y: float64(rec.Threshold)},
	})
	if err != nil {
		return err
	}
	threshold.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(line, threshold)
	p.Legend.Add("feedback", line)
	p.Legend.Add("threshold", threshold)

	return savePNG(p, 8, 4, filename)
}

func savePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}
