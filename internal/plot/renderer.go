// Package plot renders plate-location scatter plots for a hit-by-pitch event
// against its season and participant history.
package plot

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/plunkbot/plunkbot/internal/models"
)

// Renderer draws the three analysis artifacts for an event: the full-season
// context plot plus batter- and pitcher-history variants.
type Renderer struct {
	plotDir string
	logger  *slog.Logger
}

// NewRenderer constructs a renderer writing PNGs into plotDir.
func NewRenderer(plotDir string, logger *slog.Logger) *Renderer {
	return &Renderer{plotDir: plotDir, logger: logger}
}

// PlotPaths returns the well-known artifact paths for an event, in the order
// season, batter, pitcher.
func (r *Renderer) PlotPaths(ev models.Event) []string {
	prefix := fmt.Sprintf("%d_%s", ev.GamePk, ev.PlayID)
	return []string{
		filepath.Join(r.plotDir, fmt.Sprintf("%s_%d.png", prefix, ev.Season())),
		filepath.Join(r.plotDir, prefix+"_batter.png"),
		filepath.Join(r.plotDir, prefix+"_pitcher.png"),
	}
}

// Render draws the three plots. It returns the written paths and ok=false
// without error when the comparison data has no plottable points, matching
// the renderer contract: no data is a skip, not a failure.
func (r *Renderer) Render(ctx context.Context, ev models.Event, season, batterHist, pitcherHist []models.Event) ([]string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	seasonPts := plottablePoints(season)
	if len(seasonPts) == 0 {
		r.logger.Warn("no valid season data to plot", "play_id", ev.PlayID)
		return nil, false, nil
	}

	if err := os.MkdirAll(r.plotDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create plot directory: %w", err)
	}

	paths := r.PlotPaths(ev)
	figures := []struct {
		title  string
		points plotter.XYs
		path   string
	}{
		{fmt.Sprintf("%d season hit-by-pitch locations", ev.Season()), seasonPts, paths[0]},
		{"Batter hit-by-pitch history", plottablePoints(batterHist), paths[1]},
		{"Pitcher hit-by-pitch history", plottablePoints(pitcherHist), paths[2]},
	}

	for _, fig := range figures {
		if err := r.renderScatter(fig.title, fig.points, ev, fig.path); err != nil {
			return nil, false, fmt.Errorf("failed to render %s: %w", filepath.Base(fig.path), err)
		}
	}

	r.logger.Info("analysis plots rendered", "play_id", ev.PlayID, "count", len(paths))
	return paths, true, nil
}

func (r *Renderer) renderScatter(title string, history plotter.XYs, ev models.Event, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "plate x (ft)"
	p.Y.Label.Text = "plate z (ft)"
	p.Add(plotter.NewGrid())

	if err := addHomePlate(p); err != nil {
		return err
	}

	if len(history) > 0 {
		scatter, err := plotter.NewScatter(history)
		if err != nil {
			return fmt.Errorf("failed to build history scatter: %w", err)
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("history", scatter)
	}

	current, err := plotter.NewScatter(plotter.XYs{{X: ev.PlateX, Y: ev.PlateZ}})
	if err != nil {
		return fmt.Errorf("failed to build current-play scatter: %w", err)
	}
	current.GlyphStyle.Color = color.RGBA{R: 0xd0, G: 0x20, B: 0x20, A: 0xff}
	current.GlyphStyle.Radius = vg.Points(5)
	p.Add(current)
	p.Legend.Add("this play", current)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	return nil
}

// addHomePlate draws the plate outline at the origin: a 17-inch-wide
// pentagon, dimensions converted to feet to match the plate coordinates.
func addHomePlate(p *plot.Plot) error {
	const (
		plateWidth = 17.0 / 12.0
		rectDepth  = 8.5 / 12.0
		sideLen    = 12.0 / 12.0
	)
	pointDepth := rectDepth + sideLen*0.707 // 45-degree back edges

	outline, err := plotter.NewPolygon(plotter.XYs{
		{X: -plateWidth / 2, Y: 0},
		{X: plateWidth / 2, Y: 0},
		{X: plateWidth / 2, Y: -rectDepth},
		{X: 0, Y: -pointDepth},
		{X: -plateWidth / 2, Y: -rectDepth},
	})
	if err != nil {
		return fmt.Errorf("failed to build home plate polygon: %w", err)
	}
	outline.Color = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	outline.LineStyle.Color = color.Black
	outline.LineStyle.Width = vg.Points(1.5)
	p.Add(outline)

	return nil
}

// plottablePoints extracts the plate coordinates, dropping events whose
// measurements never arrived from the provider.
func plottablePoints(events []models.Event) plotter.XYs {
	pts := make(plotter.XYs, 0, len(events))
	for _, ev := range events {
		if ev.PlateX == 0 && ev.PlateZ == 0 && ev.EndSpeed == 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: ev.PlateX, Y: ev.PlateZ})
	}
	return pts
}
